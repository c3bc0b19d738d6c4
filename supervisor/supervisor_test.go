package supervisor_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaypoint/actorcore/actor"
	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/envelope"
	actorcontext "github.com/relaypoint/actorcore/internal/context"
	"github.com/relaypoint/actorcore/internal/pid"
	"github.com/relaypoint/actorcore/supervisor"
	"github.com/relaypoint/actorcore/supervisor/spec"
)

// spawnLog counts how many times each tracked worker id has started,
// standing in for an external observation of restarts.
type spawnLog struct {
	mu     sync.Mutex
	counts map[string]int
}

func newSpawnLog() *spawnLog {
	return &spawnLog{counts: make(map[string]int)}
}

func (l *spawnLog) record(id string) {
	l.mu.Lock()
	l.counts[id]++
	l.mu.Unlock()
}

func (l *spawnLog) count(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[id]
}

// trackedWorker records its own start in log and then blocks, panicking
// whenever it is sent the string "crash".
func trackedWorker(id string, log *spawnLog) actor.Func {
	return func(ctx *actorcontext.Context) {
		log.record(id)
		for {
			v, ok := ctx.ReceiveBlocking(0)
			if !ok {
				return
			}
			env, isEnv := v.(envelope.Envelope)
			if !isEnv {
				continue
			}
			s, err := env.Payload.String(0)
			if err == nil && s == "crash" {
				panic("induced crash")
			}
		}
	}
}

func childPID(t *testing.T, r *supervisor.Ref, id string) *pid.ProtectedPID {
	t.Helper()
	info, err := r.WithChildren()
	require.NoError(t, err)
	for _, ci := range info.ChildrenInfo {
		if ci.ID == id {
			return ci.PID
		}
	}
	return nil
}

func TestOneForOneRestartsOnlyTheCrashedChild(t *testing.T) {
	log := newSpawnLog()
	r, err := supervisor.StartLink(supervisor.OneForOneStrategyOption,
		spec.NewWorkerSpec("a", trackedWorker("a", log)),
		spec.NewWorkerSpec("b", trackedWorker("b", log)),
	)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return log.count("a") == 1 && log.count("b") == 1
	}, time.Second, time.Millisecond)

	p := childPID(t, r, "a")
	require.NotNil(t, p)
	actor.Send(p, "crash")

	require.Eventually(t, func() bool { return log.count("a") == 2 }, time.Second, time.Millisecond)
	require.Equal(t, 1, log.count("b"))
}

func TestOneForAllRestartsEverySibling(t *testing.T) {
	log := newSpawnLog()
	r, err := supervisor.StartLink(supervisor.OneForAllStrategyOption,
		spec.NewWorkerSpec("a", trackedWorker("a", log)),
		spec.NewWorkerSpec("b", trackedWorker("b", log)),
	)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return log.count("a") == 1 && log.count("b") == 1
	}, time.Second, time.Millisecond)

	p := childPID(t, r, "a")
	require.NotNil(t, p)
	actor.Send(p, "crash")

	require.Eventually(t, func() bool {
		return log.count("a") == 2 && log.count("b") == 2
	}, time.Second, time.Millisecond)
}

func TestRestForOneRestartsCrashedAndLaterSiblings(t *testing.T) {
	log := newSpawnLog()
	r, err := supervisor.StartLink(supervisor.RestForOneStrategyOption,
		spec.NewWorkerSpec("a", trackedWorker("a", log)),
		spec.NewWorkerSpec("b", trackedWorker("b", log)),
		spec.NewWorkerSpec("c", trackedWorker("c", log)),
	)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return log.count("a") == 1 && log.count("b") == 1 && log.count("c") == 1
	}, time.Second, time.Millisecond)

	p := childPID(t, r, "b")
	require.NotNil(t, p)
	actor.Send(p, "crash")

	require.Eventually(t, func() bool {
		return log.count("b") == 2 && log.count("c") == 2
	}, time.Second, time.Millisecond)
	require.Equal(t, 1, log.count("a"))
}

func TestExceedingMaxRestartsEscalatesAndTerminatesSupervisor(t *testing.T) {
	log := newSpawnLog()
	opts := supervisor.NewOptions(supervisor.OneForOneStrategy, 0, 60)
	r, err := supervisor.StartLink(opts, spec.NewWorkerSpec("a", trackedWorker("a", log)))
	require.NoError(t, err)

	watcher := actor.New(config.Default(), nil)
	watcher.Monitor(pid.Extract(r.PID))

	require.Eventually(t, func() bool { return log.count("a") == 1 }, time.Second, time.Millisecond)
	actor.Send(childPID(t, r, "a"), "crash")

	require.Eventually(t, func() bool {
		_, ok := watcher.PID().Mailbox().Pop()
		return ok
	}, time.Second, time.Millisecond)
}

func TestCountChildrenReportsSpecAndKindTotals(t *testing.T) {
	log := newSpawnLog()
	r, err := supervisor.StartLink(supervisor.OneForOneStrategyOption,
		spec.NewWorkerSpec("a", trackedWorker("a", log)),
		spec.NewWorkerSpec("b", trackedWorker("b", log)),
	)
	require.NoError(t, err)

	counts, err := r.CountChildren()
	require.NoError(t, err)
	require.Equal(t, 2, counts.Specs)
	require.Equal(t, 2, counts.Workers)
	require.Equal(t, 0, counts.Supervisors)
	require.Equal(t, 2, counts.Active)
}

func TestTerminateChildStopsAChildWithoutRestarting(t *testing.T) {
	log := newSpawnLog()
	r, err := supervisor.StartLink(supervisor.OneForOneStrategyOption,
		spec.NewWorkerSpec("a", trackedWorker("a", log)).SetShutdown(spec.ShutdownKill),
	)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return log.count("a") == 1 }, time.Second, time.Millisecond)

	require.NoError(t, r.TerminateChild("a"))

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, log.count("a"))
	require.Nil(t, childPID(t, r, "a"))
}

func TestRestartChildStartsATerminatedChildAgain(t *testing.T) {
	log := newSpawnLog()
	r, err := supervisor.StartLink(supervisor.OneForOneStrategyOption,
		spec.NewWorkerSpec("a", trackedWorker("a", log)).SetShutdown(spec.ShutdownKill),
	)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return log.count("a") == 1 }, time.Second, time.Millisecond)
	require.NoError(t, r.TerminateChild("a"))

	require.NoError(t, r.RestartChild("a"))
	require.Eventually(t, func() bool { return log.count("a") == 2 }, time.Second, time.Millisecond)
}

func TestDeleteChildRejectsARunningChild(t *testing.T) {
	log := newSpawnLog()
	r, err := supervisor.StartLink(supervisor.OneForOneStrategyOption,
		spec.NewWorkerSpec("a", trackedWorker("a", log)),
	)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return log.count("a") == 1 }, time.Second, time.Millisecond)

	require.Error(t, r.DeleteChild("a"))
}

func TestStartChildAddsAndStartsANewChild(t *testing.T) {
	log := newSpawnLog()
	r, err := supervisor.StartLink(supervisor.OneForOneStrategyOption,
		spec.NewWorkerSpec("a", trackedWorker("a", log)),
	)
	require.NoError(t, err)

	require.NoError(t, r.StartChild(spec.NewWorkerSpec("b", trackedWorker("b", log))))
	require.Eventually(t, func() bool { return log.count("b") == 1 }, time.Second, time.Millisecond)
}

func TestStopShutsDownEveryChild(t *testing.T) {
	log := newSpawnLog()
	r, err := supervisor.StartLink(supervisor.OneForOneStrategyOption,
		spec.NewWorkerSpec("a", trackedWorker("a", log)),
		spec.NewWorkerSpec("b", trackedWorker("b", log)),
	)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return log.count("a") == 1 && log.count("b") == 1
	}, time.Second, time.Millisecond)

	pa, pb := childPID(t, r, "a"), childPID(t, r, "b")
	require.NoError(t, r.Stop("test done"))

	require.Eventually(t, func() bool {
		return pid.Extract(pa).Terminated() && pid.Extract(pb).Terminated()
	}, time.Second, time.Millisecond)
}

func TestNestedSupervisorIsLinkedAndRestartedAsAUnit(t *testing.T) {
	log := newSpawnLog()
	nestedStart := func(children ...spec.Spec) (*pid.ProtectedPID, error) {
		r, err := supervisor.StartLink(supervisor.OneForOneStrategyOption, children...)
		if err != nil {
			return nil, err
		}
		return r.PID, nil
	}

	r, err := supervisor.StartLink(supervisor.OneForOneStrategyOption,
		spec.NewSupervisorSpec("nested", nestedStart, spec.NewWorkerSpec("a", trackedWorker("a", log))),
	)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return log.count("a") == 1 }, time.Second, time.Millisecond)

	counts, err := r.CountChildren()
	require.NoError(t, err)
	require.Equal(t, 1, counts.Supervisors)
	require.Equal(t, 0, counts.Workers)
}
