package spec

import (
	"github.com/relaypoint/actorcore/actor"
)

// WorkerSpec describes a single actor to spawn under a supervisor.
type WorkerSpec struct {
	ID       string
	Func     actor.Func
	Args     []interface{}
	Restart  RestartPolicy
	Shutdown int
}

// NewWorkerSpec builds a WorkerSpec with the supervisor's usual defaults:
// restart only on abnormal exit, no shutdown grace period.
func NewWorkerSpec(id string, fn actor.Func, args ...interface{}) WorkerSpec {
	return WorkerSpec{ID: id, Func: fn, Args: args, Restart: RestartTransient, Shutdown: ShutdownKill}
}

func (w WorkerSpec) ChildSpec() Spec { return w }
func (w WorkerSpec) id() string      { return w.ID }

// SetRestart returns a copy of w with Restart set to policy.
func (w WorkerSpec) SetRestart(policy RestartPolicy) WorkerSpec {
	w.Restart = policy
	return w
}

// SetShutdown returns a copy of w with Shutdown set to ms.
func (w WorkerSpec) SetShutdown(ms int) WorkerSpec {
	w.Shutdown = ms
	return w
}
