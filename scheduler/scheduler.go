// Package scheduler implements the work-stealing worker pool described in
// spec.md §4.4: a fixed pool of workers, each with its own run queue,
// stealing from one another through a three-tier poll ladder
// (aggressive/moderate/relaxed) before parking. This has no analogue in
// the teacher, which spawns one goroutine per actor and lets the Go
// runtime's own scheduler do the placement; grounded instead on the
// teacher's mailbox CAS idle/processing handshake (generalized here into
// the mailbox's onReady hook) for how a worker learns an actor became
// runnable again, and on github.com/t3rm1n4l/go-mpscqueue (already used by
// the mailbox package) for the shared injector newly spawned actors land
// on before work-stealing redistributes them.
package scheduler

import (
	"sync/atomic"

	mpsc "github.com/t3rm1n4l/go-mpscqueue"

	"github.com/relaypoint/actorcore/actor"
	"github.com/relaypoint/actorcore/actorerr"
	"github.com/relaypoint/actorcore/behavior"
	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/internal/pid"
)

// Scheduler owns a fixed pool of workers and the actors spawned onto it.
type Scheduler struct {
	cfg      config.Config
	workers  []*worker
	next     uint64 // round-robin counter for initial placement
	injector *mpsc.MPSCQueue

	stopped int32
	done    chan struct{}
}

// New builds a Scheduler with cfg.Workers workers, none yet running.
func New(cfg config.Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	s := &Scheduler{
		cfg:      cfg,
		injector: mpsc.New(),
		done:     make(chan struct{}),
	}
	s.workers = make([]*worker, cfg.Workers)
	for i := range s.workers {
		s.workers[i] = newWorker(i, s)
	}
	return s
}

// Start launches every worker's loop on its own goroutine.
func (s *Scheduler) Start() {
	for _, w := range s.workers {
		go w.loop()
	}
}

// Stop asks every worker to exit once its current quantum finishes, then
// terminates any actor still queued anywhere in the pool with
// ExitOutOfWorkers, and blocks until every worker has returned.
func (s *Scheduler) Stop() {
	if !atomic.CompareAndSwapInt32(&s.stopped, 0, 1) {
		return
	}
	close(s.done)
	for _, w := range s.workers {
		<-w.stopped
		for {
			a, ok := w.deque.popBottom()
			if !ok {
				break
			}
			a.Terminate(actorerr.ExitReason{Code: actorerr.ExitOutOfWorkers})
		}
	}
	for s.injector.Size() > 0 {
		a := s.injector.Pop().(*actor.ACB)
		a.Terminate(actorerr.ExitReason{Code: actorerr.ExitOutOfWorkers})
	}
}

func (s *Scheduler) stopping() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Scheduler) pickWorker() *worker {
	i := atomic.AddUint64(&s.next, 1) % uint64(len(s.workers))
	return s.workers[i]
}

// spawn builds a fresh ACB running b, wired so its mailbox's onReady hook
// re-enqueues it on its home worker w, and lands it on the shared injector
// for its very first run: whichever worker drains the injector first picks
// it up, after which it settles onto w for every subsequent wake-up.
func (s *Scheduler) spawn(w *worker, b *behavior.Behavior, args []interface{}) *actor.ACB {
	var a *actor.ACB
	a = actor.New(s.cfg, func() {
		// A worker already mid-RunQuantum for a will re-check its mailbox
		// and re-enqueue itself once it releases the running flag, so
		// skipping the enqueue here can't strand this wakeup.
		if a.Running() {
			return
		}
		w.enqueue(a)
	}, args...)
	a.SetBehavior(b)
	s.injector.Push(a)
	return a
}

// Spawn builds a new actor running b, assigning it a round-robin home
// worker (for its mailbox's wake-up hook) and landing its first run on the
// shared injector; work-stealing redistributes from there. It returns the
// actor's protected address.
func (s *Scheduler) Spawn(b *behavior.Behavior, args ...interface{}) *pid.ProtectedPID {
	a := s.spawn(s.pickWorker(), b, args)
	return a.Self()
}

// SpawnLink is Spawn plus a symmetric link to from.
func (s *Scheduler) SpawnLink(from *actor.ACB, b *behavior.Behavior, args ...interface{}) *pid.ProtectedPID {
	a := s.spawn(s.pickWorker(), b, args)
	from.Link(a.PID())
	return a.Self()
}

// SpawnMonitor is Spawn plus a one-way monitor from from.
func (s *Scheduler) SpawnMonitor(from *actor.ACB, b *behavior.Behavior, args ...interface{}) *pid.ProtectedPID {
	a := s.spawn(s.pickWorker(), b, args)
	from.Monitor(a.PID())
	return a.Self()
}
