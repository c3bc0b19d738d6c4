package scheduler

import (
	"sync"
	"time"

	"github.com/relaypoint/actorcore/actor"
)

// worker drives one goroutine: pop its own queue's bottom,
// run a bounded quantum, steal from a peer's top when its own queue runs
// dry. Grounded on the three-tier poll ladder of config.PollTier
// (Aggressive/Moderate/Relaxed), which spec.md §4.4 asks for explicitly.
type worker struct {
	id      int
	sched   *Scheduler
	deque   *dequeue
	stopped chan struct{}
}

func newWorker(id int, s *Scheduler) *worker {
	return &worker{id: id, sched: s, deque: newDequeue(), stopped: make(chan struct{})}
}

// enqueue pushes a onto this worker's own end of its queue: called by an
// actor's mailbox onReady hook waking it back up (a fresh Spawn goes onto
// the scheduler's shared injector instead).
func (w *worker) enqueue(a *actor.ACB) {
	w.deque.pushBottom(a)
}

func (w *worker) loop() {
	defer close(w.stopped)
	cfg := w.sched.cfg
	for {
		if w.sched.stopping() {
			return
		}
		a, ok := w.deque.popBottom()
		if !ok {
			a, ok = w.drainInjector()
		}
		if !ok {
			a, ok = w.stealWithConfig()
		}
		if !ok {
			continue
		}
		terminated, hasMore := a.RunQuantum(cfg.MaxThroughput)
		if !terminated && hasMore {
			w.deque.pushBottom(a)
		}
	}
}

// drainInjector takes one freshly spawned actor off the scheduler's shared
// injector, the landing spot every new actor.ACB gets pushed onto before
// any worker claims it (see Scheduler.spawn).
func (w *worker) drainInjector() (*actor.ACB, bool) {
	if w.sched.injector.Size() == 0 {
		return nil, false
	}
	return w.sched.injector.Pop().(*actor.ACB), true
}

// stealWithConfig runs the aggressive/moderate/relaxed ladder, trying
// every peer once per attempt before sleeping the tier's configured
// interval. It returns as soon as any peer yields an actor.
func (w *worker) stealWithConfig() (*actor.ACB, bool) {
	tiers := []struct {
		attempts int
		sleep    time.Duration
	}{
		{w.sched.cfg.Aggressive.Attempts, w.sched.cfg.Aggressive.Sleep},
		{w.sched.cfg.Moderate.Attempts, w.sched.cfg.Moderate.Sleep},
		{w.sched.cfg.Relaxed.Attempts, w.sched.cfg.Relaxed.Sleep},
	}
	for _, tier := range tiers {
		for i := 0; i < tier.attempts; i++ {
			if w.sched.stopping() {
				return nil, false
			}
			for _, peer := range w.sched.workers {
				if peer == w {
					continue
				}
				if a, ok := peer.deque.stealTop(); ok {
					return a, true
				}
			}
			if tier.sleep > 0 {
				time.Sleep(tier.sleep)
			}
		}
	}
	// final tier exhausted: wait one relaxed interval plus a millisecond, or
	// until the scheduler stops, instead of busy-spinning with nothing to do.
	select {
	case <-time.After(w.sched.cfg.Relaxed.Sleep + time.Millisecond):
	case <-w.sched.done:
	}
	return nil, false
}

// dequeue is a worker-local double-ended queue: pushBottom/popBottom are
// only ever called by the owning worker, stealTop only by peers. A single
// mutex guards it; a true lock-free Chase-Lev deque isn't available
// anywhere in the corpus, so this is the straightforward alternative
// (documented in DESIGN.md).
type dequeue struct {
	mu    sync.Mutex
	items []*actor.ACB
}

func newDequeue() *dequeue {
	return &dequeue{}
}

func (d *dequeue) pushBottom(a *actor.ACB) {
	d.mu.Lock()
	d.items = append(d.items, a)
	d.mu.Unlock()
}

func (d *dequeue) popBottom() (*actor.ACB, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.items)
	if n == 0 {
		return nil, false
	}
	a := d.items[n-1]
	d.items = d.items[:n-1]
	return a, true
}

func (d *dequeue) stealTop() (*actor.ACB, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.items) == 0 {
		return nil, false
	}
	a := d.items[0]
	d.items = d.items[1:]
	return a, true
}
