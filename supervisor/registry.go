package supervisor

import "time"

// restartTracker records each child's restart timestamps and decides when a
// child has been restarted too many times within Options.Period, the way
// the teacher's registry.timeTracer did, generalized to track by child id
// alone since the new pid.PID no longer supports being used as a map key
// across restarts (a fresh PID is minted every respawn).
type restartTracker struct {
	options Options
	history map[string][]time.Time
}

func newRestartTracker(opts Options) *restartTracker {
	return &restartTracker{options: opts, history: make(map[string][]time.Time)}
}

// noteRestart records now as a restart of id and reports whether that
// pushes id over its allowed MaxRestarts within the trailing Period.
// The initial spawn of a child must not call this: only actual restarts
// count against the budget.
func (r *restartTracker) noteRestart(id string) (exceeded bool) {
	now := time.Now()
	cutoff := now.Add(-time.Duration(r.options.Period) * time.Second)
	kept := r.history[id][:0]
	for _, t := range r.history[id] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	r.history[id] = kept
	return len(kept) > r.options.MaxRestarts
}

// forget discards id's restart history, for use when a child spec is
// deleted from the supervisor entirely.
func (r *restartTracker) forget(id string) {
	delete(r.history, id)
}
