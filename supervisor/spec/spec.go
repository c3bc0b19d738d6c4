// Package spec defines supervision child specifications (spec.md §4.6):
// what to start (a worker function or a nested supervisor), whether a
// terminated child gets restarted, and how long it gets to shut down
// cleanly. Grounded on the teacher's supervisor/spec package
// (spec.go/worker.go/supervisor.go/specmap.go), generalized from
// type-switching on an untyped Spec interface plus a package-level
// ChildType constant mismatch to an ID-returning Spec interface and the new
// actor.Func/pid.ProtectedPID surface.
package spec

import (
	"fmt"

	"github.com/relaypoint/actorcore/internal/pid"
)

// ChildType distinguishes a plain worker from a nested supervisor.
type ChildType int32

const (
	TypeWorker ChildType = iota
	TypeSupervisor
)

// RestartPolicy controls whether a terminated child is restarted.
type RestartPolicy int32

const (
	// RestartAlways restarts the child regardless of its exit reason.
	RestartAlways RestartPolicy = iota
	// RestartTransient restarts only on an abnormal exit.
	RestartTransient
	// RestartNever never restarts the child.
	RestartNever
)

const (
	// ShutdownInfinity sends the child a shutdown request with no time limit
	// and leaves it to exit on its own.
	ShutdownInfinity int = -1
	// ShutdownKill terminates the child immediately with no grace period.
	ShutdownKill int = 0
	// any value >= 1 is a grace period in milliseconds.
)

// Spec is a child specification: either a WorkerSpec or a SupervisorSpec.
type Spec interface {
	ChildSpec() Spec
	id() string
}

// ChildInfo describes one child in a running supervisor's child list.
type ChildInfo struct {
	ID   string
	PID  *pid.ProtectedPID
	Type ChildType
}

// ID returns s's declared child id, for callers outside this package that
// only hold a Spec (the id() method itself is unexported so Spec stays
// sealed to WorkerSpec/SupervisorSpec).
func ID(s Spec) string {
	return s.ChildSpec().id()
}

// StartLink starts a nested supervisor over children and returns the new
// supervisor's address; the parent supervisor links to that address once
// it returns. A SupervisorSpec's StartLink closure typically calls
// supervisor.StartLink, which runs the nested tree's workers as
// dedicated-thread actors rather than on a scheduler.
type StartLink func(children ...Spec) (*pid.ProtectedPID, error)

// Validate checks a single spec's invariants (spec.md §4.6's edge cases: an
// empty id, a nil worker function, a nested supervisor with no children).
func Validate(s Spec) error {
	switch v := s.ChildSpec().(type) {
	case WorkerSpec:
		if v.ID == "" {
			return fmt.Errorf("childspec id must not be empty")
		}
		if v.Func == nil {
			return fmt.Errorf("childspec %s: worker func must not be nil", v.ID)
		}
		if v.Shutdown < ShutdownInfinity {
			return fmt.Errorf("childspec %s: invalid shutdown value %d", v.ID, v.Shutdown)
		}
	case SupervisorSpec:
		if v.ID == "" {
			return fmt.Errorf("childspec id must not be empty")
		}
		if v.StartLink == nil {
			return fmt.Errorf("childspec %s: supervisor StartLink must not be nil", v.ID)
		}
		if len(v.Children) == 0 {
			return fmt.Errorf("childspec %s: nested supervisor must have at least one child", v.ID)
		}
	default:
		return fmt.Errorf("invalid childspec type %T", s)
	}
	return nil
}
