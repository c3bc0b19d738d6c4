package ref

import (
	"github.com/relaypoint/actorcore/actor"
	"github.com/relaypoint/actorcore/internal/pid"
	"github.com/relaypoint/actorcore/supervisor/spec"
)

// Ref is a handle to a running supervisor, returned by supervisor.StartLink.
type Ref struct {
	PID *pid.ProtectedPID
}

func (r *Ref) call(request interface{}) (interface{}, error) {
	future := actor.NewFutureActor()
	future.Send(r.PID, Call{Sender: future.Self(), Request: request})
	return future.Recv()
}

func (r *Ref) CountChildren() (CountChildren, error) {
	result, err := r.call(CountChildren{})
	if err != nil {
		return CountChildren{}, err
	}
	switch result := result.(type) {
	case CountChildren:
		return result, nil
	case Error:
		return CountChildren{}, result
	default:
		return CountChildren{}, errInvalidResponse(result)
	}
}

func (r *Ref) DeleteChild(id string) error {
	result, err := r.call(DeleteChild{ID: id})
	if err != nil {
		return err
	}
	switch result := result.(type) {
	case OK:
		return nil
	case Error:
		return result
	default:
		return errInvalidResponse(result)
	}
}

func (r *Ref) RestartChild(id string) error {
	result, err := r.call(RestartChild{ID: id})
	if err != nil {
		return err
	}
	switch result := result.(type) {
	case OK:
		return nil
	case Error:
		return result
	default:
		return errInvalidResponse(result)
	}
}

func (r *Ref) StartChild(s spec.Spec) error {
	result, err := r.call(StartChild{Spec: s})
	if err != nil {
		return err
	}
	switch result := result.(type) {
	case OK:
		return nil
	case Error:
		return result
	default:
		return errInvalidResponse(result)
	}
}

func (r *Ref) Stop(reason string) error {
	result, err := r.call(Stop{Reason: reason})
	if err != nil {
		return err
	}
	switch result := result.(type) {
	case OK:
		return nil
	case Error:
		return result
	default:
		return errInvalidResponse(result)
	}
}

func (r *Ref) TerminateChild(id string) error {
	result, err := r.call(TerminateChild{ID: id})
	if err != nil {
		return err
	}
	switch result := result.(type) {
	case OK:
		return nil
	case Error:
		return result
	default:
		return errInvalidResponse(result)
	}
}

func (r *Ref) WithChildren() (WithChildren, error) {
	result, err := r.call(WithChildren{})
	if err != nil {
		return WithChildren{}, err
	}
	switch result := result.(type) {
	case WithChildren:
		return result, nil
	case Error:
		return WithChildren{}, result
	default:
		return WithChildren{}, errInvalidResponse(result)
	}
}
