// Package context implements the handle an actor's behavior callbacks
// receive: constructor arguments, its own address, and a cancellation
// signal for cooperative shutdown of long-running work. Grounded on the
// teacher's internal/context.Context, generalized to replace the
// blocking-goroutine Receive/ReceiveWithTimeout pair with a single
// ReceiveBlocking that only dedicated-thread actors use (the scheduler
// calls into behaviors directly) while keeping stdlib context.Context for
// Done()/cancellation the same way.
package context

import (
	"context"
	"time"

	"github.com/relaypoint/actorcore/internal/pid"
)

// Context is passed to every actor's message handlers.
type Context struct {
	self   *pid.PID
	args   []interface{}
	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a Context for self with the given spawn-time arguments.
func New(self *pid.PID, args []interface{}) *Context {
	ctx, cancel := context.WithCancel(context.Background())
	return &Context{self: self, args: args, ctx: ctx, cancel: cancel}
}

// Args returns the arguments the actor was spawned with.
func (c *Context) Args() []interface{} {
	return c.args
}

// Self returns the actor's own PID, for self-sends or handing its address
// to children it spawns.
func (c *Context) Self() *pid.PID {
	return c.self
}

// Done returns a channel closed when the actor is asked to shut down, for
// long-running work to observe cooperatively.
func (c *Context) Done() <-chan struct{} {
	return c.ctx.Done()
}

// GoContext exposes the underlying stdlib context.Context, for passing to
// inner calls (HTTP clients, database queries) that accept one.
func (c *Context) GoContext() context.Context {
	return c.ctx
}

// Cancel closes Done(), invoked by the actor loop on termination.
func (c *Context) Cancel() {
	c.cancel()
}

// ReceiveBlocking pops the next pending message off self's mailbox,
// blocking up to timeout (zero means forever) if none is pending. It is
// only for the dedicated-thread actor mode (spec.md §4.4): scheduler-driven
// actors are dispatched via Behavior.Match and never call this.
func (c *Context) ReceiveBlocking(timeout time.Duration) (interface{}, bool) {
	if v, ok := c.self.Mailbox().Pop(); ok {
		return v, true
	}
	var timer *time.Timer
	var expired <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	for {
		select {
		case <-c.self.Mailbox().ReadySignal():
			if v, ok := c.self.Mailbox().Pop(); ok {
				return v, true
			}
		case <-expired:
			return nil, false
		case <-c.ctx.Done():
			return nil, false
		}
	}
}
