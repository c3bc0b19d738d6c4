// Package supervisor implements the supervision trees of spec.md §4.6: a
// dedicated actor that starts a fixed list of children per spec.Spec,
// watches their links for termination, and restarts them according to a
// Strategy and a MaxRestarts/Period budget. Grounded on the teacher's
// supervisor package (options.go/registry.go/state.go), generalized from
// one goroutine-per-actor with a blocking Receive loop to actor.SpawnDedicated
// driving a restartTracker and an ordered spec.SpecsMap, and from a stubbed
// RestForOneStrategy to one that actually walks the declaration order.
package supervisor

import (
	"fmt"

	"github.com/rs/xid"
)

// Strategy picks how a supervisor reacts to one child's termination.
type Strategy int32

const (
	// OneForOneStrategy restarts only the terminated child.
	OneForOneStrategy Strategy = iota
	// OneForAllStrategy terminates every other child and restarts all of
	// them, including the one that triggered it.
	OneForAllStrategy
	// RestForOneStrategy terminates the failed child and every child
	// declared after it, then restarts all of them in declaration order.
	RestForOneStrategy
)

const (
	defaultMaxRestarts = 3
	defaultPeriod      = 5
)

// Options configures one supervisor instance.
type Options struct {
	Strategy    Strategy
	MaxRestarts int
	Period      int // seconds
	Name        string
}

// OneForOneStrategyOption, OneForAllStrategyOption, and
// RestForOneStrategyOption are ready-to-use Options with the library's
// default restart budget for each strategy.
var (
	OneForOneStrategyOption  = NewOptions(OneForOneStrategy, defaultMaxRestarts, defaultPeriod)
	OneForAllStrategyOption  = NewOptions(OneForAllStrategy, defaultMaxRestarts, defaultPeriod)
	RestForOneStrategyOption = NewOptions(RestForOneStrategy, defaultMaxRestarts, defaultPeriod)
)

// NewOptions builds Options with a fresh xid-derived Name.
func NewOptions(strategy Strategy, maxRestarts, period int) Options {
	return Options{
		Strategy:    strategy,
		MaxRestarts: maxRestarts,
		Period:      period,
		Name:        xid.New().String(),
	}
}

// SetName returns a copy of opt with Name set to name.
func (opt Options) SetName(name string) Options {
	opt.Name = name
	return opt
}

func (opt Options) validate() error {
	if opt.Name == "" {
		return fmt.Errorf("supervisor: name must not be empty")
	}
	if opt.Strategy < OneForOneStrategy || opt.Strategy > RestForOneStrategy {
		return fmt.Errorf("supervisor: invalid strategy %d", opt.Strategy)
	}
	if opt.Period < 0 {
		return fmt.Errorf("supervisor: invalid period %d", opt.Period)
	}
	if opt.MaxRestarts < 0 {
		return fmt.Errorf("supervisor: invalid max restarts %d", opt.MaxRestarts)
	}
	return nil
}
