package stream

import (
	"sync"

	"github.com/relaypoint/actorcore/actorerr"
	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/envelope"
)

// Pipeline builds a linear Source -> Stage* -> Sink topology and validates
// it against spec.md §4.9's topology invariants before starting anything:
// a pipeline has exactly one upstream and, once running, exactly one
// terminal sink.
type Pipeline struct {
	mu      sync.Mutex
	cfg     config.Config
	pull    Puller
	stages  []ElementFunc
	handle  Handler
	finish  Finalizer
	started bool
}

// NewPipeline builds an empty Pipeline; call AddUpstream, any number of
// AddStage, and AddDownstream before Run.
func NewPipeline(cfg config.Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// AddUpstream installs the pipeline's single source.
func (p *Pipeline) AddUpstream(pull Puller) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return actorerr.New(actorerr.KindCannotAddUpstream, actorerr.CategoryStream, "pipeline already started")
	}
	if p.pull != nil {
		return actorerr.New(actorerr.KindUpstreamAlreadyExists, actorerr.CategoryStream, nil)
	}
	if pull == nil {
		return actorerr.New(actorerr.KindInvalidUpstream, actorerr.CategoryStream, nil)
	}
	p.pull = pull
	return nil
}

// AddStage appends one transform/filter stage, run in the order added.
func (p *Pipeline) AddStage(fn ElementFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return actorerr.New(actorerr.KindCannotAddDownstream, actorerr.CategoryStream, "pipeline already started")
	}
	if fn == nil {
		return actorerr.New(actorerr.KindInvalidDownstream, actorerr.CategoryStream, nil)
	}
	p.stages = append(p.stages, fn)
	return nil
}

// AddDownstream installs the pipeline's single terminal sink.
func (p *Pipeline) AddDownstream(handle Handler, finish Finalizer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return actorerr.New(actorerr.KindCannotAddDownstream, actorerr.CategoryStream, "pipeline already started")
	}
	if p.handle != nil {
		return actorerr.New(actorerr.KindDownstreamAlreadyExists, actorerr.CategoryStream, nil)
	}
	if handle == nil || finish == nil {
		return actorerr.New(actorerr.KindInvalidDownstream, actorerr.CategoryStream, nil)
	}
	p.handle = handle
	p.finish = finish
	return nil
}

// Run starts the source, every stage in declaration order, and the
// terminal sink. It returns once the whole topology has been spawned, not
// once the stream completes; Finalizer reports completion asynchronously.
func (p *Pipeline) Run() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return actorerr.New(actorerr.KindInvalidStreamState, actorerr.CategoryStream, "pipeline already started")
	}
	if p.pull == nil {
		return actorerr.New(actorerr.KindStreamInitFailed, actorerr.CategoryStream, "no upstream source configured")
	}
	if p.handle == nil || p.finish == nil {
		return actorerr.New(actorerr.KindNoDownstreamStagesDefined, actorerr.CategoryStream, "no terminal sink configured")
	}
	p.started = true

	var upstream envelope.Address = NewSource(p.cfg, p.pull).Address()
	for _, fn := range p.stages {
		upstream = NewStage(p.cfg, upstream, fn).Address()
	}
	NewSink(p.cfg, upstream, p.handle, p.finish)
	return nil
}
