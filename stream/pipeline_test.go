package stream_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/stream"
)

func intPuller(values ...int) stream.Puller {
	i := 0
	return func() (interface{}, bool) {
		if i >= len(values) {
			return nil, false
		}
		v := values[i]
		i++
		return v, true
	}
}

func evenFilter(v interface{}) (interface{}, bool) {
	n := v.(int)
	return n, n%2 == 0
}

type collector struct {
	mu       sync.Mutex
	elements []interface{}
	err      error
	done     chan struct{}
}

func newCollector() *collector {
	return &collector{done: make(chan struct{})}
}

func (c *collector) handle(v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elements = append(c.elements, v)
}

func (c *collector) finish(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	close(c.done)
}

func (c *collector) waitDone(t *testing.T) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not complete in time")
	}
}

func (c *collector) snapshot() ([]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]interface{}, len(c.elements))
	copy(out, c.elements)
	return out, c.err
}

func TestPipelineFiltersAndCompletesCleanly(t *testing.T) {
	p := stream.NewPipeline(config.Default())
	require.NoError(t, p.AddUpstream(intPuller(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)))
	require.NoError(t, p.AddStage(evenFilter))

	c := newCollector()
	require.NoError(t, p.AddDownstream(c.handle, c.finish))
	require.NoError(t, p.Run())

	c.waitDone(t)
	elements, err := c.snapshot()
	require.NoError(t, err)
	require.Equal(t, []interface{}{0, 2, 4, 6, 8}, elements)
}

func TestPipelineWithNoStagesForwardsEveryElement(t *testing.T) {
	p := stream.NewPipeline(config.Default())
	require.NoError(t, p.AddUpstream(intPuller(1, 2, 3)))

	c := newCollector()
	require.NoError(t, p.AddDownstream(c.handle, c.finish))
	require.NoError(t, p.Run())

	c.waitDone(t)
	elements, err := c.snapshot()
	require.NoError(t, err)
	require.Equal(t, []interface{}{1, 2, 3}, elements)
}

func TestPipelineRejectsSecondUpstream(t *testing.T) {
	p := stream.NewPipeline(config.Default())
	require.NoError(t, p.AddUpstream(intPuller(1)))
	require.Error(t, p.AddUpstream(intPuller(2)))
}

func TestPipelineRejectsNilUpstream(t *testing.T) {
	p := stream.NewPipeline(config.Default())
	require.Error(t, p.AddUpstream(nil))
}

func TestPipelineRejectsSecondDownstream(t *testing.T) {
	p := stream.NewPipeline(config.Default())
	c := newCollector()
	require.NoError(t, p.AddDownstream(c.handle, c.finish))
	require.Error(t, p.AddDownstream(c.handle, c.finish))
}

func TestPipelineRunFailsWithoutUpstream(t *testing.T) {
	p := stream.NewPipeline(config.Default())
	c := newCollector()
	require.NoError(t, p.AddDownstream(c.handle, c.finish))
	require.Error(t, p.Run())
}

func TestPipelineRunFailsWithoutDownstream(t *testing.T) {
	p := stream.NewPipeline(config.Default())
	require.NoError(t, p.AddUpstream(intPuller(1)))
	require.Error(t, p.Run())
}

func TestPipelineRunTwiceFails(t *testing.T) {
	p := stream.NewPipeline(config.Default())
	require.NoError(t, p.AddUpstream(intPuller(1)))
	c := newCollector()
	require.NoError(t, p.AddDownstream(c.handle, c.finish))
	require.NoError(t, p.Run())
	require.Error(t, p.Run())
	c.waitDone(t)
}

func TestPipelineAbortsDownstreamWhenHandlerPanics(t *testing.T) {
	p := stream.NewPipeline(config.Default())
	require.NoError(t, p.AddUpstream(intPuller(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)))

	c := newCollector()
	failing := func(v interface{}) {
		if v.(int) == 3 {
			panic(errors.New("boom"))
		}
		c.handle(v)
	}
	require.NoError(t, p.AddDownstream(failing, c.finish))
	require.NoError(t, p.Run())

	c.waitDone(t)
	_, err := c.snapshot()
	require.Error(t, err)
}

func TestPipelineHandlesALargeBacklogAcrossCreditCycles(t *testing.T) {
	values := make([]int, 500)
	for i := range values {
		values[i] = i
	}
	p := stream.NewPipeline(config.Default())
	require.NoError(t, p.AddUpstream(intPuller(values...)))

	c := newCollector()
	require.NoError(t, p.AddDownstream(c.handle, c.finish))
	require.NoError(t, p.Run())

	c.waitDone(t)
	elements, err := c.snapshot()
	require.NoError(t, err)
	require.Len(t, elements, len(values))
	for i, v := range elements {
		require.Equal(t, i, v)
	}
}
