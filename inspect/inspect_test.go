package inspect_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaypoint/actorcore/inspect"
)

// memInspector is a minimal in-memory inspector double used to prove the
// round-trip invariant (spec.md §8 property 9). A real wire codec is an
// external collaborator and out of scope for the core.
type memInspector struct {
	mode  inspect.Mode
	store map[string]interface{}
}

func newWriter() *memInspector {
	return &memInspector{mode: inspect.Writing, store: make(map[string]interface{})}
}

func newReader(store map[string]interface{}) *memInspector {
	return &memInspector{mode: inspect.Reading, store: store}
}

func (m *memInspector) Mode() inspect.Mode    { return m.mode }
func (m *memInspector) Annotate(inspect.Annotation) {}
func (m *memInspector) Field(name string, value interface{}) interface{} {
	if m.mode == inspect.Writing {
		m.store[name] = value
		return value
	}
	return m.store[name]
}

type point struct {
	X, Y int
}

func pointVisitor(insp inspect.Inspector, value interface{}) {
	p := value.(*point)
	if insp.Mode() == inspect.Writing {
		insp.Field("x", p.X)
		insp.Field("y", p.Y)
		return
	}
	p.X = insp.Field("x", nil).(int)
	p.Y = insp.Field("y", nil).(int)
}

func TestRoundTrip(t *testing.T) {
	require.NoError(t, inspect.Register(inspect.Registration{Name: "point", Visit: pointVisitor}))
	defer inspect.Unregister("point")

	reg, ok := inspect.Lookup("point")
	require.True(t, ok)

	original := &point{X: 3, Y: 4}
	w := newWriter()
	reg.Visit(w, original)

	restored := &point{}
	r := newReader(w.store)
	reg.Visit(r, restored)

	require.Equal(t, original, restored)
}

func TestRegistrationMustBeBijective(t *testing.T) {
	require.NoError(t, inspect.Register(inspect.Registration{Name: "dup", Visit: pointVisitor}))
	defer inspect.Unregister("dup")

	err := inspect.Register(inspect.Registration{Name: "dup", Visit: pointVisitor})
	require.Error(t, err)
}
