package payload_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaypoint/actorcore/payload"
)

func TestCloneIsolatesMutation(t *testing.T) {
	p1 := payload.New("add", 3, 4)
	p2 := p1.Clone()

	p2 = p2.Mutate(func(fields []interface{}) {
		fields[1] = 30
	})

	v1, err := p1.Int(1)
	require.NoError(t, err)
	require.Equal(t, 3, v1)

	v2, err := p2.Int(1)
	require.NoError(t, err)
	require.Equal(t, 30, v2)
}

func TestTypedAccessorMismatch(t *testing.T) {
	p := payload.New("hello", 1)
	_, err := p.Int(0)
	require.Error(t, err)
	var mismatch *payload.ErrTypeMismatch
	require.ErrorAs(t, err, &mismatch)
}

func TestIndexOutOfRange(t *testing.T) {
	p := payload.New(1)
	_, err := p.At(5)
	require.Error(t, err)
	var oor *payload.ErrIndexOutOfRange
	require.ErrorAs(t, err, &oor)
}

func TestMutateInPlaceWhenUnshared(t *testing.T) {
	p := payload.New(1, 2, 3)
	p = p.Mutate(func(fields []interface{}) {
		fields[0] = 100
	})
	v, err := p.Int(0)
	require.NoError(t, err)
	require.Equal(t, 100, v)
}

func TestFieldCountAndTypeAt(t *testing.T) {
	p := payload.New("x", 1, 2.5)
	require.Equal(t, 3, p.Len())
	typ, err := p.TypeAt(2)
	require.NoError(t, err)
	require.Equal(t, "float64", typ)
}
