package walk

import (
	"testing"

	"github.com/minovsor/mgb-bho-ds/internal/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain builds segments 1..n draining 1 -> 2 -> ... -> n with growing area.
func chain(t *testing.T, n int) *graph.Network {
	t.Helper()
	segs := make([]graph.Segment, 0, n)
	for i := 1; i <= n; i++ {
		ds := i + 1
		if i == n {
			ds = graph.Terminal
		}
		segs = append(segs, graph.Segment{ID: i, Downstream: ds, UpstreamArea: float64(100 * i)})
	}
	net, err := graph.New(segs, nil)
	require.NoError(t, err)
	return net
}

func pos(t *testing.T, n *graph.Network, id int) int {
	t.Helper()
	i, ok := n.SegmentIndex(id)
	require.True(t, ok, "segment %d", id)
	return i
}

func TestTrace(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("Reaches outlet", func(t *testing.T) {
		n := chain(t, 5)
		r, err := Trace(n, pos(t, n, 1), pos(t, n, 4), cfg)
		require.NoError(t, err)
		assert.Equal(t, Success, r.State)
		assert.Equal(t, 1, r.State.Status())
		assert.Equal(t, []int{2, 3, 4}, r.Segments)
	})

	t.Run("Direct connection has one segment", func(t *testing.T) {
		n := chain(t, 3)
		r, err := Trace(n, pos(t, n, 1), pos(t, n, 2), cfg)
		require.NoError(t, err)
		assert.Equal(t, Success, r.State)
		assert.Equal(t, []int{2}, r.Segments)
	})

	t.Run("Dead end", func(t *testing.T) {
		segs := []graph.Segment{
			{ID: 1, Downstream: 2, UpstreamArea: 10},
			{ID: 2, Downstream: graph.Terminal, UpstreamArea: 20},
			{ID: 3, Downstream: graph.Terminal, UpstreamArea: 500},
		}
		n, err := graph.New(segs, nil)
		require.NoError(t, err)

		r, err := Trace(n, pos(t, n, 1), pos(t, n, 3), cfg)
		require.NoError(t, err)
		assert.Equal(t, DeadEnd, r.State)
		assert.Equal(t, 0, r.State.Status())
	})

	t.Run("Thirty hops succeed and thirty one do not", func(t *testing.T) {
		n := chain(t, 40)
		r, err := Trace(n, pos(t, n, 1), pos(t, n, 31), cfg)
		require.NoError(t, err)
		assert.Equal(t, Success, r.State)
		assert.Len(t, r.Segments, 30)

		r, err = Trace(n, pos(t, n, 1), pos(t, n, 32), cfg)
		require.NoError(t, err)
		assert.Equal(t, TooLong, r.State)
		assert.Equal(t, 30, r.State.Status())
	})

	t.Run("Coastal segment stops the route", func(t *testing.T) {
		segs := []graph.Segment{
			{ID: 1, Downstream: 2, UpstreamArea: 10},
			{ID: 2, Downstream: 3, UpstreamArea: 20, Coastal: true},
			{ID: 3, Downstream: 4, UpstreamArea: 30},
			{ID: 4, Downstream: graph.Terminal, UpstreamArea: 40},
		}
		n, err := graph.New(segs, nil)
		require.NoError(t, err)

		r, err := Trace(n, pos(t, n, 1), pos(t, n, 4), cfg)
		require.NoError(t, err)
		assert.Equal(t, Coastal, r.State)
		assert.Equal(t, 20, r.State.Status())
	})

	t.Run("Area above outlet stops the route", func(t *testing.T) {
		segs := []graph.Segment{
			{ID: 1, Downstream: 2, UpstreamArea: 10},
			{ID: 2, Downstream: 3, UpstreamArea: 900},
			{ID: 3, Downstream: 4, UpstreamArea: 30},
			{ID: 4, Downstream: graph.Terminal, UpstreamArea: 40},
		}
		n, err := graph.New(segs, nil)
		require.NoError(t, err)

		r, err := Trace(n, pos(t, n, 1), pos(t, n, 4), cfg)
		require.NoError(t, err)
		assert.Equal(t, AreaExceeded, r.State)
		assert.Equal(t, 40, r.State.Status())
	})

	t.Run("Branching is fatal", func(t *testing.T) {
		segs := []graph.Segment{
			{ID: 1, Downstream: 2},
			{ID: 1, Downstream: 3},
			{ID: 2, Downstream: graph.Terminal},
			{ID: 3, Downstream: graph.Terminal},
		}
		n, err := graph.New(segs, nil)
		require.NoError(t, err)

		r, err := Trace(n, pos(t, n, 1), pos(t, n, 3), cfg)
		assert.ErrorIs(t, err, graph.ErrTopologyIntegrity)
		var te *TopologyError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, 1, te.Segment)
		assert.Equal(t, BranchFatal, r.State)
	})

	t.Run("Deterministic", func(t *testing.T) {
		n := chain(t, 10)
		a, err := Trace(n, pos(t, n, 2), pos(t, n, 9), cfg)
		require.NoError(t, err)
		b, err := Trace(n, pos(t, n, 2), pos(t, n, 9), cfg)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestFindReconciling(t *testing.T) {
	segs := []graph.Segment{
		{ID: 1, Downstream: 2, Code: "8655"},
		{ID: 2, Downstream: 3, Code: "8653"},
		{ID: 3, Downstream: 4, Code: "8651"},
		{ID: 4, Downstream: graph.Terminal, Code: "8631"},
	}
	n, err := graph.New(segs, nil)
	require.NoError(t, err)
	cfg := DefaultConfig()

	t.Run("Start segment is tested", func(t *testing.T) {
		got, ok, err := FindReconciling(n, pos(t, n, 1), []string{"8655"}, nil, cfg)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 1, n.Segments[got].ID)
	})

	t.Run("Any code matches", func(t *testing.T) {
		got, ok, err := FindReconciling(n, pos(t, n, 1), []string{"7111", "8652"}, nil, cfg)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 3, n.Segments[got].ID)
	})

	t.Run("Leaving the pool stops the search", func(t *testing.T) {
		inPool := func(i int) bool { return n.Segments[i].ID != 3 }
		_, ok, err := FindReconciling(n, pos(t, n, 1), []string{"8652"}, inPool, cfg)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Bounded number of segments", func(t *testing.T) {
		_, ok, err := FindReconciling(n, pos(t, n, 1), []string{"8652"}, nil, Config{SearchSteps: 2})
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestToTerminal(t *testing.T) {
	n := chain(t, 6)

	got, ok, err := ToTerminal(n, pos(t, n, 1), func(i int) bool { return n.Segments[i].ID == 4 })
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, n.Segments[got].ID)

	_, ok, err = ToTerminal(n, pos(t, n, 1), func(int) bool { return false })
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestToTerminal_Cycle(t *testing.T) {
	segs := []graph.Segment{
		{ID: 1, Downstream: 2},
		{ID: 2, Downstream: 3},
		{ID: 3, Downstream: 1},
	}
	n, err := graph.New(segs, nil)
	require.NoError(t, err)

	_, _, err = ToTerminal(n, pos(t, n, 1), func(int) bool { return false })
	assert.ErrorIs(t, err, ErrCycle)
	assert.ErrorIs(t, err, graph.ErrTopologyIntegrity)
}
