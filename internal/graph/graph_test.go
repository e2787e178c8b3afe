package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LinksSegmentsAndCatchments(t *testing.T) {
	segs := []Segment{
		{ID: 1, Downstream: 2, Code: "8643"},
		{ID: 2, Downstream: 3, Code: "8642"},
		{ID: 3, Downstream: Terminal, Code: "8641"},
		{ID: 4, Downstream: 99, Code: "8645"},
	}
	cats := []Catchment{
		{ID: 10, Downstream: 30, Order: 1},
		{ID: 20, Downstream: 30, Order: 1},
		{ID: 30, Downstream: Terminal, Order: 2},
	}

	n, err := New(segs, cats)
	require.NoError(t, err)

	t.Run("Segment pointers", func(t *testing.T) {
		i, ok := n.SegmentIndex(1)
		require.True(t, ok)
		ds := n.Downstream(i)
		require.Len(t, ds, 1)
		assert.Equal(t, 2, n.Segments[ds[0]].ID)

		k, _ := n.SegmentIndex(3)
		assert.Empty(t, n.Downstream(k))
	})

	t.Run("Unknown target becomes dangling", func(t *testing.T) {
		i, _ := n.SegmentIndex(4)
		assert.Empty(t, n.Downstream(i))
		assert.Equal(t, 1, n.DanglingReasonCounts()[ReasonUnknownTarget])
	})

	t.Run("Catchment neighbours", func(t *testing.T) {
		outlet, _ := n.CatchmentIndex(30)
		up := n.UpstreamCatchments(outlet)
		assert.Len(t, up, 2)
		assert.Equal(t, -1, n.DownstreamCatchment(outlet))
	})

	t.Run("Topological order", func(t *testing.T) {
		var ids []int
		for _, i := range n.TopoOrder() {
			ids = append(ids, n.Catchments[i].ID)
		}
		assert.Equal(t, []int{10, 20, 30}, ids)

		a, _ := n.CatchmentIndex(10)
		b, _ := n.CatchmentIndex(30)
		assert.Less(t, n.TopoPosition(a), n.TopoPosition(b))
	})
}

func TestNew_RepeatedSegmentKeepsBranch(t *testing.T) {
	segs := []Segment{
		{ID: 1, Downstream: 2},
		{ID: 1, Downstream: 3},
		{ID: 1, Downstream: 2},
		{ID: 2, Downstream: Terminal},
		{ID: 3, Downstream: Terminal},
	}

	n, err := New(segs, nil)
	require.NoError(t, err)
	assert.Len(t, n.Segments, 3)

	i, _ := n.SegmentIndex(1)
	assert.Len(t, n.Downstream(i), 2)
	assert.Equal(t, []int{1}, n.BranchingSegments())
}

func TestNew_CatchmentCycle(t *testing.T) {
	cats := []Catchment{
		{ID: 1, Downstream: 2},
		{ID: 2, Downstream: 3},
		{ID: 3, Downstream: 1},
	}

	_, err := New(nil, cats)
	assert.ErrorIs(t, err, ErrTopologyIntegrity)
}

func TestMembers(t *testing.T) {
	segs := []Segment{
		{ID: 1, Downstream: 2, UpstreamArea: 500},
		{ID: 2, Downstream: Terminal, UpstreamArea: 1500},
		{ID: 3, Downstream: 2, UpstreamArea: 900},
	}
	n, err := New(segs, nil)
	require.NoError(t, err)

	domain := map[int]int{1: 10, 2: 20, 3: 10, 42: 10}
	members := n.Members(domain, func(s Segment) bool { return s.UpstreamArea > 800 })

	assert.Equal(t, []int{3}, n.SegmentIDs(members[10]))
	assert.Equal(t, []int{2}, n.SegmentIDs(members[20]))
}
