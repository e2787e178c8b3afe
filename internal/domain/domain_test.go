package domain

import (
	"context"
	"testing"

	"github.com/minovsor/mgb-bho-ds/internal/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x0, y0, x1, y1 float64) []Point {
	return []Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

func TestPolygon_Contains(t *testing.T) {
	p := NewPolygon(10, [][]Point{square(0, 0, 10, 10), square(4, 4, 6, 6)})

	assert.Equal(t, [4]float64{0, 0, 10, 10}, p.BBox)
	assert.True(t, p.Contains(Point{1, 1}))
	assert.False(t, p.Contains(Point{5, 5}), "inside hole")
	assert.False(t, p.Contains(Point{11, 5}))
}

func TestPolygonJoin_Map(t *testing.T) {
	net, err := graph.New([]graph.Segment{
		{ID: 1, Downstream: 2, X: 1, Y: 1},
		{ID: 2, Downstream: graph.Terminal, X: 15, Y: 1},
		{ID: 3, Downstream: graph.Terminal, X: 50, Y: 50},
	}, nil)
	require.NoError(t, err)

	join := NewPolygonJoin([]Polygon{
		NewPolygon(20, [][]Point{square(10, 0, 20, 10)}),
		NewPolygon(10, [][]Point{square(0, 0, 10, 10)}),
	})

	got, err := join.Map(context.Background(), net)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 10, 2: 20}, got)
}

func TestPolygonJoin_Cancelled(t *testing.T) {
	net, err := graph.New([]graph.Segment{{ID: 1, Downstream: graph.Terminal}}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewPolygonJoin(nil).Map(ctx, net)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatic_DropsUnknownSegments(t *testing.T) {
	net, err := graph.New([]graph.Segment{{ID: 1, Downstream: graph.Terminal}}, nil)
	require.NoError(t, err)

	got, err := Static{1: 10, 2: 10}.Map(context.Background(), net)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 10}, got)
}
