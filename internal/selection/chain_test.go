package selection

import (
	"errors"
	"testing"

	"github.com/minovsor/mgb-bho-ds/internal/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePass struct {
	name string
	fn   func(s *State) (PassStats, error)
}

func (f fakePass) Name() string { return f.name }
func (f fakePass) Apply(s *State) (PassStats, error) {
	return f.fn(s)
}

func TestChain_Run(t *testing.T) {
	net, err := graph.New(
		[]graph.Segment{{ID: 1, Downstream: graph.Terminal}},
		[]graph.Catchment{{ID: 10, Downstream: graph.Terminal}, {ID: 20, Downstream: graph.Terminal}},
	)
	require.NoError(t, err)
	s := NewState(net, nil, DefaultConfig())

	p1 := fakePass{
		name: "p1",
		fn: func(s *State) (PassStats, error) {
			s.Picks[0] = &Pick{Segment: 0}
			s.Picks[1] = &Pick{Segment: 0}
			return PassStats{Visited: 2, Selected: 2}, nil
		},
	}
	p2 := fakePass{
		name: "p2",
		fn: func(s *State) (PassStats, error) {
			s.Picks[0] = nil
			return PassStats{Visited: 2, Cleared: 1}, nil
		},
	}

	results, err := NewChain(p1, p2).Run(s)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "p1", results[0].Pass)
	assert.Equal(t, "p2", results[1].Pass)
	assert.Equal(t, 0, results[0].SelectedBefore)
	assert.Equal(t, 2, results[0].SelectedAfter)
	assert.Equal(t, 2, results[1].SelectedBefore)
	assert.Equal(t, 1, results[1].SelectedAfter)
}

func TestChain_RunStopsOnError(t *testing.T) {
	net, err := graph.New(nil, nil)
	require.NoError(t, err)
	s := NewState(net, nil, DefaultConfig())

	boom := errors.New("boom")
	called := false
	results, err := NewChain(
		fakePass{name: "fail", fn: func(*State) (PassStats, error) { return PassStats{}, boom }},
		fakePass{name: "never", fn: func(*State) (PassStats, error) {
			called = true
			return PassStats{}, nil
		}},
	).Run(s)

	assert.ErrorIs(t, err, boom)
	assert.Len(t, results, 1)
	assert.False(t, called)
}
