// Package walk follows downstream pointers through the segment network.
//
// Three walks are provided: a bounded reconciling search used by type-1
// selection, the type-2 route trace from an inlet to a catchment outlet,
// and the unbounded walk used by type-4 reconciliation.
package walk

import (
	"errors"
	"fmt"

	"github.com/minovsor/mgb-bho-ds/internal/graph"
	"github.com/minovsor/mgb-bho-ds/internal/otto"
)

// ErrCycle is returned when an unbounded walk takes more hops than the
// network has segments. It is reported together with
// graph.ErrTopologyIntegrity.
var ErrCycle = errors.New("downstream walk does not terminate")

// TopologyError reports a segment with more than one downstream neighbour.
// It wraps graph.ErrTopologyIntegrity.
type TopologyError struct {
	Segment    int
	Downstream []int
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("segment %d has %d downstream neighbours %v", e.Segment, len(e.Downstream), e.Downstream)
}

func (e *TopologyError) Unwrap() error {
	return graph.ErrTopologyIntegrity
}

// Config bounds the walks.
type Config struct {
	// SearchSteps is the number of segments tested by FindReconciling,
	// the start segment included.
	SearchSteps int
	// MaxSteps is the hop limit of a type-2 route trace.
	MaxSteps int
}

func DefaultConfig() Config {
	return Config{
		SearchSteps: 5,
		MaxSteps:    30,
	}
}

// next returns the single downstream position of segment i, or -1 at a
// dead end.
func next(n *graph.Network, i int) (int, error) {
	ds := n.Downstream(i)
	switch len(ds) {
	case 0:
		return -1, nil
	case 1:
		return ds[0], nil
	}
	return -1, &TopologyError{Segment: n.Segments[i].ID, Downstream: n.SegmentIDs(ds)}
}

// FindReconciling walks downstream from segment position start, testing
// the start segment and then each following one, up to cfg.SearchSteps
// segments. A segment matches when its code is downstream of, or equal to,
// any of codes. The walk stops early when the next segment is rejected by
// inPool.
//
// It returns the arena position of the first match.
func FindReconciling(n *graph.Network, start int, codes []string, inPool func(int) bool, cfg Config) (int, bool, error) {
	if len(codes) == 0 {
		return -1, false, nil
	}

	cur := start
	for step := 0; step < cfg.SearchSteps; step++ {
		code := n.Segments[cur].Code
		for _, c := range codes {
			ok, err := otto.Downstream(code, c, true)
			if err != nil {
				return -1, false, err
			}
			if ok {
				return cur, true, nil
			}
		}

		nxt, err := next(n, cur)
		if err != nil {
			return -1, false, err
		}
		if nxt < 0 || (inPool != nil && !inPool(nxt)) {
			break
		}
		cur = nxt
	}
	return -1, false, nil
}

// ToTerminal walks downstream from segment position start, skipping the
// start segment itself, until found accepts a segment. It returns false
// when the network terminates first.
func ToTerminal(n *graph.Network, start int, found func(int) bool) (int, bool, error) {
	cur := start
	for hops := 0; ; hops++ {
		if hops > len(n.Segments) {
			return -1, false, fmt.Errorf("%w: %w from segment %d", graph.ErrTopologyIntegrity, ErrCycle, n.Segments[start].ID)
		}
		nxt, err := next(n, cur)
		if err != nil {
			return -1, false, err
		}
		if nxt < 0 {
			return -1, false, nil
		}
		if found(nxt) {
			return nxt, true, nil
		}
		cur = nxt
	}
}
