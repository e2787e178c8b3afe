package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrTopologyIntegrity is returned when the network is not a forest of
// downstream trees: a catchment cycle or a branching segment.
var ErrTopologyIntegrity = errors.New("topology integrity violation")

// Network holds both river networks as index arenas. Element i of an arena
// is addressed by position; ids are resolved once through the lookup maps.
type Network struct {
	Segments   []Segment
	Catchments []Catchment
	Dangling   []DanglingRef

	segIdx map[int]int
	catIdx map[int]int

	// segDown lists downstream arena positions per segment. More than one
	// entry means the input repeated the segment with diverging pointers.
	segDown [][]int
	catDown []int
	catUp   [][]int

	topo    []int
	topoPos []int
}

// New builds a network from raw segment and catchment rows.
//
// Repeated segment rows keep the attributes of the first occurrence; each
// distinct downstream id is retained so walks can detect the branch.
// Catchments must form a forest, otherwise ErrTopologyIntegrity is returned.
func New(segments []Segment, catchments []Catchment) (*Network, error) {
	n := &Network{
		segIdx: make(map[int]int, len(segments)),
		catIdx: make(map[int]int, len(catchments)),
	}

	// 1. Segment arena
	pointers := make([][]int, 0, len(segments))
	for _, s := range segments {
		if i, ok := n.segIdx[s.ID]; ok {
			pointers[i] = appendUnique(pointers[i], s.Downstream)
			continue
		}
		n.segIdx[s.ID] = len(n.Segments)
		n.Segments = append(n.Segments, s)
		pointers = append(pointers, []int{s.Downstream})
	}

	n.segDown = make([][]int, len(n.Segments))
	for i, ptrs := range pointers {
		for _, id := range ptrs {
			if id == Terminal {
				continue
			}
			if id == n.Segments[i].ID {
				n.Dangling = append(n.Dangling, DanglingRef{From: id, Target: id, Reason: ReasonSelfLoop})
				continue
			}
			j, ok := n.segIdx[id]
			if !ok {
				n.Dangling = append(n.Dangling, DanglingRef{From: n.Segments[i].ID, Target: id, Reason: ReasonUnknownTarget})
				continue
			}
			n.segDown[i] = append(n.segDown[i], j)
		}
	}

	// 2. Catchment arena
	for _, c := range catchments {
		if _, ok := n.catIdx[c.ID]; ok {
			return nil, fmt.Errorf("%w: catchment %d listed twice", ErrTopologyIntegrity, c.ID)
		}
		n.catIdx[c.ID] = len(n.Catchments)
		n.Catchments = append(n.Catchments, c)
	}

	n.catDown = make([]int, len(n.Catchments))
	n.catUp = make([][]int, len(n.Catchments))
	for i, c := range n.Catchments {
		n.catDown[i] = -1
		if c.Downstream == Terminal {
			continue
		}
		if c.Downstream == c.ID {
			return nil, fmt.Errorf("%w: catchment %d drains into itself", ErrTopologyIntegrity, c.ID)
		}
		j, ok := n.catIdx[c.Downstream]
		if !ok {
			n.Dangling = append(n.Dangling, DanglingRef{From: c.ID, Target: c.Downstream, Catchment: true, Reason: ReasonUnknownTarget})
			continue
		}
		n.catDown[i] = j
		n.catUp[j] = append(n.catUp[j], i)
	}

	// 3. Topological order, headwaters first
	if err := n.sortCatchments(); err != nil {
		return nil, err
	}
	return n, nil
}

// sortCatchments runs Kahn's algorithm over the catchment forest. Ties are
// broken by catchment id so the order is reproducible.
func (n *Network) sortCatchments() error {
	indeg := make([]int, len(n.Catchments))
	for i := range n.Catchments {
		indeg[i] = len(n.catUp[i])
	}

	var ready []int
	for i, d := range indeg {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	n.topo = make([]int, 0, len(n.Catchments))
	for len(ready) > 0 {
		sort.Slice(ready, func(a, b int) bool {
			return n.Catchments[ready[a]].ID < n.Catchments[ready[b]].ID
		})
		cur := ready[0]
		ready = ready[1:]
		n.topo = append(n.topo, cur)

		if d := n.catDown[cur]; d >= 0 {
			indeg[d]--
			if indeg[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(n.topo) != len(n.Catchments) {
		return fmt.Errorf("%w: catchment cycle among %d catchments", ErrTopologyIntegrity, len(n.Catchments)-len(n.topo))
	}

	n.topoPos = make([]int, len(n.Catchments))
	for pos, i := range n.topo {
		n.topoPos[i] = pos
	}
	return nil
}

// SegmentIndex resolves a segment id to its arena position.
func (n *Network) SegmentIndex(id int) (int, bool) {
	i, ok := n.segIdx[id]
	return i, ok
}

// CatchmentIndex resolves a catchment id to its arena position.
func (n *Network) CatchmentIndex(id int) (int, bool) {
	i, ok := n.catIdx[id]
	return i, ok
}

// Segment returns the segment with the given id.
func (n *Network) Segment(id int) (Segment, bool) {
	i, ok := n.segIdx[id]
	if !ok {
		return Segment{}, false
	}
	return n.Segments[i], true
}

// Catchment returns the catchment with the given id.
func (n *Network) Catchment(id int) (Catchment, bool) {
	i, ok := n.catIdx[id]
	if !ok {
		return Catchment{}, false
	}
	return n.Catchments[i], true
}

// Downstream returns the arena positions directly downstream of segment i.
// An empty result is a dead end or a terminal segment.
func (n *Network) Downstream(i int) []int {
	return n.segDown[i]
}

// DownstreamCatchment returns the arena position of the catchment below
// catchment i, or -1 at an outlet.
func (n *Network) DownstreamCatchment(i int) int {
	return n.catDown[i]
}

// UpstreamCatchments returns the arena positions of the catchments draining
// directly into catchment i.
func (n *Network) UpstreamCatchments(i int) []int {
	return n.catUp[i]
}

// TopoOrder returns catchment arena positions from headwaters to outlets.
func (n *Network) TopoOrder() []int {
	return n.topo
}

// TopoPosition returns the position of catchment i in TopoOrder. A larger
// position is further downstream along the same tree.
func (n *Network) TopoPosition(i int) int {
	return n.topoPos[i]
}

// Distance returns the planar distance between segment s and the centroid
// of catchment c, both given as arena positions.
func (n *Network) Distance(s, c int) float64 {
	seg, cat := n.Segments[s], n.Catchments[c]
	return math.Hypot(seg.X-cat.X, seg.Y-cat.Y)
}

func appendUnique(ids []int, id int) []int {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}
