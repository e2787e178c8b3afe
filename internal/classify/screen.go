package classify

import (
	"sort"

	"github.com/minovsor/mgb-bho-ds/internal/graph"
	"github.com/minovsor/mgb-bho-ds/internal/selection"
	"github.com/minovsor/mgb-bho-ds/internal/walk"
)

// StatusOverrun marks an otherwise successful route whose interior passes
// through another catchment's type-1 outlet.
const StatusOverrun = 50

// RouteFailure records one rejected inlet route.
type RouteFailure struct {
	Catchment int `json:"catchment_id"`
	Inlet     int `json:"inlet"`
	Outlet    int `json:"outlet"`
	Status    int `json:"status"`
}

// Screening is the outcome of type-2 route screening.
type Screening struct {
	// Routes maps an inlet segment to its accepted route, outlet last.
	Routes map[int][]int `json:"routes"`
	// Inlets maps an accepted catchment to its inlet segments.
	Inlets map[int][]int `json:"inlets"`

	Headwater  map[int]int    `json:"headwater"`
	Incomplete map[int]int    `json:"incomplete"`
	Broken     map[int]int    `json:"broken"`
	Failures   []RouteFailure `json:"failures,omitempty"`
}

// StatusCounts groups the rejected routes by status.
func (s *Screening) StatusCounts() map[int]int {
	out := make(map[int]int)
	for _, f := range s.Failures {
		out[f.Status]++
	}
	return out
}

// Screen checks, for every type-1 (catchment, outlet) pair, that each
// upstream neighbour catchment has a type-1 segment draining to the outlet
// along a valid route. The diagnostic maps are keyed by outlet segment.
//
// Only a *walk.TopologyError or a malformed code aborts screening.
func Screen(net *graph.Network, matches []selection.Match, cfg walk.Config) (*Screening, error) {
	res := &Screening{
		Routes:     make(map[int][]int),
		Inlets:     make(map[int][]int),
		Headwater:  make(map[int]int),
		Incomplete: make(map[int]int),
		Broken:     make(map[int]int),
	}

	outletOf := make(map[int]int, len(matches))
	isOutlet := make(map[int]bool, len(matches))
	for _, m := range matches {
		outletOf[m.Catchment] = m.Segment
		isOutlet[m.Segment] = true
	}

	for _, m := range orderByTopology(net, matches) {
		c, ok := net.CatchmentIndex(m.Catchment)
		if !ok {
			continue
		}
		if net.Catchments[c].Order == 1 {
			res.Headwater[m.Segment] = m.Catchment
		}

		outlet, ok := net.SegmentIndex(m.Segment)
		if !ok {
			res.Broken[m.Segment] = m.Catchment
			continue
		}

		// 1. Every upstream neighbour needs its own type-1 segment
		var inlets []int
		missing := false
		for _, u := range upstreamByID(net, c) {
			seg, ok := outletOf[net.Catchments[u].ID]
			if !ok {
				missing = true
				break
			}
			inlets = append(inlets, seg)
		}
		if missing {
			res.Incomplete[m.Segment] = m.Catchment
			continue
		}

		// 2. Trace each inlet down to the outlet
		local := make(map[int][]int, len(inlets))
		fail := false
		for _, inletID := range inlets {
			status := 0
			var route []int

			if inlet, ok := net.SegmentIndex(inletID); ok {
				r, err := walk.Trace(net, inlet, outlet, cfg)
				if err != nil {
					return nil, err
				}
				status, route = r.State.Status(), r.Segments
			}

			if status == walk.Success.Status() && overruns(route, isOutlet) {
				status = StatusOverrun
			}
			if status != walk.Success.Status() {
				res.Failures = append(res.Failures, RouteFailure{
					Catchment: m.Catchment,
					Inlet:     inletID,
					Outlet:    m.Segment,
					Status:    status,
				})
				fail = true
				continue
			}
			local[inletID] = route
		}
		if fail {
			res.Broken[m.Segment] = m.Catchment
			continue
		}

		for inlet, route := range local {
			res.Routes[inlet] = route
		}
		res.Inlets[m.Catchment] = inlets
	}
	return res, nil
}

// overruns reports whether any interior segment of route is a type-1
// outlet. The last segment is the route's own outlet and is not checked.
func overruns(route []int, isOutlet map[int]bool) bool {
	if len(route) < 2 {
		return false
	}
	for _, seg := range route[:len(route)-1] {
		if isOutlet[seg] {
			return true
		}
	}
	return false
}

func orderByTopology(net *graph.Network, matches []selection.Match) []selection.Match {
	out := make([]selection.Match, len(matches))
	copy(out, matches)
	pos := func(m selection.Match) int {
		if c, ok := net.CatchmentIndex(m.Catchment); ok {
			return net.TopoPosition(c)
		}
		return len(net.Catchments)
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := pos(out[i]), pos(out[j])
		if pi != pj {
			return pi < pj
		}
		return out[i].Catchment < out[j].Catchment
	})
	return out
}

func upstreamByID(net *graph.Network, c int) []int {
	up := append([]int(nil), net.UpstreamCatchments(c)...)
	sort.Slice(up, func(i, j int) bool {
		return net.Catchments[up[i]].ID < net.Catchments[up[j]].ID
	})
	return up
}
