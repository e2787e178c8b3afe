package classify

import (
	"sort"

	"github.com/minovsor/mgb-bho-ds/internal/graph"
)

// RouteAssociation is the type-2 association built from screened routes.
type RouteAssociation struct {
	// Segments maps every route segment, outlets included, to its catchment.
	Segments map[int]int `json:"segments"`
	// Direct maps a catchment whose single inlet drains straight into its
	// outlet to that outlet segment.
	Direct map[int]int `json:"direct"`
}

// AssociateRoutes merges the accepted routes of each screened catchment
// into its type-2 set. A catchment fed by one inlet whose route is a
// single hop has no interior and is recorded as a direct connection.
func AssociateRoutes(s *Screening) *RouteAssociation {
	out := &RouteAssociation{
		Segments: make(map[int]int),
		Direct:   make(map[int]int),
	}

	for _, cat := range sortedKeys(s.Inlets) {
		inlets := s.Inlets[cat]
		if len(inlets) == 1 {
			if route := s.Routes[inlets[0]]; len(route) == 1 {
				out.Direct[cat] = route[0]
				continue
			}
		}
		for _, inlet := range inlets {
			for _, seg := range s.Routes[inlet] {
				out.Segments[seg] = cat
			}
		}
	}
	return out
}

// RouteRecords builds type-2 parameters for every catchment with routes.
//
// Each route segment carries the upstream catchments whose inlets drain
// through it, and a share of the catchment's local routed area: its
// upstream area minus those inlets' areas, normalised over the catchment.
func RouteRecords(net *graph.Network, s *Screening, ra *RouteAssociation, direct map[int]int) map[int]RouteParams {
	out := make(map[int]RouteParams)

	cats := make(map[int]bool)
	for _, cat := range ra.Segments {
		cats[cat] = true
	}

	for _, cat := range sortedKeys(cats) {
		var order []int
		minimon := make(map[int][]int)
		afl := make(map[int][]int)

		for _, inlet := range s.Inlets[cat] {
			upCat, ok := direct[inlet]
			if !ok {
				break
			}
			for _, seg := range s.Routes[inlet] {
				if _, seen := minimon[seg]; !seen {
					order = append(order, seg)
				}
				minimon[seg] = append(minimon[seg], upCat)
				afl[seg] = append(afl[seg], inlet)
			}
		}

		all := make(map[int]bool)
		for _, ups := range minimon {
			for _, u := range ups {
				all[u] = true
			}
		}
		allUp := sortedKeys(all)

		acum := make(map[int]float64, len(order))
		scale := 0.0
		for _, seg := range order {
			a := segmentArea(net, seg)
			for _, inlet := range afl[seg] {
				a -= segmentArea(net, inlet)
			}
			acum[seg] = a
			scale += a
		}

		for _, seg := range order {
			frac := 0.0
			if scale != 0 {
				frac = acum[seg] / scale
			}
			out[seg] = RouteParams{
				Segment:               seg,
				RefCatchment:          cat,
				UpstreamArea:          segmentArea(net, seg),
				FracArea:              frac,
				UpstreamCatchments:    minimon[seg],
				AllUpstreamCatchments: allUp,
			}
		}
	}
	return out
}

func segmentArea(net *graph.Network, id int) float64 {
	s, ok := net.Segment(id)
	if !ok {
		return 0
	}
	return s.UpstreamArea
}

func sortedKeys[T any](m map[int]T) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
