package classify

import (
	"github.com/minovsor/mgb-bho-ds/internal/graph"
)

// Partition splits the domain into four disjoint segment sets.
type Partition struct {
	Direct     map[int]int `json:"type1"`
	Route      map[int]int `json:"type2"`
	Background map[int]int `json:"type3"`
	// Candidates are main-network segments left for type-4 reconciliation,
	// mapped to their background catchment.
	Candidates map[int]int `json:"type4_candidates"`

	DomainSize int `json:"domain_size"`
}

// Total is the number of segments in all four sets.
func (p *Partition) Total() int {
	return len(p.Direct) + len(p.Route) + len(p.Background) + len(p.Candidates)
}

// Mismatch reports whether the sets fail to cover the domain exactly.
func (p *Partition) Mismatch() bool {
	return p.Total() != p.DomainSize
}

// Validate partitions the domain. Segments at or above threshold form the
// main network; type-1 wins over type-2, and main-network segments claimed
// by neither become type-4 candidates. Segments unknown to the network are
// treated as below the threshold.
func Validate(net *graph.Network, domain map[int]int, threshold float64, direct, route map[int]int) *Partition {
	p := &Partition{
		Direct:     make(map[int]int),
		Route:      make(map[int]int),
		Background: make(map[int]int),
		Candidates: make(map[int]int),
		DomainSize: len(domain),
	}

	for seg, bg := range domain {
		if cat, ok := direct[seg]; ok {
			p.Direct[seg] = cat
			continue
		}
		if cat, ok := route[seg]; ok {
			p.Route[seg] = cat
			continue
		}
		if s, ok := net.Segment(seg); ok && s.UpstreamArea >= threshold {
			p.Candidates[seg] = bg
			continue
		}
		p.Background[seg] = bg
	}
	return p
}
