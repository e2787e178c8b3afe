package selection

import (
	"math"

	"github.com/minovsor/mgb-bho-ds/internal/otto"
	"github.com/minovsor/mgb-bho-ds/internal/tolerance"
	"github.com/minovsor/mgb-bho-ds/internal/walk"
)

// OwnOrDownstreamPass makes the first pick for every catchment from its
// own pool segments, the downstream catchment's, or both depending on the
// catchment's drained area.
type OwnOrDownstreamPass struct{}

func NewOwnOrDownstreamPass() *OwnOrDownstreamPass {
	return &OwnOrDownstreamPass{}
}

func (p *OwnOrDownstreamPass) Name() string {
	return "own_or_downstream"
}

func (p *OwnOrDownstreamPass) Apply(s *State) (PassStats, error) {
	var stats PassStats
	for _, c := range s.Net.TopoOrder() {
		stats.Visited++
		acc := s.Net.Catchments[c].UpstreamArea
		own := s.members[c]

		var down []int
		if d := s.Net.DownstreamCatchment(c); d >= 0 {
			down = s.members[d]
		}

		var cands []int
		var penalty []float64
		switch {
		case len(own) == 0 && acc < s.Cfg.DownstreamCutoff:
			cands = down
		case len(own) > 0 && acc < s.Cfg.DownstreamCutoff && len(down) > 0:
			cands = make([]int, 0, len(down)+len(own))
			penalty = make([]float64, 0, len(down)+len(own))
			for _, seg := range down {
				below, err := belowAny(s.Net.Segments[seg].Code, s.codes(own))
				if err != nil {
					return stats, err
				}
				pen := 0.0
				if !below {
					pen = s.Cfg.Penalty
				}
				cands = append(cands, seg)
				penalty = append(penalty, pen)
			}
			for _, seg := range own {
				cands = append(cands, seg)
				penalty = append(penalty, 0)
			}
		case len(own) > 0:
			cands = own
		}

		best, ok := s.closest(c, cands, penalty)
		if !ok {
			continue
		}
		s.Picks[c] = s.pick(c, best)
		stats.Selected++
	}
	return stats, nil
}

// ConfluencePass revisits catchments below a confluence whose pick is not
// downstream of every upstream pick, and moves it a few segments downstream
// when a reconciling segment exists.
type ConfluencePass struct{}

func NewConfluencePass() *ConfluencePass {
	return &ConfluencePass{}
}

func (p *ConfluencePass) Name() string {
	return "confluence"
}

func (p *ConfluencePass) Apply(s *State) (PassStats, error) {
	var stats PassStats
	for _, c := range s.Net.TopoOrder() {
		cur := s.Picks[c]
		up := s.Net.UpstreamCatchments(c)
		if cur == nil || len(up) <= 1 {
			continue
		}
		stats.Visited++

		code := s.Net.Segments[cur.Segment].Code
		var upCodes []string
		for _, u := range up {
			if s.Picks[u] == nil {
				continue
			}
			upCodes = append(upCodes, s.Net.Segments[s.Picks[u].Segment].Code)
		}

		same := false
		for _, uc := range upCodes {
			if uc == code {
				same = true
				break
			}
		}
		if same {
			continue
		}

		var inconsistent []string
		for _, uc := range upCodes {
			below, err := otto.Downstream(code, uc, false)
			if err != nil {
				return stats, err
			}
			if !below {
				inconsistent = append(inconsistent, uc)
			}
		}
		if len(inconsistent) == 0 {
			continue
		}

		found, ok, err := walk.FindReconciling(s.Net, cur.Segment, inconsistent, s.InPool, s.Cfg.Walk)
		if err != nil {
			return stats, err
		}
		if !ok || found == cur.Segment {
			continue
		}
		s.Picks[c] = s.pick(c, found)
		stats.Replaced++
	}
	return stats, nil
}

// DedupPass drops picks outside the area tolerance and, when two
// catchments hold the same segment, keeps it for the downstream one.
type DedupPass struct{}

func NewDedupPass() *DedupPass {
	return &DedupPass{}
}

func (p *DedupPass) Name() string {
	return "dedup"
}

func (p *DedupPass) Apply(s *State) (PassStats, error) {
	var stats PassStats

	holders := make(map[int][]int)
	for c, pk := range s.Picks {
		if pk != nil {
			holders[pk.Segment] = append(holders[pk.Segment], c)
		}
	}

	order := s.Net.TopoOrder()
	for k := len(order) - 1; k >= 0; k-- {
		c := order[k]
		pk := s.Picks[c]
		if pk == nil {
			continue
		}
		stats.Visited++

		acc := s.Net.Catchments[c].UpstreamArea
		if acc <= 0 || !tolerance.Accept(100*pk.AreaDiff/acc, acc) {
			s.Picks[c] = nil
			stats.Cleared++
			continue
		}

		for _, other := range holders[pk.Segment] {
			op := s.Picks[other]
			if other == c || op == nil || op.Segment != pk.Segment {
				continue
			}
			if s.Net.TopoPosition(other) > s.Net.TopoPosition(c) {
				s.Picks[c] = nil
				stats.Cleared++
				break
			}
		}
	}
	return stats, nil
}

// FallbackPass gives unselected catchments a pick from the unclaimed pool.
// Headwaters and catchments without usable neighbours search their own and
// the downstream catchment; the rest search the whole pool for a segment
// coded between the downstream pick and the most downstream upstream pick.
type FallbackPass struct{}

func NewFallbackPass() *FallbackPass {
	return &FallbackPass{}
}

func (p *FallbackPass) Name() string {
	return "fallback"
}

func (p *FallbackPass) Apply(s *State) (PassStats, error) {
	var stats PassStats
	claimed := s.claimed()

	for _, c := range s.Net.TopoOrder() {
		if s.Picks[c] != nil {
			continue
		}
		stats.Visited++

		cat := s.Net.Catchments[c]
		d := s.Net.DownstreamCatchment(c)

		var upPicks []*Pick
		for _, u := range s.Net.UpstreamCatchments(c) {
			if s.Picks[u] != nil {
				upPicks = append(upPicks, s.Picks[u])
			}
		}

		var cands []int
		switch {
		case cat.Order == 1 || len(upPicks) == 0 || d < 0:
			for _, seg := range s.members[c] {
				if !claimed[seg] {
					cands = append(cands, seg)
				}
			}
			if d >= 0 {
				for _, seg := range s.members[d] {
					if !claimed[seg] {
						cands = append(cands, seg)
					}
				}
			}
		case s.Picks[d] != nil:
			upper := s.Net.Segments[upPicks[0].Segment].Code
			for _, up := range upPicks[1:] {
				if code := s.Net.Segments[up.Segment].Code; otto.Compare(code, upper) < 0 {
					upper = code
				}
			}
			lower := s.Net.Segments[s.Picks[d].Segment].Code

			for seg := range s.Net.Segments {
				if !s.inPool[seg] || claimed[seg] {
					continue
				}
				code := s.Net.Segments[seg].Code
				if !otto.Valid(code) || !otto.Between(code, lower, upper) {
					continue
				}
				if s.Net.Distance(seg, c) > s.Cfg.MaxDistance {
					continue
				}
				below, err := otto.Downstream(code, upper, false)
				if err != nil {
					return stats, err
				}
				if below {
					cands = append(cands, seg)
				}
			}
		}

		best, ok := s.closest(c, cands, nil)
		if !ok {
			continue
		}
		s.Picks[c] = s.pick(c, best)
		claimed[best] = true
		stats.Selected++
	}
	return stats, nil
}

// closest returns the candidate with the smallest area difference to
// catchment c plus its penalty. Ties keep the earliest candidate.
func (s *State) closest(c int, cands []int, penalty []float64) (int, bool) {
	best, bestDiff := -1, math.Inf(1)
	for k, seg := range cands {
		diff := s.areaDiff(seg, c)
		if penalty != nil {
			diff += penalty[k]
		}
		if diff < bestDiff {
			best, bestDiff = seg, diff
		}
	}
	return best, best >= 0
}

func (s *State) codes(segs []int) []string {
	out := make([]string, len(segs))
	for k, seg := range segs {
		out[k] = s.Net.Segments[seg].Code
	}
	return out
}

func belowAny(code string, others []string) (bool, error) {
	for _, o := range others {
		ok, err := otto.Downstream(code, o, false)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
