// Package selection picks, for every coarse catchment, the network segment
// whose upstream area best represents the catchment's drained area.
package selection

import (
	"math"
	"sort"

	"github.com/minovsor/mgb-bho-ds/internal/graph"
	"github.com/minovsor/mgb-bho-ds/internal/walk"
)

// Config drives the selection passes.
type Config struct {
	// AreaThreshold keeps only segments with a larger upstream area in the pool.
	AreaThreshold float64
	// DownstreamCutoff is the catchment area below which candidates from the
	// downstream catchment are considered.
	DownstreamCutoff float64
	// MaxDistance bounds the distance from a fallback candidate to the
	// catchment centroid.
	MaxDistance float64
	// Penalty is added to the area difference of a downstream candidate that
	// is not hydrologically below any of the catchment's own segments.
	Penalty float64
	Walk    walk.Config
}

func DefaultConfig() Config {
	return Config{
		AreaThreshold:    800,
		DownstreamCutoff: 10000,
		MaxDistance:      0.5,
		Penalty:          999999999,
		Walk:             walk.DefaultConfig(),
	}
}

// Pick is the segment currently selected for a catchment.
type Pick struct {
	Segment     int
	AreaDiff    float64
	InCatchment bool
}

// State is the selection context shared by the passes. Catchments and
// segments are addressed by arena position.
type State struct {
	Net   *graph.Network
	Cfg   Config
	Picks []*Pick

	members [][]int
	inPool  []bool
	owner   []int
}

// NewState builds the candidate pool from the segment-to-catchment domain
// map: only segments with upstream area above cfg.AreaThreshold are kept.
func NewState(net *graph.Network, domain map[int]int, cfg Config) *State {
	s := &State{
		Net:     net,
		Cfg:     cfg,
		Picks:   make([]*Pick, len(net.Catchments)),
		members: make([][]int, len(net.Catchments)),
		inPool:  make([]bool, len(net.Segments)),
		owner:   make([]int, len(net.Segments)),
	}
	for i := range s.owner {
		s.owner[i] = -1
	}

	pool := net.Members(domain, func(seg graph.Segment) bool {
		return seg.UpstreamArea > cfg.AreaThreshold
	})
	for catID, segs := range pool {
		c, ok := net.CatchmentIndex(catID)
		if !ok {
			continue
		}
		s.members[c] = segs
		for _, i := range segs {
			s.inPool[i] = true
			s.owner[i] = c
		}
	}
	return s
}

// Members returns the pool segments lying in catchment c.
func (s *State) Members(c int) []int {
	return s.members[c]
}

// InPool reports whether segment i belongs to the candidate pool.
func (s *State) InPool(i int) bool {
	return s.inPool[i]
}

// Selected counts catchments that currently hold a pick.
func (s *State) Selected() int {
	n := 0
	for _, p := range s.Picks {
		if p != nil {
			n++
		}
	}
	return n
}

func (s *State) areaDiff(seg, c int) float64 {
	return math.Abs(s.Net.Segments[seg].UpstreamArea - s.Net.Catchments[c].UpstreamArea)
}

func (s *State) pick(c, seg int) *Pick {
	return &Pick{
		Segment:     seg,
		AreaDiff:    s.areaDiff(seg, c),
		InCatchment: s.owner[seg] == c,
	}
}

// claimed returns the set of segments currently picked by any catchment.
func (s *State) claimed() map[int]bool {
	out := make(map[int]bool)
	for _, p := range s.Picks {
		if p != nil {
			out[p.Segment] = true
		}
	}
	return out
}

// Run executes the default chain over a fresh state.
func Run(net *graph.Network, domain map[int]int, cfg Config) (*State, []StageResult, error) {
	s := NewState(net, domain, cfg)
	results, err := NewDefaultChain().Run(s)
	return s, results, err
}

// Selection is one row of the type-1 source table.
type Selection struct {
	Catchment     int     `json:"catchment_id"`
	Segment       int     `json:"segment_id"`
	Code          string  `json:"code"`
	SegmentArea   float64 `json:"segment_area"`
	CatchmentArea float64 `json:"catchment_area"`
	AreaDiff      float64 `json:"area_diff"`
	DiffPct       float64 `json:"diff_pct"`
	InCatchment   bool    `json:"in_catchment"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
}

// SourceTable lists the current picks ordered by catchment id.
func (s *State) SourceTable() []Selection {
	var out []Selection
	for c, p := range s.Picks {
		if p == nil {
			continue
		}
		seg := s.Net.Segments[p.Segment]
		cat := s.Net.Catchments[c]
		row := Selection{
			Catchment:     cat.ID,
			Segment:       seg.ID,
			Code:          seg.Code,
			SegmentArea:   seg.UpstreamArea,
			CatchmentArea: cat.UpstreamArea,
			AreaDiff:      p.AreaDiff,
			InCatchment:   p.InCatchment,
			X:             seg.X,
			Y:             seg.Y,
		}
		if cat.UpstreamArea > 0 {
			row.DiffPct = 100 * p.AreaDiff / cat.UpstreamArea
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Catchment < out[j].Catchment })
	return out
}
