package selection

// PassStats counts what a single pass did to the selection state.
type PassStats struct {
	Visited  int
	Selected int
	Replaced int
	Cleared  int
}

// Pass is one step of type-1 selection. Passes mutate the shared state in
// order; each sees the result of the previous one.
type Pass interface {
	Name() string
	Apply(s *State) (PassStats, error)
}

type StageResult struct {
	Pass           string
	Stats          PassStats
	SelectedBefore int
	SelectedAfter  int
	Err            error
}

type Chain struct {
	passes []Pass
}

func NewChain(passes ...Pass) *Chain {
	return &Chain{passes: passes}
}

// NewDefaultChain returns the four selection passes in their fixed order.
func NewDefaultChain() *Chain {
	return NewChain(
		NewOwnOrDownstreamPass(),
		NewConfluencePass(),
		NewDedupPass(),
		NewFallbackPass(),
	)
}

// Run applies every pass and stops at the first error.
func (c *Chain) Run(s *State) ([]StageResult, error) {
	if s == nil {
		return nil, nil
	}

	var out []StageResult
	for _, p := range c.passes {
		before := s.Selected()
		stats, err := p.Apply(s)
		out = append(out, StageResult{
			Pass:           p.Name(),
			Stats:          stats,
			SelectedBefore: before,
			SelectedAfter:  s.Selected(),
			Err:            err,
		})
		if err != nil {
			return out, err
		}
	}
	return out, nil
}
