package classify

// Finalize merges the validated sets into the final classification.
// A resolved type-4 segment takes its downstream neighbour's catchment;
// an unresolved one keeps its background catchment.
func Finalize(p *Partition, rec *Reconciliation) map[int]Assignment {
	out := make(map[int]Assignment, p.Total())
	for seg, cat := range p.Direct {
		out[seg] = Assignment{Catchment: cat, Tag: TagDirect}
	}
	for seg, cat := range p.Route {
		out[seg] = Assignment{Catchment: cat, Tag: TagRoute}
	}
	for seg, cat := range p.Background {
		out[seg] = Assignment{Catchment: cat, Tag: TagBackground}
	}
	for seg, cat := range p.Candidates {
		a := Assignment{Catchment: cat, Tag: TagFallback}
		if rec != nil {
			if fp, ok := rec.Params[seg]; ok && fp.Resolved() {
				a.Catchment = fp.Downstream.Catchment
			}
		}
		out[seg] = a
	}
	return out
}

// Build assembles the parameter records of every type from the validated
// partition.
func Build(direct map[int]DirectParams, route map[int]RouteParams, background map[int]BackgroundParams, p *Partition, rec *Reconciliation) *Params {
	out := &Params{
		Direct:     make(map[int]DirectParams, len(p.Direct)),
		Route:      make(map[int]RouteParams, len(p.Route)),
		Background: make(map[int]BackgroundParams, len(p.Background)),
		Fallback:   make(map[int]FallbackParams, len(p.Candidates)),
	}
	for seg := range p.Direct {
		if r, ok := direct[seg]; ok {
			out.Direct[seg] = r
		}
	}
	for seg := range p.Route {
		if r, ok := route[seg]; ok {
			out.Route[seg] = r
		}
	}
	for seg := range p.Background {
		if r, ok := background[seg]; ok {
			out.Background[seg] = r
		}
	}
	if rec != nil {
		for seg, r := range rec.Params {
			out.Fallback[seg] = r
		}
	}
	return out
}
