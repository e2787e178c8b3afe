package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/minovsor/mgb-bho-ds/internal/classify"
	"github.com/minovsor/mgb-bho-ds/internal/domain"
	"github.com/minovsor/mgb-bho-ds/internal/export"
	"github.com/minovsor/mgb-bho-ds/internal/graph"
	"github.com/minovsor/mgb-bho-ds/internal/report"
	"github.com/minovsor/mgb-bho-ds/internal/selection"
	"github.com/minovsor/mgb-bho-ds/internal/tableio"
)

func (r *Runner) load(ctx context.Context, res *Result) (map[string]float64, error) {
	in := r.Config.Input
	tables, err := tableio.LoadAll(ctx, tableio.Paths{
		Segments:   in.Segments,
		Catchments: in.Catchments,
		Domain:     in.Domain,
		Polygons:   in.Polygons,
		Type1Table: in.Type1Table,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load input tables: %w", err)
	}
	res.Tables = tables
	return map[string]float64{
		"segments":   float64(len(tables.Segments)),
		"catchments": float64(len(tables.Catchments)),
		"polygons":   float64(len(tables.Polygons)),
		"type1_rows": float64(len(tables.Source)),
	}, nil
}

func (r *Runner) network(ctx context.Context, res *Result) (map[string]float64, error) {
	net, err := graph.New(res.Tables.Segments, res.Tables.Catchments)
	if err != nil {
		return nil, fmt.Errorf("failed to build network: %w", err)
	}
	res.Network = net

	counters := map[string]float64{
		"segments":   float64(len(net.Segments)),
		"catchments": float64(len(net.Catchments)),
		"branching":  float64(len(net.BranchingSegments())),
	}
	for reason, n := range net.DanglingReasonCounts() {
		counters["dangling_"+string(reason)] = float64(n)
		res.Report.Flag(StageNetwork, report.SeverityInfo, "dangling_"+string(reason),
			fmt.Sprintf("%d downstream pointers dropped (%s)", n, reason), float64(n))
	}
	if err := r.persist(ctx, res, StageNetwork, net.Dangling); err != nil {
		return counters, err
	}
	return counters, nil
}

func (r *Runner) domain(ctx context.Context, res *Result) (map[string]float64, error) {
	var m domain.Mapper
	switch {
	case len(res.Tables.Domain) > 0:
		m = res.Tables.Domain
	case len(res.Tables.Polygons) > 0:
		m = domain.NewPolygonJoin(res.Tables.Polygons)
	default:
		return nil, ErrNoDomain
	}

	dom, err := m.Map(ctx, res.Network)
	if err != nil {
		return nil, fmt.Errorf("failed to map domain: %w", err)
	}
	res.Domain = dom
	if err := r.persist(ctx, res, StageDomain, dom); err != nil {
		return nil, err
	}
	return map[string]float64{"segments": float64(len(dom))}, nil
}

func (r *Runner) background(ctx context.Context, res *Result) (map[string]float64, error) {
	res.Background = classify.Background(res.Domain)
	res.BackgroundParams = classify.BackgroundRecords(res.Network, res.Background)
	return map[string]float64{
		"segments": float64(len(res.Background)),
		"records":  float64(len(res.BackgroundParams)),
	}, nil
}

func (r *Runner) selection(ctx context.Context, res *Result) (map[string]float64, error) {
	counters := map[string]float64{}

	// 1. An external source table replaces the selection passes.
	if len(res.Tables.Source) > 0 {
		res.SourceTable = res.Tables.Source
		counters["external"] = 1
	} else {
		// 2. Run the four passes.
		st, passes, err := selection.Run(res.Network, res.Domain, r.selectionConfig())
		res.Passes = passes
		if err != nil {
			return nil, fmt.Errorf("type-1 selection failed: %w", err)
		}
		for _, p := range passes {
			counters[p.Pass+"_selected"] = float64(p.SelectedAfter)
			r.Metrics.ObservePass(p.Pass, p.SelectedAfter)
		}
		res.SourceTable = st.SourceTable()
	}

	// 3. Dedup and filter against the tolerance table.
	res.Matches = selection.Filter(res.SourceTable)
	counters["source_rows"] = float64(len(res.SourceTable))
	counters["matches"] = float64(len(res.Matches))

	if err := r.persist(ctx, res, "selection", res.SourceTable); err != nil {
		return counters, err
	}
	if err := r.persist(ctx, res, "type1", res.Matches); err != nil {
		return counters, err
	}
	return counters, nil
}

func (r *Runner) direct(ctx context.Context, res *Result) (map[string]float64, error) {
	res.Direct = classify.Direct(res.Matches)
	res.DirectParams = classify.DirectRecords(res.Matches, res.Direct)
	return map[string]float64{"segments": float64(len(res.Direct))}, nil
}

func (r *Runner) screening(ctx context.Context, res *Result) (map[string]float64, error) {
	scr, err := classify.Screen(res.Network, res.Matches, r.walkConfig())
	if err != nil {
		return nil, fmt.Errorf("route screening failed: %w", err)
	}
	res.Screening = scr

	failures := scr.StatusCounts()
	r.Metrics.ObserveRouteFailures(failures)
	res.Report.AddRouteFailures(failures)
	r.Metrics.ObserveScreened("accepted", len(scr.Inlets))
	r.Metrics.ObserveScreened("headwater", len(scr.Headwater))
	r.Metrics.ObserveScreened("incomplete", len(scr.Incomplete))
	r.Metrics.ObserveScreened("broken", len(scr.Broken))

	counters := map[string]float64{
		"accepted":   float64(len(scr.Inlets)),
		"headwater":  float64(len(scr.Headwater)),
		"incomplete": float64(len(scr.Incomplete)),
		"broken":     float64(len(scr.Broken)),
	}
	for status, n := range failures {
		counters[fmt.Sprintf("status_%d", status)] = float64(n)
	}
	if err := r.persist(ctx, res, StageScreening, scr); err != nil {
		return counters, err
	}
	return counters, nil
}

func (r *Runner) routes(ctx context.Context, res *Result) (map[string]float64, error) {
	res.Routes = classify.AssociateRoutes(res.Screening)
	res.RouteParams = classify.RouteRecords(res.Network, res.Screening, res.Routes, res.Direct)
	if err := r.persist(ctx, res, StageRoutes, res.Routes); err != nil {
		return nil, err
	}
	return map[string]float64{
		"segments": float64(len(res.Routes.Segments)),
		"direct":   float64(len(res.Routes.Direct)),
	}, nil
}

func (r *Runner) validation(ctx context.Context, res *Result) (map[string]float64, error) {
	p := classify.Validate(res.Network, res.Domain, r.Config.Validation.MainNetworkThreshold, res.Direct, res.Routes.Segments)
	res.Partition = p

	r.Metrics.SetMismatch(p.Mismatch())
	res.Report.SetCoverage(p.DomainSize, p.Total())
	if p.Mismatch() {
		r.Log.Warn("coverage mismatch", "run", res.RunID, "domain", p.DomainSize, "classified", p.Total())
		res.Report.Flag(StageValidation, report.SeverityWarning, "coverage_mismatch",
			fmt.Sprintf("%d segments classified for a domain of %d", p.Total(), p.DomainSize),
			float64(p.DomainSize-p.Total()))
	}
	if err := r.persist(ctx, res, "partition", p); err != nil {
		return nil, err
	}
	return map[string]float64{
		"type1":      float64(len(p.Direct)),
		"type2":      float64(len(p.Route)),
		"type3":      float64(len(p.Background)),
		"candidates": float64(len(p.Candidates)),
		"domain":     float64(p.DomainSize),
	}, nil
}

func (r *Runner) reconcile(ctx context.Context, res *Result) (map[string]float64, error) {
	rec, err := classify.Reconcile(res.Network, res.Partition.Candidates, res.BackgroundParams, res.Partition.Direct)
	if err != nil {
		return nil, fmt.Errorf("type-4 reconciliation failed: %w", err)
	}
	res.Reconciliation = rec

	r.Metrics.SetUnresolved(len(rec.Unresolved))
	res.Report.SetUnresolved(len(rec.Unresolved))
	if n := len(rec.Unresolved); n > 0 {
		r.Log.Info("unresolved type-4 segments", "run", res.RunID, "count", n)
		res.Report.Flag(StageReconcile, report.SeverityInfo, "type4_unresolved",
			fmt.Sprintf("%d type-4 segments keep their background catchment", n), float64(n))
	}
	return map[string]float64{
		"resolved":   float64(len(rec.Params) - len(rec.Unresolved)),
		"unresolved": float64(len(rec.Unresolved)),
	}, nil
}

func (r *Runner) finalize(ctx context.Context, res *Result) (map[string]float64, error) {
	res.Classification = classify.Finalize(res.Partition, res.Reconciliation)
	res.Params = classify.Build(res.DirectParams, res.RouteParams, res.BackgroundParams, res.Partition, res.Reconciliation)

	counters := map[string]float64{}
	for tag, n := range export.Counts(res.Classification) {
		counters[tag] = float64(n)
		r.Metrics.ObserveSegments(tag, n)
		res.Report.SetSegments(tag, n)
	}

	err := r.persistBatch(ctx, res, map[string]any{
		"params":         res.Params,
		"classification": res.Classification,
	})
	return counters, err
}

func (r *Runner) outputs(ctx context.Context, res *Result) (map[string]float64, error) {
	if r.Config.Output.Dir == "" {
		return map[string]float64{"files": 0}, nil
	}

	if err := os.MkdirAll(r.Config.Output.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	files := 0
	if err := tableio.WriteClassification(r.outPath("classification.csv"), res.Classification); err != nil {
		return nil, fmt.Errorf("failed to write classification: %w", err)
	}
	files++

	bundle := export.NewBundle(res.RunID, res.Classification, res.Params, res.Reconciliation.Unresolved)
	if err := export.Save(bundle, r.outPath(BundleFile)); err != nil {
		return nil, err
	}
	files++

	n, err := r.writeSelection(res)
	if err != nil {
		return nil, err
	}
	files += n

	if path := r.Config.Output.Metrics; path != "" {
		if err := r.Metrics.WriteTextfile(r.outPath(path)); err != nil {
			return nil, fmt.Errorf("failed to write metrics: %w", err)
		}
		files++
	}
	return map[string]float64{"files": float64(files)}, nil
}

func (r *Runner) selectionOutputs(ctx context.Context, res *Result) (map[string]float64, error) {
	if r.Config.Output.Dir == "" {
		return map[string]float64{"files": 0}, nil
	}
	if err := os.MkdirAll(r.Config.Output.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	n, err := r.writeSelection(res)
	if err != nil {
		return nil, err
	}
	return map[string]float64{"files": float64(n)}, nil
}

func (r *Runner) writeSelection(res *Result) (int, error) {
	files := 0
	if len(res.SourceTable) > 0 {
		if err := tableio.WriteSourceTable(r.outPath("type1_source.csv"), res.SourceTable); err != nil {
			return files, fmt.Errorf("failed to write source table: %w", err)
		}
		files++
	}
	if err := tableio.WriteMatches(r.outPath("type1.csv"), res.Matches); err != nil {
		return files, fmt.Errorf("failed to write type-1 table: %w", err)
	}
	return files + 1, nil
}
