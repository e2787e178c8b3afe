// Package pipeline drives a classification run: it owns the run context
// and executes the stages strictly in order, persisting each stage output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/minovsor/mgb-bho-ds/internal/classify"
	"github.com/minovsor/mgb-bho-ds/internal/config"
	"github.com/minovsor/mgb-bho-ds/internal/graph"
	"github.com/minovsor/mgb-bho-ds/internal/logger"
	"github.com/minovsor/mgb-bho-ds/internal/metrics"
	"github.com/minovsor/mgb-bho-ds/internal/report"
	"github.com/minovsor/mgb-bho-ds/internal/selection"
	"github.com/minovsor/mgb-bho-ds/internal/storage"
	"github.com/minovsor/mgb-bho-ds/internal/tableio"
	"github.com/minovsor/mgb-bho-ds/internal/walk"
)

const (
	StageLoad       = "load"
	StageNetwork    = "network"
	StageDomain     = "domain"
	StageBackground = "background"
	StageSelection  = "selection"
	StageDirect     = "direct"
	StageScreening  = "screening"
	StageRoutes     = "routes"
	StageValidation = "validation"
	StageReconcile  = "reconcile"
	StageFinalize   = "finalize"
	StageOutputs    = "outputs"

	// StageReport is the key of the persisted run report.
	StageReport = "report"
)

// ErrNoDomain is returned when neither a domain table nor polygons are
// configured.
var ErrNoDomain = errors.New("no domain map or catchment polygons configured")

// Result is the run context. Each stage fills its own fields and treats
// the fields of earlier stages as read-only.
type Result struct {
	RunID string

	Tables  *tableio.Tables
	Network *graph.Network
	Domain  map[int]int

	Passes      []selection.StageResult
	SourceTable []selection.Selection
	Matches     []selection.Match

	Background       map[int]int
	BackgroundParams map[int]classify.BackgroundParams
	Direct           map[int]int
	DirectParams     map[int]classify.DirectParams
	Screening        *classify.Screening
	Routes           *classify.RouteAssociation
	RouteParams      map[int]classify.RouteParams
	Partition        *classify.Partition
	Reconciliation   *classify.Reconciliation

	Params         *classify.Params
	Classification map[int]classify.Assignment

	Report *report.RunReport
}

// Runner executes runs against one configuration.
type Runner struct {
	Config *config.Config
	// Store receives stage snapshots; nil disables persistence.
	Store   storage.SnapshotStore
	Codec   storage.Codec
	Metrics *metrics.Recorder
	Log     *slog.Logger

	// OnStage is called after each stage with its position in the run.
	OnStage func(stage string, done, total int)
}

func NewRunner(cfg *config.Config, store storage.SnapshotStore) *Runner {
	return &Runner{
		Config:  cfg,
		Store:   store,
		Codec:   storage.Codec{Compress: cfg.Storage.Compress},
		Metrics: metrics.New(),
		Log:     logger.L(),
	}
}

type stage struct {
	name string
	run  func(ctx context.Context, res *Result) (map[string]float64, error)
}

func (r *Runner) stages() []stage {
	return []stage{
		{StageLoad, r.load},
		{StageNetwork, r.network},
		{StageDomain, r.domain},
		{StageBackground, r.background},
		{StageSelection, r.selection},
		{StageDirect, r.direct},
		{StageScreening, r.screening},
		{StageRoutes, r.routes},
		{StageValidation, r.validation},
		{StageReconcile, r.reconcile},
		{StageFinalize, r.finalize},
		{StageOutputs, r.outputs},
	}
}

// StageNames lists the stages of a full run in execution order.
func (r *Runner) StageNames() []string {
	var out []string
	for _, st := range r.stages() {
		out = append(out, st.name)
	}
	return out
}

// Run executes every stage.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	return r.execute(ctx, r.stages())
}

// Select stops after type-1 selection and writes the source table and the
// filtered type-1 table.
func (r *Runner) Select(ctx context.Context) (*Result, error) {
	all := r.stages()
	var head []stage
	for _, st := range all {
		head = append(head, st)
		if st.name == StageSelection {
			break
		}
	}
	head = append(head, stage{StageOutputs, r.selectionOutputs})
	return r.execute(ctx, head)
}

func (r *Runner) execute(ctx context.Context, stages []stage) (*Result, error) {
	if r.Config == nil {
		return nil, errors.New("pipeline: nil config")
	}
	if r.Log == nil {
		r.Log = logger.L()
	}
	if r.Metrics == nil {
		r.Metrics = metrics.New()
	}

	res := &Result{RunID: uuid.NewString()}
	res.Report = report.New(res.RunID, r.Config.Output.Dir)
	log := r.Log.With("run", res.RunID)
	log.Info("run started", "stages", len(stages))

	for i, st := range stages {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		h := res.Report.BeginStage(st.name)
		counters, err := st.run(ctx, res)
		m := res.Report.EndStage(h, counters, err)
		r.Metrics.ObserveStage(st.name, time.Duration(m.DurationMS)*time.Millisecond)
		if err != nil {
			log.Error("stage failed", "stage", st.name, "error", err)
			r.saveReport(ctx, res)
			return res, fmt.Errorf("stage %s failed: %w", st.name, err)
		}
		log.Debug("stage done", "stage", st.name, "duration_ms", m.DurationMS)

		if r.OnStage != nil {
			r.OnStage(st.name, i+1, len(stages))
		}
	}

	r.saveReport(ctx, res)
	log.Info("run finished", "segments", len(res.Classification))
	return res, nil
}

// persist stores v as the snapshot of stage. Persistence failures abort
// the run.
func (r *Runner) persist(ctx context.Context, res *Result, stage string, v any) error {
	if r.Store == nil {
		return nil
	}
	return storage.Save(ctx, r.Store, r.Codec, storage.Key(res.RunID, stage), v)
}

// persistBatch stores several stage snapshots in one write.
func (r *Runner) persistBatch(ctx context.Context, res *Result, stages map[string]any) error {
	if r.Store == nil {
		return nil
	}
	items := make(map[string]any, len(stages))
	for stage, v := range stages {
		items[storage.Key(res.RunID, stage)] = v
	}
	return storage.SaveBatch(ctx, r.Store, r.Codec, items)
}

func (r *Runner) saveReport(ctx context.Context, res *Result) {
	res.Report.Finalize()
	if err := r.persist(ctx, res, StageReport, res.Report); err != nil {
		r.Log.Warn("failed to persist run report", "run", res.RunID, "error", err)
	}
	path := r.Config.Output.Report
	if path == "" {
		return
	}
	if err := res.Report.Save(r.outPath(path)); err != nil {
		r.Log.Warn("failed to write run report", "path", path, "error", err)
	}
}

func (r *Runner) outPath(name string) string {
	if filepath.IsAbs(name) || r.Config.Output.Dir == "" {
		return name
	}
	return filepath.Join(r.Config.Output.Dir, name)
}

func (r *Runner) selectionConfig() selection.Config {
	cfg := selection.DefaultConfig()
	cfg.AreaThreshold = r.Config.Selection.SearchAreaThreshold
	cfg.DownstreamCutoff = r.Config.Selection.DownstreamSearchCutoff
	cfg.MaxDistance = r.Config.Selection.MaxCentroidDistance
	cfg.Walk = r.walkConfig()
	return cfg
}

func (r *Runner) walkConfig() walk.Config {
	return walk.Config{
		SearchSteps: r.Config.Selection.ReconcileSteps,
		MaxSteps:    r.Config.Routing.MaxRouteSteps,
	}
}
