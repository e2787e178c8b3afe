// Package metrics exposes classification counts as Prometheus metrics and
// writes them to a node_exporter textfile at the end of a run.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns a private registry so several runs in one process never
// share series.
type Recorder struct {
	reg *prometheus.Registry

	Segments      *prometheus.GaugeVec
	Routes        *prometheus.CounterVec
	Screened      *prometheus.GaugeVec
	PassSelected  *prometheus.GaugeVec
	Unresolved    prometheus.Gauge
	Mismatch      prometheus.Gauge
	StageDuration *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		Segments: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mgbbho_segments",
			Help: "Classified segments by association type",
		}, []string{"type"}),
		Routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mgbbho_route_failures_total",
			Help: "Rejected type-2 routes by status code",
		}, []string{"status"}),
		Screened: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mgbbho_screened_catchments",
			Help: "Type-1 catchments by screening outcome",
		}, []string{"outcome"}),
		PassSelected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mgbbho_selection_selected",
			Help: "Catchments holding a type-1 pick after each selection pass",
		}, []string{"pass"}),
		Unresolved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mgbbho_type4_unresolved",
			Help: "Type-4 segments without a downstream type-1 neighbour",
		}),
		Mismatch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mgbbho_coverage_mismatch",
			Help: "1 when the validated sets do not cover the domain exactly",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mgbbho_stage_duration_ms",
			Help:    "Pipeline stage duration in milliseconds",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000},
		}, []string{"stage"}),
	}

	r.reg.MustRegister(r.Segments, r.Routes, r.Screened, r.PassSelected, r.Unresolved, r.Mismatch, r.StageDuration)
	return r
}

// Registry returns the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

func (r *Recorder) ObserveSegments(tag string, n int) {
	r.Segments.WithLabelValues(tag).Set(float64(n))
}

func (r *Recorder) ObserveRouteFailures(counts map[int]int) {
	for status, n := range counts {
		r.Routes.WithLabelValues(strconv.Itoa(status)).Add(float64(n))
	}
}

func (r *Recorder) ObserveScreened(outcome string, n int) {
	r.Screened.WithLabelValues(outcome).Set(float64(n))
}

func (r *Recorder) ObservePass(pass string, selected int) {
	r.PassSelected.WithLabelValues(pass).Set(float64(selected))
}

func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.StageDuration.WithLabelValues(stage).Observe(float64(d.Milliseconds()))
}

func (r *Recorder) SetUnresolved(n int) {
	r.Unresolved.Set(float64(n))
}

func (r *Recorder) SetMismatch(mismatch bool) {
	if mismatch {
		r.Mismatch.Set(1)
		return
	}
	r.Mismatch.Set(0)
}

// WriteTextfile writes every series in the textfile exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
