// Package report records what each pipeline stage did: timings, counters,
// and signals worth a human look (coverage mismatch, unresolved fallbacks,
// dangling references).
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Severity ranks a signal. Higher ranks sort first.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	}
	return 1
}

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

type Signal struct {
	Stage    string   `json:"stage"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Value    float64  `json:"value,omitempty"`
}

type StageMetric struct {
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	StartedAt  time.Time          `json:"started_at"`
	DurationMS int64              `json:"duration_ms"`
	Counters   map[string]float64 `json:"counters,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Coverage compares the validated sets with the domain.
type Coverage struct {
	Domain     int  `json:"domain"`
	Classified int  `json:"classified"`
	Mismatch   bool `json:"mismatch"`
}

type Summary struct {
	StageCount        int              `json:"stage_count"`
	FailedStage       string           `json:"failed_stage,omitempty"`
	Segments          map[string]int   `json:"segments,omitempty"`
	Coverage          *Coverage        `json:"coverage,omitempty"`
	Unresolved        int              `json:"unresolved_type4"`
	RouteFailures     map[string]int   `json:"route_failures,omitempty"`
	SignalsBySeverity map[Severity]int `json:"signals_by_severity"`
}

type RunReport struct {
	Version     string        `json:"version"`
	RunID       string        `json:"run_id"`
	GeneratedAt string        `json:"generated_at"`
	OutputDir   string        `json:"output_dir"`
	Stages      []StageMetric `json:"stages"`
	Signals     []Signal      `json:"signals,omitempty"`
	Summary     Summary       `json:"summary"`

	segments      map[string]int
	coverage      *Coverage
	unresolved    int
	routeFailures map[string]int
}

type StageHandle struct {
	name    string
	started time.Time
}

func New(runID, outputDir string) *RunReport {
	return &RunReport{
		Version:       "v1",
		RunID:         runID,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		OutputDir:     outputDir,
		Stages:        []StageMetric{},
		segments:      map[string]int{},
		routeFailures: map[string]int{},
	}
}

func (r *RunReport) BeginStage(name string) StageHandle {
	return StageHandle{name: strings.TrimSpace(name), started: time.Now().UTC()}
}

// EndStage appends the metric of a finished stage. A non-nil err marks it
// failed. Counters with empty names or non-finite values are dropped.
func (r *RunReport) EndStage(h StageHandle, counters map[string]float64, err error) StageMetric {
	if r == nil || h.name == "" {
		return StageMetric{}
	}
	m := StageMetric{
		Name:       h.name,
		Status:     StatusOK,
		StartedAt:  h.started,
		DurationMS: time.Since(h.started).Milliseconds(),
	}
	for k, v := range counters {
		if k = strings.TrimSpace(k); k == "" || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if m.Counters == nil {
			m.Counters = make(map[string]float64, len(counters))
		}
		m.Counters[k] = v
	}
	if err != nil {
		m.Status = StatusFailed
		m.Error = err.Error()
	}
	r.Stages = append(r.Stages, m)
	return m
}

// Flag records a signal raised by stage. Signals without a stage, code or
// message are ignored.
func (r *RunReport) Flag(stage string, sev Severity, code, message string, value float64) {
	if r == nil {
		return
	}
	s := Signal{
		Stage:    strings.TrimSpace(stage),
		Code:     strings.TrimSpace(code),
		Severity: sev,
		Message:  strings.TrimSpace(message),
		Value:    value,
	}
	if s.Stage == "" || s.Code == "" || s.Message == "" {
		return
	}
	if s.Severity == "" {
		s.Severity = SeverityInfo
	}
	r.Signals = append(r.Signals, s)
}

// SetSegments records the final count of one association type.
func (r *RunReport) SetSegments(tag string, n int) {
	if r == nil {
		return
	}
	r.segments[tag] = n
}

// SetCoverage records the validation totals.
func (r *RunReport) SetCoverage(domain, classified int) {
	if r == nil {
		return
	}
	r.coverage = &Coverage{Domain: domain, Classified: classified, Mismatch: domain != classified}
}

func (r *RunReport) SetUnresolved(n int) {
	if r == nil {
		return
	}
	r.unresolved = n
}

// AddRouteFailures accumulates rejected type-2 routes by status code.
func (r *RunReport) AddRouteFailures(byStatus map[int]int) {
	if r == nil {
		return
	}
	for status, n := range byStatus {
		r.routeFailures[strconv.Itoa(status)] += n
	}
}

// Finalize orders signals by severity, then by the position of their stage
// in the run, and rebuilds the summary.
func (r *RunReport) Finalize() {
	if r == nil {
		return
	}
	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)

	pos := make(map[string]int, len(r.Stages))
	for i, st := range r.Stages {
		pos[st.Name] = i
	}
	sort.SliceStable(r.Signals, func(i, j int) bool {
		a, b := r.Signals[i], r.Signals[j]
		if a.Severity.rank() != b.Severity.rank() {
			return a.Severity.rank() > b.Severity.rank()
		}
		if pos[a.Stage] != pos[b.Stage] {
			return pos[a.Stage] < pos[b.Stage]
		}
		return a.Code < b.Code
	})

	sum := Summary{
		StageCount: len(r.Stages),
		Coverage:   r.coverage,
		Unresolved: r.unresolved,
		SignalsBySeverity: map[Severity]int{
			SeverityCritical: 0,
			SeverityWarning:  0,
			SeverityInfo:     0,
		},
	}
	for _, st := range r.Stages {
		if st.Status == StatusFailed && sum.FailedStage == "" {
			sum.FailedStage = st.Name
		}
	}
	for _, s := range r.Signals {
		sum.SignalsBySeverity[s.Severity]++
	}
	if len(r.segments) > 0 {
		sum.Segments = make(map[string]int, len(r.segments))
		for k, v := range r.segments {
			sum.Segments[k] = v
		}
	}
	if len(r.routeFailures) > 0 {
		sum.RouteFailures = make(map[string]int, len(r.routeFailures))
		for k, v := range r.routeFailures {
			sum.RouteFailures[k] = v
		}
	}
	r.Summary = sum
}

// Save writes the finalized report as indented JSON, creating the parent
// directory.
func (r *RunReport) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Print writes a short human summary, one line per stage. It reads the
// stored summary, so a reloaded report prints the same as a live one.
func (r *RunReport) Print() {
	if r == nil {
		return
	}
	fmt.Printf("📋 Run %s\n", r.RunID)
	for _, st := range r.Stages {
		mark := "✅"
		if st.Status != StatusOK {
			mark = "❌"
		}
		fmt.Printf("  %s %-12s %6dms", mark, st.Name, st.DurationMS)
		for _, k := range sortedKeys(st.Counters) {
			fmt.Printf(" %s=%g", k, st.Counters[k])
		}
		fmt.Println()
	}

	sum := r.Summary
	if c := sum.Coverage; c != nil {
		fmt.Printf("  -> coverage %d/%d", c.Classified, c.Domain)
		if c.Mismatch {
			fmt.Print(" (mismatch)")
		}
		fmt.Println()
	}
	if len(sum.Segments) > 0 {
		fmt.Print("  -> segments")
		for _, k := range sortedKeys(sum.Segments) {
			fmt.Printf(" %s=%d", k, sum.Segments[k])
		}
		fmt.Printf(" unresolved_type4=%d\n", sum.Unresolved)
	}
	if len(sum.RouteFailures) > 0 {
		fmt.Print("  -> route failures")
		for _, k := range sortedKeys(sum.RouteFailures) {
			fmt.Printf(" status_%s=%d", k, sum.RouteFailures[k])
		}
		fmt.Println()
	}
	for _, s := range r.Signals {
		fmt.Printf("  ⚠️ [%s] %s/%s: %s\n", s.Severity, s.Stage, s.Code, s.Message)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
