package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/observability"
)

// Source provides the three file inputs of a run.
type Source interface {
	Incidents() (IncidentBatch, error)
	Counties() ([]domain.County, error)
	Stations() ([]domain.Station, error)
}

// IncidentBatch is the parsed incident export.
type IncidentBatch struct {
	Incidents []domain.Incident
	// Invalid counts rows dropped while parsing.
	Invalid int
}

// TableWriter commits the output tables and reports rows written per file.
type TableWriter interface {
	WriteTables(tables domain.Tables) (map[string]int, error)
}

// Sink receives the tables after they have been committed to disk.
type Sink interface {
	Publish(ctx context.Context, run domain.Run, tables domain.Tables) error
}

// Options tunes the join and rainfall stages.
type Options struct {
	// JoinCountyFallback places incidents without coordinates by their
	// incident_county text.
	JoinCountyFallback bool
	// StartWaterYear and EndWaterYear override the water years derived from
	// the wildfire months. Zero means unset.
	StartWaterYear int
	EndWaterYear   int
}

// Report summarizes a completed run.
type Report struct {
	Stats  domain.RunStats
	Join   JoinStats
	Rows   map[string]int
	Tables domain.Tables
}

// Pipeline runs the load, join, rainfall, aggregate, and write stages once.
type Pipeline struct {
	source   Source
	rainfall domain.RainfallSource
	writer   TableWriter
	sinks    []Sink
	opts     Options
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu     sync.Mutex
	status Status
}

// Run states reported by Status.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

// Status is a snapshot of the pipeline's progress.
type Status struct {
	RunID string `json:"run_id,omitempty"`
	State string `json:"state"`
	Stage string `json:"stage,omitempty"`
	Error string `json:"error,omitempty"`
}

// New creates a Pipeline with the given stages and observability.
func New(src Source, rainfall domain.RainfallSource, w TableWriter, sinks []Sink, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:   src,
		rainfall: rainfall,
		writer:   w,
		sinks:    sinks,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		status:   Status{State: StateIdle},
	}
}

// Status returns the current run state and stage.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// CheckReadiness fails once a run has failed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	st := p.Status()
	if st.State == StateFailed {
		return fmt.Errorf("run %s failed in %s: %s", st.RunID, st.Stage, st.Error)
	}
	return nil
}

func (p *Pipeline) setStatus(fn func(*Status)) {
	p.mu.Lock()
	fn(&p.status)
	p.mu.Unlock()
}

// Run executes every stage in order. Any error aborts the run before the
// output tables are written; sink errors occur after the tables are committed.
func (p *Pipeline) Run(ctx context.Context, run domain.Run) (Report, error) {
	p.setStatus(func(s *Status) { *s = Status{RunID: run.ID, State: StateRunning} })
	report, err := p.run(ctx, run)
	p.setStatus(func(s *Status) {
		if err != nil {
			s.State, s.Error = StateFailed, err.Error()
			return
		}
		s.State, s.Stage = StateSucceeded, ""
	})
	return report, err
}

func (p *Pipeline) run(ctx context.Context, run domain.Run) (Report, error) {
	var report Report
	p.logger.Info("pipeline started", "run_id", run.ID)

	var (
		batch    IncidentBatch
		counties []domain.County
		stations []domain.Station
	)
	err := p.stage(ctx, "load", func() error {
		var err error
		if batch, err = p.source.Incidents(); err != nil {
			return err
		}
		if counties, err = p.source.Counties(); err != nil {
			return err
		}
		stations, err = p.source.Stations()
		return err
	})
	if err != nil {
		return report, err
	}
	report.Stats.IncidentsRead = len(batch.Incidents)
	report.Stats.IncidentsInvalid = batch.Invalid
	p.metrics.IncidentsRead.Add(float64(len(batch.Incidents)))
	p.metrics.IncidentsInvalid.Add(float64(batch.Invalid))
	p.logger.Info("inputs loaded",
		"incidents", len(batch.Incidents),
		"invalid_rows", batch.Invalid,
		"counties", len(counties),
		"stations", len(stations),
	)

	joiner := NewJoiner(counties, p.opts.JoinCountyFallback, p.logger)
	var joined []domain.JoinedIncident
	err = p.stage(ctx, "join", func() error {
		joined, report.Join = joiner.Join(batch.Incidents)
		return nil
	})
	if err != nil {
		return report, err
	}
	report.Stats.IncidentsJoined = len(joined)
	report.Stats.IncidentsUnmatched = report.Join.Unmatched
	p.metrics.IncidentsJoined.WithLabelValues(string(domain.JoinPolygon)).Add(float64(report.Join.Polygon))
	p.metrics.IncidentsJoined.WithLabelValues(string(domain.JoinCountyName)).Add(float64(report.Join.CountyName))
	p.metrics.IncidentsUnmatched.Add(float64(report.Join.Unmatched))

	var observations []domain.RainfallObservation
	err = p.stage(ctx, "rainfall", func() error {
		var err error
		observations, err = p.loadRainfall(ctx, joined, joiner.CountySet(), stations, &report.Stats)
		return err
	})
	if err != nil {
		return report, err
	}

	err = p.stage(ctx, "aggregate", func() error {
		report.Tables.Wildfire = domain.AggregateWildfire(joined)
		report.Tables.Rainfall = domain.AggregateRainfall(observations)
		report.Tables.Analysis = domain.MergeAnalysis(report.Tables.Wildfire, report.Tables.Rainfall)
		return nil
	})
	if err != nil {
		return report, err
	}

	err = p.stage(ctx, "write", func() error {
		var err error
		report.Rows, err = p.writer.WriteTables(report.Tables)
		return err
	})
	if err != nil {
		return report, err
	}
	for name, n := range report.Rows {
		p.metrics.RowsWritten.WithLabelValues(strings.TrimSuffix(name, ".csv")).Add(float64(n))
	}

	run.Stats = report.Stats
	if len(p.sinks) > 0 {
		err = p.stage(ctx, "publish", func() error {
			for _, s := range p.sinks {
				if err := s.Publish(ctx, run, report.Tables); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return report, err
		}
	}

	p.logger.Info("pipeline finished",
		"incidents_joined", report.Stats.IncidentsJoined,
		"incidents_unmatched", report.Stats.IncidentsUnmatched,
		"wildfire_rows", len(report.Tables.Wildfire),
		"rainfall_rows", len(report.Tables.Rainfall),
	)
	return report, nil
}

// stage runs fn, records its duration, and wraps its error with the stage name.
func (p *Pipeline) stage(ctx context.Context, name string, fn func() error) error {
	p.setStatus(func(s *Status) { s.Stage = name })
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	p.metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	p.logger.Debug("stage complete", "stage", name, "duration", elapsed)
	return nil
}
