package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lilyanlefevre/formula-corrector/internal/compound"
	"github.com/lilyanlefevre/formula-corrector/internal/correction"
	"github.com/lilyanlefevre/formula-corrector/internal/matcher"
	"github.com/lilyanlefevre/formula-corrector/internal/stats"
	apperrors "github.com/lilyanlefevre/formula-corrector/pkg/errors"
	"github.com/lilyanlefevre/formula-corrector/pkg/logger"
	"github.com/lilyanlefevre/formula-corrector/pkg/metrics"
	"github.com/lilyanlefevre/formula-corrector/pkg/tracing"
)

// Cache stores reports by input fingerprint. compute runs at most once per
// key among concurrent callers; hit reports whether the report came from the
// cache.
type Cache interface {
	GetOrCompute(ctx context.Context, key string, compute func() (*Report, error)) (report *Report, hit bool, err error)
	Invalidate(ctx context.Context) error
}

// Store persists run summaries.
type Store interface {
	SaveRun(ctx context.Context, run RunSummary) error
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	LatestRun(ctx context.Context) (RunSummary, error)
}

// Notifier announces completed runs and correction library changes. Calls
// must not block.
type Notifier interface {
	AnalysisCompleted(run RunSummary)
	CorrectionsUpdated(list []correction.Correction)
}

type Option func(*Service)

func WithCache(c Cache) Option { return func(s *Service) { s.cache = c } }
func WithStore(st Store) Option { return func(s *Service) { s.store = st } }
func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithTracing logs a span tree for every run at debug level.
func WithTracing(enabled bool) Option { return func(s *Service) { s.tracing = enabled } }

// Service runs analyses against the current correction library.
type Service struct {
	corrections correction.Repository
	cache       Cache
	store       Store
	notifier    Notifier
	metrics     *metrics.Metrics
	tracing     bool
	logger      *slog.Logger
}

func NewService(repo correction.Repository, opts ...Option) *Service {
	s := &Service{
		corrections: repo,
		logger:      logger.WithComponent("analysis"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request describes one analysis. Load is the loader's report for
// Compounds and is carried into the resulting Report.
type Request struct {
	Source    string
	Compounds []compound.Entry
	Load      compound.LoadReport
	Options   matcher.Options
}

// AnalyzeReader loads a compound dataset from r and analyses it. A
// file-level load failure is returned as an invalid-input error.
func (s *Service) AnalyzeReader(ctx context.Context, source string, r io.Reader, load compound.LoadOptions, opts matcher.Options) (*Report, error) {
	entries, lr, err := compound.Load(r, load)
	if err != nil {
		return nil, apperrors.Invalid("reading compounds: %v", err)
	}
	s.recordLoad(lr)
	return s.Analyze(ctx, Request{Source: source, Compounds: entries, Load: lr, Options: opts})
}

// AnalyzeFile is AnalyzeReader for a path.
func (s *Service) AnalyzeFile(ctx context.Context, source, path string, load compound.LoadOptions, opts matcher.Options) (*Report, error) {
	entries, lr, err := compound.LoadFile(path, load)
	if err != nil {
		return nil, fmt.Errorf("loading compounds: %w", err)
	}
	s.recordLoad(lr)
	return s.Analyze(ctx, Request{Source: source, Compounds: entries, Load: lr, Options: opts})
}

// Analyze matches req.Compounds against the current correction library.
func (s *Service) Analyze(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx).With("component", "analysis")

	list, err := s.corrections.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing corrections: %w", err)
	}

	ctx, root := tracing.Start(ctx, "analysis")
	root.SetAttr("compounds", len(req.Compounds))
	root.SetAttr("corrections", len(list))

	compute := func() (*Report, error) {
		return s.compute(ctx, req, list), nil
	}

	cacheStatus := "disabled"
	var report *Report
	if s.cache != nil {
		key := Fingerprint(req.Compounds, list, req.Options)
		cached, hit, err := s.cache.GetOrCompute(ctx, key, compute)
		if err != nil {
			return nil, fmt.Errorf("computing analysis: %w", err)
		}
		report = cached
		cacheStatus = "miss"
		if hit {
			cacheStatus = "hit"
		}
		s.recordCache(hit)
	} else {
		report, _ = compute()
	}

	// A shared or cached report is copied before it is stamped with this
	// run's identity.
	out := *report
	out.ID = runID
	out.Source = req.Source
	out.CreatedAt = start.UTC()
	out.Cached = cacheStatus == "hit"
	out.Load = req.Load

	root.End()
	if s.tracing {
		root.Log(log)
	}
	s.recordRun(&out, cacheStatus, time.Since(start))

	run := out.RunSummary()
	if s.store != nil {
		if err := s.store.SaveRun(ctx, run); err != nil {
			log.Warn("persisting run failed", "error", err)
		}
	}
	if s.notifier != nil {
		s.notifier.AnalysisCompleted(run)
	}

	log.Info("analysis complete",
		"source", req.Source,
		"compounds", len(out.Compounds),
		"corrections", out.Corrections,
		"matches", out.Summary.TotalMatches,
		"multiple", out.Summary.CompoundsMultiple,
		"cache", cacheStatus,
		"duration", time.Since(start),
	)
	return &out, nil
}

func (s *Service) compute(ctx context.Context, req Request, list []correction.Correction) *Report {
	_, span := tracing.Start(ctx, "index")
	idx := compound.BuildIndex(req.Compounds)
	collisions := idx.Collisions()
	span.SetAttr("formulas", idx.Len())
	span.SetAttr("collisions", len(collisions))
	span.End()
	log := logger.FromContext(ctx).With("component", "analysis")
	for _, c := range collisions {
		log.Warn("duplicate formula shadowed in index",
			"formula", c.Formula,
			"shadowed_id", req.Compounds[c.Shadowed].ID,
			"winner_id", req.Compounds[c.Winner].ID,
		)
	}
	if !req.Options.ExcludeSelf {
		for i, corr := range list {
			if corr.Formula.IsZero() {
				log.Warn("zero-delta correction matches every compound to itself", "position", i)
			}
		}
	}

	_, span = tracing.Start(ctx, "match")
	results := matcher.Match(req.Compounds, list, idx, req.Options)
	span.SetAttr("results", len(results))
	span.End()

	_, span = tracing.Start(ctx, "aggregate")
	summary := matcher.Summarize(results)
	agg := stats.Aggregate(results)
	span.SetAttr("corrections_used", len(agg))
	span.End()

	return &Report{
		Options:     req.Options,
		Corrections: len(list),
		Collisions:  collisions,
		Compounds:   req.Compounds,
		Results:     results,
		Stats:       agg,
		Summary:     summary,
	}
}

// Corrections returns the current library.
func (s *Service) Corrections(ctx context.Context) ([]correction.Correction, error) {
	return s.corrections.List(ctx)
}

// ReplaceCorrections saves list as the library, drops cached reports and
// announces the change.
func (s *Service) ReplaceCorrections(ctx context.Context, list []correction.Correction) ([]correction.Correction, error) {
	saved, err := s.applyCorrections(ctx, list)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.CorrectionsUpdated(saved)
	}
	return saved, nil
}

// ApplyReplicatedCorrections is ReplaceCorrections for a list received from
// another instance; it is not announced again.
func (s *Service) ApplyReplicatedCorrections(ctx context.Context, list []correction.Correction) error {
	_, err := s.applyCorrections(ctx, list)
	return err
}

func (s *Service) applyCorrections(ctx context.Context, list []correction.Correction) ([]correction.Correction, error) {
	if err := s.corrections.Save(ctx, list); err != nil {
		return nil, fmt.Errorf("saving corrections: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("cache invalidation failed", "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.CorrectionsLoaded.Set(float64(len(list)))
	}
	s.logger.Info("correction library replaced", "corrections", len(list))
	return list, nil
}

// LatestRun returns the newest persisted run summary.
func (s *Service) LatestRun(ctx context.Context) (RunSummary, error) {
	if s.store == nil {
		return RunSummary{}, apperrors.Unavailable("run history requires postgres")
	}
	return s.store.LatestRun(ctx)
}

// Runs lists persisted run summaries, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if s.store == nil {
		return nil, apperrors.Unavailable("run history requires postgres")
	}
	if limit <= 0 {
		return nil, apperrors.Invalid("limit must be positive")
	}
	return s.store.ListRuns(ctx, limit)
}

func (s *Service) recordLoad(lr compound.LoadReport) {
	if s.metrics == nil {
		return
	}
	s.metrics.RowsLoadedTotal.Add(float64(lr.Loaded))
	s.metrics.RowsDroppedTotal.Add(float64(len(lr.Dropped)))
}

func (s *Service) recordCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHitsTotal.Inc()
	} else {
		s.metrics.CacheMissesTotal.Inc()
	}
}

func (s *Service) recordRun(r *Report, cacheStatus string, d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.AnalysesTotal.WithLabelValues(r.Source, cacheStatus).Inc()
	s.metrics.AnalysisDuration.WithLabelValues(r.Source).Observe(d.Seconds())
	s.metrics.MatchesTotal.Add(float64(len(r.Results)))
	s.metrics.MultiMatchCompounds.Set(float64(r.Summary.CompoundsMultiple))
	s.metrics.IndexCollisionsTotal.Add(float64(len(r.Collisions)))
	s.metrics.CorrectionsLoaded.Set(float64(r.Corrections))
}
