// Package service runs the gradebook pipeline and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/gradebook/internal/adapters/report"
	"github.com/okian/gradebook/internal/adapters/repository"
	"github.com/okian/gradebook/internal/adapters/sink"
	"github.com/okian/gradebook/internal/adapters/source"
	"github.com/okian/gradebook/internal/domain/model"
	"github.com/okian/gradebook/internal/domain/normalize"
	"github.com/okian/gradebook/internal/domain/query"
	"github.com/okian/gradebook/internal/domain/scoring"
	"github.com/okian/gradebook/internal/domain/types"
	"github.com/okian/gradebook/pkg/logger"
	"github.com/okian/gradebook/pkg/metrics"
)

const (
	defaultReportConcurrency = 4
	reportKindGroup          = "group"
	reportKindRoster         = "roster"
)

// RunResult describes one pipeline run.
type RunResult = types.RunResult

// Service loads, scores and publishes gradebooks.
type Service struct {
	runMu sync.Mutex // one pipeline run at a time
	mu    sync.RWMutex

	// Collaborators
	store    *repository.SnapshotStore
	renderer *report.Renderer

	// Configuration
	src               source.Source
	keywords          []string
	defaultScore      float64
	hasDefault        bool
	ratio             float64
	marker            string
	reloadInterval    time.Duration
	reportConcurrency int

	// State
	started bool
	stopCh  chan struct{}
	done    chan struct{}
	lastRun *RunResult
	lastErr error

	logger logger.Logger
}

// New constructs a Service. Nothing is loaded until Run or Start.
func New(opts ...Option) *Service {
	s := &Service{
		keywords:          normalize.DefaultKeywords,
		ratio:             scoring.DefaultScholarshipRatio,
		marker:            sink.DefaultMarker,
		reportConcurrency: defaultReportConcurrency,
		logger:            logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewSnapshotStore()
	}
	s.renderer = report.NewRenderer()
	return s
}

// Run executes the pipeline once and publishes the result. On failure the
// previously published snapshot stays in place.
func (s *Service) Run(ctx context.Context) (RunResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	res, err := s.run(ctx)
	elapsed := time.Since(start)
	res.Duration = elapsed

	s.mu.Lock()
	if err != nil {
		s.lastErr = err
	} else {
		s.lastErr = nil
		s.lastRun = &res
	}
	s.mu.Unlock()

	if err != nil {
		metrics.RecordPipelineRun(metrics.ResultFailure, float64(elapsed.Milliseconds()))
		s.logger.Error(ctx, "pipeline run failed",
			logger.String("source", s.src.Path),
			logger.Error(err),
		)
		return res, err
	}
	metrics.RecordPipelineRun(metrics.ResultSuccess, float64(elapsed.Milliseconds()))
	s.logger.Info(ctx, "snapshot published",
		logger.String("run_id", res.RunID),
		logger.Int("records", res.Records),
		logger.Int("scholars", res.Scholars),
		logger.Duration("duration", elapsed),
	)
	return res, nil
}

func (s *Service) run(ctx context.Context) (RunResult, error) {
	res := RunResult{RunID: uuid.NewString(), Source: s.src.Path}

	loader := source.NewLoader(source.WithLogger(s.logger.Named("loader")))
	table, err := loader.Load(ctx, s.src)
	if err != nil {
		return res, err
	}
	res.Loaded = len(table.Records)
	res.Skipped = table.Skipped
	metrics.AddRowsLoaded(res.Loaded)
	metrics.AddRowsSkipped(res.Skipped)

	subjects := normalize.SubjectColumns(table.Header, table.NameColumn, table.GroupColumn, s.keywords)
	res.Subjects = subjects

	nopts := []normalize.Option{normalize.WithLogger(s.logger.Named("normalizer"))}
	if s.hasDefault {
		nopts = append(nopts, normalize.WithDefault(s.defaultScore))
	}
	normalized := normalize.New(nopts...).Normalize(ctx, table.Records, subjects)
	res.Defaulted = normalized.Defaulted
	res.Duplicates = normalized.Duplicates
	metrics.AddCellsDefaulted(res.Defaulted)
	metrics.AddDuplicatesDropped(len(res.Duplicates))

	engine := scoring.NewEngine(
		scoring.WithScholarshipRatio(s.ratio),
		scoring.WithLogger(s.logger.Named("scoring")),
	)
	scored, err := engine.Score(ctx, normalized.Records, subjects)
	if err != nil {
		return res, fmt.Errorf("score %s: %w", s.src.Path, err)
	}
	res.Records = len(scored)
	for _, r := range scored {
		if r.Scholarship {
			res.Scholars++
		}
	}

	schema := model.Schema{
		Header:      table.Header,
		NameColumn:  table.NameColumn,
		GroupColumn: table.GroupColumn,
		Subjects:    subjects,
	}
	snap := query.New(res.RunID, schema, scored, time.Now().UTC())
	if err := s.store.Publish(ctx, snap); err != nil {
		return res, fmt.Errorf("publish: %w", err)
	}
	return res, nil
}

// Reload runs the pipeline again.
func (s *Service) Reload(ctx context.Context) (RunResult, error) {
	return s.Run(ctx)
}

// Start runs the pipeline once and, when a reload interval is set, keeps
// reloading until ctx is cancelled or Stop is called. The first run must
// succeed; later failures are logged and leave the last snapshot in place.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "starting gradebook service...", logger.String("source", s.src.Path))
	if _, err := s.Run(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	if s.reloadInterval <= 0 {
		close(s.done)
		return nil
	}
	go s.reloadLoop(ctx, s.stopCh, s.done)
	s.logger.Info(ctx, "periodic reload enabled", logger.Duration("interval", s.reloadInterval))
	return nil
}

func (s *Service) reloadLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.reloadInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			_, _ = s.Run(ctx) // logged by Run
		}
	}
}

// Stop ends periodic reloads and waits for an in-flight reload to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Info(context.Background(), "gradebook service stopped")
}

// Snapshot returns the current snapshot.
func (s *Service) Snapshot(ctx context.Context) (*query.Snapshot, error) {
	return s.store.Current(ctx)
}

// TopN returns the top N students.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	return s.store.TopN(ctx, n)
}

// Rank returns the leaderboard entry of one student.
func (s *Service) Rank(ctx context.Context, name string) (types.Entry, error) {
	return s.store.Rank(ctx, name)
}

// Export writes the current snapshot to path, picking the format from the
// extension.
func (s *Service) Export(ctx context.Context, path, sheet string) error {
	snap, err := s.store.Current(ctx)
	if err != nil {
		return err
	}
	w, err := sink.WriterFor(path, sheet)
	if err != nil {
		return err
	}
	out := sink.Output{
		RunID:       snap.ID(),
		Source:      s.src.Path,
		PublishedAt: snap.PublishedAt(),
		Schema:      snap.Schema(),
		Records:     snap.Records(),
		Marker:      s.marker,
	}
	if err := w.Write(ctx, path, out); err != nil {
		return err
	}
	metrics.RecordExportWritten(w.Format())
	s.logger.Info(ctx, "gradebook exported",
		logger.String("path", path),
		logger.String("format", w.Format()),
		logger.Int("records", snap.Len()),
	)
	return nil
}

// GroupReport renders the PDF report of one group.
func (s *Service) GroupReport(ctx context.Context, group string) ([]byte, error) {
	snap, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	rep, err := snap.GroupReport(group)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.Bytes(ctx, report.Group(rep))
	if err != nil {
		return nil, err
	}
	metrics.RecordReportRendered(reportKindGroup)
	return data, nil
}

// RosterReport renders a PDF list of the students matching f.
func (s *Service) RosterReport(ctx context.Context, title string, f query.Filter) ([]byte, error) {
	snap, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.Bytes(ctx, report.Roster(title, snap.Roster(f)))
	if err != nil {
		return nil, err
	}
	metrics.RecordReportRendered(reportKindRoster)
	return data, nil
}

var unsafeFileChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// GroupReportFile names the report file of group.
func GroupReportFile(group string) string {
	return "Report_" + unsafeFileChars.ReplaceAllString(group, "_") + ".pdf"
}

// WriteGroupReports renders one report per group into dir and returns the
// written paths in group order.
func (s *Service) WriteGroupReports(ctx context.Context, dir string) ([]string, error) {
	snap, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	groups := snap.Groups()
	if len(groups) == 0 {
		return nil, ErrNoGroups
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	paths := make([]string, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.reportConcurrency)
	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			data, err := s.GroupReport(gctx, group)
			if err != nil {
				return fmt.Errorf("group %q: %w", group, err)
			}
			path := filepath.Join(dir, GroupReportFile(group))
			if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // reports are meant to be shared
				return err
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// LastRun returns the last successful run, if any.
func (s *Service) LastRun() (RunResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRun == nil {
		return RunResult{}, false
	}
	return *s.lastRun, true
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"source":           s.src.Path,
		"scholarshipRatio": s.ratio,
		"reloadInterval":   s.reloadInterval.String(),
		"totalStudents":    s.store.Count(context.Background()),
		"runs":             s.store.History(),
	}
	if s.lastRun != nil {
		stats["lastRun"] = *s.lastRun
	}
	if s.lastErr != nil {
		stats["lastError"] = s.lastErr.Error()
	}
	return stats
}
