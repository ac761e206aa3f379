// Package screening implements the lookup operations exposed over
// HTTP: substring search against the current dataset snapshot and the
// dataset health report.
package screening

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"sdnscreen/internal/dataset"
	"sdnscreen/internal/platform/metrics"
	dErrors "sdnscreen/pkg/domain-errors"
	"sdnscreen/pkg/platform/sentinel"
)

// minTermLength is the minimum search term length after trimming.
const minTermLength = 2

// SnapshotProvider supplies the snapshot to read from, refreshing it
// when stale. Satisfied by the dataset cache.
type SnapshotProvider interface {
	EnsureFresh(ctx context.Context) (*dataset.Snapshot, error)
}

// SearchResult carries the true match count alongside the possibly
// truncated result slice, so callers can tell "5 matches, 5 returned"
// from "500 matches, 100 returned".
type SearchResult struct {
	Count   int              `json:"count"`
	Results []dataset.Record `json:"results"`
}

// Status reports the served snapshot's metadata for monitoring.
type Status struct {
	RowCount    int       `json:"row_count"`
	SkippedRows int       `json:"skipped_rows"`
	Source      string    `json:"source"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Service executes queries against the current snapshot.
type Service struct {
	snapshots SnapshotProvider
	limit     int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option customizes a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a Service. limit caps the number of returned records per
// search regardless of how many match.
func New(snapshots SnapshotProvider, limit int, opts ...Option) (*Service, error) {
	if snapshots == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "snapshot provider is required")
	}
	if limit <= 0 {
		return nil, dErrors.New(dErrors.CodeInternal, "result limit must be positive")
	}

	svc := &Service{snapshots: snapshots, limit: limit}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Search performs a case-insensitive substring search over record
// names in the current snapshot. Results keep snapshot order; the
// configured limit truncates them while Count reports every match.
func (s *Service) Search(ctx context.Context, term string) (*SearchResult, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < minTermLength {
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"search term must be at least %d characters", minTermLength)
	}

	snap, err := s.snapshots.EnsureFresh(ctx)
	if err != nil {
		return nil, translateRefreshError(err)
	}

	start := time.Now()
	needle := strings.ToLower(term)
	result := &SearchResult{Results: []dataset.Record{}}
	for _, record := range snap.Records() {
		if !strings.Contains(strings.ToLower(record.Name), needle) {
			continue
		}
		result.Count++
		if len(result.Results) < s.limit {
			result.Results = append(result.Results, record)
		}
	}

	s.metrics.ObserveSearch(result.Count, time.Since(start))
	if s.logger != nil {
		s.logger.DebugContext(ctx, "search executed",
			"matches", result.Count,
			"returned", len(result.Results),
		)
	}
	return result, nil
}

// Status reports the current snapshot's metadata. It attempts a
// refresh first, but a failed refresh never fails the report as long
// as a previous snapshot exists; only a cold-start total failure does.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	snap, err := s.snapshots.EnsureFresh(ctx)
	if err != nil {
		return nil, translateRefreshError(err)
	}
	return &Status{
		RowCount:    snap.RowCount(),
		SkippedRows: snap.Skipped(),
		Source:      snap.Source(),
		FetchedAt:   snap.FetchedAt(),
	}, nil
}

// translateRefreshError converts infrastructure sentinels from the
// snapshot provider into domain errors.
func translateRefreshError(err error) error {
	if errors.Is(err, sentinel.ErrNoSnapshot) {
		return dErrors.Wrap(err, dErrors.CodeNoData, "no dataset snapshot available")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "refresh dataset")
}
