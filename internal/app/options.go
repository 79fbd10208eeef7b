package service

import (
	"time"

	"github.com/okian/gradebook/internal/adapters/repository"
	"github.com/okian/gradebook/internal/adapters/source"
	"github.com/okian/gradebook/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets the gradebook to load.
func WithSource(src source.Source) Option {
	return func(s *Service) { s.src = src }
}

// WithSubjectKeywords sets the header keywords that select subject columns.
func WithSubjectKeywords(keywords []string) Option {
	return func(s *Service) {
		if len(keywords) > 0 {
			s.keywords = keywords
		}
	}
}

// WithDefaultScore sets the score substituted for missing cells.
func WithDefaultScore(score float64) Option {
	return func(s *Service) {
		s.defaultScore = score
		s.hasDefault = true
	}
}

// WithScholarshipRatio sets the share of students that get a scholarship.
func WithScholarshipRatio(ratio float64) Option {
	return func(s *Service) {
		if ratio > 0 && ratio <= 1 {
			s.ratio = ratio
		}
	}
}

// WithScholarshipMarker sets the marker written for scholarship holders.
func WithScholarshipMarker(marker string) Option {
	return func(s *Service) {
		if marker != "" {
			s.marker = marker
		}
	}
}

// WithReloadInterval enables periodic reloads of the source.
func WithReloadInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.reloadInterval = interval
		}
	}
}

// WithReportConcurrency bounds how many reports render at once.
func WithReportConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.reportConcurrency = n
		}
	}
}

// WithStore replaces the snapshot store.
func WithStore(store *repository.SnapshotStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
