// Package scoring computes averages, letter grades and scholarship
// eligibility for normalized gradebook records.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/okian/gradebook/internal/domain/model"
	"github.com/okian/gradebook/pkg/logger"
)

// DefaultScholarshipRatio is the share of students awarded a scholarship.
const DefaultScholarshipRatio = 0.6

// ratioEpsilon absorbs float error in ratio*n before ceil, e.g. 0.6*5.
const ratioEpsilon = 1e-9

// Scorer turns normalized records into scored records.
type Scorer interface {
	Score(ctx context.Context, records []model.NormalizedRecord, subjects []string) ([]model.ScoredRecord, error)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithScholarshipRatio sets the share of the population that receives a
// scholarship. Values outside (0, 1] are ignored.
func WithScholarshipRatio(ratio float64) Option {
	return func(e *Engine) {
		if ratio > 0 && ratio <= 1 {
			e.ratio = ratio
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine implements Scorer.
type Engine struct {
	ratio  float64
	logger logger.Logger
}

// NewEngine creates an engine with a 0.6 scholarship ratio.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		ratio:  DefaultScholarshipRatio,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ratio returns the configured scholarship ratio.
func (e *Engine) Ratio() float64 { return e.ratio }

// ScholarshipCount returns ceil(ratio * n).
func ScholarshipCount(n int, ratio float64) int {
	if n <= 0 {
		return 0
	}
	k := int(math.Ceil(ratio*float64(n) - ratioEpsilon))
	return min(max(k, 0), n)
}

// Score computes derived fields for every record. Records keep their input
// order; Rank is the 1-based position by average DESC with ties broken by
// input order. Subjects missing from a record count as 0; the normalizer
// never produces such records.
func (e *Engine) Score(ctx context.Context, records []model.NormalizedRecord, subjects []string) ([]model.ScoredRecord, error) {
	if len(subjects) == 0 {
		return nil, ErrNoNumericColumns
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scoring cancelled: %w", err)
	}

	out := make([]model.ScoredRecord, len(records))
	for i, r := range records {
		scores := make(map[string]float64, len(subjects))
		grades := make(map[string]model.Grade, len(subjects))
		sum := 0.0
		for _, col := range subjects {
			v := r.Subjects[col]
			scores[col] = v
			grades[col] = Bucket(v)
			sum += v
		}
		out[i] = model.ScoredRecord{
			Row:          r.Row,
			Name:         r.Name,
			Group:        r.Group,
			Cells:        r.Cells,
			Subjects:     scores,
			Average:      sum / float64(len(subjects)),
			LetterGrades: grades,
		}
	}

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return out[order[a]].Average > out[order[b]].Average
	})

	k := ScholarshipCount(len(out), e.ratio)
	for pos, idx := range order {
		out[idx].Rank = pos + 1
		out[idx].Scholarship = pos < k
	}

	e.logger.Debug(ctx, "records scored",
		logger.Int("records", len(out)),
		logger.Int("subjects", len(subjects)),
		logger.Int("scholars", k),
	)
	return out, nil
}
