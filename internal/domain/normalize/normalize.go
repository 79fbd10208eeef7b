// Package normalize coerces subject cells to numbers and drops duplicate
// records before scoring.
package normalize

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/okian/gradebook/internal/domain/dedupe"
	"github.com/okian/gradebook/internal/domain/model"
	"github.com/okian/gradebook/pkg/logger"
)

const defaultScore = 60

// DefaultKeywords selects subject columns when none are configured.
var DefaultKeywords = []string{"points", "score", "grade"} //nolint:gochecknoglobals // read-only default

// SubjectColumns returns the header columns whose lower-cased name contains
// one of keywords. The name and group columns and columns appended by a
// previous run are never subjects.
func SubjectColumns(header []string, nameColumn, groupColumn string, keywords []string) []string {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}

	var subjects []string
	for _, col := range header {
		if col == nameColumn || (groupColumn != "" && col == groupColumn) {
			continue
		}
		if model.IsDerivedColumn(col, header) {
			continue
		}
		lc := strings.ToLower(col)
		for _, k := range lowered {
			if strings.Contains(lc, k) {
				subjects = append(subjects, col)
				break
			}
		}
	}
	return subjects
}

// ParseScore parses a cell as a finite number. Surrounding whitespace is
// ignored and a single decimal comma is accepted ("85,5").
func ParseScore(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithDefault sets the score used for missing or unparseable cells.
// Non-finite values are ignored.
func WithDefault(d float64) Option {
	return func(n *Normalizer) {
		if !math.IsNaN(d) && !math.IsInf(d, 0) {
			n.defaultScore = d
		}
	}
}

// WithLogger sets the normalizer logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithDeduperFactory overrides how the per-run deduper is built.
func WithDeduperFactory(fn func() dedupe.Deduper) Option {
	return func(n *Normalizer) {
		if fn != nil {
			n.newDeduper = fn
		}
	}
}

// Normalizer coerces subject columns and removes duplicate names.
type Normalizer struct {
	defaultScore float64
	logger       logger.Logger
	newDeduper   func() dedupe.Deduper
}

// Result is the outcome of one Normalize call.
type Result struct {
	Records    []model.NormalizedRecord
	Defaulted  int      // subject cells replaced by the default
	Duplicates []string // names of dropped records, in input order
}

// New creates a Normalizer with a default score of 60.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		defaultScore: defaultScore,
		logger:       logger.Discard(),
		newDeduper:   func() dedupe.Deduper { return dedupe.NewInMemoryDeduper() },
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Default returns the configured default score.
func (n *Normalizer) Default() float64 { return n.defaultScore }

// Normalize parses every subject cell, substituting the default where
// parsing fails, then keeps the first record per exact name. Non-subject
// cells are passed through untouched. It never fails: malformed cells
// degrade to the default.
func (n *Normalizer) Normalize(ctx context.Context, records []model.RawRecord, subjects []string) Result {
	coerced := make([]model.NormalizedRecord, len(records))
	defaulted := 0
	for i, r := range records {
		scores := make(map[string]float64, len(subjects))
		for _, col := range subjects {
			v, ok := ParseScore(r.Cells[col])
			if !ok {
				v = n.defaultScore
				defaulted++
				n.logger.Debug(ctx, "cell defaulted",
					logger.Int("row", r.Row),
					logger.String("column", col),
					logger.String("value", r.Cells[col]),
				)
			}
			scores[col] = v
		}
		coerced[i] = model.NormalizedRecord{RawRecord: r, Subjects: scores}
	}

	kept, dropped := dedupe.KeepFirst(ctx, n.newDeduper(), coerced, func(r model.NormalizedRecord) string {
		return r.Name
	})
	dupNames := make([]string, len(dropped))
	for i, d := range dropped {
		dupNames[i] = d.Name
	}

	n.logger.Info(ctx, "records normalized",
		logger.Int("records", len(kept)),
		logger.Int("defaulted_cells", defaulted),
		logger.Int("duplicates", len(dropped)),
	)
	return Result{Records: kept, Defaulted: defaulted, Duplicates: dupNames}
}
