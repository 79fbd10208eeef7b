// Package model contains the gradebook records passed between pipeline stages.
package model

import "strings"

// Columns appended by the pipeline when a processed gradebook is written.
const (
	GradeColumnSuffix = "_grade"
	AverageColumn     = "Average grade"
	ScholarshipColumn = "Scholarship"
)

// Grade is a letter-grade label produced by the bucket function.
type Grade string

// Grade labels.
const (
	GradeGoodEnough Grade = "Good enough"
	GradeGood       Grade = "Good"
	GradePerfect    Grade = "Perfect"
	GradeError      Grade = "Error"
)

// Schema describes which header columns play which role.
type Schema struct {
	Header      []string // trimmed header, source order
	NameColumn  string
	GroupColumn string   // empty when the source has no group column
	Subjects    []string // subject columns, header order
}

// HasGroup reports whether the source carries a group column.
func (s Schema) HasGroup() bool { return s.GroupColumn != "" }

// RawRecord is one data row as read from the source.
type RawRecord struct {
	Row   int // 1-based data row index; header excluded
	Name  string
	Group string
	Cells map[string]string // every header column, verbatim
}

// Cell returns the verbatim cell for column, or "".
func (r RawRecord) Cell(column string) string { return r.Cells[column] }

// NormalizedRecord is a RawRecord whose subject cells were coerced to numbers.
type NormalizedRecord struct {
	RawRecord
	Subjects map[string]float64
}

// ScoredRecord is a record after the metrics engine ran. It is the only
// shape exposed to queries and must be treated as read-only.
type ScoredRecord struct {
	Row          int                `json:"row"`
	Name         string             `json:"name"`
	Group        string             `json:"group,omitempty"`
	Cells        map[string]string  `json:"-"`
	Subjects     map[string]float64 `json:"subjects"`
	Average      float64            `json:"average"`
	LetterGrades map[string]Grade   `json:"letter_grades"`
	Scholarship  bool               `json:"scholarship"`
	Rank         int                `json:"rank"`
}

// GradeColumn names the derived letter-grade column of subject.
func GradeColumn(subject string) string { return subject + GradeColumnSuffix }

// IsDerivedColumn reports whether column was appended by a previous run,
// given the full header it came from. A "<x>_grade" column only counts as
// derived when "<x>" is itself a header column.
func IsDerivedColumn(column string, header []string) bool {
	c := strings.TrimSpace(column)
	if strings.EqualFold(c, AverageColumn) || strings.EqualFold(c, ScholarshipColumn) {
		return true
	}
	base, ok := strings.CutSuffix(c, GradeColumnSuffix)
	if !ok || base == "" {
		return false
	}
	for _, h := range header {
		if strings.TrimSpace(h) == base {
			return true
		}
	}
	return false
}
