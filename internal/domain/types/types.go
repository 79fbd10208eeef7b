// Package types contains read shapes shared by the service and its HTTP API.
package types

import (
	"time"

	"github.com/okian/gradebook/internal/domain/model"
)

// Entry is the list view of one scored student.
type Entry struct {
	Rank        int     `json:"rank"`
	Name        string  `json:"name"`
	Group       string  `json:"group,omitempty"`
	Average     float64 `json:"average"`
	Scholarship bool    `json:"scholarship"`
}

// EntryFrom builds the list view of r.
func EntryFrom(r model.ScoredRecord) Entry {
	return Entry{
		Rank:        r.Rank,
		Name:        r.Name,
		Group:       r.Group,
		Average:     r.Average,
		Scholarship: r.Scholarship,
	}
}

// Entries maps records to list views, preserving order.
func Entries(records []model.ScoredRecord) []Entry {
	out := make([]Entry, len(records))
	for i, r := range records {
		out[i] = EntryFrom(r)
	}
	return out
}

// RunResult describes one pipeline run.
type RunResult struct {
	RunID      string        `json:"run_id"`
	Source     string        `json:"source"`
	Loaded     int           `json:"loaded"`
	Skipped    int           `json:"skipped"`
	Defaulted  int           `json:"defaulted"`
	Duplicates []string      `json:"duplicates,omitempty"`
	Subjects   []string      `json:"subjects"`
	Records    int           `json:"records"`
	Scholars   int           `json:"scholars"`
	Duration   time.Duration `json:"duration"`
}
