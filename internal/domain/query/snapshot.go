// Package query answers lookups and aggregates over an immutable snapshot
// of scored gradebook records.
package query

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/okian/gradebook/internal/domain/model"
)

// Snapshot is the read-only result of one pipeline run. It is safe for
// concurrent use; nothing mutates it after New returns.
type Snapshot struct {
	id          string
	publishedAt time.Time
	schema      model.Schema
	records     []model.ScoredRecord
	byName      map[string]int   // folded name -> index of the record
	byGroup     map[string][]int // folded group -> indexes, input order
	groups      []string         // distinct groups as first seen
}

// New indexes records. Records must already be deduplicated by name and
// must not be modified afterwards.
func New(id string, schema model.Schema, records []model.ScoredRecord, publishedAt time.Time) *Snapshot {
	s := &Snapshot{
		id:          id,
		publishedAt: publishedAt,
		schema:      schema,
		records:     records,
		byName:      make(map[string]int, len(records)),
		byGroup:     make(map[string][]int),
	}
	for i, r := range records {
		name := fold(r.Name)
		if _, ok := s.byName[name]; !ok {
			s.byName[name] = i
		}
		if r.Group == "" {
			continue
		}
		g := fold(r.Group)
		if _, ok := s.byGroup[g]; !ok {
			s.groups = append(s.groups, r.Group)
		}
		s.byGroup[g] = append(s.byGroup[g], i)
	}
	return s
}

// fold canonicalizes s for case-insensitive comparison. A Caser is not safe
// for concurrent use, so one is built per call.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// ID identifies the pipeline run that produced the snapshot.
func (s *Snapshot) ID() string { return s.id }

// PublishedAt is when the snapshot was built.
func (s *Snapshot) PublishedAt() time.Time { return s.publishedAt }

// Schema describes the source columns.
func (s *Snapshot) Schema() model.Schema { return s.schema }

// Subjects lists subject columns in header order.
func (s *Snapshot) Subjects() []string { return s.schema.Subjects }

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.records) }

// Records returns every record in input order. Callers must not modify them.
func (s *Snapshot) Records() []model.ScoredRecord { return s.records }

// Groups lists the distinct groups in the order they first appear.
func (s *Snapshot) Groups() []string { return append([]string(nil), s.groups...) }

// FindExact returns the record whose name equals query, ignoring case and
// surrounding whitespace.
func (s *Snapshot) FindExact(query string) (model.ScoredRecord, bool) {
	q := fold(query)
	if q == "" {
		return model.ScoredRecord{}, false
	}
	idx, ok := s.byName[q]
	if !ok {
		return model.ScoredRecord{}, false
	}
	return s.records[idx], true
}

// FindContains returns every record whose name contains query, ignoring
// case, in input order. A blank query matches nothing.
func (s *Snapshot) FindContains(query string) []model.ScoredRecord {
	q := fold(query)
	if q == "" {
		return nil
	}
	var out []model.ScoredRecord
	for _, r := range s.records {
		if strings.Contains(fold(r.Name), q) {
			out = append(out, r)
		}
	}
	return out
}

// FindByGroup returns the records of group, ignoring case and surrounding
// whitespace, in input order.
func (s *Snapshot) FindByGroup(group string) []model.ScoredRecord {
	idxs := s.byGroup[fold(group)]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]model.ScoredRecord, len(idxs))
	for i, idx := range idxs {
		out[i] = s.records[idx]
	}
	return out
}

// scope returns the records a group filter selects; nil selects everything.
func (s *Snapshot) scope(group *string) []model.ScoredRecord {
	if group == nil {
		return s.records
	}
	return s.FindByGroup(*group)
}

// Scholars returns scholarship holders, optionally within one group.
func (s *Snapshot) Scholars(group *string) []model.ScoredRecord {
	var out []model.ScoredRecord
	for _, r := range s.scope(group) {
		if r.Scholarship {
			out = append(out, r)
		}
	}
	return out
}

// Filter narrows a roster.
type Filter struct {
	Group        string // empty keeps every group
	ScholarsOnly bool
}

// Roster returns the records matching f in input order.
func (s *Snapshot) Roster(f Filter) []model.ScoredRecord {
	var group *string
	if strings.TrimSpace(f.Group) != "" {
		group = &f.Group
	}
	if f.ScholarsOnly {
		return s.Scholars(group)
	}
	return s.scope(group)
}
