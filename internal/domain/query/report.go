package query

import (
	"fmt"

	"github.com/okian/gradebook/internal/domain/scoring"
)

// SubjectAverage is the mean score of one subject.
type SubjectAverage struct {
	Subject string  `json:"subject"`
	Average float64 `json:"average"`
}

// Summary aggregates a set of records.
type Summary struct {
	Group             string           `json:"group,omitempty"`
	Count             int              `json:"count"`
	ScholarshipCount  int              `json:"scholarship_count"`
	TopScorer         string           `json:"top_scorer"`
	BottomScorer      string           `json:"bottom_scorer"`
	Average           float64          `json:"average"`
	PerSubjectAverage []SubjectAverage `json:"per_subject_average"`
}

// Summary aggregates every record, or the records of one group. It returns
// ErrEmptyResultSet when nothing is selected. Ties for top and bottom go to
// the earliest record.
func (s *Snapshot) Summary(group *string) (Summary, error) {
	recs := s.scope(group)
	if len(recs) == 0 {
		return Summary{}, emptyErr(group)
	}

	sum := Summary{Count: len(recs)}
	if group != nil {
		sum.Group = recs[0].Group
	}
	top, bottom := recs[0], recs[0]
	totals := make(map[string]float64, len(s.schema.Subjects))
	avgTotal := 0.0
	for _, r := range recs {
		if r.Scholarship {
			sum.ScholarshipCount++
		}
		if r.Average > top.Average {
			top = r
		}
		if r.Average < bottom.Average {
			bottom = r
		}
		avgTotal += r.Average
		for _, col := range s.schema.Subjects {
			totals[col] += r.Subjects[col]
		}
	}
	sum.TopScorer = top.Name
	sum.BottomScorer = bottom.Name
	sum.Average = avgTotal / float64(len(recs))
	sum.PerSubjectAverage = make([]SubjectAverage, len(s.schema.Subjects))
	for i, col := range s.schema.Subjects {
		sum.PerSubjectAverage[i] = SubjectAverage{Subject: col, Average: totals[col] / float64(len(recs))}
	}
	return sum, nil
}

// BandCount is the number of records whose average falls in a band.
type BandCount struct {
	Band  string `json:"band"`
	Count int    `json:"count"`
}

// Distribution splits a set of records by performance band and scholarship.
type Distribution struct {
	Group          string      `json:"group,omitempty"`
	Bands          []BandCount `json:"bands"`
	Scholarship    int         `json:"scholarship"`
	NonScholarship int         `json:"non_scholarship"`
}

// Distribution counts records per performance band of their average.
func (s *Snapshot) Distribution(group *string) (Distribution, error) {
	recs := s.scope(group)
	if len(recs) == 0 {
		return Distribution{}, emptyErr(group)
	}
	labels := scoring.Bands()
	counts := make(map[string]int, len(labels))
	d := Distribution{}
	if group != nil {
		d.Group = recs[0].Group
	}
	for _, r := range recs {
		counts[scoring.Band(r.Average)]++
		if r.Scholarship {
			d.Scholarship++
		} else {
			d.NonScholarship++
		}
	}
	d.Bands = make([]BandCount, len(labels))
	for i, l := range labels {
		d.Bands[i] = BandCount{Band: l, Count: counts[l]}
	}
	return d, nil
}

// Point is one labelled value of a chart series.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Chart is the data a chart renderer needs; rendering happens elsewhere.
type Chart struct {
	Title  string  `json:"title"`
	Points []Point `json:"points"`
}

// GradeChart returns the per-subject scores of the student named name.
func (s *Snapshot) GradeChart(name string) (Chart, bool) {
	r, ok := s.FindExact(name)
	if !ok {
		return Chart{}, false
	}
	c := Chart{Title: "Grades of " + r.Name, Points: make([]Point, len(s.schema.Subjects))}
	for i, col := range s.schema.Subjects {
		c.Points[i] = Point{Label: col, Value: r.Subjects[col]}
	}
	return c, true
}

// GroupReport is the content of a group PDF report.
type GroupReport struct {
	Summary
	Below []string `json:"below"` // average < 65
	Above []string `json:"above"` // average > 95
}

// GroupReport builds the report content for group.
func (s *Snapshot) GroupReport(group string) (GroupReport, error) {
	sum, err := s.Summary(&group)
	if err != nil {
		return GroupReport{}, err
	}
	rep := GroupReport{Summary: sum}
	for _, r := range s.FindByGroup(group) {
		switch {
		case r.Average < scoring.LowAverage:
			rep.Below = append(rep.Below, r.Name)
		case r.Average > scoring.HighAverage:
			rep.Above = append(rep.Above, r.Name)
		}
	}
	return rep, nil
}

func emptyErr(group *string) error {
	if group == nil {
		return fmt.Errorf("%w: no records", ErrEmptyResultSet)
	}
	return fmt.Errorf("%w: group %q", ErrEmptyResultSet, *group)
}
