// Package sink writes processed gradebooks: the source columns followed by
// one letter-grade column per subject, the average and the scholarship marker.
package sink

import (
	"strconv"
	"time"

	"github.com/okian/gradebook/internal/domain/model"
)

// DefaultMarker flags scholarship holders in the Scholarship column.
const DefaultMarker = "*"

// Output is one processed gradebook ready to be written.
type Output struct {
	RunID       string
	Source      string
	PublishedAt time.Time
	Schema      model.Schema
	Records     []model.ScoredRecord
	Marker      string
}

func (o Output) marker() string {
	if o.Marker == "" {
		return DefaultMarker
	}
	return o.Marker
}

// Header returns the output header. Derived columns of a previous run are
// dropped from the source header so writing a reloaded file does not
// repeat them.
func Header(schema model.Schema) []string {
	out := make([]string, 0, len(schema.Header)+len(schema.Subjects)+2)
	for _, col := range schema.Header {
		if model.IsDerivedColumn(col, schema.Header) {
			continue
		}
		out = append(out, col)
	}
	for _, s := range schema.Subjects {
		out = append(out, model.GradeColumn(s))
	}
	return append(out, model.AverageColumn, model.ScholarshipColumn)
}

// cell is one output value; numeric cells keep their float form so
// spreadsheet writers can store numbers.
type cell struct {
	text    string
	number  float64
	numeric bool
}

func (c cell) value() any {
	if c.numeric {
		return c.number
	}
	return c.text
}

func num(v float64) cell {
	return cell{text: FormatNumber(v), number: v, numeric: true}
}

func text(s string) cell { return cell{text: s} }

// FormatNumber renders v with the fewest digits that round-trip.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// rows lays the records out under header, in input order.
func rows(o Output, header []string) [][]cell {
	isSubject := make(map[string]bool, len(o.Schema.Subjects))
	for _, s := range o.Schema.Subjects {
		isSubject[s] = true
	}
	grades := make(map[string]string, len(o.Schema.Subjects))
	for _, s := range o.Schema.Subjects {
		grades[model.GradeColumn(s)] = s
	}

	out := make([][]cell, len(o.Records))
	for i, r := range o.Records {
		line := make([]cell, len(header))
		for j, col := range header {
			switch {
			case col == model.AverageColumn:
				line[j] = num(r.Average)
			case col == model.ScholarshipColumn:
				if r.Scholarship {
					line[j] = text(o.marker())
				}
			case isSubject[col]:
				line[j] = num(r.Subjects[col])
			case grades[col] != "":
				line[j] = text(string(r.LetterGrades[grades[col]]))
			default:
				line[j] = text(r.Cells[col])
			}
		}
		out[i] = line
	}
	return out
}
