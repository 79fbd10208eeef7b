// Package report lays gradebook reports out as ordered text draw commands
// and renders them to PDF.
package report

import (
	"fmt"

	"github.com/okian/gradebook/internal/adapters/sink"
	"github.com/okian/gradebook/internal/domain/model"
	"github.com/okian/gradebook/internal/domain/query"
)

// Page geometry in points, US letter, origin at the bottom-left corner.
const (
	PageWidth  = 612.0
	PageHeight = 792.0

	marginLeft   = 100.0
	indent       = 120.0
	top          = 750.0
	bottom       = 50.0
	lineSpacing  = 20.0
	defaultTitle = "Report with student performance"
)

// Command draws Text with its baseline starting at (X, Y) on Page.
type Command struct {
	Page int
	X, Y float64
	Text string
}

// Document is an ordered list of draw commands.
type Document struct {
	Title    string
	Commands []Command
}

// Pages returns the number of pages the document spans.
func (d Document) Pages() int {
	n := 0
	for _, c := range d.Commands {
		if c.Page+1 > n {
			n = c.Page + 1
		}
	}
	if n == 0 {
		return 1
	}
	return n
}

// Lines returns the text of every command in draw order.
func (d Document) Lines() []string {
	out := make([]string, len(d.Commands))
	for i, c := range d.Commands {
		out[i] = c.Text
	}
	return out
}

// builder is a cursor moving down the page, breaking to a new page when
// it would cross the bottom margin.
type builder struct {
	doc  Document
	page int
	y    float64
}

func newBuilder(title string) *builder {
	return &builder{doc: Document{Title: title}, y: top}
}

func (b *builder) line(x float64, text string) {
	if b.y < bottom {
		b.page++
		b.y = top
	}
	b.doc.Commands = append(b.doc.Commands, Command{Page: b.page, X: x, Y: b.y, Text: text})
	b.y -= lineSpacing
}

func (b *builder) gap() { b.y -= lineSpacing }

// Group lays out the report of one group: counts, subject averages, then
// the students below 65 and above 95.
func Group(rep query.GroupReport) Document {
	b := newBuilder("Group report " + rep.Group)
	b.line(marginLeft, "Group report "+rep.Group)
	b.line(marginLeft, fmt.Sprintf("Number of students: %d", rep.Count))
	b.line(marginLeft, fmt.Sprintf("Number of students with scholarships: %d", rep.ScholarshipCount))
	b.line(marginLeft, "Average grades by subject:")
	for _, s := range rep.PerSubjectAverage {
		b.line(indent, fmt.Sprintf("%s: %.2f", s.Subject, s.Average))
	}

	b.gap()
	b.line(marginLeft, "Students with scores below 65 points:")
	for _, name := range rep.Below {
		b.line(indent, name)
	}
	b.gap()
	b.line(marginLeft, "Students with scores above 95 points:")
	for _, name := range rep.Above {
		b.line(indent, name)
	}
	return b.doc
}

// Roster lays out one line per record: name, group and average.
func Roster(title string, records []model.ScoredRecord) Document {
	if title == "" {
		title = defaultTitle
	}
	b := newBuilder(title)
	b.line(marginLeft, title)
	b.gap()
	for _, r := range records {
		b.line(marginLeft, fmt.Sprintf("%s, Group: %s, Score: %s", r.Name, r.Group, sink.FormatNumber(r.Average)))
	}
	return b.doc
}
