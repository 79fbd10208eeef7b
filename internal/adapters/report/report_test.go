package report_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/gradebook/internal/adapters/report"
	"github.com/okian/gradebook/internal/domain/model"
	"github.com/okian/gradebook/internal/domain/query"
	. "github.com/smartystreets/goconvey/convey"
)

func groupReport() query.GroupReport {
	return query.GroupReport{
		Summary: query.Summary{
			Group:            "A-1",
			Count:            3,
			ScholarshipCount: 2,
			PerSubjectAverage: []query.SubjectAverage{
				{Subject: "Math points", Average: 82},
				{Subject: "Physics score", Average: 84.333},
			},
		},
		Below: []string{"Boris"},
		Above: []string{"Anna"},
	}
}

func TestGroupLayout(t *testing.T) {
	Convey("Given a group report", t, func() {
		doc := report.Group(groupReport())

		Convey("Lines appear in reading order", func() {
			So(doc.Lines(), ShouldResemble, []string{
				"Group report A-1",
				"Number of students: 3",
				"Number of students with scholarships: 2",
				"Average grades by subject:",
				"Math points: 82.00",
				"Physics score: 84.33",
				"Students with scores below 65 points:",
				"Boris",
				"Students with scores above 95 points:",
				"Anna",
			})
		})

		Convey("The cursor walks down from the top with indented items", func() {
			So(doc.Commands[0].X, ShouldEqual, 100)
			So(doc.Commands[0].Y, ShouldEqual, 750)
			So(doc.Commands[1].Y, ShouldEqual, 730)
			So(doc.Commands[4].X, ShouldEqual, 120)
			So(doc.Commands[4].Y, ShouldEqual, 670)
			So(doc.Commands[6].Y, ShouldEqual, 610) // blank line before the section
			So(doc.Pages(), ShouldEqual, 1)
		})
	})
}

func TestRosterLayout(t *testing.T) {
	Convey("Given a long roster", t, func() {
		records := make([]model.ScoredRecord, 60)
		for i := range records {
			records[i] = model.ScoredRecord{Name: fmt.Sprintf("student-%02d", i), Group: "G", Average: 70.5}
		}
		doc := report.Roster("", records)

		Convey("It uses the default title and one line per student", func() {
			lines := doc.Lines()
			So(lines[0], ShouldEqual, "Report with student performance")
			So(lines[1], ShouldEqual, "student-00, Group: G, Score: 70.5")
			So(len(lines), ShouldEqual, 61)
		})

		Convey("It breaks onto further pages", func() {
			So(doc.Pages(), ShouldBeGreaterThan, 1)
			for _, c := range doc.Commands {
				So(c.Y, ShouldBeGreaterThanOrEqualTo, 50)
				So(c.Y, ShouldBeLessThanOrEqualTo, 750)
			}
		})
	})
}

func TestRender(t *testing.T) {
	Convey("Given a renderer", t, func() {
		ctx := context.Background()
		r := report.NewRenderer(report.WithFontSize(11))

		Convey("It produces a PDF document", func() {
			data, err := r.Bytes(ctx, report.Group(groupReport()))
			So(err, ShouldBeNil)
			So(bytes.HasPrefix(data, []byte("%PDF-")), ShouldBeTrue)
		})

		Convey("An empty document still renders one page", func() {
			data, err := r.Bytes(ctx, report.Document{})
			So(err, ShouldBeNil)
			So(bytes.HasPrefix(data, []byte("%PDF-")), ShouldBeTrue)
		})

		Convey("WriteFile stores the document", func() {
			path := filepath.Join(t.TempDir(), "roster.pdf")
			So(r.WriteFile(ctx, path, report.Roster("Scholars", nil)), ShouldBeNil)
			info, err := os.Stat(path)
			So(err, ShouldBeNil)
			So(info.Size(), ShouldBeGreaterThan, 0)
		})

		Convey("A cancelled context stops rendering", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := r.Bytes(cctx, report.Group(groupReport()))
			So(err, ShouldEqual, context.Canceled)
		})
	})
}
