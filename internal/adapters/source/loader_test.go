package source_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/gradebook/internal/adapters/source"
	"github.com/xuri/excelize/v2"
	. "github.com/smartystreets/goconvey/convey"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func writeWorkbook(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatalf("rename sheet: %v", err)
		}
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "grades.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestLoader_Delimited(t *testing.T) {
	ctx := context.Background()
	ld := source.NewLoader()

	Convey("Given a CSV source with padded headers", t, func() {
		path := writeFile(t, "grades.csv", "\ufeff Name , Group ,Math points,Bio score\n"+
			"Doe J,G1,95,58\n"+
			",G1,10,10\n"+
			"Roe K,G2,80\n")

		table, err := ld.Load(ctx, source.Source{Path: path})

		Convey("Then header cells are trimmed and role columns detected", func() {
			So(err, ShouldBeNil)
			So(table.Header, ShouldResemble, []string{"Name", "Group", "Math points", "Bio score"})
			So(table.NameColumn, ShouldEqual, "Name")
			So(table.GroupColumn, ShouldEqual, "Group")
		})

		Convey("And blank names are skipped while short rows are padded", func() {
			So(table.Skipped, ShouldEqual, 1)
			So(len(table.Records), ShouldEqual, 2)
			So(table.Records[0].Name, ShouldEqual, "Doe J")
			So(table.Records[0].Group, ShouldEqual, "G1")
			So(table.Records[0].Row, ShouldEqual, 1)
			So(table.Records[1].Row, ShouldEqual, 3)
			So(table.Records[1].Cell("Bio score"), ShouldEqual, "")
		})
	})

	Convey("Given a TSV source without a group column", t, func() {
		path := writeFile(t, "grades.tsv", "Name\tMath points\nDoe J\t95\n")
		table, err := ld.Load(ctx, source.Source{Path: path})

		Convey("Then the group column is reported absent", func() {
			So(err, ShouldBeNil)
			So(table.GroupColumn, ShouldEqual, "")
			So(table.Records[0].Group, ShouldEqual, "")
		})
	})

	Convey("Given a semicolon source with an explicit delimiter", t, func() {
		path := writeFile(t, "grades.data", "Name;score\nDoe J;77\n")
		table, err := ld.Load(ctx, source.Source{Path: path, Delimiter: ';'})
		So(err, ShouldBeNil)
		So(table.Records[0].Cell("score"), ShouldEqual, "77")
	})

	Convey("Given blank and repeated header cells", t, func() {
		path := writeFile(t, "grades.csv", "Name,score,,score\nA,1,2,3\n")
		table, err := ld.Load(ctx, source.Source{Path: path})
		So(err, ShouldBeNil)
		So(table.Header, ShouldResemble, []string{"Name", "score", "column_3", "score.1"})
	})
}

func TestLoader_XLSX(t *testing.T) {
	ctx := context.Background()
	ld := source.NewLoader()

	Convey("Given a workbook", t, func() {
		path := writeWorkbook(t, "Grades", [][]any{
			{"Name ", "Group", "Math points", "Bio score"},
			{"Doe J", "G1", 95, 58},
			{"Roe K", "G2", 76.5, "n/a"},
		})

		Convey("When loading the first sheet", func() {
			table, err := ld.Load(ctx, source.Source{Path: path})

			Convey("Then formatted cell values are read verbatim", func() {
				So(err, ShouldBeNil)
				So(table.Header[0], ShouldEqual, "Name")
				So(len(table.Records), ShouldEqual, 2)
				So(table.Records[0].Cell("Math points"), ShouldEqual, "95")
				So(table.Records[1].Cell("Math points"), ShouldEqual, "76.5")
				So(table.Records[1].Cell("Bio score"), ShouldEqual, "n/a")
			})
		})

		Convey("When selecting a missing sheet", func() {
			_, err := ld.Load(ctx, source.Source{Path: path, Sheet: "Nope"})

			Convey("Then it reports the source as not found", func() {
				So(errors.Is(err, source.ErrSourceNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestLoader_Errors(t *testing.T) {
	ctx := context.Background()
	ld := source.NewLoader()

	Convey("Given a path that does not exist", t, func() {
		_, err := ld.Load(ctx, source.Source{Path: filepath.Join(t.TempDir(), "missing.xlsx")})

		Convey("Then it fails with ErrSourceNotFound naming the path", func() {
			So(errors.Is(err, source.ErrSourceNotFound), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "missing.xlsx")
		})
	})

	Convey("Given a source without the name column", t, func() {
		path := writeFile(t, "grades.csv", "Student,score\nA,1\n")
		_, err := ld.Load(ctx, source.Source{Path: path})

		Convey("Then it fails with ErrMissingColumn naming the column", func() {
			So(errors.Is(err, source.ErrMissingColumn), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, `"Name"`)
		})

		Convey("And a configured name column makes it load", func() {
			table, err := ld.Load(ctx, source.Source{Path: path, NameColumn: "Student"})
			So(err, ShouldBeNil)
			So(table.Records[0].Name, ShouldEqual, "A")
		})
	})

	Convey("Given an empty file", t, func() {
		_, err := ld.Load(ctx, source.Source{Path: writeFile(t, "empty.csv", "")})
		So(errors.Is(err, source.ErrEmptySource), ShouldBeTrue)
	})

	Convey("Given an unknown extension", t, func() {
		_, err := ld.Load(ctx, source.Source{Path: writeFile(t, "grades.pdf", "x")})
		So(errors.Is(err, source.ErrUnsupportedFormat), ShouldBeTrue)
	})

	Convey("Given a cancelled context", t, func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := ld.Load(cctx, source.Source{Path: writeFile(t, "grades.csv", "Name\nA\n")})
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}
