package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const classCSV = `Name,Group,Math points,Physics score
Anna,A-1,96,98
Boris,A-1,,62
Clara,B-2,80,n/a
Anna,B-2,10,10
Dmitry,B-2,70.5,71
`

func clearEnv() {
	for _, kv := range os.Environ() {
		if key, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, "GRADEBOOK_") {
			_ = os.Unsetenv(key)
		}
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func exec(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	clearEnv()

	Convey("No command prints usage", t, func() {
		code, _, stderr := exec()
		So(code, ShouldEqual, exitUsage)
		So(stderr, ShouldContainSubstring, "usage: gradebook")
	})

	Convey("Unknown commands are rejected", t, func() {
		code, _, stderr := exec("frobnicate")
		So(code, ShouldEqual, exitUsage)
		So(stderr, ShouldContainSubstring, `unknown command "frobnicate"`)
	})

	Convey("Help goes to stdout", t, func() {
		code, stdout, _ := exec("help")
		So(code, ShouldEqual, exitOK)
		So(stdout, ShouldContainSubstring, "serve")
	})

	Convey("Pipeline commands need a source", t, func() {
		code, _, stderr := exec("grade")
		So(code, ShouldEqual, exitUsage)
		So(stderr, ShouldContainSubstring, "missing -source")
	})

	Convey("Invalid flag values fail validation", t, func() {
		code, _, _ := exec("grade", "-source", "x.csv", "-ratio", "1.5")
		So(code, ShouldEqual, exitUsage)
	})
}

func TestRun_Grade(t *testing.T) {
	clearEnv()

	Convey("Given a CSV gradebook", t, func() {
		dir := t.TempDir()
		src := writeFile(t, dir, "grades.csv", classCSV)

		Convey("grade writes the processed file next to the source", func() {
			code, stdout, stderr := exec("grade", "-source", src)
			So(code, ShouldEqual, exitOK)
			So(stderr, ShouldNotContainSubstring, "level=ERROR")
			So(stdout, ShouldContainSubstring, "students: 4 (skipped 0, duplicates 1, defaulted cells 2)")
			So(stdout, ShouldContainSubstring, "scholarships: 3")
			So(stdout, ShouldContainSubstring, "top scorer: Anna")
			So(stdout, ShouldContainSubstring, "bottom scorer: Boris")

			out := filepath.Join(dir, "Processed_grades.csv")
			data, err := os.ReadFile(out)
			So(err, ShouldBeNil)
			So(string(data), ShouldStartWith, "Name,Group,Math points,Physics score,Math points_grade,Physics score_grade,Average grade,Scholarship\n")
		})

		Convey("grade honours -output", func() {
			out := filepath.Join(dir, "result.xlsx")
			code, _, _ := exec("grade", "-source", src, "-output", out)
			So(code, ShouldEqual, exitOK)
			_, err := os.Stat(out)
			So(err, ShouldBeNil)
		})

		Convey("A missing source is a load failure", func() {
			code, _, stderr := exec("grade", "-source", filepath.Join(dir, "absent.csv"))
			So(code, ShouldEqual, exitError)
			So(stderr, ShouldContainSubstring, "grade failed")
		})
	})
}

func TestRun_Reports(t *testing.T) {
	clearEnv()

	Convey("Given a CSV gradebook", t, func() {
		dir := t.TempDir()
		src := writeFile(t, dir, "grades.csv", classCSV)

		Convey("report without -group writes one PDF per group", func() {
			code, stdout, _ := exec("report", "-source", src, "-dir", dir)
			So(code, ShouldEqual, exitOK)
			for _, name := range []string{"Report_A-1.pdf", "Report_B-2.pdf"} {
				So(stdout, ShouldContainSubstring, name)
				data, err := os.ReadFile(filepath.Join(dir, name))
				So(err, ShouldBeNil)
				So(bytes.HasPrefix(data, []byte("%PDF")), ShouldBeTrue)
			}
		})

		Convey("report with an unknown group fails", func() {
			code, _, _ := exec("report", "-source", src, "-dir", dir, "-group", "Z-9")
			So(code, ShouldEqual, exitError)
		})

		Convey("roster renders a filtered list", func() {
			out := filepath.Join(dir, "scholars.pdf")
			code, stdout, _ := exec("roster", "-source", src, "-scholars", "-group", "B-2", "-out", out)
			So(code, ShouldEqual, exitOK)
			So(stdout, ShouldContainSubstring, out)
			data, err := os.ReadFile(out)
			So(err, ShouldBeNil)
			So(bytes.HasPrefix(data, []byte("%PDF")), ShouldBeTrue)
		})
	})
}

func TestRun_BMI(t *testing.T) {
	clearEnv()

	Convey("Given a height/weight table", t, func() {
		dir := t.TempDir()
		in := writeFile(t, dir, "people.txt", "name\theight\tweight\n"+
			"ivan petrenko\t180 cm\t81kg\n"+
			"OLHA KOVAL\t165\t50\n")

		Convey("bmi writes the cleaned table and prints statistics", func() {
			code, stdout, _ := exec("bmi", "-in", in)
			So(code, ShouldEqual, exitOK)
			So(stdout, ShouldContainSubstring, "people: 2")
			So(stdout, ShouldContainSubstring, "height: 165..180")

			data, err := os.ReadFile(filepath.Join(dir, "cleaned_people.txt"))
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, "Ivan Petrenko")
		})

		Convey("bmi requires -in", func() {
			code, _, _ := exec("bmi")
			So(code, ShouldEqual, exitUsage)
		})
	})
}

func TestDefaultOutput(t *testing.T) {
	Convey("Processed files keep the source extension", t, func() {
		So(defaultOutput(filepath.Join("in", "grades.xlsx")), ShouldEqual, filepath.Join("in", "Processed_grades.xlsx"))
		So(defaultOutput("grades"), ShouldEqual, "Processed_grades.xlsx")
	})
}
