package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Writer persists a processed gradebook at path.
type Writer interface {
	Write(ctx context.Context, path string, out Output) error
	Format() string
}

// WriterFor picks a writer from the extension of path.
func WriterFor(path, sheet string) (Writer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return XLSXWriter{Sheet: sheet}, nil
	case ".csv":
		return DelimitedWriter{Comma: ','}, nil
	case ".tsv", ".txt", ".tab":
		return DelimitedWriter{Comma: '\t'}, nil
	case ".db", ".sqlite", ".sqlite3":
		return SQLiteWriter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// XLSXWriter writes a single-sheet workbook.
type XLSXWriter struct {
	Sheet string // defaults to "Sheet1"
}

// Format implements Writer.
func (XLSXWriter) Format() string { return "xlsx" }

// Write implements Writer.
func (w XLSXWriter) Write(ctx context.Context, path string, out Output) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Sheet1"
	if w.Sheet != "" && w.Sheet != sheet {
		if err := f.SetSheetName(sheet, w.Sheet); err != nil {
			return fmt.Errorf("%w: rename sheet: %v", ErrWrite, err)
		}
		sheet = w.Sheet
	}

	header := Header(out.Schema)
	values := make([]any, len(header))
	for i, h := range header {
		values[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &values); err != nil {
		return fmt.Errorf("%w: header: %v", ErrWrite, err)
	}

	for i, line := range rows(out, header) {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		values := make([]any, len(line))
		for j, c := range line {
			values[j] = c.value()
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
		if err := f.SetSheetRow(sheet, axis, &values); err != nil {
			return fmt.Errorf("%w: row %d: %v", ErrWrite, i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	return nil
}

const ctxCheckEvery = 512

// DelimitedWriter writes CSV or TSV text.
type DelimitedWriter struct {
	Comma rune
}

// Format implements Writer.
func (w DelimitedWriter) Format() string {
	if w.Comma == '\t' {
		return "tsv"
	}
	return "csv"
}

// Write implements Writer.
func (w DelimitedWriter) Write(ctx context.Context, path string, out Output) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %v", ErrWrite, cerr)
		}
	}()

	cw := csv.NewWriter(file)
	if w.Comma != 0 {
		cw.Comma = w.Comma
	}

	header := Header(out.Schema)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("%w: header: %v", ErrWrite, err)
	}
	record := make([]string, len(header))
	for i, line := range rows(out, header) {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j, c := range line {
			record[j] = c.text
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("%w: row %d: %v", ErrWrite, i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}
