package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Reader returns the raw rows of a tabular file, header first.
type Reader interface {
	ReadRows(ctx context.Context, path string) ([][]string, error)
}

// ReaderFor picks a reader from the file extension. A non-zero delimiter
// forces the delimited reader.
func ReaderFor(path, sheet string, delimiter rune) (Reader, error) {
	if delimiter != 0 {
		return DelimitedReader{Comma: delimiter}, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return XLSXReader{Sheet: sheet}, nil
	case ".csv":
		return DelimitedReader{Comma: ','}, nil
	case ".tsv", ".txt", ".tab":
		return DelimitedReader{Comma: '\t'}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// XLSXReader reads one worksheet of an Office Open XML workbook.
type XLSXReader struct {
	Sheet string // empty selects the first sheet
}

// ReadRows implements Reader.
func (r XLSXReader) ReadRows(_ context.Context, path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheet := r.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %s: sheet %q", ErrSourceNotFound, path, sheet)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, path, err)
	}
	return rows, nil
}

// DelimitedReader reads comma- or tab-separated text.
type DelimitedReader struct {
	Comma rune
}

const ctxCheckEvery = 512

// ReadRows implements Reader.
func (r DelimitedReader) ReadRows(ctx context.Context, path string) ([][]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = fh.Close() }()

	cr := csv.NewReader(fh)
	cr.Comma = r.Comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if len(rows)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rows = append(rows, rec)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}
