// Package source loads tabular gradebook sources into raw records.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/okian/gradebook/internal/domain/model"
	"github.com/okian/gradebook/pkg/logger"
)

// Default role columns.
const (
	DefaultNameColumn  = "Name"
	DefaultGroupColumn = "Group"
)

// Source describes what to load.
type Source struct {
	Path        string
	Sheet       string // xlsx only
	Delimiter   rune   // 0 infers from extension
	NameColumn  string // required; defaults to "Name"
	GroupColumn string // optional; defaults to "Group"
}

// Table is a loaded source: the trimmed header and its records.
type Table struct {
	Header      []string
	NameColumn  string
	GroupColumn string // "" when the source has no group column
	Records     []model.RawRecord
	Skipped     int // data rows dropped for a blank name
}

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithLogger sets the loader logger.
func WithLogger(l logger.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithReader forces a reader instead of picking one from the extension.
func WithReader(r Reader) Option {
	return func(ld *Loader) { ld.reader = r }
}

// Loader reads a tabular source into raw records.
type Loader struct {
	logger logger.Logger
	reader Reader
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	ld := &Loader{logger: logger.Discard()}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Load reads src. The first row is the header; header cells are trimmed.
// It fails with ErrSourceNotFound when the path does not resolve and with
// ErrMissingColumn when the name column is absent.
func (ld *Loader) Load(ctx context.Context, src Source) (Table, error) {
	nameCol := strings.TrimSpace(src.NameColumn)
	if nameCol == "" {
		nameCol = DefaultNameColumn
	}
	groupCol := strings.TrimSpace(src.GroupColumn)
	if src.GroupColumn == "" {
		groupCol = DefaultGroupColumn
	}

	if _, err := os.Stat(src.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Table{}, fmt.Errorf("%w: %s", ErrSourceNotFound, src.Path)
		}
		return Table{}, fmt.Errorf("stat %s: %w", src.Path, err)
	}

	reader := ld.reader
	if reader == nil {
		r, err := ReaderFor(src.Path, src.Sheet, src.Delimiter)
		if err != nil {
			return Table{}, err
		}
		reader = r
	}

	rows, err := reader.ReadRows(ctx, src.Path)
	if err != nil {
		return Table{}, err
	}
	if len(rows) == 0 {
		return Table{}, fmt.Errorf("%w: %s", ErrEmptySource, src.Path)
	}

	header := normalizeHeader(rows[0])
	if !contains(header, nameCol) {
		return Table{}, fmt.Errorf("%w: %q in %s", ErrMissingColumn, nameCol, src.Path)
	}
	if !contains(header, groupCol) {
		groupCol = ""
	}

	t := Table{Header: header, NameColumn: nameCol, GroupColumn: groupCol}
	for i, row := range rows[1:] {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Table{}, err
			}
		}
		cells := make(map[string]string, len(header))
		for c, col := range header {
			if c < len(row) {
				cells[col] = row[c]
			} else {
				cells[col] = ""
			}
		}
		name := strings.TrimSpace(cells[nameCol])
		if name == "" {
			t.Skipped++
			continue
		}
		rec := model.RawRecord{Row: i + 1, Name: name, Cells: cells}
		if groupCol != "" {
			rec.Group = strings.TrimSpace(cells[groupCol])
		}
		t.Records = append(t.Records, rec)
	}

	ld.logger.Info(ctx, "source loaded",
		logger.String("path", src.Path),
		logger.Int("columns", len(header)),
		logger.Int("records", len(t.Records)),
		logger.Int("skipped", t.Skipped),
	)
	return t, nil
}

// normalizeHeader trims header cells, names blank ones column_<n> and
// suffixes repeated names with .1, .2, ...
func normalizeHeader(raw []string) []string {
	header := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		if n, dup := seen[h]; dup {
			seen[h] = n + 1
			h = h + "." + strconv.Itoa(n+1)
		}
		seen[h]++
		header[i] = h
	}
	return header
}

func contains(header []string, col string) bool {
	for _, h := range header {
		if h == col {
			return true
		}
	}
	return false
}
