// Package config defines the gradebook configuration and its loading hooks.
//
// Conventions:
//   - Defaults come from New; Load layers .env, YAML and environment on top.
//   - Errors returned by Load wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogJSON switches log output to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address of the query service, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// Source is the spreadsheet or delimited file the pipeline reads.
	Source string `koanf:"source"`

	// Sheet selects an xlsx sheet by name; empty means the first sheet.
	Sheet string `koanf:"sheet"`

	// Delimiter overrides the delimiter for text sources. Empty infers it
	// from the extension (.csv -> ',', .tsv/.txt -> tab).
	Delimiter string `koanf:"delimiter" validate:"omitempty,max=1"`

	// NameColumn is the required dedup key column.
	NameColumn string `koanf:"name_column" validate:"required"`

	// GroupColumn is the optional group column.
	GroupColumn string `koanf:"group_column"`

	// SubjectKeywords selects subject columns by case-insensitive header match.
	SubjectKeywords []string `koanf:"subject_keywords" validate:"min=1,dive,required"`

	// DefaultScore replaces missing or unparseable subject cells.
	DefaultScore float64 `koanf:"default_score" validate:"gte=0,lte=100"`

	// ScholarshipRatio is the share of the population that receives a scholarship.
	ScholarshipRatio float64 `koanf:"scholarship_ratio" validate:"gt=0,lte=1"`

	// ScholarshipMarker is written to the Scholarship column for eligible records.
	ScholarshipMarker string `koanf:"scholarship_marker" validate:"required"`

	// Output is where `grade` writes the processed gradebook (.xlsx, .csv, .tsv, .db).
	Output string `koanf:"output"`

	// ReportDir is where PDF reports are written.
	ReportDir string `koanf:"report_dir"`

	// ReloadInterval re-runs the pipeline periodically while serving. Zero disables it.
	ReloadInterval time.Duration `koanf:"reload_interval" validate:"gte=0"`

	// MaxResults caps list responses of the query API.
	MaxResults int `koanf:"max_results" validate:"gte=1"`

	// CORSOrigins lists allowed origins for the query API. Empty disables CORS.
	CORSOrigins []string `koanf:"cors_origins"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		NameColumn:        "Name",
		GroupColumn:       "Group",
		SubjectKeywords:   []string{"points", "score", "grade"},
		DefaultScore:      60,
		ScholarshipRatio:  0.6,
		ScholarshipMarker: "*",
		ReportDir:         ".",
		MaxResults:        500,
	}
}
