// Package config defines the JSON pipeline file for the incident loader and
// the environment overlay applied on top of it.
//
// Every field is optional: Default supplies a complete configuration for the
// production export, a pipeline file overrides parts of it, and environment
// variables (optionally read from a .env file) override both.
//
// Example (trimmed):
//
//	{
//	  "job":     "kobo_incidents",
//	  "source":  { "url": "https://kf.kobotoolbox.org/.../data.csv", "timeout_seconds": 120 },
//	  "parser":  { "separator": ";", "drop_columns": ["Cambat Intensity"] },
//	  "storage": { "kind": "postgres", "schema": "warrecords", "table": "ukrainerussia" },
//	  "metrics": { "backend": "pushgateway", "pushgateway_url": "http://localhost:9091" }
//	}
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"
	"unicode/utf8"
)

// DefaultExportURL is the production KoboToolbox CSV export.
const DefaultExportURL = "https://kf.kobotoolbox.org/api/v2/assets/aNK3wvPZP3cHZ5uh6goKjj/export-settings/eszJ5XWvpqYT5oJvLWvbuPp/data.csv"

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run in logs and metrics.
	Job string `json:"job"`

	// AllowEmpty lets an export with a header and no data rows replace the
	// table. By default such a run aborts before touching the database.
	AllowEmpty bool `json:"allow_empty"`

	Source  Source  `json:"source"`
	Parser  Parser  `json:"parser"`
	Storage Storage `json:"storage"`
	Metrics Metrics `json:"metrics"`
	Logging Logging `json:"logging"`
}

// Source configures where the export comes from.
type Source struct {
	// URL is the CSV export endpoint.
	URL string `json:"url"`

	// Path, when set, replays a local export instead of fetching URL.
	Path string `json:"path"`

	// Username and Password are the basic-auth credentials. They are only
	// read from the environment, never from the pipeline file.
	Username string `json:"-"`
	Password string `json:"-"`

	// TimeoutSeconds bounds the whole request; 0 keeps the client default.
	TimeoutSeconds int `json:"timeout_seconds"`

	InsecureSkipVerify bool `json:"insecure_skip_verify"`

	// ArchiveDir, when set, receives a timestamped copy of each fetched export.
	ArchiveDir string `json:"archive_dir"`

	// MaxBytes caps the export size; 0 means unlimited.
	MaxBytes int64 `json:"max_bytes"`
}

// Timeout returns TimeoutSeconds as a duration.
func (s Source) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Parser configures parsing and normalization.
type Parser struct {
	// Separator is the single field delimiter character.
	Separator string `json:"separator"`

	// DropColumns are removed before normalization. Nil keeps the built-in
	// list; an explicit empty list drops nothing.
	DropColumns []string `json:"drop_columns"`

	// DropColumnsFile adds one column name per line ('#' starts a comment).
	DropColumnsFile string `json:"drop_columns_file"`

	DateLayouts      []string `json:"date_layouts"`
	TimestampLayouts []string `json:"timestamp_layouts"`

	LazyQuotes bool `json:"lazy_quotes"`
}

// Comma returns Separator as a rune.
func (p Parser) Comma() (rune, error) {
	if utf8.RuneCountInString(p.Separator) != 1 {
		return 0, fmt.Errorf("parser.separator must be exactly one character, got %q", p.Separator)
	}
	r, _ := utf8.DecodeRuneInString(p.Separator)
	return r, nil
}

// Storage selects the destination.
type Storage struct {
	// Kind selects the backend: postgres, mssql, mysql or sqlite.
	Kind   string `json:"kind"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	DSN    string `json:"dsn"`
}

// Metrics selects a metrics backend.
type Metrics struct {
	// Backend is "none" (or empty), "pushgateway" or "datadog".
	Backend        string `json:"backend"`
	PushgatewayURL string `json:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr"`
}

// Logging configures the process logger.
type Logging struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Default returns the production configuration.
func Default() Pipeline {
	return Pipeline{
		Job: "kobo_incidents",
		Source: Source{
			URL: DefaultExportURL,
		},
		Parser: Parser{
			Separator: ";",
		},
		Storage: Storage{
			Kind:   "postgres",
			Schema: "warrecords",
			Table:  "ukrainerussia",
		},
		Metrics: Metrics{Backend: "none"},
		Logging: Logging{Level: "info", Format: "console"},
	}
}

// Decode reads a pipeline file over Default. Unknown fields are rejected so
// typos surface instead of silently keeping defaults.
func Decode(b []byte) (Pipeline, error) {
	p := Default()
	if len(bytes.TrimSpace(b)) == 0 {
		return p, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config: %w", err)
	}
	return p, nil
}

// Load reads path with Decode. An empty path returns Default.
func Load(path string) (Pipeline, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("open config: %w", err)
	}
	return Decode(b)
}
