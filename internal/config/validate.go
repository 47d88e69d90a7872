package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind"). Message is
// human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// StorageKinds lists the storage kinds the binary is built with.
var StorageKinds = []string{"postgres", "mssql", "mysql", "sqlite"}

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidatePipeline performs static validation of a Pipeline after the
// environment overlay. It never touches the network or the database.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels logs and metrics",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	issues = append(issues, validateLogging(p.Logging)...)
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	switch {
	case strings.TrimSpace(s.Path) != "":
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.path",
			Message:  fmt.Sprintf("replaying local export %q; source.url is ignored", s.Path),
		})
	case strings.TrimSpace(s.URL) == "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.url",
			Message:  "source.url must not be empty (or set source.path to replay a file)",
		})
	default:
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.url",
				Message:  fmt.Sprintf("source.url %q is not an absolute http(s) URL", s.URL),
			})
		}
		if s.Username == "" || s.Password == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.credentials",
				Message:  fmt.Sprintf("%s/%s not set; the export request will likely be rejected", EnvKoboUsername, EnvKoboPassword),
			})
		}
	}

	if s.TimeoutSeconds < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.timeout_seconds",
			Message:  "timeout_seconds must be >= 0",
		})
	}
	if s.MaxBytes < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.max_bytes",
			Message:  "max_bytes must be >= 0",
		})
	}
	if s.InsecureSkipVerify {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.insecure_skip_verify",
			Message:  "TLS certificate verification is disabled",
		})
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue

	r, err := p.Comma()
	switch {
	case err != nil:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.separator",
			Message:  err.Error(),
		})
	case r == '"' || r == '\r' || r == '\n':
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.separator",
			Message:  fmt.Sprintf("separator %q cannot be a quote or line break", r),
		})
	case r != ';':
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "parser.separator",
			Message:  fmt.Sprintf("separator %q differs from the export's ';'", r),
		})
	}

	for i, c := range p.DropColumns {
		if strings.TrimSpace(c) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("parser.drop_columns[%d]", i),
				Message:  "drop column name must not be empty",
			})
		}
	}
	for i, l := range p.DateLayouts {
		if strings.TrimSpace(l) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("parser.date_layouts[%d]", i),
				Message:  "date layout must not be empty",
			})
		}
	}
	for i, l := range p.TimestampLayouts {
		if strings.TrimSpace(l) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("parser.timestamp_layouts[%d]", i),
				Message:  "timestamp layout must not be empty",
			})
		}
	}
	if p.LazyQuotes {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "parser.lazy_quotes",
			Message:  "lazy_quotes accepts malformed quoting that would otherwise skip the line",
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	known := false
	for _, k := range StorageKinds {
		if s.Kind == k {
			known = true
			break
		}
	}
	if !known {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unsupported storage.kind=%q (want one of %s)", s.Kind, strings.Join(StorageKinds, ", ")),
		})
	}

	if strings.TrimSpace(s.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.table",
			Message:  "storage.table must not be empty",
		})
	} else if !plainIdent.MatchString(s.Table) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.table",
			Message:  fmt.Sprintf("table %q needs quoting in ad-hoc SQL", s.Table),
		})
	}
	if s.Schema != "" && !plainIdent.MatchString(s.Schema) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.schema",
			Message:  fmt.Sprintf("schema %q needs quoting in ad-hoc SQL", s.Schema),
		})
	}

	if strings.TrimSpace(s.DSN) == "" {
		// The driver may still connect from its own environment (PGHOST,
		// PGSERVICE, a local socket); a bad target fails at the load step.
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.dsn",
			Message:  fmt.Sprintf("storage.dsn is empty; relying on driver defaults (set %s or %s)", EnvDSN, EnvPGHost),
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires pushgateway_url",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires datadog_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q (want none, pushgateway or datadog)", m.Backend),
		})
	}
	return issues
}

func validateLogging(l Logging) []Issue {
	var issues []Issue

	if l.Level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(strings.ToLower(l.Level))); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "logging.level",
				Message:  fmt.Sprintf("unknown log level %q", l.Level),
			})
		}
	}
	switch strings.ToLower(l.Format) {
	case "", "console", "json":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "logging.format",
			Message:  fmt.Sprintf("unknown log format %q (want console or json)", l.Format),
		})
	}
	return issues
}
