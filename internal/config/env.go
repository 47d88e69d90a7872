package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvKoboUsername   = "KOBO_USERNAME"
	EnvKoboPassword   = "KOBO_PASSWORD"
	EnvKoboCSVURL     = "KOBO_CSV_URL"
	EnvPGHost         = "PG_HOST"
	EnvPGPort         = "PG_PORT"
	EnvPGDatabase     = "PG_DATABASE"
	EnvPGUser         = "PG_USER"
	EnvPGPassword     = "PG_PASSWORD"
	EnvPGSSLMode      = "PG_SSLMODE"
	EnvStorageKind    = "ETL_STORAGE_KIND"
	EnvDSN            = "ETL_DSN"
	EnvMetricsBackend = "METRICS_BACKEND"
	EnvPushgatewayURL = "PUSHGATEWAY_URL"
	EnvDatadogAddr    = "DD_AGENT_ADDR"
	EnvLogLevel       = "LOG_LEVEL"
)

// LoadEnvFile loads variables from path into the process environment without
// overriding variables that are already set. An empty path means ".env", and
// a missing default file is not an error.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays non-empty environment values onto p. getenv is usually
// os.Getenv; nil means os.Getenv.
//
// Storage DSN precedence: ETL_DSN, then the pipeline file, then a Postgres
// URL assembled from PG_* when PG_HOST is set.
func ApplyEnv(p *Pipeline, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&p.Source.Username, EnvKoboUsername)
	// Passwords may legitimately carry surrounding spaces.
	if v := getenv(EnvKoboPassword); v != "" {
		p.Source.Password = v
	}
	set(&p.Source.URL, EnvKoboCSVURL)
	set(&p.Storage.Kind, EnvStorageKind)
	set(&p.Metrics.Backend, EnvMetricsBackend)
	set(&p.Metrics.PushgatewayURL, EnvPushgatewayURL)
	set(&p.Metrics.DatadogAddr, EnvDatadogAddr)
	set(&p.Logging.Level, EnvLogLevel)

	switch {
	case strings.TrimSpace(getenv(EnvDSN)) != "":
		p.Storage.DSN = strings.TrimSpace(getenv(EnvDSN))
	case p.Storage.DSN == "" && p.Storage.Kind == "postgres":
		p.Storage.DSN = PostgresDSN(getenv)
	}
}

// PostgresDSN assembles a postgres:// URL from the PG_* variables. It returns
// "" when PG_HOST is unset. Port defaults to 5432.
func PostgresDSN(getenv func(string) string) string {
	host := strings.TrimSpace(getenv(EnvPGHost))
	if host == "" {
		return ""
	}
	port := strings.TrimSpace(getenv(EnvPGPort))
	if port == "" {
		port = "5432"
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   host + ":" + port,
		Path:   "/" + strings.TrimSpace(getenv(EnvPGDatabase)),
	}
	if user := strings.TrimSpace(getenv(EnvPGUser)); user != "" {
		if pw := getenv(EnvPGPassword); pw != "" {
			u.User = url.UserPassword(user, pw)
		} else {
			u.User = url.User(user)
		}
	}
	if mode := strings.TrimSpace(getenv(EnvPGSSLMode)); mode != "" {
		u.RawQuery = url.Values{"sslmode": {mode}}.Encode()
	}
	return u.String()
}

// Redacted returns dsn with its password masked, for logging. It handles URL
// DSNs and the MySQL user:password@tcp(host)/db form.
func Redacted(dsn string) string {
	if !strings.Contains(dsn, "://") {
		if at := strings.LastIndex(dsn, "@"); at > 0 {
			if c := strings.Index(dsn[:at], ":"); c >= 0 {
				return dsn[:c+1] + "xxxxx" + dsn[at:]
			}
		}
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); !ok {
		return dsn
	}
	return u.Redacted()
}
