package main

import (
	"bytes"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	_ "modernc.org/sqlite"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	envFile := filepath.Join(t.TempDir(), "empty.env")
	if err := os.WriteFile(envFile, nil, 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--env-file", envFile}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDDL_PerKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind string
		want []string
	}{
		{"postgres", []string{`CREATE TABLE "warrecords"."ukrainerussia"`, `"id" SERIAL PRIMARY KEY`, `"percentage_occupied" DOUBLE PRECISION`}},
		{"mssql", []string{`[warrecords].[ukrainerussia]`, `INT IDENTITY(1,1) PRIMARY KEY`, `[start] DATETIME2`}},
		{"mysql", []string{"`warrecords`.`ukrainerussia`", "`date` DATE"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.kind, func(t *testing.T) {
			t.Parallel()
			out, _, err := execute(t, "ddl", "--kind", tt.kind)
			if err != nil {
				t.Fatalf("ddl: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Fatalf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestDDL_UnknownKind(t *testing.T) {
	t.Parallel()

	if _, _, err := execute(t, "ddl", "--kind", "oracle"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestValidate_ReportsErrors(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, `{"storage":{"kind":"oracle","table":"t","dsn":"x"},"source":{"path":"/tmp/x.csv"}}`)
	_, stderr, err := execute(t, "--config", cfg, "validate")
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	if !strings.Contains(stderr, "storage.kind") {
		t.Fatalf("stderr does not name storage.kind:\n%s", stderr)
	}
}

func TestValidate_Probe(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	export := filepath.Join(dir, "export.csv")
	if err := os.WriteFile(export, []byte("start;end;Date;Cambat Intensity;_id\n1;2;3;4;5\n"), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
	cfg := writeConfig(t, `{
		"source": {"path": "`+filepath.ToSlash(export)+`"},
		"storage": {"kind": "sqlite", "table": "incidents", "dsn": "`+filepath.ToSlash(filepath.Join(dir, "etl.db"))+`"}
	}`)
	out, _, err := execute(t, "--config", cfg, "validate", "--probe")
	if err != nil {
		t.Fatalf("validate --probe: %v", err)
	}
	for _, w := range []string{"configuration is valid", "dropped: Cambat Intensity", "extra (discarded): _id", "missing (loaded as absent): Country"} {
		if !strings.Contains(out, w) {
			t.Fatalf("output missing %q:\n%s", w, out)
		}
	}
}

/*
TestRun_ReplayIntoSQLite runs the full command against a local export and a
file-backed SQLite database, twice, to check the reload replaces the table.
Not parallel: run installs the global logger.
*/
func TestRun_ReplayIntoSQLite(t *testing.T) {
	dir := t.TempDir()
	export := filepath.Join(dir, "export.csv")
	body := "start;end;Date;Country;Event;Oblast;Casualties;Injured;Captured\n" +
		"2024-03-01T08:00:00.000+02:00;2024-03-01T08:10:00.000+02:00;2024-03-01;UA;Shelling;Kharkiv;3;4;1\n" +
		"2024-03-02T09:00:00.000+02:00;2024-03-02T09:05:00.000+02:00;2024-03-02;UA;Raid;Sumy;;2;\n"
	if err := os.WriteFile(export, []byte(body), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
	dbPath := filepath.Join(dir, "etl.db")
	cfg := writeConfig(t, `{
		"source": {"path": "`+filepath.ToSlash(export)+`"},
		"storage": {"kind": "sqlite", "schema": "warrecords", "table": "incidents", "dsn": "`+filepath.ToSlash(dbPath)+`"},
		"logging": {"level": "error"}
	}`)

	for i := 0; i < 2; i++ {
		out, _, err := execute(t, "--config", cfg, "run")
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if !strings.Contains(out, "loaded 2 rows into warrecords.incidents") {
			t.Fatalf("run %d output: %s", i, out)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	var n, total int
	if err := db.QueryRow(`SELECT COUNT(*), SUM(total_casualties) FROM "warrecords__incidents"`).Scan(&n, &total); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 2 || total != 10 {
		t.Fatalf("count=%d total=%d, want 2 and 10", n, total)
	}
}

func TestRun_EmptyExportLeavesTable(t *testing.T) {
	dir := t.TempDir()
	export := filepath.Join(dir, "export.csv")
	if err := os.WriteFile(export, []byte("Date;Country\n"), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
	dbPath := filepath.Join(dir, "etl.db")
	cfg := writeConfig(t, `{
		"source": {"path": "`+filepath.ToSlash(export)+`"},
		"storage": {"kind": "sqlite", "table": "incidents", "dsn": "`+filepath.ToSlash(dbPath)+`"},
		"logging": {"level": "error"}
	}`)
	_, _, err := execute(t, "--config", cfg, "run")
	if err == nil || !strings.Contains(err.Error(), "left untouched") {
		t.Fatalf("expected empty-export error, got %v", err)
	}
	if _, statErr := os.Stat(dbPath); statErr == nil {
		t.Fatalf("database file was created for an empty export")
	}
}

func TestSchedule_RejectsBadExpression(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, `{
		"source": {"path": "`+filepath.ToSlash(filepath.Join(dir, "export.csv"))+`"},
		"storage": {"kind": "sqlite", "table": "incidents", "dsn": "`+filepath.ToSlash(filepath.Join(dir, "etl.db"))+`"},
		"logging": {"level": "error"}
	}`)
	if _, _, err := execute(t, "--config", cfg, "schedule", "--cron", "every tuesday"); err == nil {
		t.Fatalf("expected cron parse error")
	}
}

/*
TestRun_EmptyDSNReachesFetch checks an unset DSN is only a warning: the run
still requests the export and fails on the rejected request.
*/
func TestRun_EmptyDSNReachesFetch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	cfg := writeConfig(t, `{
		"source": {"url": "`+srv.URL+`/data.csv"},
		"storage": {"kind": "postgres", "table": "incidents", "dsn": ""},
		"logging": {"level": "error"}
	}`)
	_, stderr, err := execute(t, "--config", cfg, "run")
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected the fetch failure, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("export requested %d times, want 1", hits.Load())
	}
	if !strings.Contains(stderr, "warning: storage.dsn") {
		t.Fatalf("stderr does not warn about storage.dsn:\n%s", stderr)
	}
}
