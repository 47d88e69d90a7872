// Package pipeline runs one load: fetch the export, normalize it, and replace
// the destination table.
//
// The stages run strictly in order. Anything that fails before the load stage
// (configuration, fetch, decode, parse, an empty export) returns before a
// sink is opened, so the database is never touched.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"koboetl/internal/config"
	"koboetl/internal/datasource"
	"koboetl/internal/datasource/file"
	"koboetl/internal/datasource/httpds"
	"koboetl/internal/metrics"
	"koboetl/internal/normalizer"
	"koboetl/internal/schema"
	"koboetl/internal/storage"
	"koboetl/internal/transformer"
)

// ErrEmptyExport is returned when the export has no data rows and the
// pipeline does not allow replacing the table with an empty one.
var ErrEmptyExport = errors.New("export has no data rows; refusing to replace the table (set allow_empty to override)")

// Step names used in logs and metrics.
const (
	StepFetch     = "fetch"
	StepNormalize = "normalize"
	StepLoad      = "load"
)

// Deps are the seams a run reaches the outside world through. Zero values
// select the production implementations.
type Deps struct {
	// Source supplies the export; nil builds one from cfg.Source.
	Source datasource.Source

	// OpenSink opens the destination; nil means storage.New.
	OpenSink func(ctx context.Context, cfg storage.Config) (storage.Sink, error)

	// Now is the clock used for archive names; nil means time.Now.
	Now func() time.Time
}

// Summary describes a completed (or partially completed) run.
type Summary struct {
	Job         string
	Fetched     int
	Fingerprint string
	Archived    string

	SourceColumns  []string
	CleanedColumns []string
	Dropped        []string

	Rows     int
	Skipped  int
	Warnings []transformer.Warning
	Inserted int64

	Duration time.Duration
}

// Run executes one load. The returned Summary is non-nil even on error and
// holds whatever the run got through.
func Run(ctx context.Context, cfg config.Pipeline, deps Deps) (*Summary, error) {
	start := time.Now()
	sum := &Summary{Job: cfg.Job}
	defer func() { sum.Duration = time.Since(start) }()

	log := zap.L().Named("pipeline").With(zap.String("job", cfg.Job))
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	opts, err := NormalizerOptions(cfg.Parser)
	if err != nil {
		return sum, fmt.Errorf("config: %w", err)
	}

	src, replay := deps.Source, cfg.Source.Path != ""
	if src == nil {
		src = SourceFor(cfg.Source)
	}

	// Fetch.
	var raw []byte
	err = step(cfg.Job, StepFetch, func() error {
		if replay {
			log.Info("replaying local export", zap.String("path", cfg.Source.Path))
		} else {
			log.Info("fetching export", zap.String("url", cfg.Source.URL))
		}
		raw, err = datasource.ReadAll(ctx, src, cfg.Source.MaxBytes)
		return err
	})
	if err != nil {
		var se *httpds.StatusError
		if errors.As(err, &se) {
			log.Error("export request rejected",
				zap.Int("status", se.Code),
				zap.String("body", se.Body),
			)
		}
		return sum, fmt.Errorf("fetch: %w", err)
	}
	sum.Fetched = len(raw)
	sum.Fingerprint = fmt.Sprintf("%016x", xxh3.Hash(raw))
	metrics.SetExportBytes(cfg.Job, len(raw))
	log.Info("export fetched",
		zap.Int("bytes", sum.Fetched),
		zap.String("xxh3", sum.Fingerprint),
	)

	if dir := cfg.Source.ArchiveDir; dir != "" && !replay {
		path, aerr := file.WriteArchive(dir, httpds.ArchiveName(cfg.Source.URL, now()), raw)
		if aerr != nil {
			// The archive is a convenience copy; the load goes on without it.
			log.Warn("archive failed", zap.Error(aerr))
		} else {
			sum.Archived = path
			log.Info("export archived", zap.String("path", path))
		}
	}

	// Normalize.
	var res *normalizer.Result
	err = step(cfg.Job, StepNormalize, func() error {
		res, err = normalizer.NormalizeBytes(raw, opts)
		return err
	})
	if err != nil {
		return sum, fmt.Errorf("normalize: %w", err)
	}
	sum.SourceColumns = res.SourceColumns
	sum.CleanedColumns = res.CleanedColumns
	sum.Dropped = res.Dropped
	sum.Rows = len(res.Rows)
	sum.Skipped = res.Skipped
	sum.Warnings = res.Warnings

	log.Info("available columns", zap.Strings("columns", res.SourceColumns), zap.Strings("dropped", res.Dropped))
	log.Info("cleaned columns", zap.Strings("columns", res.CleanedColumns))
	for _, w := range res.Warnings {
		log.Warn(w.Message,
			zap.String("kind", string(w.Kind)),
			zap.Strings("columns", w.Columns),
			zap.Int("count", w.Count),
		)
		metrics.RecordWarnings(cfg.Job, string(w.Kind), 1)
	}
	metrics.RecordRows(cfg.Job, "parsed", int64(sum.Rows))
	metrics.RecordRows(cfg.Job, "skipped_lines", int64(sum.Skipped))

	if sum.Rows == 0 && !cfg.AllowEmpty {
		return sum, ErrEmptyExport
	}

	// Load.
	openSink := deps.OpenSink
	if openSink == nil {
		openSink = storage.New
	}
	err = step(cfg.Job, StepLoad, func() error {
		log.Info("uploading",
			zap.String("kind", cfg.Storage.Kind),
			zap.String("dsn", config.Redacted(cfg.Storage.DSN)),
			zap.String("schema", cfg.Storage.Schema),
			zap.String("table", cfg.Storage.Table),
			zap.Int("rows", sum.Rows),
		)
		sink, err := openSink(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DSN})
		if err != nil {
			return fmt.Errorf("open %s: %w", cfg.Storage.Kind, err)
		}
		defer sink.Close()

		sum.Inserted, err = sink.Reload(ctx,
			cfg.Storage.Schema, cfg.Storage.Table,
			schema.Target.TableDef(""),
			res.Columns, res.Values(),
		)
		return err
	})
	if err != nil {
		return sum, fmt.Errorf("load: %w", err)
	}
	metrics.RecordRows(cfg.Job, "inserted", sum.Inserted)
	metrics.MarkSuccess(cfg.Job, now())

	log.Info("upload complete",
		zap.Int64("inserted", sum.Inserted),
		zap.Int("skipped_lines", sum.Skipped),
		zap.Int("warnings", len(sum.Warnings)),
		zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)),
	)
	return sum, nil
}

// step times fn and records it under name.
func step(job, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(job, name, err, time.Since(start))
	return err
}

// SourceFor builds the export source: a local replay when Path is set,
// otherwise a basic-auth HTTP GET of URL.
func SourceFor(s config.Source) datasource.Source {
	if s.Path != "" {
		return file.NewLocal(s.Path)
	}
	return httpds.Source{
		Client: httpds.NewClient(httpds.Config{
			Timeout:            s.Timeout(),
			InsecureSkipVerify: s.InsecureSkipVerify,
		}),
		URL:   s.URL,
		Creds: httpds.Credentials{Username: s.Username, Password: s.Password},
	}
}

// NormalizerOptions maps the parser section onto normalizer options.
// DropColumns replaces the built-in list when set (even empty); the contents
// of DropColumnsFile are added to it.
func NormalizerOptions(p config.Parser) (normalizer.Options, error) {
	opt := normalizer.DefaultOptions()

	sep, err := p.Comma()
	if err != nil {
		return opt, err
	}
	opt.Separator = sep
	opt.LazyQuotes = p.LazyQuotes

	if p.DropColumns != nil {
		opt.DropColumns = append([]string{}, p.DropColumns...)
	}
	if p.DropColumnsFile != "" {
		extra, err := file.ReadList(p.DropColumnsFile)
		if err != nil {
			return opt, fmt.Errorf("parser.drop_columns_file: %w", err)
		}
		opt.DropColumns = append(append([]string(nil), opt.DropColumns...), extra...)
	}
	if len(p.DateLayouts) > 0 {
		opt.DateLayouts = p.DateLayouts
	}
	if len(p.TimestampLayouts) > 0 {
		opt.TimestampLayouts = p.TimestampLayouts
	}
	return opt, nil
}
