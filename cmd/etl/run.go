package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"koboetl/internal/config"
	"koboetl/internal/logging"
	"koboetl/internal/metrics"
	"koboetl/internal/pipeline"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch, normalize and reload once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := g.load()
			if err != nil {
				return err
			}
			if err := lint(cmd.ErrOrStderr(), p); err != nil {
				return err
			}

			_, restore, err := logging.Install(p.Logging.Level, p.Logging.Format)
			if err != nil {
				return err
			}
			defer restore()

			closeMetrics, err := setupMetrics(p)
			if err != nil {
				return err
			}
			defer closeMetrics()

			sum, err := runOnce(cmd.Context(), p, pipeline.Deps{})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d rows into %s (%d lines skipped, %d warnings, export %s)\n",
				sum.Inserted, target(p), sum.Skipped, len(sum.Warnings), sum.Fingerprint)
			return nil
		},
	}
}

// runOnce runs the pipeline, flushes metrics and logs the outcome.
func runOnce(ctx context.Context, p config.Pipeline, deps pipeline.Deps) (*pipeline.Summary, error) {
	sum, err := pipeline.Run(ctx, p, deps)
	if ferr := metrics.Flush(); ferr != nil {
		zap.L().Warn("metrics flush failed", zap.Error(ferr))
	}
	if err != nil {
		err = explain(err)
		zap.L().Error("run failed", zap.String("job", p.Job), zap.Error(err))
		return sum, err
	}
	zap.L().Info("run succeeded",
		zap.String("job", p.Job),
		zap.Int64("inserted", sum.Inserted),
		zap.Duration("duration", sum.Duration),
	)
	return sum, nil
}

func target(p config.Pipeline) string {
	if p.Storage.Schema == "" {
		return p.Storage.Table
	}
	return p.Storage.Schema + "." + p.Storage.Table
}

// lint prints configuration issues and fails on errors.
func lint(w io.Writer, p config.Pipeline) error {
	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid")
	}
	return nil
}
