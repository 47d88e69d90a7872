package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"koboetl/internal/config"
	"koboetl/internal/datasource/httpds"
	"koboetl/internal/parser/csv"
	"koboetl/internal/pipeline"
	"koboetl/internal/transformer"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:          "etl",
		Short:        "Load the Kobo conflict-incident export into a database table",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "pipeline config JSON path (defaults built in)")
	pf.StringVar(&g.envFile, "env-file", "", "dotenv file to load (default .env when present)")
	pf.StringVar(&g.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	pf.StringVar(&g.logFormat, "log-format", "", "override logging.format (console, json)")

	root.AddCommand(
		newRunCmd(g),
		newValidateCmd(g),
		newScheduleCmd(g),
		newDDLCmd(g),
	)
	return root
}

// load resolves the effective pipeline: defaults, file, .env, environment,
// then flags.
func (g *globalFlags) load() (config.Pipeline, error) {
	if err := config.LoadEnvFile(g.envFile); err != nil {
		return config.Pipeline{}, err
	}
	p, err := config.Load(g.configPath)
	if err != nil {
		return config.Pipeline{}, err
	}
	config.ApplyEnv(&p, nil)
	if g.logLevel != "" {
		p.Logging.Level = g.logLevel
	}
	if g.logFormat != "" {
		p.Logging.Format = g.logFormat
	}
	return p, nil
}

// explain adds an operator hint to the fatal errors a run can end with.
func explain(err error) error {
	var (
		status *httpds.StatusError
		sep    *csv.SeparatorError
		coll   *transformer.CollisionError
	)
	switch {
	case errors.As(err, &status):
		switch status.Code {
		case 401, 403:
			return fmt.Errorf("%w (check KOBO_USERNAME/KOBO_PASSWORD and export permissions)", err)
		case 404:
			return fmt.Errorf("%w (check KOBO_CSV_URL; export settings may have been deleted)", err)
		}
	case errors.As(err, &sep):
		return fmt.Errorf("%w (set parser.separator to %q)", err, string(sep.Detected))
	case errors.As(err, &coll):
		return fmt.Errorf("%w (rename one of the questions in the form)", err)
	case errors.Is(err, csv.ErrUndecodable):
		return fmt.Errorf("%w (the endpoint did not return a text export)", err)
	case errors.Is(err, pipeline.ErrEmptyExport):
		return fmt.Errorf("%w; the previous table was left untouched", err)
	}
	return err
}
