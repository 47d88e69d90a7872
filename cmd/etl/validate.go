package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"koboetl/internal/pipeline"
)

func newValidateCmd(g *globalFlags) *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Lint the configuration; with --probe also check the export header",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := g.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := lint(cmd.ErrOrStderr(), p); err != nil {
				return err
			}
			fmt.Fprintln(out, "configuration is valid")

			if !probe {
				return nil
			}
			rep, err := pipeline.Probe(cmd.Context(), p)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(out, "export columns: %s\n", strings.Join(rep.Header, ", "))
			if len(rep.Dropped) > 0 {
				fmt.Fprintf(out, "dropped: %s\n", strings.Join(rep.Dropped, ", "))
			}
			if len(rep.Missing) > 0 {
				fmt.Fprintf(out, "missing (loaded as absent): %s\n", strings.Join(rep.Missing, ", "))
			}
			if len(rep.Extra) > 0 {
				fmt.Fprintf(out, "extra (discarded): %s\n", strings.Join(rep.Extra, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "download the start of the export and compare its header with the table")
	return cmd
}
