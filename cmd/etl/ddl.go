package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"koboetl/internal/schema"
	"koboetl/internal/storage"
)

func newDDLCmd(g *globalFlags) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print the CREATE TABLE statement a reload issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := g.load()
			if err != nil {
				return err
			}
			if kind == "" {
				kind = p.Storage.Kind
			}
			sql, err := storage.CreateTableSQL(kind, schema.Target.TableDef(target(p)))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sql)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "storage kind (default storage.kind)")
	return cmd
}
