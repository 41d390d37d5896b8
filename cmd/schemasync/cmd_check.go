package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enfyra/server-sub005/internal/cli"
	"github.com/enfyra/server-sub005/internal/schema"
)

// checkCmd validates every table description without touching a database.
func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate table description files",
		Long:  `Load every YAML table description, validate it, and report problems without connecting to a database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			tables, err := schema.LoadDir(cfg.TablesDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tbl := cli.NewTable("TABLE", "COLUMNS", "RELATIONS")
			for _, name := range sortedTableNames(tables) {
				t := tables[name]
				tbl.AddRow(t.Name,
					fmt.Sprintf("%d", len(t.Columns)),
					fmt.Sprintf("%d", len(t.Relations)))
			}
			fmt.Fprint(out, tbl.String())
			fmt.Fprintf(out, "\n%s: %d table descriptions valid\n", cli.Success("ok"), len(tables))
			return nil
		},
	}
}
