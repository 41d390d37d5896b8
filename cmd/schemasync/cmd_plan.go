package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/enfyra/server-sub005/internal/cli"
	"github.com/enfyra/server-sub005/internal/dialect"
	"github.com/enfyra/server-sub005/internal/diff"
	"github.com/enfyra/server-sub005/internal/schema"
	"github.com/enfyra/server-sub005/internal/sqlgen"
)

// planCmd previews the DDL a sync would run, without a database connection.
// The diff runs against the snapshot of the last applied description set.
func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Preview the DDL a sync would run",
		Long: `Diff the table descriptions against the last applied snapshot and print
the DDL that apply would execute. No database connection is needed; key
types resolve from the declared primary keys.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runPlan(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

// tablePlan is one table's planned work, also used for --json output.
type tablePlan struct {
	Table      string                 `json:"table"`
	Action     string                 `json:"action"` // create, update, drop, none
	Statements []cli.PlannedStatement `json:"statements,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// planEnvironment answers diff queries from the snapshot, which stands in
// for the physical pre-apply state: collision checks must see the columns
// that exist now, not the ones the plan is about to create. Tables this run
// creates still count as relation targets, with their declared key types.
type planEnvironment struct {
	snapshot *diff.MetadataEnvironment
	desired  *diff.MetadataEnvironment
}

func (e *planEnvironment) ResolveKeyType(ctx context.Context, table string) (schema.KeyType, error) {
	if ok, _ := e.snapshot.TableExists(ctx, table); ok {
		return e.snapshot.ResolveKeyType(ctx, table)
	}
	return e.desired.ResolveKeyType(ctx, table)
}

func (e *planEnvironment) ListColumns(ctx context.Context, table string) ([]string, error) {
	return e.snapshot.ListColumns(ctx, table)
}

func (e *planEnvironment) TableExists(ctx context.Context, table string) (bool, error) {
	if ok, err := e.snapshot.TableExists(ctx, table); ok || err != nil {
		return ok, err
	}
	return e.desired.TableExists(ctx, table)
}

func buildPlans(ctx context.Context, cfg *Config, desired, snapshot map[string]*schema.TableDescription) ([]tablePlan, error) {
	d, err := dialect.Get(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	env := &planEnvironment{
		snapshot: &diff.MetadataEnvironment{Tables: snapshot},
		desired:  &diff.MetadataEnvironment{Tables: desired},
	}
	// No live catalog to consult: a nil lookup makes the generator assume
	// conventional constraint names.
	gen := sqlgen.New(d, nil)

	var plans []tablePlan
	for _, name := range sortedTableNames(desired) {
		t := desired[name]
		old, known := snapshot[name]
		if !known {
			plans = append(plans, tablePlan{
				Table:  name,
				Action: "create",
			})
			continue
		}

		p := tablePlan{Table: name, Action: "update"}
		sd, err := diff.Diff(ctx, old, t, env)
		if err != nil {
			p.Error = err.Error()
			plans = append(plans, p)
			continue
		}
		if sd.IsEmpty() {
			p.Action = "none"
			plans = append(plans, p)
			continue
		}
		stmts, err := gen.Generate(ctx, sd)
		if err != nil {
			p.Error = err.Error()
			plans = append(plans, p)
			continue
		}
		for _, s := range stmts {
			p.Statements = append(p.Statements, cli.PlannedStatement{SQL: s.SQL, Reverse: s.Reverse})
		}
		plans = append(plans, p)
	}

	for _, name := range sortedTableNames(snapshot) {
		if _, kept := desired[name]; !kept {
			plans = append(plans, tablePlan{Table: name, Action: "drop"})
		}
	}
	return plans, nil
}

func runPlan(ctx context.Context, cfg *Config, out io.Writer) error {
	desired, err := schema.LoadDir(cfg.TablesDir)
	if err != nil {
		return err
	}
	snapshot, err := loadSnapshot(cfg.SnapshotFile)
	if err != nil {
		return err
	}

	plans, err := buildPlans(ctx, cfg, desired, snapshot)
	if err != nil {
		return err
	}

	if cli.Default().IsJSON() {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(plans)
	}

	changes := 0
	for _, p := range plans {
		switch p.Action {
		case "create":
			fmt.Fprintf(out, "%s %s\n", cli.Success("+ create table"), p.Table)
			changes++
		case "drop":
			fmt.Fprintf(out, "%s %s %s\n", cli.Error("- drop table"), p.Table,
				cli.Dim("(apply requires --allow-drop)"))
			changes++
		case "update":
			if p.Error != "" {
				fmt.Fprintf(out, "%s %s: %s\n", cli.Error("! cannot plan"), p.Table, p.Error)
				changes++
				continue
			}
			fmt.Fprint(out, cli.RenderPlan(p.Table, p.Statements))
			changes++
		case "none":
			fmt.Fprintf(out, "%s %s\n", cli.Dim("  unchanged"), cli.Dim(p.Table))
		}
	}

	if changes == 0 {
		fmt.Fprintf(out, "\n%s: everything up to date\n", cli.Success("ok"))
	} else {
		fmt.Fprintf(out, "\n%d change(s) planned; run %s to execute\n", changes, cli.Header("schemasync apply"))
	}
	return nil
}
