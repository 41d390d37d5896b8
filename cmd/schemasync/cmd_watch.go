package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/enfyra/server-sub005/internal/cli"
)

// watchCmd re-plans (or re-applies) whenever a description file changes.
func watchCmd() *cobra.Command {
	var apply, allowDrop bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-plan on table description changes",
		Long: `Watch the table description directory and re-run plan whenever a file
changes. With --apply each change is synced to the database immediately,
which is meant for local development only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), cfg, apply, allowDrop, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Apply changes instead of planning them")
	cmd.Flags().BoolVar(&allowDrop, "allow-drop", false, "With --apply, drop tables whose descriptions were removed")
	return cmd
}

func runWatch(parent context.Context, cfg *Config, apply, allowDrop bool, out io.Writer) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("file watcher failed: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(cfg.TablesDir); err != nil {
		return fmt.Errorf("cannot watch %s: %w", cfg.TablesDir, err)
	}
	fmt.Fprintf(out, "%s %s\n", cli.Info("watching"), cfg.TablesDir)

	run := func() {
		var err error
		if apply {
			err = runApply(ctx, cfg, allowDrop, out)
		} else {
			err = runPlan(ctx, cfg, out)
		}
		if err != nil {
			fmt.Fprint(os.Stderr, cli.FormatError(err))
		}
	}
	run()

	// Editors fire bursts of events per save; coalesce them.
	const debounce = 300 * time.Millisecond
	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isDescriptionFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "%s %v\n", cli.Warning("watch error:"), err)

		case <-pending:
			fmt.Fprintf(out, "\n%s\n", cli.Dim("description change detected"))
			run()
		}
	}
}

func isDescriptionFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
