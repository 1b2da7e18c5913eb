package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/listeverything/finder/internal/conf"
	"github.com/listeverything/finder/internal/datastore"
	"github.com/listeverything/finder/internal/datastore/repository"
	"github.com/listeverything/finder/internal/filter"
	"github.com/listeverything/finder/internal/logger"
	"github.com/listeverything/finder/internal/searches"
	"github.com/listeverything/finder/internal/world"
)

// newEvalCmd creates the eval subcommand.
func newEvalCmd() *cobra.Command {
	var (
		mapKey string
		saved  string
		save   string
		force  bool
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "eval [tree-file]",
		Short: "Evaluate a filter against a map",
		Long: `Evaluate a filter tree read from a file, or a saved search with --saved.
With --follow the filter is re-evaluated every refresh.period_ticks until
interrupted, which requires refresh.continuous.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			log, closer, err := newLogger(settings)
			if err != nil {
				return err
			}
			defer closer.Close()

			w, err := openWorld(settings)
			if err != nil {
				return err
			}
			worldCtx := w.Current()
			if mapKey != "" {
				var ok bool
				if worldCtx, ok = w.Context(mapKey); !ok {
					return fmt.Errorf("map %q not found", mapKey)
				}
			}
			if worldCtx == nil {
				return fmt.Errorf("world has no maps")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tree, err := resolveEvalTree(ctx, settings, log, args, saved, save, force, worldCtx)
			if err != nil {
				return err
			}

			ev := filter.NewEvaluator(world.Sources(), log)
			ev.GodMode = settings.GodMode

			if !follow {
				return printResults(ev.Evaluate(tree, worldCtx))
			}
			if !settings.Refresh.Continuous {
				return fmt.Errorf("--follow requires refresh.continuous")
			}
			interval := conf.DurationFromTicks(settings.Refresh.PeriodTicks).Std()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				if err := printResults(ev.Evaluate(tree, worldCtx)); err != nil {
					return err
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().StringVar(&mapKey, "map", "", "map to evaluate against (default: current)")
	cmd.Flags().StringVar(&saved, "saved", "", "evaluate a saved search instead of a file")
	cmd.Flags().StringVar(&save, "save", "", "store the tree file as a saved search under this name")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing saved search")
	cmd.Flags().BoolVar(&follow, "follow", false, "re-evaluate continuously")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}

// resolveEvalTree returns the tree to evaluate, bound to worldCtx.
func resolveEvalTree(ctx context.Context, settings *conf.Settings, log logger.Logger,
	args []string, saved, save string, force bool, worldCtx filter.Context,
) (*filter.Tree, error) {
	if saved == "" && save == "" {
		if len(args) == 0 {
			return nil, fmt.Errorf("a tree file or --saved is required")
		}
		p, err := readTreeFile(args[0])
		if err != nil {
			return nil, err
		}
		return filter.Clone(decodeTree(p, log), worldCtx, log), nil
	}

	db, err := datastore.Open(settings.Database, debug)
	if err != nil {
		return nil, err
	}
	defer datastore.Close(db)
	lib := searches.NewLibrary(repository.NewSearchRepository(db), nil, log)

	if saved != "" {
		return lib.Load(ctx, saved, worldCtx)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("--save needs a tree file")
	}
	p, err := readTreeFile(args[0])
	if err != nil {
		return nil, err
	}
	tree := decodeTree(p, log)
	if err := lib.Save(ctx, save, tree, force); err != nil {
		return nil, err
	}
	return filter.Clone(tree, worldCtx, log), nil
}

func printResults(results []filter.Entity) error {
	if jsonOutput {
		type row struct {
			ID    string `json:"id"`
			Kind  string `json:"kind"`
			Label string `json:"label"`
		}
		rows := make([]row, len(results))
		for i, e := range results {
			rows[i] = row{ID: e.ID(), Kind: e.KindName(), Label: e.Label()}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	for _, e := range results {
		pos := e.Position()
		fmt.Printf("%-24s %-16s (%d, %d)\n", e.Label(), e.KindName(), pos.X, pos.Z)
	}
	fmt.Printf("%d found\n", len(results))
	return nil
}
