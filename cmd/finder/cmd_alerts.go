package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/listeverything/finder/internal/datastore"
	"github.com/listeverything/finder/internal/datastore/repository"
)

// newAlertsCmd creates the alerts subcommand.
func newAlertsCmd() *cobra.Command {
	var (
		historyLimit int
		clear        bool
	)
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List stored alerts and recent firings",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			db, err := datastore.Open(settings.Database, debug)
			if err != nil {
				return err
			}
			defer datastore.Close(db)

			repo := repository.NewAlertRepository(db)
			ctx := cmd.Context()

			if clear {
				n, err := repo.DeleteHistory(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%d history entries deleted\n", n)
				return nil
			}

			alerts, err := repo.ListAlerts(ctx, repository.AlertFilter{})
			if err != nil {
				return err
			}
			history, _, err := repo.ListHistory(ctx, repository.AlertHistoryFilter{Limit: historyLimit})
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"alerts": alerts, "history": history})
			}

			fmt.Println("Alerts:")
			for i := range alerts {
				a := &alerts[i]
				scope := a.ContextKey
				if scope == "" {
					scope = "all maps"
				}
				fmt.Printf("  %-24s %-12s %-8s %-8s threshold=%d sustain=%d\n",
					a.Name, scope, a.Priority, a.State, a.Threshold, a.SustainTicks)
			}
			fmt.Println("History:")
			for i := range history {
				h := &history[i]
				fmt.Printf("  %s  %-24s %-12s %d\n",
					h.FiredAt.Format("2006-01-02 15:04:05"), h.AlertName, h.ContextKey, h.Count)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&historyLimit, "history", 20, "number of history entries to show")
	cmd.Flags().BoolVar(&clear, "clear-history", false, "delete all alert history")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}
