package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/listeverything/finder/internal/filter"
)

// newCatalogCmd creates the catalog subcommand.
func newCatalogCmd() *cobra.Command {
	var advanced bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the predicate menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := filter.Default()
			for _, e := range c.ListSelectable(advanced) {
				if e.Kind != nil {
					fmt.Printf("%-20s %s\n", e.Kind.ID, e.Kind.Label)
					continue
				}
				fmt.Printf("%-20s %s\n", e.Category.ID, e.Category.Label)
				for _, k := range c.CategoryKinds(e.Category.ID, advanced) {
					fmt.Printf("  %-18s %s\n", k.ID, k.Label)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&advanced, "advanced", false, "include developer-only kinds")
	return cmd
}
