package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/listeverything/finder/internal/logger"
)

// newShowCmd creates the show subcommand.
func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <tree-file>",
		Short: "Print a filter tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readTreeFile(args[0])
			if err != nil {
				return err
			}
			fmt.Print(renderTree(decodeTree(p, logger.NewNop())))
			return nil
		},
	}
}
