// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/catalog-aggregator/internal/report"
)

var showCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "Print a saved aggregation result",
	Long: `Show reads a result file written by "search --save" and prints it in
the same formats search supports. No source is contacted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := report.ReadResultFile(args[0])
		if err != nil {
			return err
		}
		return writeResult(cmd, *res, os.Stdout)
	},
}

func init() {
	addOutputFlags(showCmd)
	rootCmd.AddCommand(showCmd)
}
