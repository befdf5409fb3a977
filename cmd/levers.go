package main

import (
	"os"

	"github.com/spf13/cobra"
)

var leversJSON bool

var leversCmd = &cobra.Command{
	Use:   "levers",
	Short: "List intervention levers and their effect rates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		engine, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}

		levers := engine.Dataset().Levers()
		if leversJSON {
			return writeJSON(os.Stdout, levers)
		}
		formatLevers(os.Stdout, levers)
		return nil
	},
}

func init() {
	leversCmd.Flags().BoolVar(&leversJSON, "json", false, "output JSON")
	rootCmd.AddCommand(leversCmd)
}
