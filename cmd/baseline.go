package main

import (
	"os"

	"github.com/spf13/cobra"
)

var baselineJSON bool

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Show the baseline snapshot with no interventions placed",
	RunE: func(cmd *cobra.Command, _ []string) error {
		engine, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}

		snap := engine.Baseline()
		if baselineJSON {
			return writeJSON(os.Stdout, snap)
		}
		formatSnapshot(os.Stdout, snap)
		return nil
	},
}

func init() {
	baselineCmd.Flags().BoolVar(&baselineJSON, "json", false, "output JSON")
	rootCmd.AddCommand(baselineCmd)
}
