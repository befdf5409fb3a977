package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	districtsByRisk bool
	districtsJSON   bool
)

var districtsCmd = &cobra.Command{
	Use:   "districts",
	Short: "List reference districts and their baseline indicators",
	RunE: func(cmd *cobra.Command, _ []string) error {
		engine, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}

		ds := engine.Dataset()
		districts := ds.Districts()
		if districtsByRisk {
			districts = ds.SortedByRisk()
		}
		if districtsJSON {
			return writeJSON(os.Stdout, districts)
		}
		formatDistricts(os.Stdout, districts)
		return nil
	},
}

var districtsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show population and weighted averages across districts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		engine, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}

		sum := engine.Dataset().Summary()
		if districtsJSON {
			return writeJSON(os.Stdout, sum)
		}
		formatSummary(os.Stdout, sum)
		return nil
	},
}

func init() {
	districtsCmd.Flags().BoolVar(&districtsByRisk, "by-risk", false, "sort by risk level, highest first")
	districtsCmd.PersistentFlags().BoolVar(&districtsJSON, "json", false, "output JSON")
	districtsCmd.AddCommand(districtsSummaryCmd)
	rootCmd.AddCommand(districtsCmd)
}
