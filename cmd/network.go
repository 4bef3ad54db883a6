package cmd

import (
	"github.com/spf13/cobra"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Whole-network design",
	Long: `Design a storm or sanitary sewer network defined in a JSON file or an
XLSX workbook.

Subcommands:
  design    - Size every reach, accumulate flows and price the network
  template  - Write an empty request workbook

Example JSON file structure:
{
  "name": "Block 4",
  "sewer_type": "storm",
  "return_period_years": 10,
  "idf": {"a0": 600, "k": 0.18, "b": 12, "c": 0.78},
  "subareas": [
    {"id": "S1", "area_ha": 2.0, "runoff_coefficient": 0.7, "inlet_id": "A", "time_of_entry_min": 10}
  ],
  "nodes": [
    {"id": "A", "kind": "inlet", "ground_elevation_m": 101},
    {"id": "B", "kind": "outfall", "ground_elevation_m": 100}
  ],
  "reaches": [
    {"id": "R1", "from": "A", "to": "B", "length_m": 100}
  ]
}`,
}

func init() {
	rootCmd.AddCommand(networkCmd)
}
