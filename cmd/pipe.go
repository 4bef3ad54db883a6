package cmd

import (
	"github.com/spf13/cobra"
)

var pipeCmd = &cobra.Command{
	Use:   "pipe",
	Short: "Single pipe hydraulics and sizing",
	Long: `Evaluate or size a single circular gravity pipe.

Subcommands:
  evaluate  - Partial-flow hydraulics of a given pipe and flow
  size      - Smallest standard diameter that carries a flow

Diameters are in mm, slopes in m/m (or see --slope-unit), flows in L/s.`,
}

func init() {
	rootCmd.AddCommand(pipeCmd)
}
