package cmd

import (
	"fmt"
	"os"

	"github.com/alexiusacademia/gosewer/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gosewer",
	Short: "Storm and Sanitary Sewer Network Design Tool",
	Long: `gosewer - Go Sewer Network Designer

A CLI tool for the hydraulic design of gravity storm and sanitary
sewer networks.

This tool helps drainage engineers perform:
  - Partial-flow hydraulics of circular pipes (Manning)
  - Pipe sizing against velocity, fill and self-cleaning criteria
  - Rational Method runoff with IDF curves or station tables
  - Network design with flow accumulation in topological order
  - Manhole layout, longitudinal profiles and cost estimates

Results can be printed, or exported as JSON, PDF and XLSX.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println()
		fmt.Println("  ╔═══════════════════════════════════════════════════════════╗")
		fmt.Println("  ║                                                           ║")
		fmt.Printf("  ║   gosewer v%-47s║\n", version.Version)
		fmt.Println("  ║   Go Sewer Network Designer                               ║")
		fmt.Println("  ║                                                           ║")
		fmt.Println("  ╚═══════════════════════════════════════════════════════════╝")
		fmt.Println()
		fmt.Println("  A CLI tool for the hydraulic design of storm and sanitary")
		fmt.Println("  sewer networks.")
		fmt.Println()
		fmt.Println("  Features:")
		fmt.Println("    • Partial-flow pipe hydraulics and regime classification")
		fmt.Println("    • Smallest viable standard diameter selection")
		fmt.Println("    • Rational Method peak flows from IDF curves")
		fmt.Println("    • Whole-network design with cost and material summary")
		fmt.Println("    • HTTP API server")
		fmt.Println()
		fmt.Println("  Use 'gosewer --help' to see available commands.")
		fmt.Println()
		fmt.Println("  ─────────────────────────────────────────────────────────────")
		fmt.Printf("  Copyright © %s %s. All rights reserved.\n", version.Year, version.Author)
		fmt.Println()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
