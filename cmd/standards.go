package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alexiusacademia/gosewer/internal/cost"
	"github.com/alexiusacademia/gosewer/internal/standards"
	"github.com/spf13/cobra"
)

var standardsSewer string

var standardsCmd = &cobra.Command{
	Use:   "standards",
	Short: "Show design criteria, materials and minimum slopes",
	Long: `Print the design envelope of a sewer type: velocity limits, fill
ratios, standard diameters with their minimum slopes and unit costs, and
the Manning roughness of every pipe material.

Examples:
  gosewer standards
  gosewer standards --sewer sanitary`,
	Run: runStandards,
}

func init() {
	rootCmd.AddCommand(standardsCmd)
	standardsCmd.Flags().StringVar(&standardsSewer, "sewer", "storm", "Sewer type: storm or sanitary")
}

func runStandards(cmd *cobra.Command, args []string) {
	sewer, err := standards.ParseSewerType(standardsSewer)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	crit, _ := standards.CriteriaFor(sewer)
	rates := cost.DefaultRates()

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("     DESIGN CRITERIA - %s SEWER\n", upper(string(sewer)))
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()

	fmt.Println("ENVELOPE:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Velocity:\t%.1f to %.1f m/s\n", crit.MinVelocity, crit.MaxVelocity)
	fmt.Fprintf(w, "  Design fill ratio:\t%.2f\n", crit.DesignFillRatio)
	fmt.Fprintf(w, "  Maximum fill ratio:\t%.2f\n", crit.MaxFillRatio)
	fmt.Fprintf(w, "  Self-cleaning shear:\t%.1f Pa\n", standards.MinShearStressPa)
	w.Flush()
	fmt.Println()

	fmt.Println("STANDARD DIAMETERS:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  D (mm)\tMin slope\tUnit cost (%s/m)\n", rates.Currency)
	fmt.Fprintf(w, "  ──────\t─────────\t──────────────\n")
	for _, d := range crit.DiametersMM {
		fmt.Fprintf(w, "  %.0f\t%.4f\t%.2f\n", d, standards.MinSlope(d), rates.UnitCost(standards.Concrete, d))
	}
	w.Flush()
	fmt.Println()

	fmt.Println("MATERIALS:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Material\tManning n\tCost factor\n")
	fmt.Fprintf(w, "  ────────\t─────────\t───────────\n")
	for _, m := range standards.Materials() {
		n, _ := standards.ManningN(m)
		factor, ok := rates.MaterialFactor[m]
		if !ok {
			factor = 1
		}
		fmt.Fprintf(w, "  %s\t%.3f\t%.2f\n", m, n, factor)
	}
	w.Flush()
	fmt.Println()
}
