package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alexiusacademia/gosewer/internal/rainfall"
	"github.com/alexiusacademia/gosewer/internal/sizing"
	"github.com/spf13/cobra"
)

var (
	sizeMaterial    string
	sizeFlow        float64
	sizeSewer       string
	sizeSlope       float64
	sizeSlopeUnit   string
	sizeMinSlope    float64
	sizeMaxDiameter float64

	// Rational Method inputs when no flow is given
	sizeArea      float64
	sizeRunoff    float64
	sizeIntensity float64

	sizeShowAll bool
	sizeJSON    bool
)

var pipeSizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Find the smallest standard diameter for a flow",
	Long: `Search the standard diameters of the sewer type in ascending order and
return the first one whose design-fill velocity, fill and capacity satisfy
the criteria.

Without --slope each diameter runs at its tabulated minimum slope (raised
to --min-slope when given). The flow can be given directly or computed
with the Rational Method Q = C·i·A·2.78.

Examples:
  gosewer pipe size --flow 116.76 --slope 0.01
  gosewer pipe size --area 0.5 --runoff 0.7 --intensity 120 --slope 1 --slope-unit percent
  gosewer pipe size -q 12 --sewer sanitary -m pvc --all`,
	Run: runPipeSize,
}

func init() {
	pipeCmd.AddCommand(pipeSizeCmd)

	pipeSizeCmd.Flags().StringVarP(&sizeMaterial, "material", "m", "concrete", "Pipe material")
	pipeSizeCmd.Flags().Float64VarP(&sizeFlow, "flow", "q", 0, "Design flow (L/s)")
	pipeSizeCmd.Flags().StringVar(&sizeSewer, "sewer", "storm", "Sewer type: storm or sanitary")
	pipeSizeCmd.Flags().Float64VarP(&sizeSlope, "slope", "s", 0, "Fixed operating slope (0 uses the minimum slope per diameter)")
	pipeSizeCmd.Flags().StringVar(&sizeSlopeUnit, "slope-unit", "ratio", "Slope unit: ratio, percent, permille, degrees")
	pipeSizeCmd.Flags().Float64Var(&sizeMinSlope, "min-slope", 0, "Lower bound on the operating slope (m/m)")
	pipeSizeCmd.Flags().Float64Var(&sizeMaxDiameter, "max-diameter", 0, "Largest diameter to consider (mm)")

	pipeSizeCmd.Flags().Float64VarP(&sizeArea, "area", "A", 0, "Catchment area (ha)")
	pipeSizeCmd.Flags().Float64VarP(&sizeRunoff, "runoff", "C", 0, "Runoff coefficient (0 to 1)")
	pipeSizeCmd.Flags().Float64VarP(&sizeIntensity, "intensity", "i", 0, "Rainfall intensity (mm/h)")

	pipeSizeCmd.Flags().BoolVarP(&sizeShowAll, "all", "a", false, "Show every evaluated candidate")
	pipeSizeCmd.Flags().BoolVar(&sizeJSON, "json", false, "Print the recommendation as JSON")
}

func runPipeSize(cmd *cobra.Command, args []string) {
	material, sewer, slope, err := parsePipeFlags(sizeMaterial, sizeSewer, sizeSlope, sizeSlopeUnit)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	flow := sizeFlow
	if flow == 0 && sizeArea > 0 {
		if sizeIntensity <= 0 {
			fmt.Println("Error: --intensity is required with --area")
			return
		}
		flow = rainfall.PeakFlowLPS(sizeRunoff, sizeIntensity, sizeArea)
	}

	rec, err := sizing.Size(flow, material, sewer, sizing.Constraints{
		Slope:         slope,
		MinSlope:      sizeMinSlope,
		MaxDiameterMM: sizeMaxDiameter,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if sizeJSON {
		printJSON(rec)
		return
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("     PIPE SIZING - %s SEWER\n", upper(string(sewer)))
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()

	if sizeArea > 0 && sizeFlow == 0 {
		fmt.Println("RATIONAL METHOD:")
		fmt.Println("───────────────────────────────────────────────────────────────")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  Area (A):\t%.3f ha\n", sizeArea)
		fmt.Fprintf(w, "  Runoff coefficient (C):\t%.2f\n", sizeRunoff)
		fmt.Fprintf(w, "  Intensity (i):\t%.1f mm/h\n", sizeIntensity)
		fmt.Fprintf(w, "  Q = C·i·A·%.2f:\t%.2f L/s\n", rainfall.RationalFactor, flow)
		w.Flush()
		fmt.Println()
	}

	fmt.Println("CANDIDATES:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  D (mm)\tSlope\tV (m/s)\ty/D\tCapacity (L/s)\tStatus\n")
	fmt.Fprintf(w, "  ──────\t─────\t───────\t───\t──────────────\t──────\n")
	for _, c := range rec.Candidates {
		if !sizeShowAll && !c.Viable && c.DiameterMM != rec.DiameterMM {
			continue
		}
		status := "✓ viable"
		if !c.Viable {
			status = "✗ " + joinReasons(c.Reasons)
		}
		fmt.Fprintf(w, "  %.0f\t%.4f\t%.2f\t%.2f\t%.2f\t%s\n",
			c.DiameterMM, c.Slope, c.VelocityMS, c.FillRatio, c.CapacityLPS, status)
	}
	w.Flush()
	fmt.Println()

	if !rec.Viable {
		fmt.Println("  ⚠ No standard diameter satisfies every criterion; the largest")
		fmt.Println("    candidate is reported.")
		fmt.Println()
	}
	printWarnings(rec.Issues.Warnings)

	if rec.Result != nil && rec.Result.Valid() {
		fmt.Printf("HYDRAULICS AT %.2f L/s:\n", rec.FlowLPS)
		fmt.Println()
		printHydraulics(rec.Result)
	}
}
