package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alexiusacademia/gosewer/internal/diagram"
	"github.com/alexiusacademia/gosewer/internal/hydraulics"
	"github.com/alexiusacademia/gosewer/internal/standards"
	"github.com/spf13/cobra"
)

var (
	evalMaterial  string
	evalDiameter  float64
	evalSlope     float64
	evalSlopeUnit string
	evalFlow      float64
	evalFill      float64
	evalLength    float64
	evalSewer     string
	evalJSON      bool
)

var pipeEvaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compute partial-flow hydraulics of a pipe",
	Long: `Compute velocity, depth, fill ratio, Froude number, shear stress and
the design checks of a circular pipe carrying a given flow.

By default the normal depth is solved for the flow. With --fill the depth
is fixed and the flow at that depth is reported instead.

Examples:
  gosewer pipe evaluate --diameter 400 --slope 0.01 --flow 100
  gosewer pipe evaluate -m pvc -D 300 -s 0.5 --slope-unit percent -q 40
  gosewer pipe evaluate -D 600 -s 0.002 -q 80 --sewer sanitary --json`,
	Run: runPipeEvaluate,
}

func init() {
	pipeCmd.AddCommand(pipeEvaluateCmd)

	pipeEvaluateCmd.Flags().StringVarP(&evalMaterial, "material", "m", "concrete", "Pipe material")
	pipeEvaluateCmd.Flags().Float64VarP(&evalDiameter, "diameter", "D", 0, "Internal diameter (mm) [required]")
	pipeEvaluateCmd.Flags().Float64VarP(&evalSlope, "slope", "s", 0, "Pipe slope [required]")
	pipeEvaluateCmd.Flags().StringVar(&evalSlopeUnit, "slope-unit", "ratio", "Slope unit: ratio, percent, permille, degrees")
	pipeEvaluateCmd.Flags().Float64VarP(&evalFlow, "flow", "q", 0, "Design flow (L/s) [required]")
	pipeEvaluateCmd.Flags().Float64Var(&evalFill, "fill", 0, "Fixed fill ratio y/D (0 solves for it)")
	pipeEvaluateCmd.Flags().Float64VarP(&evalLength, "length", "L", 0, "Pipe length (m), optional")
	pipeEvaluateCmd.Flags().StringVar(&evalSewer, "sewer", "storm", "Sewer type: storm or sanitary")
	pipeEvaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "Print the result as JSON")

	pipeEvaluateCmd.MarkFlagRequired("diameter")
	pipeEvaluateCmd.MarkFlagRequired("slope")
	pipeEvaluateCmd.MarkFlagRequired("flow")
}

func runPipeEvaluate(cmd *cobra.Command, args []string) {
	material, sewer, slope, err := parsePipeFlags(evalMaterial, evalSewer, evalSlope, evalSlopeUnit)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	pipe := hydraulics.PipeSpec{Material: material, DiameterMM: evalDiameter, Slope: slope, LengthM: evalLength}
	res, err := hydraulics.Evaluate(pipe, hydraulics.FlowState{FlowLPS: evalFlow, FillRatio: evalFill}, sewer)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if evalJSON {
		printJSON(res)
		return
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("     PIPE HYDRAULICS - %s SEWER\n", upper(string(sewer)))
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()
	printHydraulics(res)
}

// printHydraulics prints the sections shared by pipe evaluate and pipe size.
func printHydraulics(res *hydraulics.Result) {
	n, _ := standards.ManningN(res.Pipe.Material)

	fmt.Println("PIPE:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Material:\t%s (n = %.3f)\n", res.Pipe.Material, n)
	fmt.Fprintf(w, "  Diameter:\t%.0f mm\n", res.Pipe.DiameterMM)
	fmt.Fprintf(w, "  Slope:\t%.5f m/m (%.3f%%)\n", res.Pipe.Slope, res.Pipe.Slope*100)
	if res.Pipe.LengthM > 0 {
		fmt.Fprintf(w, "  Length:\t%.2f m\n", res.Pipe.LengthM)
	}
	w.Flush()
	fmt.Println()

	fmt.Println("FLOW STATE:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Target flow:\t%.2f L/s\n", res.TargetFlowLPS)
	fmt.Fprintf(w, "  Flow at depth:\t%.2f L/s\n", res.FlowLPS)
	fmt.Fprintf(w, "  Depth (y):\t%.3f m\n", res.DepthM)
	fmt.Fprintf(w, "  Fill ratio (y/D):\t%.3f\n", res.FillRatio)
	fmt.Fprintf(w, "  Velocity:\t%.3f m/s\n", res.VelocityMS)
	fmt.Fprintf(w, "  Flow area:\t%.4f m²\n", res.AreaM2)
	fmt.Fprintf(w, "  Hydraulic radius:\t%.4f m\n", res.HydraulicRadiusM)
	fmt.Fprintf(w, "  Converged:\t%s (%d iterations)\n", check(res.Converged), res.Iterations)
	w.Flush()
	fmt.Println()

	fmt.Println("CAPACITY AND ENERGY:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Full-flow capacity:\t%.2f L/s\n", res.FullFlowLPS)
	fmt.Fprintf(w, "  Full-flow velocity:\t%.3f m/s\n", res.FullVelocityMS)
	fmt.Fprintf(w, "  Capacity used:\t%.1f %%\n", res.CapacityUsedPct)
	fmt.Fprintf(w, "  Froude number:\t%.3f (%s)\n", res.Froude, res.Regime)
	fmt.Fprintf(w, "  Critical depth:\t%.3f m\n", res.CriticalDepthM)
	fmt.Fprintf(w, "  Specific energy:\t%.3f m\n", res.SpecificEnergyM)
	fmt.Fprintf(w, "  Shear stress:\t%.2f Pa\n", res.ShearStressPa)
	w.Flush()
	fmt.Println()

	fmt.Println("CHECKS:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Velocity envelope:\t%s\n", check(res.VelocityOK))
	fmt.Fprintf(w, "  Slope ≥ %.4f:\t%s\n", res.MinSlope, check(res.SlopeOK))
	fmt.Fprintf(w, "  Self-cleaning (τ ≥ %.1f Pa):\t%s\n", standards.MinShearStressPa, check(res.SelfCleaning))
	w.Flush()
	fmt.Println()

	printWarnings(res.Issues.Warnings)

	fmt.Println(diagram.DrawSummaryBox("RESULT", []string{
		fmt.Sprintf("D = %.0f mm at S = %.4f", res.Pipe.DiameterMM, res.Pipe.Slope),
		fmt.Sprintf("V = %.2f m/s, y/D = %.2f", res.VelocityMS, res.FillRatio),
		fmt.Sprintf("Q/Qfull = %.1f %%", res.CapacityUsedPct),
	}))
}

func parsePipeFlags(material, sewer string, slope float64, unit string) (standards.Material, standards.SewerType, float64, error) {
	m, err := standards.ParseMaterial(material)
	if err != nil {
		return "", "", 0, err
	}
	t, err := standards.ParseSewerType(sewer)
	if err != nil {
		return "", "", 0, err
	}
	u, err := standards.ParseSlopeUnit(unit)
	if err != nil {
		return "", "", 0, err
	}
	s, err := standards.ToRatio(slope, u)
	if err != nil {
		return "", "", 0, err
	}
	return m, t, s, nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Printf("Error encoding JSON: %v\n", err)
	}
}
