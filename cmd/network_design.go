package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/alexiusacademia/gosewer/internal/diagram"
	"github.com/alexiusacademia/gosewer/internal/manhole"
	"github.com/alexiusacademia/gosewer/internal/network"
	"github.com/alexiusacademia/gosewer/internal/report"
	"github.com/alexiusacademia/gosewer/internal/workbook"
	"github.com/spf13/cobra"
)

var (
	designFile        string
	designJSON        bool
	designPDF         string
	designXLSX        string
	designProfile     string
	designShowDiagram bool
	designRun         []string
	designProject     string
	designAuthor      string
)

var networkDesignCmd = &cobra.Command{
	Use:   "design",
	Short: "Design a sewer network",
	Long: `Order the reaches upstream to downstream, compute Rational Method flows,
size each pipe, set inverts and cover, and summarise cost and materials.

Reaches with a diameter or slope already given keep it and are only
checked. Reaches that fail a check are flagged but never stop the run.

Examples:
  gosewer network design --file network.json
  gosewer network design -f network.xlsx --pdf report.pdf --xlsx results.xlsx
  gosewer network design -f network.json --diagram --profile profile.png
  gosewer network design -f network.json --run R1,R3 --diagram`,
	Run: runNetworkDesign,
}

var networkTemplateCmd = &cobra.Command{
	Use:   "template <file.xlsx>",
	Short: "Write an empty request workbook",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Create(args[0])
		if err != nil {
			fmt.Printf("Error creating template: %v\n", err)
			return
		}
		defer f.Close()
		req := &network.Request{ReturnPeriodYears: 10}
		if err := workbook.WriteRequest(f, req); err != nil {
			fmt.Printf("Error writing template: %v\n", err)
			return
		}
		fmt.Printf("Template written to: %s\n", args[0])
	},
}

func init() {
	networkCmd.AddCommand(networkDesignCmd)
	networkCmd.AddCommand(networkTemplateCmd)

	networkDesignCmd.Flags().StringVarP(&designFile, "file", "f", "", "Path to request file (.json or .xlsx) [required]")
	networkDesignCmd.MarkFlagRequired("file")

	// Output options
	networkDesignCmd.Flags().BoolVar(&designJSON, "json", false, "Print the design result as JSON")
	networkDesignCmd.Flags().StringVar(&designPDF, "pdf", "", "Write a PDF report to this file")
	networkDesignCmd.Flags().StringVar(&designXLSX, "xlsx", "", "Write the results workbook to this file")
	networkDesignCmd.Flags().StringVarP(&designProfile, "profile", "o", "", "Export the longitudinal profile (png, svg, pdf)")
	networkDesignCmd.Flags().BoolVar(&designShowDiagram, "diagram", false, "Show ASCII longitudinal profile")
	networkDesignCmd.Flags().StringSliceVar(&designRun, "run", nil, "Reach ids of the profile run, upstream first (default: longest run)")
	networkDesignCmd.Flags().StringVar(&designProject, "project", "", "Project name for the PDF report")
	networkDesignCmd.Flags().StringVar(&designAuthor, "author", "", "Author for the PDF report")
}

func loadRequest(path string) (*network.Request, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return workbook.ReadRequest(f)
	}
	return network.LoadFromFile(path)
}

func runNetworkDesign(cmd *cobra.Command, args []string) {
	req, err := loadRequest(designFile)
	if err != nil {
		fmt.Printf("Error loading network: %v\n", err)
		return
	}

	res, err := network.Design(*req)
	if err != nil {
		fmt.Printf("Error designing network: %v\n", err)
		return
	}

	var profile *manhole.Profile
	if designShowDiagram || designProfile != "" || designPDF != "" || len(designRun) > 0 {
		profile, err = manhole.Layout(res, manhole.Options{Reaches: designRun})
		if err != nil {
			fmt.Printf("Error laying out manholes: %v\n", err)
		}
	}

	if designJSON {
		printJSON(res)
	} else {
		printDesign(res, profile)
	}

	if designShowDiagram && profile != nil {
		fmt.Println("LONGITUDINAL PROFILE:")
		fmt.Println("───────────────────────────────────────────────────────────────")
		fmt.Println(diagram.DrawASCIIProfile(profile, 60, 12))
	}

	if designProfile != "" && profile != nil {
		if err := diagram.ExportProfile(profile, res.Name, designProfile); err != nil {
			fmt.Printf("Error exporting profile: %v\n", err)
		} else {
			fmt.Printf("Profile exported to: %s\n", designProfile)
		}
	}

	if designPDF != "" {
		err := writeFile(designPDF, func(f *os.File) error {
			return report.WritePDF(f, res.Name, res, report.Options{
				Project: designProject,
				Author:  designAuthor,
				Profile: profile,
			})
		})
		if err != nil {
			fmt.Printf("Error writing PDF report: %v\n", err)
		} else {
			fmt.Printf("PDF report written to: %s\n", designPDF)
		}
	}

	if designXLSX != "" {
		err := writeFile(designXLSX, func(f *os.File) error {
			return workbook.WriteResult(f, res)
		})
		if err != nil {
			fmt.Printf("Error writing workbook: %v\n", err)
		} else {
			fmt.Printf("Workbook written to: %s\n", designXLSX)
		}
	}
}

func printDesign(res *network.DesignResult, profile *manhole.Profile) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("     %s SEWER NETWORK DESIGN\n", upper(string(res.SewerType)))
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()
	if res.Name != "" {
		fmt.Printf("  Network: %s\n", res.Name)
		fmt.Println()
	}

	fmt.Println("HYDROLOGY:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Reach\tA (ha)\tC\tTc (min)\ti (mm/h)\tQlocal (L/s)\tQ (L/s)\n")
	fmt.Fprintf(w, "  ─────\t──────\t─\t────────\t────────\t────────────\t───────\n")
	for _, rr := range res.Reaches {
		fmt.Fprintf(w, "  %s\t%.3f\t%.2f\t%.1f\t%.1f\t%.2f\t%.2f\n",
			rr.ReachID, rr.AreaHa, rr.RunoffCoefficient, rr.TimeOfConcentrationMin,
			rr.IntensityMMH, rr.LocalFlowLPS, rr.CumulativeFlowLPS)
	}
	w.Flush()
	fmt.Println()

	fmt.Println("PIPES:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Reach\tFrom-To\tL (m)\tD (mm)\tSlope\tV (m/s)\ty/D\tCover (m)\tStatus\n")
	fmt.Fprintf(w, "  ─────\t───────\t─────\t──────\t─────\t───────\t───\t─────────\t──────\n")
	for _, rr := range res.Reaches {
		v, fill := "-", "-"
		if h := rr.Hydraulics; h != nil && h.Valid() {
			v = fmt.Sprintf("%.2f", h.VelocityMS)
			fill = fmt.Sprintf("%.2f", h.FillRatio)
		}
		d := fmt.Sprintf("%.0f", rr.DiameterMM)
		if rr.DiameterDesigned {
			d += "*"
		}
		cover := rr.UpstreamCoverM
		if rr.DownstreamCoverM < cover {
			cover = rr.DownstreamCoverM
		}
		fmt.Fprintf(w, "  %s\t%s-%s\t%.1f\t%s\t%.4f\t%s\t%s\t%.2f\t%s\n",
			rr.ReachID, rr.From, rr.To, rr.LengthM, d, rr.Slope, v, fill, cover, check(rr.Adequate))
	}
	w.Flush()
	fmt.Println("  * designed diameter")
	fmt.Println()

	fmt.Println("SUMMARY:")
	fmt.Println("───────────────────────────────────────────────────────────────")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Processing order:\t%s\n", strings.Join(res.Order, " → "))
	fmt.Fprintf(w, "  Total length:\t%.1f m\n", res.TotalLengthM)
	fmt.Fprintf(w, "  Drained area:\t%.3f ha\n", res.TotalAreaHa)
	fmt.Fprintf(w, "  Outlet flow:\t%.2f L/s\n", res.OutletFlowLPS)
	fmt.Fprintf(w, "  Complete:\t%s\n", check(res.Complete))
	if bad := res.InadequateReaches(); len(bad) > 0 {
		fmt.Fprintf(w, "  Needs review:\t%s\n", strings.Join(bad, ", "))
	}
	w.Flush()
	fmt.Println()

	if c := res.Cost; c != nil {
		fmt.Println("COST ESTIMATE:")
		fmt.Println("───────────────────────────────────────────────────────────────")
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  Material\tD (mm)\tReaches\tLength (m)\tPipe cost\n")
		fmt.Fprintf(w, "  ────────\t──────\t───────\t──────────\t─────────\n")
		for _, m := range c.Materials {
			fmt.Fprintf(w, "  %s\t%.0f\t%d\t%.1f\t%.2f\n", m.Material, m.DiameterMM, m.Reaches, m.LengthM, m.PipeCost)
		}
		w.Flush()
		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  Pipe:\t%s %.2f\n", c.Currency, c.PipeCost)
		fmt.Fprintf(w, "  Excavation (%.1f m³):\t%s %.2f\n", c.ExcavationM3, c.Currency, c.ExcavationCost)
		fmt.Fprintf(w, "  Manholes (%d):\t%s %.2f\n", c.Structures.Manholes, c.Currency, c.ManholeCost)
		fmt.Fprintf(w, "  Inlets (%d):\t%s %.2f\n", c.Structures.Inlets, c.Currency, c.InletCost)
		fmt.Fprintf(w, "  Per hectare:\t%s %.2f\n", c.Currency, c.PerHectare)
		w.Flush()
		fmt.Println()

		fmt.Println(diagram.DrawSummaryBox("TOTAL COST", []string{
			fmt.Sprintf("%s %.2f", c.Currency, c.Total),
		}))
	}

	if profile != nil {
		fmt.Println("MANHOLES:")
		fmt.Println("───────────────────────────────────────────────────────────────")
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  ID\tChainage (m)\tGround (m)\tInvert out (m)\tDrop (m)\tDepth (m)\n")
		fmt.Fprintf(w, "  ──\t────────────\t──────────\t──────────────\t────────\t─────────\n")
		for _, s := range profile.Structures {
			fmt.Fprintf(w, "  %s\t%.1f\t%.2f\t%.3f\t%.3f\t%.2f\n",
				s.ID, s.ChainageM, s.GroundM, s.InvertOutM, s.DropM, s.DepthM)
		}
		w.Flush()
		fmt.Println()
		printWarnings(profile.Warnings)
	}

	printWarnings(res.Warnings)
	for _, rr := range res.Reaches {
		if len(rr.Issues.Warnings) == 0 && len(rr.Issues.Errors) == 0 {
			continue
		}
		fmt.Printf("REACH %s:\n", rr.ReachID)
		for _, e := range rr.Issues.Errors {
			fmt.Printf("  ✗ %v\n", e)
		}
		for _, wn := range rr.Issues.Warnings {
			fmt.Printf("  ⚠ %s\n", wn)
		}
		fmt.Println()
	}
}

// writeFile creates path and its directory and hands the file to fn.
func writeFile(path string, fn func(*os.File) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
