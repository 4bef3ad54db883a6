package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/alexiusacademia/gosewer/internal/standards"
	"github.com/spf13/cobra"
)

var (
	slopeFrom string
	slopeTo   string
)

var slopeCmd = &cobra.Command{
	Use:   "slope",
	Short: "Slope unit conversion",
}

var slopeConvertCmd = &cobra.Command{
	Use:   "convert <value>",
	Short: "Convert a slope between ratio, percent, permille and degrees",
	Long: `Convert a slope between units. Without --to every unit is printed.

Examples:
  gosewer slope convert 0.5 --from percent
  gosewer slope convert 2 --from degrees --to ratio`,
	Args: cobra.ExactArgs(1),
	Run:  runSlopeConvert,
}

func init() {
	rootCmd.AddCommand(slopeCmd)
	slopeCmd.AddCommand(slopeConvertCmd)

	slopeConvertCmd.Flags().StringVar(&slopeFrom, "from", "ratio", "Unit of the value")
	slopeConvertCmd.Flags().StringVar(&slopeTo, "to", "", "Target unit (default: all)")
}

func runSlopeConvert(cmd *cobra.Command, args []string) {
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Printf("Error: invalid slope %q\n", args[0])
		return
	}
	from, err := standards.ParseSlopeUnit(slopeFrom)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	targets := []standards.SlopeUnit{standards.Ratio, standards.Percent, standards.Permille, standards.Degrees}
	if slopeTo != "" {
		to, err := standards.ParseSlopeUnit(slopeTo)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		targets = []standards.SlopeUnit{to}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, to := range targets {
		out, err := standards.ConvertSlope(v, from, to)
		if err != nil {
			w.Flush()
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Fprintf(w, "  %s:\t%.6g\n", to, out)
	}
	w.Flush()
}
