package cmd

import (
	"fmt"

	"github.com/alexiusacademia/gosewer/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of gosewer",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gosewer v%s\n", version.Version)
		fmt.Println("Storm and Sanitary Sewer Network Design Tool")
		fmt.Printf("Build: %s (%s)\n", version.BuildTime, version.GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
