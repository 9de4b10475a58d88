// Command radarctl is the offline companion of the radar service: it
// classifies alert kinds, inspects map projections and renders status or
// radar frames from local files.
package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "radarctl",
		Short:         "Inspect and render weather radar frames offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newClassifyCmd(),
		newProjectCmd(),
		newStatusCmd(),
		newRenderCmd(),
	)
	return rootCmd
}
