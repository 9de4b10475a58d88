package main

import (
	"fmt"
	"image/color"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-radar/internal/domain"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "classify KIND...",
		Short:   "Show how alert kinds are styled",
		Example: `  radarctl classify "Tornado Warning" "Winter Storm Watch"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tCATEGORY\tTIER\tFILL\tSTROKE\tLABEL")
			for _, kind := range args {
				style := domain.Classify(kind)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					kind,
					domain.Category(kind),
					style.Tier,
					hexColor(style.Fill),
					hexColor(style.Stroke),
					style.Label,
				)
			}
			return w.Flush()
		},
	}
}

func hexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
