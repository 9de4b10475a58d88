package main

import (
	"fmt"
	"image"
	"strings"

	"github.com/fogleman/gg"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-radar/internal/render"
)

func newStatusCmd() *cobra.Command {
	var (
		output     string
		width      int
		background string
		fontPath   string
		border     bool
	)

	cmd := &cobra.Command{
		Use:     "status MESSAGE",
		Short:   "Render a status frame to PNG",
		Example: `  radarctl status "Refreshing" -o status.png --border`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size := image.Pt(width, width*3/4)
			fonts, err := render.LoadFonts(fontPath)
			if err != nil {
				return err
			}

			var bg image.Image
			if background != "" {
				if bg, err = render.LoadOverlay(background, size); err != nil {
					return err
				}
			}

			message := strings.ReplaceAll(strings.Join(args, " "), `\n`, "\n")
			img := render.RenderStatus(message, bg, render.StatusStyle{
				Size:    size,
				Face:    fonts.Bold,
				Border:  border,
				Overlay: render.Vignette(size),
			})
			if err := gg.SavePNG(output, img); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "status.png", "Output PNG file path")
	cmd.Flags().IntVarP(&width, "width", "w", 320, "Canvas width in pixels")
	cmd.Flags().StringVar(&background, "background", "", "Background PNG of the canvas size")
	cmd.Flags().StringVar(&fontPath, "font", "", "TrueType font file")
	cmd.Flags().BoolVar(&border, "border", false, "Draw the round frame overlay")
	return cmd
}
