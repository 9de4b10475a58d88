package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-radar/internal/domain"
)

type viewFlags struct {
	lat, lon float64
	zoom     int
	width    int
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "Center latitude")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "Center longitude")
	cmd.Flags().IntVarP(&f.zoom, "zoom", "z", 7, "Web Mercator zoom level")
	cmd.Flags().IntVarP(&f.width, "width", "w", 320, "Canvas width in pixels (height is 3/4 of it)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
}

func (f *viewFlags) view() (domain.MapView, error) {
	if f.zoom < 0 || f.zoom > 18 {
		return domain.MapView{}, fmt.Errorf("zoom %d out of range [0, 18]", f.zoom)
	}
	if f.width < 4 {
		return domain.MapView{}, fmt.Errorf("width %d too small", f.width)
	}
	return domain.NewMapView(domain.GeoPoint{Lon: f.lon, Lat: f.lat}, f.zoom, f.width, f.width*3/4), nil
}

func newProjectCmd() *cobra.Command {
	var flags viewFlags

	cmd := &cobra.Command{
		Use:     "project [LAT,LON...]",
		Short:   "Print a map view's extent and project points into it",
		Example: `  radarctl project --lat 40.52 --lon -74.41 --zoom 7 40.7,-74.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := flags.view()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ext := view.Extent()
			size := view.Size()
			fmt.Fprintf(out, "size:   %dx%d\n", size.X, size.Y)
			fmt.Fprintf(out, "extent: %.6f,%.6f,%.6f,%.6f\n", ext.MinLon, ext.MinLat, ext.MaxLon, ext.MaxLat)

			for _, arg := range args {
				p, err := parseLatLon(arg)
				if err != nil {
					return err
				}
				x, y := view.Project(p)
				fmt.Fprintf(out, "%s -> %.2f,%.2f\n", arg, x, y)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func parseLatLon(s string) (domain.GeoPoint, error) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return domain.GeoPoint{}, fmt.Errorf("point %q: want LAT,LON", s)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("point %q: %w", s, err)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("point %q: %w", s, err)
	}
	return domain.GeoPoint{Lon: lo, Lat: la}, nil
}
