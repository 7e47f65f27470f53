package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sealevel/pkg/dem"
)

// infoCommand creates the info command that describes a raster.
func (c *CLI) infoCommand() *cobra.Command {
	var (
		bbox     string
		keepZero bool
	)

	cmd := &cobra.Command{
		Use:   "info <dem>",
		Short: "Describe an elevation raster",
		Long: `Info prints the size, georeferencing and nodata value of an elevation
raster. With --bbox it also loads that window and reports its valid cells
and elevation range.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := dem.Open(args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			printRasterInfo(args[0], src.Info())
			if bbox == "" {
				return nil
			}

			b, err := parseBBox(bbox)
			if err != nil {
				return err
			}
			prog := newProgress(loggerFromContext(cmd.Context()))
			g, err := dem.Load(src, b, dem.LoadOptions{ZeroIsNoData: !keepZero})
			if err != nil {
				return err
			}
			prog.done("Loaded window " + b.String())

			rows, cols := g.Dims()
			lo, hi, _ := g.ValidRange()
			printNewline()
			fmt.Println(StyleTitle.Render("Window"))
			printKeyValue("Cells", fmt.Sprintf("%d × %d", cols, rows))
			printKeyValue("Valid", fmt.Sprintf("%d (%.1f%%)", g.ValidCount(), 100*float64(g.ValidCount())/float64(rows*cols)))
			printKeyValue("Elevation", fmt.Sprintf("%.1f m to %.1f m", lo, hi))
			return nil
		},
	}

	cmd.Flags().StringVar(&bbox, "bbox", "", "also load this west,south,east,north window")
	cmd.Flags().BoolVar(&keepZero, "keep-zero", false, "keep zero elevations instead of treating them as nodata")

	return cmd
}

func printRasterInfo(path string, info dem.Info) {
	ext := info.Transform.Bounds(info.Width, info.Height)

	fmt.Println(StyleTitle.Render("Raster"))
	printKeyValue("File", path)
	printKeyValue("Format", info.Format)
	printKeyValue("Size", fmt.Sprintf("%d × %d px", info.Width, info.Height))
	printKeyValue("Pixel", fmt.Sprintf("%.8f° × %.8f°", info.Transform[1], -info.Transform[5]))
	printKeyValue("Longitude", fmt.Sprintf("%.6f to %.6f", ext.MinLon, ext.MaxLon))
	printKeyValue("Latitude", fmt.Sprintf("%.6f to %.6f", ext.MinLat, ext.MaxLat))
	if info.HasNoData {
		printKeyValue("NoData", fmt.Sprintf("%g", info.NoData))
	} else {
		printKeyValue("NoData", "none")
	}
	if info.Transform.Rotated() {
		printWarning("Raster is rotated; windows cannot be read from it")
	}
}
