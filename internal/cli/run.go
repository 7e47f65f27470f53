package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sealevel/pkg/pipeline"
)

// runCommand creates the run command that renders both animations.
func (c *CLI) runCommand() *cobra.Command {
	var (
		flags      gridFlags
		out        string
		only       string
		noManifest bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Render the flood frames and animations",
		Long: `Run loads the elevation grid, floods it at every sea level, writes one
2D map frame and one 3D terrain frame per level and assembles each series
into a looping GIF.

Without flags it renders the Hakodate study area from n41_e140_1arc_v3.tif
at 0 to 85 m in 5 m steps.`,
		Example: `  sealevel run
  sealevel run --dem N41E140.hgt --bbox 140.6,41.73,140.85,41.92 --levels 0:40:2
  sealevel run --config hakodate.toml --only 2d --out build`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				cfg.OutDir = out
			}
			if only != "" {
				cfg.Modes = []string{only}
			}
			if noManifest {
				cfg.Manifest = ""
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return c.run(cmd, cfg)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "directory for frames, animations and manifest")
	cmd.Flags().StringVar(&only, "only", "", "render a single mode: 2d or 3d")
	cmd.Flags().BoolVar(&noManifest, "no-manifest", false, "do not write the JSON run manifest")

	return cmd
}

func (c *CLI) run(cmd *cobra.Command, cfg pipeline.Config) error {
	ctx := cmd.Context()
	runner, err := c.newRunner(ctx, cacheOptsFor(cfg))
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Loading elevation grid...")
	runner.Progress = func(mode string, done, total int) {
		spinner.SetMessage(fmt.Sprintf("Rendered %s frame %d/%d...", mode, done, total))
	}
	spinner.Start()

	res, err := runner.Execute(ctx, cfg)
	if err != nil {
		spinner.StopWithError("Run failed")
		return err
	}
	spinner.Stop()

	printRunResult(res)
	return nil
}

func printRunResult(res *pipeline.Result) {
	first, last := res.Levels[0], res.Levels[len(res.Levels)-1]
	printSuccess("Flooded %d levels from %g m to %g m", len(res.Levels), first, last)
	printStats(res.Rows, res.Cols, res.ValidCells, res.CacheInfo.GridHit)
	printKeyValue("Elevation", fmt.Sprintf("%.1f m to %.1f m", res.ZMin, res.ZMax))
	printNewline()

	if res.Anim2D != "" {
		printFile(res.Anim2D)
		printDetail("%d frames in %s (%s)", len(res.Frames2D), filepath.Dir(res.Frames2D[0].Path), res.Timings.Render2D.Round(time.Millisecond))
	}
	if res.Anim3D != "" {
		printFile(res.Anim3D)
		printDetail("%d frames in %s (%s)", len(res.Frames3D), filepath.Dir(res.Frames3D[0].Path), res.Timings.Render3D.Round(time.Millisecond))
	}
	if res.Manifest != "" {
		printFile(res.Manifest)
	}
	printNewline()
	printNextStep("Flooded area per level", appName+" levels")
}
