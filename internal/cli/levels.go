package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sealevel/pkg/flood"
)

// barWidth is the width of the flooded-share bar in the levels table.
const barWidth = 24

// levelsCommand creates the levels command that tabulates flooded area
// without rendering.
func (c *CLI) levelsCommand() *cobra.Command {
	var flags gridFlags

	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Show how much of the area floods at each level",
		Long: `Levels loads the elevation grid (from the cache when possible) and prints
the number and share of valid cells at or below every sea level of the
sweep. Nothing is rendered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			levels, err := flood.Levels(cfg.Levels)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, cacheOptsFor(cfg))
			if err != nil {
				return err
			}
			defer runner.Close()

			spinner := newSpinnerWithContext(ctx, "Loading elevation grid...")
			spinner.Start()
			g, hit, err := runner.LoadGrid(ctx, cfg)
			if err != nil {
				spinner.StopWithError("Load failed")
				return err
			}
			spinner.StopWithSuccess("Loaded " + cfg.BBox.String())

			rows, cols := g.Dims()
			printStats(rows, cols, g.ValidCount(), hit)
			fmt.Println(levelTable(flood.Stats(g, levels)))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// levelTable renders per-level flood statistics.
func levelTable(stats []flood.LevelStat) string {
	rows := make([][]string, len(stats))
	for i, s := range stats {
		rows[i] = []string{
			strconv.FormatFloat(s.Level, 'g', -1, 64),
			strconv.Itoa(s.Flooded),
			fmt.Sprintf("%.1f%%", 100*s.Fraction),
			shareBar(s.Fraction, barWidth),
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Level (m)", "Flooded", "Share", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return styleHeader.Padding(0, 1)
			case col == 3:
				return StyleWater.Padding(0, 1)
			case col == 0:
				return base.Foreground(colorWhite).Align(lipgloss.Right)
			}
			return StyleNumber.Padding(0, 1).Align(lipgloss.Right)
		}).
		Render()
}

// shareBar draws fraction of width as a solid bar.
func shareBar(fraction float64, width int) string {
	n := int(fraction*float64(width) + 0.5)
	n = max(0, min(width, n))
	return strings.Repeat("█", n) + strings.Repeat("░", width-n)
}
