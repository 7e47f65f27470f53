package planar

import (
	"math"

	"gonum.org/v1/plot/plotter"

	"github.com/matzehuels/sealevel/pkg/dem"
	"github.com/matzehuels/sealevel/pkg/flood"
)

// cellGrid maps a north-up raster onto plotter.GridXYZ, whose rows grow
// upwards. Cell centres are spread evenly over the extent.
type cellGrid struct {
	rows, cols int
	ext        dem.Extent
	z          func(row, col int) float64
}

func (g cellGrid) Dims() (c, r int) { return g.cols, g.rows }

func (g cellGrid) Z(c, r int) float64 { return g.z(g.rows-1-r, c) }

func (g cellGrid) X(c int) float64 {
	return g.ext.MinLon + (float64(c)+0.5)*g.ext.Width()/float64(g.cols)
}

func (g cellGrid) Y(r int) float64 {
	return g.ext.MinLat + (float64(r)+0.5)*g.ext.Height()/float64(g.rows)
}

// elevation exposes the grid's elevations; missing cells are NaN.
func elevation(g *dem.Grid) cellGrid {
	rows, cols := g.Dims()
	return cellGrid{rows: rows, cols: cols, ext: g.Extent, z: g.At}
}

// water is 1 on flooded cells and NaN elsewhere.
func water(g *dem.Grid, m *flood.Mask) cellGrid {
	return cellGrid{rows: m.Rows, cols: m.Cols, ext: g.Extent, z: func(row, col int) float64 {
		if m.At(row, col) {
			return 1
		}
		return math.NaN()
	}}
}

var _ plotter.GridXYZ = cellGrid{}
