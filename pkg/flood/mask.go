package flood

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/sealevel/pkg/dem"
)

// Mask is a boolean grid with the shape of the elevation grid it came from.
type Mask struct {
	Rows, Cols int
	cells      []bool
}

// NewMask returns an all-dry mask.
func NewMask(rows, cols int) *Mask {
	return &Mask{Rows: rows, Cols: cols, cells: make([]bool, rows*cols)}
}

// At reports whether the cell at (row, col) is flooded.
func (m *Mask) At(row, col int) bool {
	return m.cells[row*m.Cols+col]
}

// Set marks the cell at (row, col).
func (m *Mask) Set(row, col int, v bool) {
	m.cells[row*m.Cols+col] = v
}

// Count returns the number of flooded cells.
func (m *Mask) Count() int {
	n := 0
	for _, c := range m.cells {
		if c {
			n++
		}
	}
	return n
}

// Contains reports whether every cell flooded in other is flooded in m.
// Masks of different shapes never contain each other.
func (m *Mask) Contains(other *Mask) bool {
	if m.Rows != other.Rows || m.Cols != other.Cols {
		return false
	}
	for i, c := range other.cells {
		if c && !m.cells[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both masks have the same shape and cells.
func (m *Mask) Equal(other *Mask) bool {
	return m.Contains(other) && other.Contains(m)
}

// Compute returns the flood mask of g at level: a cell is flooded iff its
// elevation is valid and ≤ level. A NaN level floods nothing.
func Compute(g *dem.Grid, level float64) *Mask {
	rows, cols := g.Dims()
	m := NewMask(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !g.IsMissing(r, c) && g.At(r, c) <= level {
				m.Set(r, c, true)
			}
		}
	}
	return m
}

// WaterSurface returns a matrix holding level on every flooded cell and NaN
// elsewhere. It is the water layer drawn over the terrain in 3D, so water
// is never drawn above dry land or over missing cells.
func WaterSurface(g *dem.Grid, level float64) *mat.Dense {
	rows, cols := g.Dims()
	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !g.IsMissing(r, c) && g.At(r, c) <= level {
				out.Set(r, c, level)
			} else {
				out.Set(r, c, math.NaN())
			}
		}
	}
	return out
}
