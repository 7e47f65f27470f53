package dem

import (
	"bytes"
	"encoding/gob"
	"math"

	"gonum.org/v1/gonum/mat"

	apperr "github.com/matzehuels/sealevel/pkg/errors"
)

// MinValidElevation is the lowest elevation accepted as a measurement.
// Values at or below it are void markers used by several DEM products.
const MinValidElevation = -30000.0

// Grid is a cropped elevation raster. Missing cells hold NaN.
//
// A Grid is read-only once returned by Load; renderers and the flood engine
// share it across all levels.
type Grid struct {
	// Data holds elevations in metres, row 0 at the north edge.
	Data *mat.Dense

	// Transform maps grid pixels to geographic coordinates.
	Transform GeoTransform

	// Extent is the geographic span used for rendering axes.
	Extent Extent
}

// NewGrid wraps a row-major elevation slice. The slice is used directly.
func NewGrid(rows, cols int, data []float64, gt GeoTransform, ext Extent) *Grid {
	return &Grid{
		Data:      mat.NewDense(rows, cols, data),
		Transform: gt,
		Extent:    ext,
	}
}

// Dims returns the number of rows and columns.
func (g *Grid) Dims() (rows, cols int) {
	return g.Data.Dims()
}

// At returns the elevation at (row, col); NaN for missing cells.
func (g *Grid) At(row, col int) float64 {
	return g.Data.At(row, col)
}

// IsMissing reports whether the cell at (row, col) holds no valid elevation.
func (g *Grid) IsMissing(row, col int) bool {
	return math.IsNaN(g.Data.At(row, col))
}

// Values returns the row-major backing slice. Callers must not modify it.
func (g *Grid) Values() []float64 {
	raw := g.Data.RawMatrix()
	if raw.Stride == raw.Cols {
		return raw.Data[:raw.Rows*raw.Cols]
	}
	out := make([]float64, 0, raw.Rows*raw.Cols)
	for r := 0; r < raw.Rows; r++ {
		out = append(out, raw.Data[r*raw.Stride:r*raw.Stride+raw.Cols]...)
	}
	return out
}

// ValidCount returns the number of cells holding a valid elevation.
func (g *Grid) ValidCount() int {
	n := 0
	for _, v := range g.Values() {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// ValidRange returns the minimum and maximum valid elevation.
// A grid without any valid cell returns a NO_VALID_DATA error instead of
// NaN bounds, which would make every threshold comparison false.
func (g *Grid) ValidRange() (lo, hi float64, err error) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range g.Values() {
		if math.IsNaN(v) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if math.IsInf(lo, 1) {
		rows, cols := g.Dims()
		return math.NaN(), math.NaN(), apperr.New(apperr.ErrCodeNoValidData,
			"no valid elevation in %dx%d grid", rows, cols)
	}
	return lo, hi, nil
}

// CleanOptions controls which raw values are treated as missing.
type CleanOptions struct {
	// NoData is the source's declared sentinel, honoured when HasNoData is set.
	NoData    float64
	HasNoData bool

	// ZeroIsNoData treats exact zero as missing. SRTM-derived coastal tiles
	// encode open sea as 0, so the default pipeline enables it.
	ZeroIsNoData bool
}

// IsNoData reports whether a raw raster value must be treated as missing.
func (o CleanOptions) IsNoData(v float64) bool {
	switch {
	case math.IsNaN(v):
		return true
	case o.HasNoData && v == o.NoData:
		return true
	case v <= MinValidElevation:
		return true
	case o.ZeroIsNoData && v == 0:
		return true
	}
	return false
}

// Clean replaces every missing value in values with NaN, in place.
func Clean(values []float64, opts CleanOptions) {
	for i, v := range values {
		if opts.IsNoData(v) {
			values[i] = math.NaN()
		}
	}
}

// gridWire is the cache encoding of a Grid.
type gridWire struct {
	Matrix    []byte
	Transform GeoTransform
	Extent    Extent
}

// MarshalBinary encodes the grid, NaN cells included.
func (g *Grid) MarshalBinary() ([]byte, error) {
	m, err := g.Data.MarshalBinary()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gridWire{Matrix: m, Transform: g.Transform, Extent: g.Extent}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a grid produced by MarshalBinary.
func (g *Grid) UnmarshalBinary(data []byte) error {
	var w gridWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	var m mat.Dense
	if err := m.UnmarshalBinary(w.Matrix); err != nil {
		return err
	}
	g.Data = &m
	g.Transform = w.Transform
	g.Extent = w.Extent
	return nil
}
