package dem

import (
	"fmt"
	"math"

	apperr "github.com/matzehuels/sealevel/pkg/errors"
)

// edgeEpsilon absorbs floating point noise when snapping bounds to pixels,
// so a bound that lands exactly on a pixel edge does not pull in a neighbour.
const edgeEpsilon = 1e-6

// BBox is a geographic bounding box in degrees.
type BBox struct {
	West  float64 `toml:"west" json:"west"`
	South float64 `toml:"south" json:"south"`
	East  float64 `toml:"east" json:"east"`
	North float64 `toml:"north" json:"north"`
}

// Validate checks the box is finite, inside the globe and not inverted.
func (b BBox) Validate() error {
	return apperr.ValidateBBox(b.West, b.South, b.East, b.North)
}

// Extent returns the box as a rendering extent.
func (b BBox) Extent() Extent {
	return Extent{MinLon: b.West, MaxLon: b.East, MinLat: b.South, MaxLat: b.North}
}

// String formats the box as "west,south,east,north".
func (b BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.West, b.South, b.East, b.North)
}

// Extent is the geographic span mapped onto rendering axes.
type Extent struct {
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
}

// Width returns the longitudinal span.
func (e Extent) Width() float64 { return e.MaxLon - e.MinLon }

// Height returns the latitudinal span.
func (e Extent) Height() float64 { return e.MaxLat - e.MinLat }

// GeoTransform maps pixel coordinates to geographic coordinates using the
// GDAL coefficient order:
//
//	lon = gt[0] + col*gt[1] + row*gt[2]
//	lat = gt[3] + col*gt[4] + row*gt[5]
type GeoTransform [6]float64

// Apply returns the geographic position of the pixel corner (col, row).
func (gt GeoTransform) Apply(col, row float64) (lon, lat float64) {
	return gt[0] + col*gt[1] + row*gt[2], gt[3] + col*gt[4] + row*gt[5]
}

// Rotated reports whether the transform has rotation/shear terms.
func (gt GeoTransform) Rotated() bool {
	return gt[2] != 0 || gt[4] != 0
}

// Shift returns the transform of a window whose top-left pixel is (col, row).
func (gt GeoTransform) Shift(col, row int) GeoTransform {
	out := gt
	out[0], out[3] = gt.Apply(float64(col), float64(row))
	return out
}

// Bounds returns the extent covered by a cols×rows raster.
func (gt GeoTransform) Bounds(cols, rows int) Extent {
	x0, y0 := gt.Apply(0, 0)
	x1, y1 := gt.Apply(float64(cols), float64(rows))
	return Extent{
		MinLon: math.Min(x0, x1),
		MaxLon: math.Max(x0, x1),
		MinLat: math.Min(y0, y1),
		MaxLat: math.Max(y0, y1),
	}
}

// Window is a rectangular pixel region of a raster.
type Window struct {
	ColOff int
	RowOff int
	Cols   int
	Rows   int
}

// Empty reports whether the window covers no pixels.
func (w Window) Empty() bool { return w.Cols <= 0 || w.Rows <= 0 }

// WindowFromBounds converts a bounding box into the pixel window of a
// width×height raster that covers it, clamped to the raster. Partial pixels
// on the edges are included. A box that does not intersect the raster yields
// an EMPTY_WINDOW error.
func WindowFromBounds(b BBox, gt GeoTransform, width, height int) (Window, error) {
	if gt.Rotated() {
		return Window{}, apperr.New(apperr.ErrCodeUnsupportedFormat, "rotated geotransforms are not supported")
	}
	if gt[1] == 0 || gt[5] == 0 {
		return Window{}, apperr.New(apperr.ErrCodeCorruptRaster, "geotransform has zero pixel size")
	}

	c0 := (b.West - gt[0]) / gt[1]
	c1 := (b.East - gt[0]) / gt[1]
	r0 := (b.North - gt[3]) / gt[5]
	r1 := (b.South - gt[3]) / gt[5]
	if c0 > c1 {
		c0, c1 = c1, c0
	}
	if r0 > r1 {
		r0, r1 = r1, r0
	}

	colStart := clamp(int(math.Floor(c0+edgeEpsilon)), 0, width)
	colEnd := clamp(int(math.Ceil(c1-edgeEpsilon)), 0, width)
	rowStart := clamp(int(math.Floor(r0+edgeEpsilon)), 0, height)
	rowEnd := clamp(int(math.Ceil(r1-edgeEpsilon)), 0, height)

	w := Window{ColOff: colStart, RowOff: rowStart, Cols: colEnd - colStart, Rows: rowEnd - rowStart}
	if w.Empty() {
		return Window{}, apperr.New(apperr.ErrCodeEmptyWindow,
			"bounding box %s does not intersect raster extent %+v", b, gt.Bounds(width, height))
	}
	return w, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
