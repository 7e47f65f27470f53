package surface

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/matzehuels/sealevel/pkg/dem"
	apperr "github.com/matzehuels/sealevel/pkg/errors"
	"github.com/matzehuels/sealevel/pkg/flood"
	"github.com/matzehuels/sealevel/pkg/render/sink"
)

// Default canvas, camera and overlay settings.
const (
	DefaultWidth        = 10 * vg.Inch
	DefaultHeight       = 7 * vg.Inch
	DefaultDPI          = 120
	DefaultElevation    = 45.0
	DefaultAzimuth      = 230.0
	DefaultStride       = 3
	DefaultWaterOpacity = 0.45
	DefaultTitle        = "Sea level: %g m (3D)"
	DefaultZLabel       = "Elevation (m)"
)

// Options controls 3D frame rendering.
type Options struct {
	Width, Height vg.Length
	DPI           int

	Camera Camera

	// Stride keeps every Stride-th row and column of the grid.
	Stride int

	// WaterOpacity of the water plane in [0, 1].
	WaterOpacity float64

	// Title is a format string receiving the level in metres.
	Title string

	// ZLabel names the vertical axis.
	ZLabel string
}

// DefaultOptions returns the standard 10×7 inch, 120 dpi frame settings
// seen from 45° above at azimuth 230°.
func DefaultOptions() Options {
	return Options{
		Width:        DefaultWidth,
		Height:       DefaultHeight,
		DPI:          DefaultDPI,
		Camera:       Camera{Elevation: DefaultElevation, Azimuth: DefaultAzimuth},
		Stride:       DefaultStride,
		WaterOpacity: DefaultWaterOpacity,
		Title:        DefaultTitle,
		ZLabel:       DefaultZLabel,
	}
}

func (o *Options) setDefaults() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	if o.Stride <= 0 {
		o.Stride = DefaultStride
	}
	if o.Title == "" {
		o.Title = DefaultTitle
	}
}

// Scene is a grid prepared for 3D rendering at any level.
type Scene struct {
	Grid *dem.Grid
	Mesh Mesh

	// ZMin and ZMax are the valid elevation range; the vertical axis is
	// fixed to it for every frame.
	ZMin, ZMax float64

	Options Options
}

// NewScene fixes the mesh and vertical limits of g. It fails with
// NO_VALID_DATA when g has no valid cell.
func NewScene(g *dem.Grid, opts Options) (*Scene, error) {
	opts.setDefaults()
	lo, hi, err := g.ValidRange()
	if err != nil {
		return nil, err
	}
	rows, cols := g.Dims()
	return &Scene{
		Grid:    g,
		Mesh:    NewMesh(g.Extent, rows, cols),
		ZMin:    lo,
		ZMax:    hi,
		Options: opts,
	}, nil
}

// Render draws the terrain with the water plane at level.
func (s *Scene) Render(level float64) (image.Image, error) {
	if math.IsNaN(level) {
		return nil, apperr.New(apperr.ErrCodeInvalidLevels, "level is NaN")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf(s.Options.Title, level)
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.HideAxes()
	p.Add(&surfacePlotter{scene: s, level: level})

	img, err := sink.Canvas(s.Options.Width, s.Options.Height, s.Options.DPI, func(c draw.Canvas) error {
		p.Draw(c)
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeRenderFailed, err, "render 3D frame at %g m", level)
	}
	return img, nil
}

// RenderFile renders the frame at level and writes it to path as PNG.
func (s *Scene) RenderFile(path string, level float64) error {
	img, err := s.Render(level)
	if err != nil {
		return err
	}
	return sink.WritePNG(path, img)
}

// facets builds the terrain and water quads for level in box coordinates,
// sorted back to front.
func (s *Scene) facets(level float64, proj projector) []facet {
	rows, cols := s.Grid.Dims()
	stride := s.Options.Stride
	span := s.ZMax - s.ZMin
	if span == 0 {
		span = 1
	}
	water := flood.WaterSurface(s.Grid, level)
	waterFill := waterColor(s.Options.WaterOpacity)

	var out []facet
	for r := 0; r+1 < rows; r += stride {
		r2 := min(r+stride, rows-1)
		for c := 0; c+1 < cols; c += stride {
			c2 := min(c+stride, cols-1)
			idx := [4][2]int{{r, c}, {r, c2}, {r2, c2}, {r2, c}}

			if f, ok := s.quad(idx, s.Grid.At, proj); ok {
				f.fill = terrainColor((f.meanZ - s.ZMin) / span)
				out = append(out, f)
			}
			if f, ok := s.quad(idx, water.At, proj); ok {
				f.fill = waterFill
				out = append(out, f)
			}
		}
	}
	sortFacets(out)
	return out
}

// boxPoint places the mesh vertex at row r, column c with elevation z in
// box coordinates: longitude and latitude span the extent, z spans
// [ZMin, ZMax].
func (s *Scene) boxPoint(r, c int, z float64) vec3 {
	ext := s.Grid.Extent
	span := s.ZMax - s.ZMin
	if span == 0 {
		span = 1
	}
	return vec3{
		x: (unit(s.Mesh.Lon[c], ext.MinLon, ext.MaxLon, c, len(s.Mesh.Lon)) - 0.5) * boxXY,
		y: (unit(s.Mesh.Lat[r], ext.MinLat, ext.MaxLat, len(s.Mesh.Lat)-1-r, len(s.Mesh.Lat)) - 0.5) * boxXY,
		z: ((z-s.ZMin)/span - 0.5) * boxZ,
	}
}

// unit maps v from [lo, hi] onto [0, 1]. A degenerate extent falls back to
// the index position i of n.
func unit(v, lo, hi float64, i, n int) float64 {
	if hi > lo {
		return (v - lo) / (hi - lo)
	}
	return float64(i) / math.Max(1, float64(n-1))
}

// quad builds a facet from four grid corners; any NaN corner drops it.
func (s *Scene) quad(idx [4][2]int, at func(r, c int) float64, proj projector) (facet, bool) {
	var f facet
	var sumZ, sumDepth float64
	for i, rc := range idx {
		z := at(rc[0], rc[1])
		if math.IsNaN(z) {
			return facet{}, false
		}
		q := s.boxPoint(rc[0], rc[1], z)
		x, y, d := proj.project(q)
		f.pts[i] = [2]float64{x, y}
		sumZ += z
		sumDepth += d
	}
	f.meanZ = sumZ / 4
	f.depth = sumDepth / 4
	return f, true
}
