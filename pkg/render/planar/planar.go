package planar

import (
	"fmt"
	"image"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/matzehuels/sealevel/pkg/dem"
	apperr "github.com/matzehuels/sealevel/pkg/errors"
	"github.com/matzehuels/sealevel/pkg/flood"
	"github.com/matzehuels/sealevel/pkg/render"
	"github.com/matzehuels/sealevel/pkg/render/sink"
)

// Default canvas and overlay settings.
const (
	DefaultWidth   = 7 * vg.Inch
	DefaultHeight  = 7 * vg.Inch
	DefaultDPI     = 150
	DefaultOpacity = 0.55
	DefaultTitle   = "Sea level: %g m"

	// terrainColors is the resolution of the terrain palette.
	terrainColors = 256
)

// Options controls 2D frame rendering.
type Options struct {
	Width, Height vg.Length
	DPI           int

	// Opacity of the water layer in [0, 1].
	Opacity float64

	// Title is a format string receiving the level in metres.
	Title string

	// NoTrim keeps the full canvas instead of cropping white margins.
	NoTrim bool
}

// DefaultOptions returns the standard 7×7 inch, 150 dpi frame settings.
func DefaultOptions() Options {
	return Options{
		Width:   DefaultWidth,
		Height:  DefaultHeight,
		DPI:     DefaultDPI,
		Opacity: DefaultOpacity,
		Title:   DefaultTitle,
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
	if o.Title == "" {
		o.Title = DefaultTitle
	}
}

// Render draws one 2D frame of g flooded according to mask at level.
//
// The terrain colour scale spans the grid's valid elevation range, so it is
// identical for every level of a sweep.
func Render(g *dem.Grid, mask *flood.Mask, level float64, opts Options) (image.Image, error) {
	opts.setDefaults()
	rows, cols := g.Dims()
	if mask.Rows != rows || mask.Cols != cols {
		return nil, apperr.New(apperr.ErrCodeInvalidInput, "mask %dx%d does not match grid %dx%d", mask.Rows, mask.Cols, rows, cols)
	}
	lo, hi, err := g.ValidRange()
	if err != nil {
		return nil, err
	}
	if hi == lo {
		hi = lo + 1
	}

	terrain := plotter.NewHeatMap(elevation(g), render.Terrain(terrainColors))
	terrain.Min, terrain.Max = lo, hi
	terrain.NaN = color.Transparent
	terrain.Rasterized = true

	overlay := plotter.NewHeatMap(water(g, mask), render.Water(opts.Opacity))
	overlay.Min, overlay.Max = 0, 1
	overlay.NaN = color.Transparent
	overlay.Rasterized = true

	p := plot.New()
	p.Title.Text = fmt.Sprintf(opts.Title, level)
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.HideAxes()
	p.Add(terrain, overlay)
	p.X.Min, p.X.Max = g.Extent.MinLon, g.Extent.MaxLon
	p.Y.Min, p.Y.Max = g.Extent.MinLat, g.Extent.MaxLat

	img, err := sink.Canvas(opts.Width, opts.Height, opts.DPI, func(c draw.Canvas) error {
		p.Draw(fitAspect(c, g.Extent.Width()/g.Extent.Height()))
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeRenderFailed, err, "render 2D frame at %g m", level)
	}
	if opts.NoTrim {
		return img, nil
	}
	return sink.TrimBackground(img, color.White, opts.DPI/10), nil
}

// RenderFile renders a frame and writes it to path as PNG.
func RenderFile(path string, g *dem.Grid, mask *flood.Mask, level float64, opts Options) error {
	img, err := Render(g, mask, level, opts)
	if err != nil {
		return err
	}
	return sink.WritePNG(path, img)
}

// fitAspect centres a sub-canvas of c whose width/height ratio is aspect,
// so degrees of longitude and latitude share one scale.
func fitAspect(c draw.Canvas, aspect float64) draw.Canvas {
	w, h := c.Max.X-c.Min.X, c.Max.Y-c.Min.Y
	if aspect <= 0 || w <= 0 || h <= 0 {
		return c
	}
	if float64(w)/float64(h) > aspect {
		pad := (w - vg.Length(aspect)*h) / 2
		return draw.Crop(c, pad, -pad, 0, 0)
	}
	pad := (h - w/vg.Length(aspect)) / 2
	return draw.Crop(c, 0, 0, pad, -pad)
}
