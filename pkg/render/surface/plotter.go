package surface

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/matzehuels/sealevel/pkg/render"
)

// zTicks is the number of labelled ticks on the vertical axis.
const zTicks = 5

var (
	boxLine  = draw.LineStyle{Color: color.Gray{Y: 160}, Width: vg.Points(0.5)}
	axisLine = draw.LineStyle{Color: color.Gray{Y: 60}, Width: vg.Points(0.75)}
)

// facet is a projected quad with its paint colour.
type facet struct {
	pts   [4][2]float64
	depth float64
	meanZ float64
	fill  color.Color
}

// sortFacets orders facets back to front. Ties keep insertion order, which
// puts a water quad after the terrain quad beneath it.
func sortFacets(fs []facet) {
	sort.SliceStable(fs, func(i, j int) bool { return fs[i].depth < fs[j].depth })
}

func terrainColor(t float64) color.Color { return render.TerrainAt(t) }

func waterColor(opacity float64) color.Color {
	c := render.WaterColor
	c.A = uint8(math.Round(math.Max(0, math.Min(1, opacity)) * 255))
	return c
}

// surfacePlotter draws a scene at one level as a plot.Plotter, using the
// whole data area of the plot.
type surfacePlotter struct {
	scene *Scene
	level float64
}

// Plot implements plot.Plotter.
func (sp *surfacePlotter) Plot(c draw.Canvas, _ *plot.Plot) {
	s := sp.scene
	proj := newProjector(s.Options.Camera)
	minX, minY, maxX, maxY := proj.bounds()

	// Largest uniform scale that fits the projected volume, with room for
	// the axis labels on the left.
	w, h := float64(c.Max.X-c.Min.X), float64(c.Max.Y-c.Min.Y)
	margin := 0.08 * w
	scale := math.Min((w-margin)/(maxX-minX), h/(maxY-minY))
	offX := float64(c.Min.X) + margin + ((w-margin)-scale*(maxX-minX))/2
	offY := float64(c.Min.Y) + (h-scale*(maxY-minY))/2
	toCanvas := func(x, y float64) vg.Point {
		return vg.Point{
			X: vg.Length(offX + (x-minX)*scale),
			Y: vg.Length(offY + (y-minY)*scale),
		}
	}

	sp.drawFloor(c, proj, toCanvas)
	for _, f := range s.facets(sp.level, proj) {
		pts := make([]vg.Point, 4)
		for i, p := range f.pts {
			pts[i] = toCanvas(p[0], p[1])
		}
		c.FillPolygon(f.fill, pts)
	}
	sp.drawZAxis(c, proj, toCanvas)
}

// drawFloor outlines the bottom face of the volume.
func (sp *surfacePlotter) drawFloor(c draw.Canvas, proj projector, toCanvas func(x, y float64) vg.Point) {
	floor := []vec3{
		{-boxXY / 2, -boxXY / 2, -boxZ / 2},
		{boxXY / 2, -boxXY / 2, -boxZ / 2},
		{boxXY / 2, boxXY / 2, -boxZ / 2},
		{-boxXY / 2, boxXY / 2, -boxZ / 2},
		{-boxXY / 2, -boxXY / 2, -boxZ / 2},
	}
	line := make([]vg.Point, len(floor))
	for i, q := range floor {
		x, y, _ := proj.project(q)
		line[i] = toCanvas(x, y)
	}
	c.StrokeLines(boxLine, line)
}

// drawZAxis draws the vertical axis on the left-most vertical edge of the
// volume, with tick labels spanning the fixed elevation range.
func (sp *surfacePlotter) drawZAxis(c draw.Canvas, proj projector, toCanvas func(x, y float64) vg.Point) {
	s := sp.scene
	var edge vec3
	best := math.Inf(1)
	for _, corner := range boxCorners() {
		x, _, _ := proj.project(corner)
		if x < best {
			best, edge = x, corner
		}
	}

	at := func(t float64) vg.Point {
		x, y, _ := proj.project(vec3{edge.x, edge.y, (t - 0.5) * boxZ})
		return toCanvas(x, y)
	}
	bottom, top := at(0), at(1)
	c.StrokeLine2(axisLine, bottom.X, bottom.Y, top.X, top.Y)

	labels := text.Style{
		Color:   color.Black,
		Font:    font.From(plot.DefaultFont, vg.Points(9)),
		XAlign:  text.XRight,
		YAlign:  text.YCenter,
		Handler: plot.DefaultTextHandler,
	}
	tick := vg.Points(3)
	for i := 0; i < zTicks; i++ {
		t := float64(i) / float64(zTicks-1)
		pt := at(t)
		c.StrokeLine2(axisLine, pt.X-tick, pt.Y, pt.X, pt.Y)
		z := s.ZMin + t*(s.ZMax-s.ZMin)
		c.FillText(labels, vg.Point{X: pt.X - 2*tick, Y: pt.Y}, fmt.Sprintf("%.0f", z))
	}

	if s.Options.ZLabel != "" {
		title := labels
		title.XAlign = text.XCenter
		title.YAlign = text.YBottom
		c.FillText(title, vg.Point{X: top.X, Y: top.Y + 3*tick}, s.Options.ZLabel)
	}
}

var _ plot.Plotter = (*surfacePlotter)(nil)
