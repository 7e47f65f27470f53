package render

import (
	"image/color"
	"math"

	"gonum.org/v1/plot/palette"
)

// terrainStops is the terrain colour ramp: deep water blue, shallow cyan,
// lowland green, sand, brown hills and white peaks.
var terrainStops = []struct {
	at      float64
	r, g, b float64
}{
	{0.00, 0.20, 0.20, 0.60},
	{0.15, 0.00, 0.60, 1.00},
	{0.25, 0.00, 0.80, 0.40},
	{0.50, 1.00, 1.00, 0.60},
	{0.75, 0.50, 0.36, 0.33},
	{1.00, 1.00, 1.00, 1.00},
}

// WaterColor is the opaque colour of flood water.
var WaterColor = color.NRGBA{R: 8, G: 81, B: 156, A: 255}

// Ramp is a palette of precomputed colours.
type Ramp []color.Color

// Colors implements palette.Palette.
func (r Ramp) Colors() []color.Color { return r }

// At returns the colour for t in [0, 1]; values outside are clamped and
// NaN returns nil.
func (r Ramp) At(t float64) color.Color {
	if math.IsNaN(t) || len(r) == 0 {
		return nil
	}
	t = math.Max(0, math.Min(1, t))
	return r[int(math.Round(t*float64(len(r)-1)))]
}

// Terrain returns an n-colour terrain palette, low elevations first.
func Terrain(n int) Ramp {
	if n < 2 {
		n = 2
	}
	out := make(Ramp, n)
	for i := range out {
		out[i] = TerrainAt(float64(i) / float64(n-1))
	}
	return out
}

// TerrainAt interpolates the terrain ramp at t in [0, 1].
func TerrainAt(t float64) color.NRGBA {
	t = math.Max(0, math.Min(1, t))
	for i := 1; i < len(terrainStops); i++ {
		lo, hi := terrainStops[i-1], terrainStops[i]
		if t > hi.at {
			continue
		}
		f := (t - lo.at) / (hi.at - lo.at)
		return color.NRGBA{
			R: channel(lo.r + f*(hi.r-lo.r)),
			G: channel(lo.g + f*(hi.g-lo.g)),
			B: channel(lo.b + f*(hi.b-lo.b)),
			A: 255,
		}
	}
	last := terrainStops[len(terrainStops)-1]
	return color.NRGBA{R: channel(last.r), G: channel(last.g), B: channel(last.b), A: 255}
}

// Water returns a single-colour palette of translucent water with the given
// opacity in [0, 1].
func Water(opacity float64) Ramp {
	c := WaterColor
	c.A = channel(opacity)
	return Ramp{c, c}
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

var _ palette.Palette = Ramp(nil)
