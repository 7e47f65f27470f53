package surface

import "math"

// Box proportions of the plotted volume: x and y span one unit, the
// vertical axis three quarters of it.
const (
	boxXY = 1.0
	boxZ  = 0.75
)

type vec3 struct{ x, y, z float64 }

func (a vec3) dot(b vec3) float64 { return a.x*b.x + a.y*b.y + a.z*b.z }

// Camera is the fixed viewpoint, in degrees. Elevation is measured up from
// the horizontal plane; azimuth counter-clockwise from the +x (east) axis.
type Camera struct {
	Elevation float64 `toml:"elevation" json:"elevation"`
	Azimuth   float64 `toml:"azimuth" json:"azimuth"`
}

// projector maps box coordinates to screen coordinates. Depth grows
// towards the viewer.
type projector struct {
	right, up, eye vec3
}

func newProjector(cam Camera) projector {
	el := cam.Elevation * math.Pi / 180
	az := cam.Azimuth * math.Pi / 180
	return projector{
		right: vec3{-math.Sin(az), math.Cos(az), 0},
		up:    vec3{-math.Sin(el) * math.Cos(az), -math.Sin(el) * math.Sin(az), math.Cos(el)},
		eye:   vec3{math.Cos(el) * math.Cos(az), math.Cos(el) * math.Sin(az), math.Sin(el)},
	}
}

func (p projector) project(q vec3) (x, y, depth float64) {
	return q.dot(p.right), q.dot(p.up), q.dot(p.eye)
}

// boxCorners returns the eight corners of the plotted volume.
func boxCorners() [8]vec3 {
	var out [8]vec3
	i := 0
	for _, x := range []float64{-boxXY / 2, boxXY / 2} {
		for _, y := range []float64{-boxXY / 2, boxXY / 2} {
			for _, z := range []float64{-boxZ / 2, boxZ / 2} {
				out[i] = vec3{x, y, z}
				i++
			}
		}
	}
	return out
}

// bounds returns the screen rectangle covering the projected volume.
// It depends only on the camera, so every frame is framed identically.
func (p projector) bounds() (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, c := range boxCorners() {
		x, y, _ := p.project(c)
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return minX, minY, maxX, maxY
}
