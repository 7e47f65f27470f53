package surface

import "github.com/matzehuels/sealevel/pkg/dem"

// Mesh holds the geographic coordinates of grid columns and rows.
// Lat runs north to south, matching grid row order.
type Mesh struct {
	Lon []float64
	Lat []float64
}

// NewMesh spreads cols longitudes and rows latitudes evenly over ext,
// endpoints included.
func NewMesh(ext dem.Extent, rows, cols int) Mesh {
	return Mesh{
		Lon: linspace(ext.MinLon, ext.MaxLon, cols),
		Lat: linspace(ext.MaxLat, ext.MinLat, rows),
	}
}

func linspace(from, to float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = from
		return out
	}
	step := (to - from) / float64(n-1)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	if n > 1 {
		out[n-1] = to
	}
	return out
}
