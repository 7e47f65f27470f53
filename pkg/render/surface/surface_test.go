package surface

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/matzehuels/sealevel/pkg/dem"
	apperr "github.com/matzehuels/sealevel/pkg/errors"
	"github.com/matzehuels/sealevel/pkg/render/sink"
)

// peakGrid is a 7×7 cone rising from 2 m at the rim to 50 m in the middle,
// with one missing cell.
func peakGrid() *dem.Grid {
	const n = 7
	vals := make([]float64, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			d := math.Max(math.Abs(float64(r-3)), math.Abs(float64(c-3)))
			vals[r*n+c] = 50 - 16*d
		}
	}
	vals[0] = math.NaN()
	return dem.NewGrid(n, n, vals, dem.GeoTransform{140, 0.01, 0, 42, 0, -0.01},
		dem.Extent{MinLon: 140, MaxLon: 140.07, MinLat: 41.93, MaxLat: 42})
}

func smallOptions() Options {
	opts := DefaultOptions()
	opts.Width, opts.Height, opts.DPI = 3*vg.Inch, 2*vg.Inch, 30
	opts.Stride = 1
	return opts
}

func TestNewSceneFixesLimits(t *testing.T) {
	s, err := NewScene(peakGrid(), smallOptions())
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.ZMin)
	assert.Equal(t, 50.0, s.ZMax)
	assert.Len(t, s.Mesh.Lon, 7)
	assert.Len(t, s.Mesh.Lat, 7)
	assert.Equal(t, 42.0, s.Mesh.Lat[0])
	assert.Equal(t, 41.93, s.Mesh.Lat[6])

	empty := dem.NewGrid(1, 2, []float64{math.NaN(), math.NaN()}, dem.GeoTransform{}, dem.Extent{})
	_, err = NewScene(empty, smallOptions())
	assert.True(t, apperr.Is(err, apperr.ErrCodeNoValidData))
}

func TestBoxPointFollowsMesh(t *testing.T) {
	s, err := NewScene(peakGrid(), smallOptions())
	require.NoError(t, err)

	tests := []struct {
		name  string
		r, c  int
		z     float64
		wantX float64
		wantY float64
		wantZ float64
	}{
		{"north-west corner at rim", 0, 0, 2, -boxXY / 2, boxXY / 2, -boxZ / 2},
		{"south-east corner", 6, 6, 2, boxXY / 2, -boxXY / 2, -boxZ / 2},
		{"centre at peak", 3, 3, 50, 0, 0, boxZ / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := s.boxPoint(tt.r, tt.c, tt.z)
			assert.InDelta(t, tt.wantX, p.x, 1e-9)
			assert.InDelta(t, tt.wantY, p.y, 1e-9)
			assert.InDelta(t, tt.wantZ, p.z, 1e-9)
		})
	}

	// Moving a mesh column moves the vertex with it.
	s.Mesh.Lon[3] = s.Grid.Extent.MinLon
	assert.InDelta(t, -boxXY/2, s.boxPoint(3, 3, 50).x, 1e-9)
}

func TestRenderFixedSize(t *testing.T) {
	s, err := NewScene(peakGrid(), smallOptions())
	require.NoError(t, err)

	for _, lvl := range []float64{0, 10, 30, 60} {
		img, err := s.Render(lvl)
		require.NoError(t, err)
		assert.Equal(t, 90, img.Bounds().Dx(), "level %g", lvl)
		assert.Equal(t, 60, img.Bounds().Dy(), "level %g", lvl)
	}

	_, err = s.Render(math.NaN())
	assert.True(t, apperr.Is(err, apperr.ErrCodeInvalidLevels))
}

func TestFacetsWaterOnlyWhereFlooded(t *testing.T) {
	s, err := NewScene(peakGrid(), smallOptions())
	require.NoError(t, err)
	proj := newProjector(s.Options.Camera)
	water := waterColor(s.Options.WaterOpacity)

	count := func(level float64) (terrain, wet int) {
		for _, f := range s.facets(level, proj) {
			if f.fill == water {
				wet++
			} else {
				terrain++
			}
		}
		return terrain, wet
	}

	dryTerrain, dryWater := count(0)
	// 6×6 quads, minus the one touching the missing corner.
	assert.Equal(t, 35, dryTerrain)
	assert.Zero(t, dryWater)

	// At 2 m only the rim is flooded; no quad has all four corners wet.
	_, wet := count(2)
	assert.Zero(t, wet)

	// At 18 m the two outer rings are flooded: the outer band of quads.
	_, wet = count(18)
	assert.Equal(t, 19, wet)

	terrain, wet := count(100)
	assert.Equal(t, 35, terrain)
	assert.Equal(t, 35, wet)
}

func TestFacetsBackToFront(t *testing.T) {
	s, err := NewScene(peakGrid(), smallOptions())
	require.NoError(t, err)
	fs := s.facets(30, newProjector(s.Options.Camera))
	for i := 1; i < len(fs); i++ {
		assert.LessOrEqual(t, fs[i-1].depth, fs[i].depth)
	}
}

func TestProjectorOrthonormal(t *testing.T) {
	p := newProjector(Camera{Elevation: DefaultElevation, Azimuth: DefaultAzimuth})
	assert.InDelta(t, 0, p.right.dot(p.up), 1e-12)
	assert.InDelta(t, 0, p.right.dot(p.eye), 1e-12)
	assert.InDelta(t, 0, p.up.dot(p.eye), 1e-12)
	assert.InDelta(t, 1, p.eye.dot(p.eye), 1e-12)

	// A point higher up lies closer to a camera looking down.
	_, y0, d0 := p.project(vec3{0, 0, 0})
	_, y1, d1 := p.project(vec3{0, 0, 0.1})
	assert.Greater(t, y1, y0)
	assert.Greater(t, d1, d0)
}

func TestRenderFile(t *testing.T) {
	s, err := NewScene(peakGrid(), smallOptions())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "frame3d_000.png")

	require.NoError(t, s.RenderFile(path, 18))
	img, err := sink.ReadPNG(path)
	require.NoError(t, err)
	assert.Equal(t, 90, img.Bounds().Dx())
}
