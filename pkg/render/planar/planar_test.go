package planar

import (
	"image"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/matzehuels/sealevel/pkg/dem"
	apperr "github.com/matzehuels/sealevel/pkg/errors"
	"github.com/matzehuels/sealevel/pkg/flood"
	"github.com/matzehuels/sealevel/pkg/render/sink"
)

func testGrid() *dem.Grid {
	return dem.NewGrid(3, 3, []float64{
		5, 10, 15,
		20, math.NaN(), 30,
		35, 40, 45,
	}, dem.GeoTransform{140, 0.1, 0, 42, 0, -0.1}, dem.Extent{MinLon: 140, MaxLon: 140.3, MinLat: 41.7, MaxLat: 42})
}

func smallOptions() Options {
	opts := DefaultOptions()
	opts.Width, opts.Height, opts.DPI = 2*vg.Inch, 2*vg.Inch, 40
	return opts
}

// blueness sums how much bluer than red the image is.
func blueness(img image.Image) int64 {
	var sum int64
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, bl, _ := img.At(x, y).RGBA()
			sum += int64(bl>>8) - int64(r>>8)
		}
	}
	return sum
}

func TestRenderCanvasSize(t *testing.T) {
	g := testGrid()
	opts := smallOptions()
	opts.NoTrim = true

	img, err := Render(g, flood.Compute(g, 10), 10, opts)
	require.NoError(t, err)
	assert.Equal(t, 80, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())

	trimmed, err := Render(g, flood.Compute(g, 10), 10, smallOptions())
	require.NoError(t, err)
	assert.LessOrEqual(t, trimmed.Bounds().Dx(), 80)
	assert.LessOrEqual(t, trimmed.Bounds().Dy(), 80)
}

func TestRenderWaterIsBlue(t *testing.T) {
	g := testGrid()
	opts := smallOptions()
	opts.NoTrim = true

	dry, err := Render(g, flood.Compute(g, 0), 0, opts)
	require.NoError(t, err)
	wet, err := Render(g, flood.Compute(g, 100), 100, opts)
	require.NoError(t, err)

	assert.Greater(t, blueness(wet), blueness(dry))
}

func TestRenderSameSizeAcrossLevels(t *testing.T) {
	g := testGrid()
	var first image.Rectangle
	for i, lvl := range []float64{0, 10, 25, 45} {
		img, err := Render(g, flood.Compute(g, lvl), lvl, smallOptions())
		require.NoError(t, err)
		if i == 0 {
			first = img.Bounds()
			continue
		}
		assert.Equal(t, first.Size(), img.Bounds().Size(), "level %g", lvl)
	}
}

func TestRenderErrors(t *testing.T) {
	g := testGrid()

	_, err := Render(g, flood.NewMask(2, 2), 0, smallOptions())
	assert.True(t, apperr.Is(err, apperr.ErrCodeInvalidInput))

	empty := dem.NewGrid(1, 1, []float64{math.NaN()}, dem.GeoTransform{}, dem.Extent{MaxLon: 1, MaxLat: 1})
	_, err = Render(empty, flood.Compute(empty, 0), 0, smallOptions())
	assert.True(t, apperr.Is(err, apperr.ErrCodeNoValidData))
}

func TestRenderFile(t *testing.T) {
	g := testGrid()
	path := filepath.Join(t.TempDir(), "frames", "frame_000.png")

	require.NoError(t, RenderFile(path, g, flood.Compute(g, 10), 10, smallOptions()))
	img, err := sink.ReadPNG(path)
	require.NoError(t, err)
	assert.NotZero(t, img.Bounds().Dx())
}
