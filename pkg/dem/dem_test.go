package dem_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/sealevel/pkg/dem"
	"github.com/matzehuels/sealevel/pkg/dem/demtest"
	apperr "github.com/matzehuels/sealevel/pkg/errors"
)

// rampSamples returns cols×rows samples where value = 100*row + col + 1.
func rampSamples(cols, rows int) []int16 {
	s := make([]int16, cols*rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			s[r*cols+c] = int16(100*r + c + 1)
		}
	}
	return s
}

// tenthDegree is a 0.1° north-up transform with its corner at (140, 42).
var tenthDegree = [6]float64{140, 0.1, 0, 42, 0, -0.1}

func TestGeoTIFFReadWindow(t *testing.T) {
	tests := []struct {
		name string
		opts demtest.TIFFOptions
	}{
		{"single strip", demtest.TIFFOptions{}},
		{"multiple strips", demtest.TIFFOptions{RowsPerStrip: 3}},
		{"deflate", demtest.TIFFOptions{RowsPerStrip: 4, Deflate: true}},
		{"deflate with predictor", demtest.TIFFOptions{RowsPerStrip: 2, Deflate: true, Predictor: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "dem.tif")
			demtest.WriteGeoTIFF(t, path, 10, 10, rampSamples(10, 10), tenthDegree, tt.opts)

			src, err := dem.Open(path)
			require.NoError(t, err)
			defer src.Close()

			info := src.Info()
			assert.Equal(t, 10, info.Width)
			assert.Equal(t, 10, info.Height)
			assert.Equal(t, dem.FormatGeoTIFF, info.Format)
			assert.InDeltaSlice(t, tenthDegree[:], info.Transform[:], 1e-12)

			got, err := src.ReadWindow(dem.Window{ColOff: 2, RowOff: 5, Cols: 3, Rows: 2})
			require.NoError(t, err)
			assert.Equal(t, []float64{503, 504, 505, 603, 604, 605}, got)
		})
	}
}

func TestGeoTIFFLayouts(t *testing.T) {
	const cols, rows = 20, 18
	tiles := func(o demtest.TIFFOptions) demtest.TIFFOptions {
		o.TileWidth, o.TileHeight = 16, 16
		return o
	}

	tests := []struct {
		name   string
		opts   demtest.TIFFOptions
		offset float64
	}{
		{"uint8 lzw strips", demtest.TIFFOptions{Sample: demtest.Uint8, LZW: true, RowsPerStrip: 5}, 0},
		{"uint16 big-endian predictor", demtest.TIFFOptions{Sample: demtest.Uint16, BigEndian: true, RowsPerStrip: 4, Predictor: true}, 0},
		{"uint32 tiled", tiles(demtest.TIFFOptions{Sample: demtest.Uint32}), 0},
		{"int16 big-endian tiled lzw predictor", tiles(demtest.TIFFOptions{BigEndian: true, LZW: true, Predictor: true}), -120},
		{"int32 tiled deflate predictor", tiles(demtest.TIFFOptions{Sample: demtest.Int32, Deflate: true, Predictor: true}), -70000},
		{"float32 big-endian tiled", tiles(demtest.TIFFOptions{Sample: demtest.Float32, BigEndian: true}), 0.5},
		{"float64 lzw strips", demtest.TIFFOptions{Sample: demtest.Float64, LZW: true, RowsPerStrip: 7}, -3.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := make([]float64, cols*rows)
			for r := 0; r < rows; r++ {
				for c := 0; c < cols; c++ {
					want[r*cols+c] = float64(12*r+c+1) + tt.offset
				}
			}
			path := filepath.Join(t.TempDir(), "dem.tif")
			demtest.WriteRaster(t, path, cols, rows, want, tenthDegree, tt.opts)

			src, err := dem.Open(path)
			require.NoError(t, err)
			defer src.Close()
			assert.Equal(t, cols, src.Info().Width)
			assert.Equal(t, rows, src.Info().Height)
			gotTransform := src.Info().Transform
			assert.InDeltaSlice(t, tenthDegree[:], gotTransform[:], 1e-12)

			all, err := src.ReadWindow(dem.Window{Cols: cols, Rows: rows})
			require.NoError(t, err)
			assert.Equal(t, want, all)

			// Straddles the partial edge tiles on both axes.
			got, err := src.ReadWindow(dem.Window{ColOff: 13, RowOff: 14, Cols: 6, Rows: 4})
			require.NoError(t, err)
			for r := 0; r < 4; r++ {
				assert.Equal(t, want[(14+r)*cols+13:(14+r)*cols+19], got[r*6:(r+1)*6], "row %d", 14+r)
			}
		})
	}
}

func TestGeoTIFFModelTransformation(t *testing.T) {
	tests := []struct {
		name  string
		gt    [6]float64
		point bool
	}{
		{"north-up", tenthDegree, false},
		{"north-up point", tenthDegree, true},
		{"rotated", [6]float64{140, 0.1, 0.02, 42, 0.01, -0.1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "dem.tif")
			demtest.WriteGeoTIFF(t, path, 4, 3, rampSamples(4, 3), tt.gt,
				demtest.TIFFOptions{ModelTransform: true, PixelIsPoint: tt.point})

			src, err := dem.Open(path)
			require.NoError(t, err)
			defer src.Close()
			gt := src.Info().Transform
			assert.InDeltaSlice(t, tt.gt[:], gt[:], 1e-12)
			assert.Equal(t, tt.gt[2] != 0, gt.Rotated())
		})
	}
}

func TestGeoTIFFBlockOutsideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dem.tif")
	demtest.WriteGeoTIFF(t, path, 4, 4, rampSamples(4, 4), tenthDegree,
		demtest.TIFFOptions{ByteCount: math.MaxUint32 - 1})

	src, err := dem.Open(path)
	require.NoError(t, err)
	defer src.Close()

	_, err = src.ReadWindow(dem.Window{Cols: 4, Rows: 4})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrCodeCorruptRaster), "got %v", err)
}

func TestGeoTIFFNoDataAndPixelIsPoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dem.tiff")
	demtest.WriteGeoTIFF(t, path, 4, 4, rampSamples(4, 4), tenthDegree,
		demtest.TIFFOptions{NoData: "-32767", PixelIsPoint: true})

	src, err := dem.OpenGeoTIFF(path)
	require.NoError(t, err)
	defer src.Close()

	info := src.Info()
	assert.True(t, info.HasNoData)
	assert.Equal(t, -32767.0, info.NoData)
	assert.InDelta(t, 140.0, info.Transform[0], 1e-12)
	assert.InDelta(t, 42.0, info.Transform[3], 1e-12)
}

func TestGeoTIFFRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tif")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a tiff"), 0644))

	_, err := dem.Open(path)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrCodeUnsupportedFormat))
}

func TestHGTReadWindow(t *testing.T) {
	dir := t.TempDir()
	path := demtest.WriteHGT(t, dir, 41, 140, 11, rampSamples(11, 11))

	src, err := dem.Open(path)
	require.NoError(t, err)
	defer src.Close()

	info := src.Info()
	assert.Equal(t, 11, info.Width)
	assert.Equal(t, dem.FormatHGT, info.Format)
	assert.True(t, info.HasNoData)
	assert.Equal(t, -32768.0, info.NoData)
	// Sample centres sit on whole tenths; the corner is half a pixel out.
	assert.InDelta(t, 139.95, info.Transform[0], 1e-12)
	assert.InDelta(t, 42.05, info.Transform[3], 1e-12)

	got, err := src.ReadWindow(dem.Window{ColOff: 9, RowOff: 10, Cols: 2, Rows: 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{1010, 1011}, got)

	_, err = src.ReadWindow(dem.Window{ColOff: 10, RowOff: 0, Cols: 2, Rows: 1})
	assert.Error(t, err)
}

func TestHGTNames(t *testing.T) {
	assert.Equal(t, "N41E140.hgt", demtest.HGTName(41, 140))
	assert.Equal(t, "S03W061.hgt", demtest.HGTName(-3, -61))

	dir := t.TempDir()
	path := filepath.Join(dir, "elevation.hgt")
	require.NoError(t, os.WriteFile(path, make([]byte, 8), 0644))
	_, err := dem.Open(path)
	assert.True(t, apperr.Is(err, apperr.ErrCodeUnsupportedFormat))

	bad := filepath.Join(dir, "N41E140.hgt")
	require.NoError(t, os.WriteFile(bad, make([]byte, 6), 0644))
	_, err = dem.Open(bad)
	assert.True(t, apperr.Is(err, apperr.ErrCodeCorruptRaster))
}

func TestOpenErrors(t *testing.T) {
	_, err := dem.Open(filepath.Join(t.TempDir(), "missing.tif"))
	assert.True(t, apperr.Is(err, apperr.ErrCodeFileNotFound))

	path := filepath.Join(t.TempDir(), "dem.asc")
	require.NoError(t, os.WriteFile(path, []byte("ncols 1"), 0644))
	_, err = dem.Open(path)
	assert.True(t, apperr.Is(err, apperr.ErrCodeUnsupportedFormat))
}

func TestWindowFromBounds(t *testing.T) {
	gt := dem.GeoTransform(tenthDegree)

	tests := []struct {
		name    string
		bbox    dem.BBox
		want    dem.Window
		wantErr apperr.Code
	}{
		{
			name: "aligned",
			bbox: dem.BBox{West: 140.2, South: 41.3, East: 140.5, North: 41.8},
			want: dem.Window{ColOff: 2, RowOff: 2, Cols: 3, Rows: 5},
		},
		{
			name: "partial pixels are included",
			bbox: dem.BBox{West: 140.25, South: 41.35, East: 140.45, North: 41.75},
			want: dem.Window{ColOff: 2, RowOff: 2, Cols: 3, Rows: 5},
		},
		{
			name: "clamped to raster",
			bbox: dem.BBox{West: 139, South: 40, East: 140.3, North: 43},
			want: dem.Window{ColOff: 0, RowOff: 0, Cols: 3, Rows: 10},
		},
		{
			name:    "outside",
			bbox:    dem.BBox{West: 10, South: 10, East: 11, North: 11},
			wantErr: apperr.ErrCodeEmptyWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dem.WindowFromBounds(tt.bbox, gt, 10, 10)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanRules(t *testing.T) {
	values := []float64{-32767, -30000, -30001, 0, 0.5, 12, math.NaN(), -3}
	dem.Clean(values, dem.CleanOptions{NoData: -32767, HasNoData: true, ZeroIsNoData: true})

	missing := []bool{true, true, true, true, false, false, true, false}
	for i, v := range values {
		assert.Equal(t, missing[i], math.IsNaN(v), "index %d", i)
	}

	zero := []float64{0}
	dem.Clean(zero, dem.CleanOptions{})
	assert.Equal(t, 0.0, zero[0], "zero kept when ZeroIsNoData is off")
}

func TestLoad(t *testing.T) {
	samples := rampSamples(10, 10)
	samples[2*10+2] = 0
	samples[2*10+3] = -32767
	path := filepath.Join(t.TempDir(), "dem.tif")
	demtest.WriteGeoTIFF(t, path, 10, 10, samples, tenthDegree, demtest.TIFFOptions{NoData: "-32767", RowsPerStrip: 3})

	bbox := dem.BBox{West: 140.2, South: 41.3, East: 140.5, North: 41.8}
	g, err := dem.LoadFile(path, bbox, dem.LoadOptions{ZeroIsNoData: true})
	require.NoError(t, err)

	rows, cols := g.Dims()
	assert.Equal(t, 5, rows)
	assert.Equal(t, 3, cols)
	assert.True(t, g.IsMissing(0, 0), "zero is missing")
	assert.True(t, g.IsMissing(0, 1), "nodata is missing")
	assert.Equal(t, 205.0, g.At(0, 2))
	assert.Equal(t, bbox.Extent(), g.Extent)
	assert.InDelta(t, 140.2, g.Transform[0], 1e-9)
	assert.InDelta(t, 41.8, g.Transform[3], 1e-9)

	lo, hi, err := g.ValidRange()
	require.NoError(t, err)
	assert.Equal(t, 205.0, lo)
	assert.Equal(t, 605.0, hi)
	assert.Equal(t, 13, g.ValidCount())
}

func TestLoadAllMissing(t *testing.T) {
	samples := make([]int16, 11*11)
	path := demtest.WriteHGT(t, t.TempDir(), 41, 140, 11, samples)

	_, err := dem.LoadFile(path, dem.BBox{West: 140.2, South: 41.2, East: 140.6, North: 41.6}, dem.LoadOptions{ZeroIsNoData: true})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrCodeNoValidData))
}

func TestLoadOutsideRaster(t *testing.T) {
	path := demtest.WriteHGT(t, t.TempDir(), 41, 140, 11, rampSamples(11, 11))

	_, err := dem.LoadFile(path, dem.BBox{West: 10, South: 10, East: 11, North: 11}, dem.LoadOptions{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrCodeEmptyWindow))

	_, err = dem.LoadFile(path, dem.BBox{West: 141, South: 41, East: 140, North: 42}, dem.LoadOptions{})
	assert.True(t, apperr.Is(err, apperr.ErrCodeInvalidBBox))
}

func TestGridBinaryRoundTrip(t *testing.T) {
	g := dem.NewGrid(2, 2, []float64{1, math.NaN(), 3, 4}, dem.GeoTransform(tenthDegree),
		dem.Extent{MinLon: 140, MaxLon: 140.2, MinLat: 41.8, MaxLat: 42})

	data, err := g.MarshalBinary()
	require.NoError(t, err)

	var back dem.Grid
	require.NoError(t, back.UnmarshalBinary(data))
	assert.Equal(t, g.Transform, back.Transform)
	assert.Equal(t, g.Extent, back.Extent)
	assert.True(t, back.IsMissing(0, 1))
	assert.Equal(t, 4.0, back.At(1, 1))
}

func TestValidRangeEmpty(t *testing.T) {
	g := dem.NewGrid(1, 2, []float64{math.NaN(), math.NaN()}, dem.GeoTransform{}, dem.Extent{})
	lo, hi, err := g.ValidRange()
	assert.True(t, apperr.Is(err, apperr.ErrCodeNoValidData))
	assert.True(t, math.IsNaN(lo))
	assert.True(t, math.IsNaN(hi))
}
