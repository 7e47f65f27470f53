package frames

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/matzehuels/sealevel/pkg/errors"
	"github.com/matzehuels/sealevel/pkg/render/sink"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNormalize(t *testing.T) {
	in := []image.Image{
		solid(40, 30, color.White),
		solid(41, 30, color.Black),
		solid(40, 30, color.White),
		solid(20, 60, color.White),
	}

	out, err := Normalize(in)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i, img := range out {
		assert.Equal(t, image.Pt(40, 30), img.Bounds().Size(), "frame %d", i)
	}
	assert.Same(t, in[2], out[2], "matching frames are not resampled")

	r, g, b, _ := out[1].At(20, 15).RGBA()
	assert.Equal(t, []uint32{0, 0, 0}, []uint32{r >> 8, g >> 8, b >> 8}, "resizing keeps content")
}

func TestNormalizeErrors(t *testing.T) {
	out, err := Normalize(nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = Normalize([]image.Image{solid(4, 4, color.White), image.NewNRGBA(image.Rect(0, 0, 0, 3))})
	assert.True(t, apperr.Is(err, apperr.ErrCodeFrameShape))
}

func TestNameAndGlob(t *testing.T) {
	assert.Equal(t, "frame_007.png", Name("frame", 7))
	assert.Equal(t, "frame3d_123.png", Name("frame3d", 123))

	dir := t.TempDir()
	for _, i := range []int{2, 0, 1} {
		require.NoError(t, sink.WritePNG(filepath.Join(dir, Name("frame", i)), solid(2, 2, color.White)))
	}
	require.NoError(t, sink.WritePNG(filepath.Join(dir, Name("frame3d", 0)), solid(2, 2, color.White)))

	paths, err := Glob(dir, "frame")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "frame_000.png"),
		filepath.Join(dir, "frame_001.png"),
		filepath.Join(dir, "frame_002.png"),
	}, paths)
}

func TestGlobSortsByIndex(t *testing.T) {
	dir := t.TempDir()
	for _, i := range []int{1000, 101, 99, 2} {
		require.NoError(t, sink.WritePNG(filepath.Join(dir, Name("frame", i)), solid(1, 1, color.White)))
	}
	require.NoError(t, sink.WritePNG(filepath.Join(dir, "frame_extra.png"), solid(1, 1, color.White)))

	paths, err := Glob(dir, "frame")
	require.NoError(t, err)
	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{"frame_002.png", "frame_099.png", "frame_101.png", "frame_1000.png", "frame_extra.png"}, names)
}

func TestImages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, Name("frame3d", 1))
	require.NoError(t, sink.WritePNG(path, solid(3, 2, color.White)))
	mem := solid(5, 5, color.Black)

	imgs, err := Images([]Frame{{Index: 0, Image: mem}, {Index: 1, Level: 5, Path: path}})
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Same(t, mem, imgs[0])
	assert.Equal(t, image.Pt(3, 2), imgs[1].Bounds().Size())

	_, err = Images([]Frame{{Index: 4, Path: filepath.Join(dir, "missing.png")}})
	assert.True(t, apperr.Is(err, apperr.ErrCodeFileNotFound))
}
