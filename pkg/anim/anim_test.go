package anim

import (
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/matzehuels/sealevel/pkg/errors"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDelay(t *testing.T) {
	tests := []struct {
		fps  float64
		want int
	}{
		{1.5, 67},
		{2, 50},
		{1, 100},
		{100, 1},
		{30, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Delay(tt.fps), "fps %g", tt.fps)
	}
}

func TestAssemble(t *testing.T) {
	frames := []image.Image{
		solid(8, 6, color.White),
		solid(8, 6, color.Black),
		solid(8, 6, color.RGBA{R: 255, A: 255}),
	}

	g, err := Assemble(frames, 1.5)
	require.NoError(t, err)
	assert.Len(t, g.Image, 3)
	assert.Equal(t, []int{67, 67, 67}, g.Delay)
	assert.Equal(t, 0, g.LoopCount)

	// Order is preserved.
	r, _, _, _ := g.Image[0].At(1, 1).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	r, _, _, _ = g.Image[1].At(1, 1).RGBA()
	assert.Equal(t, uint32(0), r)
}

func TestAssembleOffsetBounds(t *testing.T) {
	sub := solid(10, 10, color.White).(*image.RGBA).SubImage(image.Rect(2, 2, 6, 6))
	g, err := Assemble([]image.Image{sub}, 2)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), g.Image[0].Bounds())
}

func TestAssembleErrors(t *testing.T) {
	_, err := Assemble(nil, 2)
	assert.True(t, apperr.Is(err, apperr.ErrCodeInvalidInput))

	_, err = Assemble([]image.Image{solid(4, 4, color.White), solid(5, 4, color.White)}, 2)
	assert.True(t, apperr.Is(err, apperr.ErrCodeFrameShape))

	_, err = Assemble([]image.Image{solid(4, 4, color.White)}, 0)
	assert.True(t, apperr.Is(err, apperr.ErrCodeInvalidConfig))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "simulation_2d.gif")
	frames := []image.Image{solid(6, 4, color.White), solid(6, 4, color.Black)}

	require.NoError(t, WriteFile(path, frames, 2))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	g, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, g.Image, 2)
	assert.Equal(t, []int{50, 50}, g.Delay)
	assert.Equal(t, 6, g.Config.Width)
	assert.Equal(t, 4, g.Config.Height)
}

func TestWriteFileRejectsWithoutCreating(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		frames []image.Image
		fps    float64
		want   apperr.Code
	}{
		{"no frames", nil, 2, apperr.ErrCodeInvalidInput},
		{"zero fps", []image.Image{solid(2, 2, color.White)}, 0, apperr.ErrCodeInvalidConfig},
		{"mismatched shapes", []image.Image{solid(2, 2, color.White), solid(3, 2, color.White)}, 2, apperr.ErrCodeFrameShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "anim", tt.name+".gif")
			err := WriteFile(path, tt.frames, tt.fps)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, tt.want), "got %v", err)
			assert.NoFileExists(t, path)
		})
	}
}
