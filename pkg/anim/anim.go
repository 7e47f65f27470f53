// Package anim assembles rendered frames into looping GIF animations.
//
// Each frame is dithered onto a fixed palette with Floyd–Steinberg error
// diffusion, one after another in input order.
package anim

import (
	"bufio"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"io"
	"math"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	apperr "github.com/matzehuels/sealevel/pkg/errors"
)

// Palette is the colour table every frame is quantised to.
var Palette color.Palette = palette.Plan9

// Delay returns the per-frame delay in hundredths of a second for fps,
// never less than one.
func Delay(fps float64) int {
	return max(1, int(math.Round(100/fps)))
}

// Assemble builds an endlessly looping animation with one frame per image,
// each shown for 1/fps seconds. All frames must have the same size;
// otherwise Assemble fails with FRAME_SHAPE.
func Assemble(frames []image.Image, fps float64) (*gif.GIF, error) {
	if len(frames) == 0 {
		return nil, apperr.New(apperr.ErrCodeInvalidInput, "no frames to animate")
	}
	if err := apperr.ValidateFPS(fps); err != nil {
		return nil, err
	}
	size := frames[0].Bounds().Size()
	for i, f := range frames {
		if got := f.Bounds().Size(); got != size {
			return nil, apperr.New(apperr.ErrCodeFrameShape,
				"frame %d is %dx%d, want %dx%d", i, got.X, got.Y, size.X, size.Y)
		}
	}

	out := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		LoopCount: 0,
		Config:    image.Config{Width: size.X, Height: size.Y, ColorModel: Palette},
	}
	delay := Delay(fps)
	for i, f := range frames {
		out.Image[i] = quantize(f)
		out.Delay[i] = delay
	}
	return out, nil
}

// quantize dithers img onto Palette, anchored at the origin.
func quantize(img image.Image) *image.Paletted {
	b := img.Bounds()
	dst := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), Palette)
	xdraw.FloydSteinberg.Draw(dst, dst.Bounds(), img, b.Min)
	return dst
}

// Encode assembles frames and writes the GIF to w.
func Encode(w io.Writer, frames []image.Image, fps float64) error {
	g, err := Assemble(frames, fps)
	if err != nil {
		return err
	}
	return encode(w, g)
}

func encode(w io.Writer, g *gif.GIF) error {
	if err := gif.EncodeAll(w, g); err != nil {
		return apperr.Wrap(apperr.ErrCodeEncodeFailed, err, "encode gif")
	}
	return nil
}

// WriteFile assembles frames and writes the animation to path, creating
// parent directories. Nothing is written when the frames are rejected, and
// a partly written file is removed.
func WriteFile(path string, frames []image.Image, fps float64) (err error) {
	g, err := Assemble(frames, fps)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidPath, err, "create directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidPath, err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = apperr.Wrap(apperr.ErrCodeEncodeFailed, cerr, "close %s", path)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	w := bufio.NewWriter(f)
	if err := encode(w, g); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return apperr.Wrap(apperr.ErrCodeEncodeFailed, err, "write %s", path)
	}
	return nil
}
