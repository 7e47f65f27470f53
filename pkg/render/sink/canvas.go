package sink

import (
	"fmt"
	"image"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	apperr "github.com/matzehuels/sealevel/pkg/errors"
)

// Canvas creates a w×h raster canvas at dpi, hands it to fn and returns the
// drawn image. The canvas background is white.
//
// A panic inside fn is converted into a RENDER_FAILED error; gonum/plot
// panics on some degenerate inputs and a single bad frame must not take the
// whole process down.
func Canvas(w, h vg.Length, dpi int, fn func(c draw.Canvas) error) (img image.Image, err error) {
	if w <= 0 || h <= 0 || dpi <= 0 {
		return nil, apperr.New(apperr.ErrCodeRenderFailed, "invalid canvas %vx%v at %d dpi", w, h, dpi)
	}

	c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi))
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = apperr.New(apperr.ErrCodeRenderFailed, "draw: %v", r)
		}
	}()

	if err := fn(draw.New(c)); err != nil {
		return nil, fmt.Errorf("draw: %w", err)
	}
	return c.Image(), nil
}
