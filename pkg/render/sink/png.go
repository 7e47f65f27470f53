package sink

import (
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	apperr "github.com/matzehuels/sealevel/pkg/errors"
)

// WritePNG writes img to path as PNG, creating parent directories.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidPath, err, "create directory for %s", path)
	}
	if err := imaging.Save(img, path); err != nil {
		return apperr.Wrap(apperr.ErrCodeEncodeFailed, err, "write %s", path)
	}
	return nil
}

// ReadPNG decodes the image stored at path.
func ReadPNG(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Wrap(apperr.ErrCodeFileNotFound, err, "frame %s", path)
		}
		return nil, apperr.Wrap(apperr.ErrCodeEncodeFailed, err, "read %s", path)
	}
	return img, nil
}

// TrimBackground crops the margins of img that are entirely bg, keeping pad
// pixels of margin where available. An image that is all background is
// returned unchanged.
func TrimBackground(img image.Image, bg color.Color, pad int) image.Image {
	b := img.Bounds()
	br, bgc, bb, ba := bg.RGBA()
	isBg := func(x, y int) bool {
		r, g, b, a := img.At(x, y).RGBA()
		return r == br && g == bgc && b == bb && a == ba
	}

	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if isBg(x, y) {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < minX {
		return img
	}

	rect := image.Rect(minX-pad, minY-pad, maxX+1+pad, maxY+1+pad).Intersect(b)
	if rect == b {
		return img
	}
	return imaging.Crop(img, rect)
}
