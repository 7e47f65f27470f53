// Package frames loads rendered frames back from disk and brings them to a
// common pixel size before animation.
package frames

import (
	"fmt"
	"image"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	apperr "github.com/matzehuels/sealevel/pkg/errors"
	"github.com/matzehuels/sealevel/pkg/render/sink"
)

// Frame is one rendered level of a sweep.
type Frame struct {
	Index int     `json:"index"`
	Level float64 `json:"level"`
	Path  string  `json:"path"`

	Image image.Image `json:"-"`
}

// Name returns the file name of frame index with the given prefix, e.g.
// Name("frame", 7) is "frame_007.png".
func Name(prefix string, index int) string {
	return fmt.Sprintf("%s_%03d.png", prefix, index)
}

// Glob lists the frame files with prefix in dir, sorted by frame index.
// Files whose suffix is not a number sort after the numbered ones.
func Glob(dir, prefix string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, prefix+"_*.png"))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidPath, err, "list frames in %s", dir)
	}
	sort.SliceStable(paths, func(i, j int) bool {
		a, aok := index(paths[i], prefix)
		b, bok := index(paths[j], prefix)
		switch {
		case aok && bok && a != b:
			return a < b
		case aok != bok:
			return aok
		}
		return paths[i] < paths[j]
	})
	return paths, nil
}

// index parses the frame number out of a path built by [Name].
func index(path, prefix string) (int, bool) {
	s := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), prefix+"_"), ".png")
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// Images returns the decoded images of fs in order, loading those not yet
// in memory from their path.
func Images(fs []Frame) ([]image.Image, error) {
	out := make([]image.Image, len(fs))
	for i, f := range fs {
		if f.Image != nil {
			out[i] = f.Image
			continue
		}
		img, err := sink.ReadPNG(f.Path)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", f.Index, err)
		}
		out[i] = img
	}
	return out, nil
}

// Normalize resizes every frame to the size of the first one with a
// Lanczos filter. Frames that already match are returned as they are. The
// result has the same length and order as frames.
//
// A zero-sized frame fails with FRAME_SHAPE.
func Normalize(frames []image.Image) ([]image.Image, error) {
	if len(frames) == 0 {
		return nil, nil
	}
	ref := frames[0].Bounds().Size()
	out := make([]image.Image, len(frames))
	for i, f := range frames {
		size := f.Bounds().Size()
		if size.X <= 0 || size.Y <= 0 {
			return nil, apperr.New(apperr.ErrCodeFrameShape, "frame %d is empty (%dx%d)", i, size.X, size.Y)
		}
		if size == ref {
			out[i] = f
			continue
		}
		out[i] = imaging.Resize(f, ref.X, ref.Y, imaging.Lanczos)
	}
	return out, nil
}
