package dem

import (
	"fmt"

	apperr "github.com/matzehuels/sealevel/pkg/errors"
)

// LoadOptions controls how a raster window is cleaned.
type LoadOptions struct {
	// ZeroIsNoData treats exact zero elevations as missing.
	ZeroIsNoData bool
}

// Load crops src to bbox and returns the cleaned elevation grid.
//
// Only the pixel window intersecting bbox is read. Cells equal to the
// source's nodata sentinel, at or below MinValidElevation, or exactly zero
// (when opts.ZeroIsNoData is set) become NaN. The grid's Extent is bbox
// itself, which is what the renderers map onto their axes.
//
// Load fails with EMPTY_WINDOW when bbox misses the raster and with
// NO_VALID_DATA when every cell of the window is missing.
func Load(src Source, bbox BBox, opts LoadOptions) (*Grid, error) {
	if err := bbox.Validate(); err != nil {
		return nil, err
	}

	info := src.Info()
	win, err := WindowFromBounds(bbox, info.Transform, info.Width, info.Height)
	if err != nil {
		return nil, err
	}

	values, err := src.ReadWindow(win)
	if err != nil {
		return nil, fmt.Errorf("read window: %w", err)
	}
	if len(values) != win.Rows*win.Cols {
		return nil, apperr.New(apperr.ErrCodeCorruptRaster, "read %d samples, want %d", len(values), win.Rows*win.Cols)
	}

	Clean(values, CleanOptions{
		NoData:       info.NoData,
		HasNoData:    info.HasNoData,
		ZeroIsNoData: opts.ZeroIsNoData,
	})

	g := NewGrid(win.Rows, win.Cols, values, info.Transform.Shift(win.ColOff, win.RowOff), bbox.Extent())
	if _, _, err := g.ValidRange(); err != nil {
		return nil, err
	}
	return g, nil
}

// LoadFile opens path, loads the bbox window and closes the raster.
func LoadFile(path string, bbox BBox, opts LoadOptions) (*Grid, error) {
	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return Load(src, bbox, opts)
}
