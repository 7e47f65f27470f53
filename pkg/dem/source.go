package dem

import (
	"os"
	"path/filepath"
	"strings"

	apperr "github.com/matzehuels/sealevel/pkg/errors"
)

// Format names reported in Info.
const (
	FormatGeoTIFF = "GeoTIFF"
	FormatHGT     = "SRTM HGT"
)

// Info describes a single-band elevation raster.
type Info struct {
	Width     int
	Height    int
	Transform GeoTransform
	NoData    float64
	HasNoData bool
	Format    string
}

// Source is an open single-band elevation raster.
type Source interface {
	// Info returns the raster dimensions, georeferencing and nodata sentinel.
	Info() Info

	// ReadWindow returns the window's samples in row-major order as raw
	// values (no nodata handling). Implementations read only the parts of
	// the file that intersect the window.
	ReadWindow(w Window) ([]float64, error)

	// Close releases the underlying file.
	Close() error
}

// Open opens an elevation raster, choosing the reader from the file
// extension: .tif/.tiff for GeoTIFF and .hgt for SRTM height tiles.
func Open(path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Wrap(apperr.ErrCodeFileNotFound, err, "elevation raster %s", path)
		}
		return nil, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "stat %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return OpenGeoTIFF(path)
	case ".hgt":
		return OpenHGT(path)
	}
	return nil, apperr.New(apperr.ErrCodeUnsupportedFormat,
		"unsupported raster %s (want .tif, .tiff or .hgt)", filepath.Base(path))
}
