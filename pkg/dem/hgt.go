package dem

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	apperr "github.com/matzehuels/sealevel/pkg/errors"
)

// hgtVoid marks data voids in SRTM height tiles.
const hgtVoid = -32768

// hgtNameRegex matches SRTM tile names such as N41E140 or s03_w061.
var hgtNameRegex = regexp.MustCompile(`^([NSns])(\d{1,2})_?([EWew])(\d{1,3})`)

// hgtSource reads SRTM .hgt tiles: square grids of big-endian int16 samples
// named by their south-west corner. Tiles overlap their neighbours by one
// row and column, so sample centres sit on whole degrees.
type hgtSource struct {
	f    *os.File
	side int
	info Info
}

// OpenHGT opens an SRTM height tile. The tile resolution is derived from the
// file size (1201² for 3 arc-second, 3601² for 1 arc-second data).
func OpenHGT(path string) (Source, error) {
	lat, lon, err := parseHGTName(filepath.Base(path))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeFileNotFound, err, "open %s", path)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "stat %s", path)
	}

	side := int(math.Round(math.Sqrt(float64(st.Size() / 2))))
	if side < 2 || int64(side*side*2) != st.Size() {
		f.Close()
		return nil, apperr.New(apperr.ErrCodeCorruptRaster, "%s: size %d is not a square int16 tile", path, st.Size())
	}

	px := 1 / float64(side-1)
	gt := GeoTransform{float64(lon) - px/2, px, 0, float64(lat+1) + px/2, 0, -px}
	return &hgtSource{
		f:    f,
		side: side,
		info: Info{
			Width:     side,
			Height:    side,
			Transform: gt,
			NoData:    hgtVoid,
			HasNoData: true,
			Format:    FormatHGT,
		},
	}, nil
}

// parseHGTName extracts the south-west corner from a tile name.
func parseHGTName(name string) (lat, lon int, err error) {
	m := hgtNameRegex.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, apperr.New(apperr.ErrCodeUnsupportedFormat, "%s: not an SRTM tile name (want e.g. N41E140.hgt)", name)
	}
	lat, _ = strconv.Atoi(m[2])
	lon, _ = strconv.Atoi(m[4])
	if strings.EqualFold(m[1], "S") {
		lat = -lat
	}
	if strings.EqualFold(m[3], "W") {
		lon = -lon
	}
	if lat < -90 || lat > 89 || lon < -180 || lon > 179 {
		return 0, 0, apperr.New(apperr.ErrCodeUnsupportedFormat, "%s: tile corner out of range", name)
	}
	return lat, lon, nil
}

func (s *hgtSource) Info() Info { return s.info }

func (s *hgtSource) ReadWindow(w Window) ([]float64, error) {
	if w.Empty() || w.ColOff < 0 || w.RowOff < 0 || w.ColOff+w.Cols > s.side || w.RowOff+w.Rows > s.side {
		return nil, apperr.New(apperr.ErrCodeInvalidInput, "window %+v outside %dx%d tile", w, s.side, s.side)
	}

	out := make([]float64, 0, w.Rows*w.Cols)
	buf := make([]byte, w.Cols*2)
	for r := 0; r < w.Rows; r++ {
		off := (int64(w.RowOff+r)*int64(s.side) + int64(w.ColOff)) * 2
		if _, err := s.f.ReadAt(buf, off); err != nil {
			return nil, apperr.Wrap(apperr.ErrCodeCorruptRaster, err, "read row %d", w.RowOff+r)
		}
		for c := 0; c < w.Cols; c++ {
			out = append(out, float64(int16(binary.BigEndian.Uint16(buf[c*2:]))))
		}
	}
	return out, nil
}

func (s *hgtSource) Close() error {
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("close hgt: %w", err)
	}
	return nil
}
