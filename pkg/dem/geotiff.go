package dem

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/image/tiff/lzw"

	apperr "github.com/matzehuels/sealevel/pkg/errors"
)

// TIFF tags used by the reader.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339

	tagModelPixelScale    = 33550
	tagModelTiepoint      = 33922
	tagModelTransform     = 34264
	tagGeoKeyDirectory    = 34735
	tagGDALNoData         = 42113
	geoKeyRasterType      = 1025
	rasterPixelIsPoint    = 2
	compressionNone       = 1
	compressionLZW        = 5
	compressionDeflate    = 8
	compressionDeflateOld = 32946
	predictorNone         = 1
	predictorHorizontal   = 2
	sampleFormatUint      = 1
	sampleFormatInt       = 2
	sampleFormatFloat     = 3
)

// TIFF field types and their sizes in bytes.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndefined = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
)

var dtSize = map[uint16]int{
	dtByte: 1, dtASCII: 1, dtShort: 2, dtLong: 4, dtRational: 8, dtSByte: 1,
	dtUndefined: 1, dtSShort: 2, dtSLong: 4, dtSRational: 8, dtFloat: 4, dtDouble: 8,
}

// ifdEntry is a raw directory entry with its payload resolved.
type ifdEntry struct {
	typ   uint16
	count uint32
	data  []byte
}

// tiffSource reads the first image of a classic (non-Big) TIFF file with
// GeoTIFF georeferencing. Strips and tiles are decoded lazily, only those
// intersecting a requested window.
type tiffSource struct {
	f    *os.File
	size int64
	bo   binary.ByteOrder
	info Info

	bits         int
	sampleFormat int
	compression  int
	predictor    int

	blockW, blockH int
	blocksAcross   int
	tiled          bool
	offsets        []uint64
	counts         []uint64
}

// OpenGeoTIFF opens a single-band GeoTIFF elevation raster.
func OpenGeoTIFF(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeFileNotFound, err, "open %s", path)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, apperr.Wrap(apperr.ErrCodeFileNotFound, err, "stat %s", path)
	}
	s := &tiffSource{f: f, size: st.Size()}
	if err := s.readHeader(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *tiffSource) Info() Info { return s.info }

func (s *tiffSource) Close() error {
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("close geotiff: %w", err)
	}
	return nil
}

func (s *tiffSource) readHeader() error {
	var hdr [8]byte
	if _, err := s.f.ReadAt(hdr[:], 0); err != nil {
		return apperr.Wrap(apperr.ErrCodeCorruptRaster, err, "read tiff header")
	}
	switch string(hdr[:2]) {
	case "II":
		s.bo = binary.LittleEndian
	case "MM":
		s.bo = binary.BigEndian
	default:
		return apperr.New(apperr.ErrCodeUnsupportedFormat, "not a TIFF file")
	}
	switch s.bo.Uint16(hdr[2:4]) {
	case 42:
	case 43:
		return apperr.New(apperr.ErrCodeUnsupportedFormat, "BigTIFF is not supported")
	default:
		return apperr.New(apperr.ErrCodeUnsupportedFormat, "bad TIFF magic number")
	}

	entries, err := s.readIFD(int64(s.bo.Uint32(hdr[4:8])))
	if err != nil {
		return err
	}
	return s.configure(entries)
}

func (s *tiffSource) readIFD(off int64) (map[uint16]ifdEntry, error) {
	var nb [2]byte
	if _, err := s.f.ReadAt(nb[:], off); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeCorruptRaster, err, "read IFD")
	}
	n := int(s.bo.Uint16(nb[:]))
	raw := make([]byte, n*12)
	if _, err := s.f.ReadAt(raw, off+2); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeCorruptRaster, err, "read IFD entries")
	}

	entries := make(map[uint16]ifdEntry, n)
	for i := 0; i < n; i++ {
		e := raw[i*12 : i*12+12]
		tag := s.bo.Uint16(e[0:2])
		typ := s.bo.Uint16(e[2:4])
		count := s.bo.Uint32(e[4:8])
		size, ok := dtSize[typ]
		if !ok {
			continue
		}
		length := int64(size) * int64(count)
		var data []byte
		if length <= 4 {
			data = append([]byte(nil), e[8:8+length]...)
		} else {
			data = make([]byte, length)
			if _, err := s.f.ReadAt(data, int64(s.bo.Uint32(e[8:12]))); err != nil {
				return nil, apperr.Wrap(apperr.ErrCodeCorruptRaster, err, "read tag %d", tag)
			}
		}
		entries[tag] = ifdEntry{typ: typ, count: count, data: data}
	}
	return entries, nil
}

// uints decodes an integer-typed entry.
func (s *tiffSource) uints(e ifdEntry) []uint64 {
	out := make([]uint64, 0, e.count)
	for i := 0; i < int(e.count); i++ {
		switch e.typ {
		case dtByte, dtUndefined:
			out = append(out, uint64(e.data[i]))
		case dtShort:
			out = append(out, uint64(s.bo.Uint16(e.data[i*2:])))
		case dtLong:
			out = append(out, uint64(s.bo.Uint32(e.data[i*4:])))
		}
	}
	return out
}

// doubles decodes a floating point entry.
func (s *tiffSource) doubles(e ifdEntry) []float64 {
	out := make([]float64, 0, e.count)
	for i := 0; i < int(e.count); i++ {
		switch e.typ {
		case dtDouble:
			out = append(out, math.Float64frombits(s.bo.Uint64(e.data[i*8:])))
		case dtFloat:
			out = append(out, float64(math.Float32frombits(s.bo.Uint32(e.data[i*4:]))))
		}
	}
	return out
}

func (s *tiffSource) first(entries map[uint16]ifdEntry, tag uint16, def uint64) uint64 {
	e, ok := entries[tag]
	if !ok {
		return def
	}
	v := s.uints(e)
	if len(v) == 0 {
		return def
	}
	return v[0]
}

func (s *tiffSource) configure(entries map[uint16]ifdEntry) error {
	width := int(s.first(entries, tagImageWidth, 0))
	height := int(s.first(entries, tagImageLength, 0))
	if width <= 0 || height <= 0 {
		return apperr.New(apperr.ErrCodeCorruptRaster, "missing image dimensions")
	}
	if spp := s.first(entries, tagSamplesPerPixel, 1); spp != 1 {
		return apperr.New(apperr.ErrCodeUnsupportedFormat, "expected a single band, found %d samples per pixel", spp)
	}
	if pc := s.first(entries, tagPlanarConfig, 1); pc != 1 && pc != 2 {
		return apperr.New(apperr.ErrCodeCorruptRaster, "bad planar configuration %d", pc)
	}

	s.bits = int(s.first(entries, tagBitsPerSample, 1))
	s.sampleFormat = int(s.first(entries, tagSampleFormat, sampleFormatUint))
	s.compression = int(s.first(entries, tagCompression, compressionNone))
	s.predictor = int(s.first(entries, tagPredictor, predictorNone))
	if err := s.checkSampleType(); err != nil {
		return err
	}
	switch s.compression {
	case compressionNone, compressionLZW, compressionDeflate, compressionDeflateOld:
	default:
		return apperr.New(apperr.ErrCodeUnsupportedFormat, "unsupported compression %d", s.compression)
	}
	switch {
	case s.predictor == predictorNone:
	case s.predictor == predictorHorizontal && s.sampleFormat != sampleFormatFloat:
	default:
		return apperr.New(apperr.ErrCodeUnsupportedFormat, "unsupported predictor %d", s.predictor)
	}

	if _, ok := entries[tagTileWidth]; ok {
		s.tiled = true
		s.blockW = int(s.first(entries, tagTileWidth, 0))
		s.blockH = int(s.first(entries, tagTileLength, 0))
		s.offsets = s.uints(entries[tagTileOffsets])
		s.counts = s.uints(entries[tagTileByteCounts])
	} else {
		s.blockW = width
		s.blockH = int(s.first(entries, tagRowsPerStrip, uint64(height)))
		if s.blockH > height {
			s.blockH = height
		}
		s.offsets = s.uints(entries[tagStripOffsets])
		s.counts = s.uints(entries[tagStripByteCounts])
	}
	if s.blockW <= 0 || s.blockH <= 0 {
		return apperr.New(apperr.ErrCodeCorruptRaster, "bad block size %dx%d", s.blockW, s.blockH)
	}
	s.blocksAcross = (width + s.blockW - 1) / s.blockW
	blocksDown := (height + s.blockH - 1) / s.blockH
	if need := s.blocksAcross * blocksDown; len(s.offsets) < need || len(s.counts) < need {
		return apperr.New(apperr.ErrCodeCorruptRaster, "expected %d data blocks, found %d offsets and %d byte counts",
			need, len(s.offsets), len(s.counts))
	}

	gt, err := s.geoTransform(entries)
	if err != nil {
		return err
	}

	s.info = Info{Width: width, Height: height, Transform: gt, Format: FormatGeoTIFF}
	if e, ok := entries[tagGDALNoData]; ok {
		txt := strings.TrimSpace(strings.TrimRight(string(e.data), "\x00"))
		if v, err := strconv.ParseFloat(txt, 64); err == nil {
			s.info.NoData = v
			s.info.HasNoData = true
		}
	}
	return nil
}

func (s *tiffSource) checkSampleType() error {
	ok := false
	switch s.sampleFormat {
	case sampleFormatUint, sampleFormatInt:
		ok = s.bits == 8 || s.bits == 16 || s.bits == 32
	case sampleFormatFloat:
		ok = s.bits == 32 || s.bits == 64
	}
	if !ok {
		return apperr.New(apperr.ErrCodeUnsupportedFormat, "unsupported sample type: format %d with %d bits", s.sampleFormat, s.bits)
	}
	return nil
}

// geoTransform derives the pixel-to-geographic transform from either the
// ModelTransformation tag or the ModelPixelScale/ModelTiepoint pair.
func (s *tiffSource) geoTransform(entries map[uint16]ifdEntry) (GeoTransform, error) {
	var gt GeoTransform
	if e, ok := entries[tagModelTransform]; ok {
		m := s.doubles(e)
		if len(m) < 16 {
			return gt, apperr.New(apperr.ErrCodeCorruptRaster, "short ModelTransformation tag")
		}
		gt = GeoTransform{m[3], m[0], m[1], m[7], m[4], m[5]}
	} else {
		se, okScale := entries[tagModelPixelScale]
		te, okTie := entries[tagModelTiepoint]
		if !okScale || !okTie {
			return gt, apperr.New(apperr.ErrCodeUnsupportedFormat, "raster is not georeferenced")
		}
		scale, tie := s.doubles(se), s.doubles(te)
		if len(scale) < 2 || len(tie) < 6 {
			return gt, apperr.New(apperr.ErrCodeCorruptRaster, "short georeferencing tags")
		}
		gt = GeoTransform{tie[3] - tie[0]*scale[0], scale[0], 0, tie[4] + tie[1]*scale[1], 0, -scale[1]}
	}

	if e, ok := entries[tagGeoKeyDirectory]; ok && s.pixelIsPoint(s.uints(e)) {
		gt[0] -= 0.5 * (gt[1] + gt[2])
		gt[3] -= 0.5 * (gt[4] + gt[5])
	}
	return gt, nil
}

// pixelIsPoint reports whether the GeoKey directory declares point rasters,
// whose tiepoints refer to pixel centres instead of corners.
func (s *tiffSource) pixelIsPoint(dir []uint64) bool {
	if len(dir) < 4 {
		return false
	}
	n := int(dir[3])
	for i := 0; i < n && 4+i*4+3 < len(dir); i++ {
		k := dir[4+i*4:]
		if k[0] == geoKeyRasterType && k[1] == 0 {
			return k[3] == rasterPixelIsPoint
		}
	}
	return false
}

func (s *tiffSource) ReadWindow(w Window) ([]float64, error) {
	if w.Empty() || w.ColOff < 0 || w.RowOff < 0 || w.ColOff+w.Cols > s.info.Width || w.RowOff+w.Rows > s.info.Height {
		return nil, apperr.New(apperr.ErrCodeInvalidInput, "window %+v outside %dx%d raster", w, s.info.Width, s.info.Height)
	}

	out := make([]float64, w.Rows*w.Cols)
	bx0, bx1 := w.ColOff/s.blockW, (w.ColOff+w.Cols-1)/s.blockW
	by0, by1 := w.RowOff/s.blockH, (w.RowOff+w.Rows-1)/s.blockH

	for by := by0; by <= by1; by++ {
		for bx := bx0; bx <= bx1; bx++ {
			idx := by*s.blocksAcross + bx
			bw, bh := s.blockW, s.blockH
			if !s.tiled && (by+1)*s.blockH > s.info.Height {
				bh = s.info.Height - by*s.blockH
			}
			block, err := s.decodeBlock(idx, bw, bh)
			if err != nil {
				return nil, err
			}

			// Copy the block's intersection with the window.
			x0 := max(w.ColOff, bx*s.blockW)
			x1 := min(w.ColOff+w.Cols, min((bx+1)*s.blockW, s.info.Width))
			y0 := max(w.RowOff, by*s.blockH)
			y1 := min(w.RowOff+w.Rows, min(by*s.blockH+bh, s.info.Height))
			for y := y0; y < y1; y++ {
				src := block[(y-by*s.blockH)*bw:]
				dst := out[(y-w.RowOff)*w.Cols:]
				for x := x0; x < x1; x++ {
					dst[x-w.ColOff] = src[x-bx*s.blockW]
				}
			}
		}
	}
	return out, nil
}

// decodeBlock reads, decompresses and converts one strip or tile into
// bw×bh samples.
func (s *tiffSource) decodeBlock(idx, bw, bh int) ([]float64, error) {
	off, count := s.offsets[idx], s.counts[idx]
	if off > uint64(s.size) || count > uint64(s.size)-off {
		return nil, apperr.New(apperr.ErrCodeCorruptRaster, "block %d (%d bytes at %d) lies outside the %d byte file", idx, count, off, s.size)
	}
	raw := make([]byte, count)
	if _, err := s.f.ReadAt(raw, int64(off)); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeCorruptRaster, err, "read block %d", idx)
	}

	var data []byte
	var err error
	switch s.compression {
	case compressionNone:
		data = raw
	case compressionLZW:
		r := lzw.NewReader(bytes.NewReader(raw), lzw.MSB, 8)
		data, err = io.ReadAll(r)
		r.Close()
	case compressionDeflate, compressionDeflateOld:
		var zr io.ReadCloser
		if zr, err = zlib.NewReader(bytes.NewReader(raw)); err == nil {
			data, err = io.ReadAll(zr)
			zr.Close()
		}
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeCorruptRaster, err, "decompress block %d", idx)
	}

	bps := s.bits / 8
	n := bw * bh
	if len(data) < n*bps {
		return nil, apperr.New(apperr.ErrCodeCorruptRaster, "block %d: %d bytes, want %d", idx, len(data), n*bps)
	}

	bitsv := make([]uint64, n)
	for i := range bitsv {
		p := data[i*bps:]
		switch bps {
		case 1:
			bitsv[i] = uint64(p[0])
		case 2:
			bitsv[i] = uint64(s.bo.Uint16(p))
		case 4:
			bitsv[i] = uint64(s.bo.Uint32(p))
		case 8:
			bitsv[i] = s.bo.Uint64(p)
		}
	}

	if s.predictor == predictorHorizontal {
		mask := uint64(1)<<uint(s.bits) - 1
		for y := 0; y < bh; y++ {
			row := bitsv[y*bw : (y+1)*bw]
			for x := 1; x < bw; x++ {
				row[x] = (row[x] + row[x-1]) & mask
			}
		}
	}

	out := make([]float64, n)
	for i, b := range bitsv {
		out[i] = s.sample(b)
	}
	return out, nil
}

// sample converts raw sample bits to a float according to the sample type.
func (s *tiffSource) sample(b uint64) float64 {
	switch s.sampleFormat {
	case sampleFormatInt:
		switch s.bits {
		case 8:
			return float64(int8(b))
		case 16:
			return float64(int16(b))
		default:
			return float64(int32(b))
		}
	case sampleFormatFloat:
		if s.bits == 32 {
			return float64(math.Float32frombits(uint32(b)))
		}
		return math.Float64frombits(b)
	}
	return float64(b)
}
