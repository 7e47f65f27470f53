// Package demtest writes small elevation rasters for tests.
package demtest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// HGTName returns the SRTM tile file name for a south-west corner.
func HGTName(lat, lon int) string {
	ns, ew := "N", "E"
	if lat < 0 {
		ns, lat = "S", -lat
	}
	if lon < 0 {
		ew, lon = "W", -lon
	}
	return fmt.Sprintf("%s%02d%s%03d.hgt", ns, lat, ew, lon)
}

// WriteHGT writes a side×side SRTM tile named after its south-west corner
// into dir and returns its path. Samples are row-major, north row first.
func WriteHGT(tb testing.TB, dir string, lat, lon, side int, samples []int16) string {
	tb.Helper()
	if len(samples) != side*side {
		tb.Fatalf("WriteHGT: %d samples for a %dx%d tile", len(samples), side, side)
	}
	buf := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.BigEndian.PutUint16(buf[i*2:], uint16(v))
	}
	path := filepath.Join(dir, HGTName(lat, lon))
	if err := os.WriteFile(path, buf, 0644); err != nil {
		tb.Fatalf("WriteHGT: %v", err)
	}
	return path
}

// SampleType selects how GeoTIFF samples are stored.
type SampleType int

// Sample types supported by the GeoTIFF reader. Int16 is the zero value.
const (
	Int16 SampleType = iota
	Uint8
	Uint16
	Uint32
	Int32
	Float32
	Float64
)

// layout returns the BitsPerSample and SampleFormat tag values of t.
func (t SampleType) layout() (bits, format uint16) {
	switch t {
	case Uint8:
		return 8, 1
	case Uint16:
		return 16, 1
	case Uint32:
		return 32, 1
	case Int32:
		return 32, 2
	case Float32:
		return 32, 3
	case Float64:
		return 64, 3
	}
	return 16, 2
}

// encode returns the raw bit pattern of v stored as t.
func (t SampleType) encode(v float64) uint64 {
	switch t {
	case Uint8:
		return uint64(uint8(v))
	case Uint16:
		return uint64(uint16(v))
	case Uint32:
		return uint64(uint32(v))
	case Int32:
		return uint64(uint32(int32(v)))
	case Float32:
		return uint64(math.Float32bits(float32(v)))
	case Float64:
		return math.Float64bits(v)
	}
	return uint64(uint16(int16(v)))
}

// TIFFOptions controls the layout of a test GeoTIFF.
type TIFFOptions struct {
	// Sample is the stored sample type; Int16 by default.
	Sample SampleType

	// BigEndian writes an "MM" file instead of "II".
	BigEndian bool

	// RowsPerStrip splits the image into strips; 0 writes a single strip.
	// Ignored for tiled files.
	RowsPerStrip int

	// TileWidth and TileHeight write a tiled file when both are positive.
	// Edge tiles are padded with zeros.
	TileWidth, TileHeight int

	// Deflate compresses blocks with zlib.
	Deflate bool

	// LZW compresses blocks with TIFF LZW.
	LZW bool

	// Predictor applies horizontal differencing before compression.
	// Integer samples only.
	Predictor bool

	// ModelTransform georeferences through the ModelTransformation tag
	// instead of ModelPixelScale and ModelTiepoint. It is the only way to
	// write a rotated transform.
	ModelTransform bool

	// NoData is written to the GDAL_NODATA tag when non-empty.
	NoData string

	// PixelIsPoint marks the raster as point-sampled; the tiepoint then
	// refers to the centre of the first pixel.
	PixelIsPoint bool

	// ByteCount, when non-zero, replaces every stored block byte count.
	ByteCount uint32
}

type tiffEntry struct {
	tag, typ uint16
	count    uint32
	payload  []byte
}

// WriteGeoTIFF writes an int16-valued GeoTIFF with the given GDAL
// geotransform and returns its path. See [WriteRaster].
func WriteGeoTIFF(tb testing.TB, path string, cols, rows int, samples []int16, gt [6]float64, opts TIFFOptions) string {
	tb.Helper()
	vals := make([]float64, len(samples))
	for i, v := range samples {
		vals[i] = float64(v)
	}
	return WriteRaster(tb, path, cols, rows, vals, gt, opts)
}

// WriteRaster writes samples (row-major, north row first) as a
// single-band GeoTIFF laid out according to opts and returns its path.
func WriteRaster(tb testing.TB, path string, cols, rows int, samples []float64, gt [6]float64, opts TIFFOptions) string {
	tb.Helper()
	if len(samples) != cols*rows {
		tb.Fatalf("WriteRaster: %d samples for %dx%d raster", len(samples), cols, rows)
	}
	if opts.Deflate && opts.LZW {
		tb.Fatalf("WriteRaster: Deflate and LZW are exclusive")
	}
	var bo binary.ByteOrder = binary.LittleEndian
	if opts.BigEndian {
		bo = binary.BigEndian
	}
	bits, format := opts.Sample.layout()
	if opts.Predictor && format == 3 {
		tb.Fatalf("WriteRaster: no horizontal predictor for float samples")
	}
	bps := int(bits) / 8
	mask := uint64(1)<<bits - 1

	tiled := opts.TileWidth > 0 && opts.TileHeight > 0
	bw, bh := cols, opts.RowsPerStrip
	if bh <= 0 || bh > rows {
		bh = rows
	}
	if tiled {
		bw, bh = opts.TileWidth, opts.TileHeight
	}

	var blocks [][]byte
	for y0 := 0; y0 < rows; y0 += bh {
		h := bh
		if !tiled {
			h = min(bh, rows-y0)
		}
		for x0 := 0; x0 < cols; x0 += bw {
			data := make([]byte, 0, bw*h*bps)
			word := make([]byte, 8)
			for y := y0; y < y0+h; y++ {
				prev := uint64(0)
				for x := x0; x < x0+bw; x++ {
					var v uint64
					if x < cols && y < rows {
						v = opts.Sample.encode(samples[y*cols+x])
					}
					out := v
					if opts.Predictor && x > x0 {
						out = (v - prev) & mask
					}
					prev = v
					switch bps {
					case 1:
						word[0] = byte(out)
					case 2:
						bo.PutUint16(word, uint16(out))
					case 4:
						bo.PutUint32(word, uint32(out))
					case 8:
						bo.PutUint64(word, out)
					}
					data = append(data, word[:bps]...)
				}
			}
			switch {
			case opts.Deflate:
				var z bytes.Buffer
				zw := zlib.NewWriter(&z)
				_, _ = zw.Write(data)
				_ = zw.Close()
				data = z.Bytes()
			case opts.LZW:
				data = lzwLiterals(data)
			}
			blocks = append(blocks, data)
		}
	}

	u16 := func(vs ...uint16) []byte {
		b := make([]byte, 2*len(vs))
		for i, v := range vs {
			bo.PutUint16(b[i*2:], v)
		}
		return b
	}
	u32 := func(vs ...uint32) []byte {
		b := make([]byte, 4*len(vs))
		for i, v := range vs {
			bo.PutUint32(b[i*4:], v)
		}
		return b
	}
	f64 := func(vs ...float64) []byte {
		b := make([]byte, 8*len(vs))
		for i, v := range vs {
			bo.PutUint64(b[i*8:], math.Float64bits(v))
		}
		return b
	}

	compression := uint16(1)
	switch {
	case opts.Deflate:
		compression = 8
	case opts.LZW:
		compression = 5
	}

	counts := make([]uint32, len(blocks))
	for i, b := range blocks {
		counts[i] = uint32(len(b))
		if opts.ByteCount != 0 {
			counts[i] = opts.ByteCount
		}
	}
	offsetsTag := uint16(273)
	entries := []tiffEntry{
		{256, 4, 1, u32(uint32(cols))},
		{257, 4, 1, u32(uint32(rows))},
		{258, 3, 1, u16(bits)},
		{259, 3, 1, u16(compression)},
		{277, 3, 1, u16(1)},
		{339, 3, 1, u16(format)},
	}
	if tiled {
		offsetsTag = 324
		entries = append(entries,
			tiffEntry{322, 4, 1, u32(uint32(bw))},
			tiffEntry{323, 4, 1, u32(uint32(bh))},
			tiffEntry{324, 4, uint32(len(blocks)), make([]byte, 4*len(blocks))},
			tiffEntry{325, 4, uint32(len(blocks)), u32(counts...)},
		)
	} else {
		entries = append(entries,
			tiffEntry{273, 4, uint32(len(blocks)), make([]byte, 4*len(blocks))},
			tiffEntry{278, 4, 1, u32(uint32(bh))},
			tiffEntry{279, 4, uint32(len(blocks)), u32(counts...)},
		)
	}

	origin := [2]float64{gt[0], gt[3]}
	if opts.PixelIsPoint {
		origin[0] += 0.5 * (gt[1] + gt[2])
		origin[1] += 0.5 * (gt[4] + gt[5])
	}
	if opts.ModelTransform {
		entries = append(entries, tiffEntry{34264, 12, 16, f64(
			gt[1], gt[2], 0, origin[0],
			gt[4], gt[5], 0, origin[1],
			0, 0, 0, 0,
			0, 0, 0, 1,
		)})
	} else {
		entries = append(entries,
			tiffEntry{33550, 12, 3, f64(gt[1], -gt[5], 0)},
			tiffEntry{33922, 12, 6, f64(0, 0, 0, origin[0], origin[1], 0)},
		)
	}
	if opts.Predictor {
		entries = append(entries, tiffEntry{317, 3, 1, u16(2)})
	}
	if opts.PixelIsPoint {
		entries = append(entries, tiffEntry{34735, 3, 8, u16(1, 1, 0, 1, 1025, 0, 1, 2)})
	}
	if opts.NoData != "" {
		s := opts.NoData + "\x00"
		entries = append(entries, tiffEntry{42113, 2, uint32(len(s)), []byte(s)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	// Lay out: header, IFD, out-of-line payloads, block data.
	ifdSize := 2 + 12*len(entries) + 4
	next := uint32(8 + ifdSize)
	offsets := make([]uint32, len(entries))
	for i, e := range entries {
		if len(e.payload) > 4 {
			offsets[i] = next
			next += uint32(len(e.payload))
			next += next % 2
		}
	}
	blockOffsets := make([]uint32, len(blocks))
	for i, b := range blocks {
		blockOffsets[i] = next
		next += uint32(len(b))
	}
	for i := range entries {
		if entries[i].tag == offsetsTag {
			entries[i].payload = u32(blockOffsets...)
		}
	}

	var out bytes.Buffer
	if opts.BigEndian {
		out.WriteString("MM")
	} else {
		out.WriteString("II")
	}
	out.Write(u16(42))
	out.Write(u32(8))
	out.Write(u16(uint16(len(entries))))
	for i, e := range entries {
		out.Write(u16(e.tag, e.typ))
		out.Write(u32(e.count))
		if len(e.payload) > 4 {
			out.Write(u32(offsets[i]))
		} else {
			field := make([]byte, 4)
			copy(field, e.payload)
			out.Write(field)
		}
	}
	out.Write(u32(0))
	for i, e := range entries {
		if len(e.payload) > 4 {
			for uint32(out.Len()) < offsets[i] {
				out.WriteByte(0)
			}
			out.Write(e.payload)
		}
	}
	for i, b := range blocks {
		for uint32(out.Len()) < blockOffsets[i] {
			out.WriteByte(0)
		}
		out.Write(b)
	}

	if err := os.WriteFile(path, out.Bytes(), 0644); err != nil {
		tb.Fatalf("WriteRaster: %v", err)
	}
	return path
}

// lzwLiterals encodes data as a TIFF LZW stream (MSB first) made of
// literal codes only. A clear code every 200 bytes keeps the decoder's
// table below the point where codes widen past 9 bits.
func lzwLiterals(data []byte) []byte {
	const (
		clearCode = 256
		eoiCode   = 257
		width     = 9
	)
	var out []byte
	var acc uint32
	var n uint
	put := func(code uint32) {
		acc = acc<<width | code
		n += width
		for n >= 8 {
			out = append(out, byte(acc>>(n-8)))
			n -= 8
		}
	}
	put(clearCode)
	for i, b := range data {
		if i > 0 && i%200 == 0 {
			put(clearCode)
		}
		put(uint32(b))
	}
	put(eoiCode)
	if n > 0 {
		out = append(out, byte(acc<<(8-n)))
	}
	return out
}
