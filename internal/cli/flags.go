package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sealevel/pkg/dem"
	apperr "github.com/matzehuels/sealevel/pkg/errors"
	"github.com/matzehuels/sealevel/pkg/flood"
	"github.com/matzehuels/sealevel/pkg/pipeline"
)

// gridFlags are the flags shared by commands that load a grid. Flags that
// were set override the config file, which overrides the defaults.
type gridFlags struct {
	config   string
	dem      string
	bbox     string
	levels   string
	keepZero bool

	noCache  bool
	cacheDir string
	redis    string
}

func (f *gridFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "", "TOML config file")
	fl.StringVar(&f.dem, "dem", "", "elevation raster (.tif, .tiff or .hgt)")
	fl.StringVar(&f.bbox, "bbox", "", "bounding box as west,south,east,north in degrees")
	fl.StringVar(&f.levels, "levels", "", "sea levels as start:stop:step in metres")
	fl.BoolVar(&f.keepZero, "keep-zero", false, "keep zero elevations instead of treating them as nodata")
	fl.BoolVar(&f.noCache, "no-cache", false, "disable the grid cache")
	fl.StringVar(&f.cacheDir, "cache-dir", "", "grid cache directory")
	fl.StringVar(&f.redis, "redis", "", "share the grid cache through Redis at this address")
}

// load builds the config for cmd.
func (f *gridFlags) load(cmd *cobra.Command) (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	if f.config != "" {
		var err error
		if cfg, err = pipeline.LoadConfig(f.config); err != nil {
			return pipeline.Config{}, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("dem") {
		cfg.DEMPath = f.dem
	}
	if changed("bbox") {
		b, err := parseBBox(f.bbox)
		if err != nil {
			return pipeline.Config{}, err
		}
		cfg.BBox = b
	}
	if changed("levels") {
		r, err := parseLevels(f.levels)
		if err != nil {
			return pipeline.Config{}, err
		}
		cfg.Levels = r
	}
	if changed("keep-zero") {
		cfg.ZeroIsNoData = !f.keepZero
	}
	if changed("no-cache") {
		cfg.NoCache = f.noCache
	}
	if changed("cache-dir") {
		cfg.CacheDir = f.cacheDir
	}
	if changed("redis") {
		cfg.RedisAddr = f.redis
	}
	return cfg, nil
}

func cacheOptsFor(cfg pipeline.Config) cacheOpts {
	return cacheOpts{disabled: cfg.NoCache, dir: cfg.CacheDir, redis: cfg.RedisAddr}
}

// parseBBox parses "west,south,east,north".
func parseBBox(s string) (dem.BBox, error) {
	v, err := parseFloats(s, ",", 4)
	if err != nil {
		return dem.BBox{}, apperr.Wrap(apperr.ErrCodeInvalidBBox, err, "bbox %q must be west,south,east,north", s)
	}
	b := dem.BBox{West: v[0], South: v[1], East: v[2], North: v[3]}
	if err := b.Validate(); err != nil {
		return dem.BBox{}, err
	}
	return b, nil
}

// parseLevels parses "start:stop:step".
func parseLevels(s string) (flood.LevelRange, error) {
	v, err := parseFloats(s, ":", 3)
	if err != nil {
		return flood.LevelRange{}, apperr.Wrap(apperr.ErrCodeInvalidLevels, err, "levels %q must be start:stop:step", s)
	}
	r := flood.LevelRange{Start: v[0], Stop: v[1], Step: v[2]}
	if err := r.Validate(); err != nil {
		return flood.LevelRange{}, err
	}
	return r, nil
}

func parseFloats(s, sep string, n int) ([]float64, error) {
	parts := strings.Split(s, sep)
	if len(parts) != n {
		return nil, apperr.New(apperr.ErrCodeInvalidInput, "want %d values, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
