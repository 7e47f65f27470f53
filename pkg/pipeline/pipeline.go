// Package pipeline runs the sea-level flood animation end to end.
//
// A run has three stages:
//
//  1. Load: crop and clean the elevation grid (cached by source file and bbox)
//  2. 2D: for every level, compute the flood mask, render a map frame and
//     write it; then assemble the frames into a GIF
//  3. 3D: for every level, render the terrain surface with a water plane,
//     write it, read the frames back, normalize their size and assemble
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, logger)
//	defer runner.Close()
//
//	cfg := pipeline.DefaultConfig()
//	cfg.DEMPath = "n41_e140_1arc_v3.tif"
//	result, err := runner.Execute(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Anim2D, result.Anim3D)
//
// Configuration can also be read from TOML with [LoadConfig]; keys the file
// omits keep their [DefaultConfig] values.
package pipeline

import (
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/plot/vg"

	"github.com/matzehuels/sealevel/pkg/dem"
	apperr "github.com/matzehuels/sealevel/pkg/errors"
	"github.com/matzehuels/sealevel/pkg/flood"
	"github.com/matzehuels/sealevel/pkg/frames"
	"github.com/matzehuels/sealevel/pkg/render/planar"
	"github.com/matzehuels/sealevel/pkg/render/surface"
)

// =============================================================================
// Default Values
// =============================================================================

// Mode names.
const (
	Mode2D = "2d"
	Mode3D = "3d"
)

// Frame file prefixes; frames are named prefix_NNN.png.
const (
	FramePrefix2D = "frame"
	FramePrefix3D = "frame3d"
)

const (
	DefaultDEMPath     = "n41_e140_1arc_v3.tif"
	DefaultFrames2DDir = "frames_hakodate"
	DefaultFrames3DDir = "frames_hakodate_3d"
	DefaultAnim2DPath  = "simulacion_hakodate_2d.gif"
	DefaultAnim3DPath  = "simulacion_hakodate_3d.gif"
	DefaultManifest    = "manifest.json"
	DefaultFPS2D       = 1.5
	DefaultFPS3D       = 2.0
)

// DefaultBBox is the Hakodate study area.
var DefaultBBox = dem.BBox{West: 140.60, South: 41.73, East: 140.85, North: 41.92}

// DefaultLevels sweeps 0 to 85 m in 5 m steps.
var DefaultLevels = flood.LevelRange{Start: 0, Stop: 85, Step: 5}

// ValidModes is the set of supported rendering modes.
var ValidModes = map[string]bool{
	Mode2D: true,
	Mode3D: true,
}

// =============================================================================
// Config
// =============================================================================

// Config is the complete, immutable description of a run. Relative output
// paths are resolved against OutDir; DEMPath is used as given.
type Config struct {
	DEMPath      string           `toml:"dem" json:"dem"`
	BBox         dem.BBox         `toml:"bbox" json:"bbox"`
	Levels       flood.LevelRange `toml:"levels" json:"levels"`
	ZeroIsNoData bool             `toml:"zero_is_nodata" json:"zero_is_nodata"`

	// Modes selects which animations are produced, in order.
	Modes []string `toml:"modes" json:"modes"`

	OutDir      string `toml:"out_dir" json:"out_dir,omitempty"`
	Frames2DDir string `toml:"frames_2d_dir" json:"frames_2d_dir"`
	Frames3DDir string `toml:"frames_3d_dir" json:"frames_3d_dir"`
	Anim2DPath  string `toml:"anim_2d" json:"anim_2d"`
	Anim3DPath  string `toml:"anim_3d" json:"anim_3d"`

	// Manifest is the JSON run summary; empty disables it.
	Manifest string `toml:"manifest" json:"manifest,omitempty"`

	FPS2D float64 `toml:"fps_2d" json:"fps_2d"`
	FPS3D float64 `toml:"fps_3d" json:"fps_3d"`

	// Canvas sizes in inches.
	Width2D  float64 `toml:"width_2d" json:"width_2d"`
	Height2D float64 `toml:"height_2d" json:"height_2d"`
	DPI2D    int     `toml:"dpi_2d" json:"dpi_2d"`
	Width3D  float64 `toml:"width_3d" json:"width_3d"`
	Height3D float64 `toml:"height_3d" json:"height_3d"`
	DPI3D    int     `toml:"dpi_3d" json:"dpi_3d"`

	// Title formats receive the level in metres.
	Title2D string `toml:"title_2d" json:"title_2d"`
	Title3D string `toml:"title_3d" json:"title_3d"`
	ZLabel  string `toml:"z_label" json:"z_label"`

	Camera    surface.Camera `toml:"camera" json:"camera"`
	Stride    int            `toml:"stride" json:"stride"`
	Opacity2D float64        `toml:"opacity_2d" json:"opacity_2d"`
	Opacity3D float64        `toml:"opacity_3d" json:"opacity_3d"`

	CacheDir  string `toml:"cache_dir" json:"cache_dir,omitempty"`
	RedisAddr string `toml:"redis" json:"redis,omitempty"`
	NoCache   bool   `toml:"no_cache" json:"no_cache,omitempty"`
}

// DefaultConfig returns the Hakodate run: a 0–85 m sweep in 5 m steps over
// n41_e140_1arc_v3.tif, producing both animations.
func DefaultConfig() Config {
	return Config{
		DEMPath:      DefaultDEMPath,
		BBox:         DefaultBBox,
		Levels:       DefaultLevels,
		ZeroIsNoData: true,
		Modes:        []string{Mode2D, Mode3D},
		Frames2DDir:  DefaultFrames2DDir,
		Frames3DDir:  DefaultFrames3DDir,
		Anim2DPath:   DefaultAnim2DPath,
		Anim3DPath:   DefaultAnim3DPath,
		Manifest:     DefaultManifest,
		FPS2D:        DefaultFPS2D,
		FPS3D:        DefaultFPS3D,
		Width2D:      float64(planar.DefaultWidth / vg.Inch),
		Height2D:     float64(planar.DefaultHeight / vg.Inch),
		DPI2D:        planar.DefaultDPI,
		Width3D:      float64(surface.DefaultWidth / vg.Inch),
		Height3D:     float64(surface.DefaultHeight / vg.Inch),
		DPI3D:        surface.DefaultDPI,
		Title2D:      planar.DefaultTitle,
		Title3D:      surface.DefaultTitle,
		ZLabel:       surface.DefaultZLabel,
		Camera:       surface.Camera{Elevation: surface.DefaultElevation, Azimuth: surface.DefaultAzimuth},
		Stride:       surface.DefaultStride,
		Opacity2D:    planar.DefaultOpacity,
		Opacity3D:    surface.DefaultWaterOpacity,
	}
}

// LoadConfig reads a TOML file over DefaultConfig. Unknown keys are an
// INVALID_CONFIG error so typos do not silently fall back to defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, apperr.Wrap(apperr.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, apperr.New(apperr.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Validate checks every field the run needs and returns the first problem
// as a coded error.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DEMPath) == "" {
		return apperr.New(apperr.ErrCodeInvalidConfig, "dem path is required")
	}
	if err := c.BBox.Validate(); err != nil {
		return err
	}
	if err := c.Levels.Validate(); err != nil {
		return err
	}
	if len(c.Modes) == 0 {
		return apperr.New(apperr.ErrCodeInvalidConfig, "at least one mode is required")
	}
	for i, m := range c.Modes {
		if !ValidModes[m] {
			return apperr.New(apperr.ErrCodeInvalidConfig, "invalid mode %q (must be one of: 2d, 3d)", m)
		}
		if slices.Contains(c.Modes[:i], m) {
			return apperr.New(apperr.ErrCodeInvalidConfig, "mode %q listed twice", m)
		}
	}
	if c.Has(Mode2D) {
		if err := c.validate2D(); err != nil {
			return err
		}
	}
	if c.Has(Mode3D) {
		if err := c.validate3D(); err != nil {
			return err
		}
	}
	if c.Manifest != "" {
		if err := apperr.ValidateOutputPath(c.Manifest); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) validate2D() error {
	for _, p := range []string{c.Frames2DDir, c.Anim2DPath} {
		if err := apperr.ValidateOutputPath(p); err != nil {
			return fmt.Errorf("2d: %w", err)
		}
	}
	if err := apperr.ValidateFPS(c.FPS2D); err != nil {
		return fmt.Errorf("2d: %w", err)
	}
	if err := validateCanvas(c.Width2D, c.Height2D, c.DPI2D); err != nil {
		return fmt.Errorf("2d: %w", err)
	}
	return validateOpacity(c.Opacity2D)
}

func (c Config) validate3D() error {
	for _, p := range []string{c.Frames3DDir, c.Anim3DPath} {
		if err := apperr.ValidateOutputPath(p); err != nil {
			return fmt.Errorf("3d: %w", err)
		}
	}
	if err := apperr.ValidateFPS(c.FPS3D); err != nil {
		return fmt.Errorf("3d: %w", err)
	}
	if err := validateCanvas(c.Width3D, c.Height3D, c.DPI3D); err != nil {
		return fmt.Errorf("3d: %w", err)
	}
	if c.Stride < 1 {
		return apperr.New(apperr.ErrCodeInvalidConfig, "stride must be at least 1, got %d", c.Stride)
	}
	if math.IsNaN(c.Camera.Elevation) || math.IsNaN(c.Camera.Azimuth) {
		return apperr.New(apperr.ErrCodeInvalidConfig, "camera angles must be numbers")
	}
	return validateOpacity(c.Opacity3D)
}

func validateCanvas(w, h float64, dpi int) error {
	if !(w > 0) || !(h > 0) || math.IsInf(w, 0) || math.IsInf(h, 0) {
		return apperr.New(apperr.ErrCodeInvalidConfig, "canvas must be positive, got %gx%g in", w, h)
	}
	if dpi <= 0 {
		return apperr.New(apperr.ErrCodeInvalidConfig, "dpi must be positive, got %d", dpi)
	}
	return nil
}

func validateOpacity(v float64) error {
	if !(v >= 0 && v <= 1) {
		return apperr.New(apperr.ErrCodeInvalidConfig, "opacity must be within [0, 1], got %g", v)
	}
	return nil
}

// Has reports whether mode is enabled.
func (c Config) Has(mode string) bool {
	return slices.Contains(c.Modes, mode)
}

// Path resolves an output path against OutDir.
func (c Config) Path(p string) string {
	if c.OutDir == "" || p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.OutDir, p)
}

// PlanarOptions returns the 2D renderer settings.
func (c Config) PlanarOptions() planar.Options {
	return planar.Options{
		Width:   vg.Length(c.Width2D) * vg.Inch,
		Height:  vg.Length(c.Height2D) * vg.Inch,
		DPI:     c.DPI2D,
		Opacity: c.Opacity2D,
		Title:   c.Title2D,
	}
}

// SurfaceOptions returns the 3D renderer settings.
func (c Config) SurfaceOptions() surface.Options {
	return surface.Options{
		Width:        vg.Length(c.Width3D) * vg.Inch,
		Height:       vg.Length(c.Height3D) * vg.Inch,
		DPI:          c.DPI3D,
		Camera:       c.Camera,
		Stride:       c.Stride,
		WaterOpacity: c.Opacity3D,
		Title:        c.Title3D,
		ZLabel:       c.ZLabel,
	}
}

// =============================================================================
// Result
// =============================================================================

// Result describes what a run produced.
type Result struct {
	RunID string `json:"run_id"`

	Rows       int     `json:"rows"`
	Cols       int     `json:"cols"`
	ValidCells int     `json:"valid_cells"`
	ZMin       float64 `json:"z_min"`
	ZMax       float64 `json:"z_max"`

	Levels []float64         `json:"levels"`
	Stats  []flood.LevelStat `json:"stats"`

	Frames2D []frames.Frame `json:"frames_2d,omitempty"`
	Frames3D []frames.Frame `json:"frames_3d,omitempty"`
	Anim2D   string         `json:"anim_2d,omitempty"`
	Anim3D   string         `json:"anim_3d,omitempty"`
	Manifest string         `json:"-"`

	Timings   Timings   `json:"timings"`
	CacheInfo CacheInfo `json:"cache"`
}

// Timings contains per-stage durations.
type Timings struct {
	Load     time.Duration `json:"load"`
	Render2D time.Duration `json:"render_2d,omitempty"`
	Render3D time.Duration `json:"render_3d,omitempty"`
	Total    time.Duration `json:"total"`
}

// CacheInfo tracks which stages hit the cache.
type CacheInfo struct {
	GridHit bool `json:"grid_hit"`
}
