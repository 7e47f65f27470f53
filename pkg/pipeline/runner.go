package pipeline

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/sealevel/pkg/anim"
	"github.com/matzehuels/sealevel/pkg/cache"
	"github.com/matzehuels/sealevel/pkg/dem"
	apperr "github.com/matzehuels/sealevel/pkg/errors"
	"github.com/matzehuels/sealevel/pkg/flood"
	"github.com/matzehuels/sealevel/pkg/frames"
	"github.com/matzehuels/sealevel/pkg/observability"
	"github.com/matzehuels/sealevel/pkg/render/planar"
	"github.com/matzehuels/sealevel/pkg/render/surface"
)

// Runner executes runs with a grid cache.
//
// The Runner holds no run state, so one Runner may execute several configs
// one after another. Frames within a mode are written sequentially.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger

	// Progress, when set, is called after each frame is written with the
	// mode and the number of frames done out of total.
	Progress func(mode string, done, total int)
}

// NewRunner creates a runner. A nil cache disables caching; a nil logger
// uses log.Default().
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Logger: logger}
}

// Execute runs load → 2D → 3D for the enabled modes.
//
// Each frame directory is emptied of this mode's frame files before the
// first frame is written, so numbering in it is always 0..n-1. The context
// is checked between frames; cancellation aborts the current mode and
// leaves the frames written so far on disk.
func (r *Runner) Execute(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}

	levels, err := flood.Levels(cfg.Levels)
	if err != nil {
		return nil, err
	}
	res.Levels = levels

	// Stage 1: Load
	loadStart := time.Now()
	g, hit, err := r.LoadGrid(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	res.Timings.Load = time.Since(loadStart)
	res.CacheInfo.GridHit = hit
	res.Rows, res.Cols = g.Dims()
	res.ValidCells = g.ValidCount()
	if res.ZMin, res.ZMax, err = g.ValidRange(); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	res.Stats = flood.Stats(g, levels)

	r.Logger.Info("loaded elevation grid",
		"rows", res.Rows,
		"cols", res.Cols,
		"valid", res.ValidCells,
		"min", res.ZMin,
		"max", res.ZMax,
		"cached", hit,
		"duration", res.Timings.Load)

	for _, mode := range cfg.Modes {
		switch mode {
		case Mode2D:
			// Stage 2: 2D frames and animation
			t := time.Now()
			if err := r.run2D(ctx, cfg, g, levels, res); err != nil {
				return nil, fmt.Errorf("2d: %w", err)
			}
			res.Timings.Render2D = time.Since(t)
			r.Logger.Info("wrote 2d animation", "path", res.Anim2D, "frames", len(res.Frames2D), "duration", res.Timings.Render2D)
		case Mode3D:
			// Stage 3: 3D frames, normalization and animation
			t := time.Now()
			if err := r.run3D(ctx, cfg, g, levels, res); err != nil {
				return nil, fmt.Errorf("3d: %w", err)
			}
			res.Timings.Render3D = time.Since(t)
			r.Logger.Info("wrote 3d animation", "path", res.Anim3D, "frames", len(res.Frames3D), "duration", res.Timings.Render3D)
		}
	}
	res.Timings.Total = time.Since(start)

	if cfg.Manifest != "" {
		path := cfg.Path(cfg.Manifest)
		if err := WriteManifest(path, cfg, res); err != nil {
			return nil, fmt.Errorf("manifest: %w", err)
		}
		res.Manifest = path
	}
	return res, nil
}

// LoadGrid returns the cleaned grid for cfg, from the cache when the source
// file is unchanged since it was stored. The bool reports a cache hit.
// Cache failures are logged and fall back to reading the raster.
func (r *Runner) LoadGrid(ctx context.Context, cfg Config) (*dem.Grid, bool, error) {
	path := cfg.DEMPath
	observability.Pipeline().OnLoadStart(ctx, path)
	start := time.Now()

	key := ""
	if st, err := os.Stat(path); err == nil {
		abs, _ := filepath.Abs(path)
		key = cache.GridKey(cache.GridKeyOpts{
			Path:         abs,
			Size:         st.Size(),
			ModTime:      st.ModTime(),
			West:         cfg.BBox.West,
			South:        cfg.BBox.South,
			East:         cfg.BBox.East,
			North:        cfg.BBox.North,
			ZeroIsNoData: cfg.ZeroIsNoData,
		})
	}

	if key != "" {
		data, hit, err := r.Cache.Get(ctx, key)
		switch {
		case err != nil:
			r.Logger.Warn("grid cache read failed", "err", err)
		case hit:
			var g dem.Grid
			uerr := g.UnmarshalBinary(data)
			if uerr == nil {
				observability.Cache().OnCacheHit(ctx, "grid")
				observability.Pipeline().OnLoadComplete(ctx, path, g.ValidCount(), time.Since(start), nil)
				r.Logger.Debug("grid cache hit", "key", key)
				return &g, true, nil
			}
			r.Logger.Warn("discarding unreadable cached grid", "key", key, "err", uerr)
		}
		observability.Cache().OnCacheMiss(ctx, "grid")
	}

	g, err := dem.LoadFile(path, cfg.BBox, dem.LoadOptions{ZeroIsNoData: cfg.ZeroIsNoData})
	if err != nil {
		observability.Pipeline().OnLoadComplete(ctx, path, 0, time.Since(start), err)
		return nil, false, err
	}
	observability.Pipeline().OnLoadComplete(ctx, path, g.ValidCount(), time.Since(start), nil)

	if key != "" {
		if data, err := g.MarshalBinary(); err == nil {
			if err := r.Cache.Set(ctx, key, data, cache.TTLGrid); err != nil {
				r.Logger.Warn("grid cache write failed", "err", err)
			} else {
				observability.Cache().OnCacheSet(ctx, "grid", len(data))
			}
		}
	}
	return g, false, nil
}

// run2D writes one map frame per level and assembles them.
func (r *Runner) run2D(ctx context.Context, cfg Config, g *dem.Grid, levels []float64, res *Result) error {
	dir := cfg.Path(cfg.Frames2DDir)
	if err := prepareFrameDir(dir, FramePrefix2D); err != nil {
		return err
	}
	opts := cfg.PlanarOptions()

	fs := make([]frames.Frame, 0, len(levels))
	for i, level := range levels {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := time.Now()
		mask := flood.Compute(g, level)
		path := filepath.Join(dir, frames.Name(FramePrefix2D, i))
		err := planar.RenderFile(path, g, mask, level, opts)
		observability.Pipeline().OnFrameRendered(ctx, Mode2D, i, level, time.Since(t), err)
		if err != nil {
			return fmt.Errorf("frame %d (level %g m): %w", i, level, err)
		}
		fs = append(fs, frames.Frame{Index: i, Level: level, Path: path})
		r.Logger.Debug("wrote frame", "mode", Mode2D, "index", i, "level", level, "flooded", mask.Count())
		r.progress(Mode2D, i+1, len(levels))
	}
	res.Frames2D = fs

	imgs, err := frames.Images(fs)
	if err != nil {
		return err
	}
	// Frames share one canvas, so this is a no-op unless trimming differed.
	if imgs, err = frames.Normalize(imgs); err != nil {
		return err
	}
	out := cfg.Path(cfg.Anim2DPath)
	if err := r.assemble(ctx, Mode2D, out, imgs, cfg.FPS2D); err != nil {
		return err
	}
	res.Anim2D = out
	return nil
}

// run3D writes one surface frame per level, then reads them back, brings
// them to a common size and assembles them.
func (r *Runner) run3D(ctx context.Context, cfg Config, g *dem.Grid, levels []float64, res *Result) error {
	dir := cfg.Path(cfg.Frames3DDir)
	if err := prepareFrameDir(dir, FramePrefix3D); err != nil {
		return err
	}
	scene, err := surface.NewScene(g, cfg.SurfaceOptions())
	if err != nil {
		return err
	}

	fs := make([]frames.Frame, 0, len(levels))
	for i, level := range levels {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := time.Now()
		path := filepath.Join(dir, frames.Name(FramePrefix3D, i))
		err := scene.RenderFile(path, level)
		observability.Pipeline().OnFrameRendered(ctx, Mode3D, i, level, time.Since(t), err)
		if err != nil {
			return fmt.Errorf("frame %d (level %g m): %w", i, level, err)
		}
		fs = append(fs, frames.Frame{Index: i, Level: level, Path: path})
		r.Logger.Debug("wrote frame", "mode", Mode3D, "index", i, "level", level)
		r.progress(Mode3D, i+1, len(levels))
	}
	res.Frames3D = fs

	imgs, err := frames.Images(fs)
	if err != nil {
		return err
	}
	imgs, err = frames.Normalize(imgs)
	if err != nil {
		return err
	}
	out := cfg.Path(cfg.Anim3DPath)
	if err := r.assemble(ctx, Mode3D, out, imgs, cfg.FPS3D); err != nil {
		return err
	}
	res.Anim3D = out
	return nil
}

func (r *Runner) assemble(ctx context.Context, mode, path string, imgs []image.Image, fps float64) error {
	t := time.Now()
	err := anim.WriteFile(path, imgs, fps)
	observability.Pipeline().OnAssembleComplete(ctx, mode, len(imgs), time.Since(t), err)
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}
	return nil
}

func (r *Runner) progress(mode string, done, total int) {
	if r.Progress != nil {
		r.Progress(mode, done, total)
	}
}

// prepareFrameDir creates dir and removes frame files with prefix left by
// earlier runs.
func prepareFrameDir(dir, prefix string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidPath, err, "create frame directory %s", dir)
	}
	stale, err := frames.Glob(dir, prefix)
	if err != nil {
		return err
	}
	for _, p := range stale {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return apperr.Wrap(apperr.ErrCodeInvalidPath, err, "remove stale frame %s", p)
		}
	}
	return nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
