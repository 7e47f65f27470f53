// Package pkg provides the libraries behind sealevel, which animates
// sea-level flooding over a coastal digital elevation model.
//
// # Overview
//
// Every level of a sweep is an independent static snapshot: a cell is under
// water when its elevation is at or below the level. There is no flow and no
// connectivity test. The pkg directory is organized by stage:
//
//  1. [dem] - Open rasters, crop a bounding box, clean nodata
//  2. [flood] - Level sweeps, flood masks, per-level statistics
//  3. [render] - Colour ramps shared by the renderers
//  4. [render/planar] - 2D map frames
//  5. [render/surface] - 3D terrain frames from a fixed camera
//  6. [frames], [anim] - Size normalization and GIF assembly
//  7. [pipeline] - Orchestration (load → 2D → 3D), config, manifests
//
// Supporting packages: [cache] (grid cache on disk or Redis), [errors]
// (coded errors), [observability] (hooks), [buildinfo].
//
// # Architecture
//
//	GeoTIFF / SRTM .hgt + bbox
//	         ↓
//	    [dem] Load (window read, nodata → NaN)     ←→ [cache]
//	         ↓
//	    [flood] Compute per level
//	         ↓                  ↘
//	    [render/planar]      [render/surface]
//	         ↓                  ↓
//	    frame_NNN.png        frame3d_NNN.png → [frames] Normalize
//	         ↓                  ↓
//	    [anim] GIF           [anim] GIF
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/sealevel/pkg/dem"
//	    "github.com/matzehuels/sealevel/pkg/flood"
//	    "github.com/matzehuels/sealevel/pkg/render/planar"
//	)
//
//	g, err := dem.LoadFile("n41_e140_1arc_v3.tif",
//	    dem.BBox{West: 140.60, South: 41.73, East: 140.85, North: 41.92},
//	    dem.LoadOptions{ZeroIsNoData: true})
//	if err != nil {
//	    return err
//	}
//	mask := flood.Compute(g, 10)
//	err = planar.RenderFile("frame_002.png", g, mask, 10, planar.DefaultOptions())
//
// Or run everything with [pipeline]:
//
//	runner := pipeline.NewRunner(nil, logger)
//	result, err := runner.Execute(ctx, pipeline.DefaultConfig())
//
// [dem]: https://pkg.go.dev/github.com/matzehuels/sealevel/pkg/dem
// [flood]: https://pkg.go.dev/github.com/matzehuels/sealevel/pkg/flood
// [render]: https://pkg.go.dev/github.com/matzehuels/sealevel/pkg/render
// [render/planar]: https://pkg.go.dev/github.com/matzehuels/sealevel/pkg/render/planar
// [render/surface]: https://pkg.go.dev/github.com/matzehuels/sealevel/pkg/render/surface
// [frames]: https://pkg.go.dev/github.com/matzehuels/sealevel/pkg/frames
// [anim]: https://pkg.go.dev/github.com/matzehuels/sealevel/pkg/anim
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/sealevel/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/sealevel/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/sealevel/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/sealevel/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/sealevel/pkg/buildinfo
package pkg
