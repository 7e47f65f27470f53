// Package render holds what the 2D and 3D frame renderers share: the
// terrain and water colour palettes.
//
// The renderers themselves live in subpackages:
//
//   - [planar]: top-down heat map of the terrain with a translucent water
//     overlay
//   - [surface]: orthographic 3D surface of the terrain with the water
//     plane drawn only where the sea reaches
//   - [sink]: raster canvases and PNG input/output
//
// Both renderers draw with gonum/plot onto a fixed-size raster canvas, so
// every frame of a mode has the same pixel size.
//
// [planar]: github.com/matzehuels/sealevel/pkg/render/planar
// [surface]: github.com/matzehuels/sealevel/pkg/render/surface
// [sink]: github.com/matzehuels/sealevel/pkg/render/sink
package render
