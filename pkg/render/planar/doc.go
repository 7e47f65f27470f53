// Package planar renders top-down flood frames: the terrain as a heat map
// over its geographic extent with a translucent water layer on every
// flooded cell.
//
// Missing cells are left transparent in both layers, so gaps in the
// elevation data show the white page beneath. Axes are hidden and the
// result is trimmed to its content, which keeps every frame of a sweep the
// same size.
package planar
