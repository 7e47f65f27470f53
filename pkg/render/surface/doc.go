// Package surface renders flood frames as a 3D terrain surface seen from a
// fixed camera, with a flat water plane at the sea level.
//
// A [Scene] is built once per sweep. It fixes the vertical limits to the
// grid's valid elevation range and the camera, so frames differ only in the
// water plane and the title. Water is drawn only over flooded cells, never
// over dry land or missing data.
//
// The surface is decimated with a row/column stride, projected
// orthographically and painted back to front. The projection fills the
// whole canvas; frames are not cropped.
package surface
