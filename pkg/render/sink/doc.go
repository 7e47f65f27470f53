// Package sink provides raster canvases and PNG input/output for frames.
//
// [Canvas] scopes a gonum/plot raster canvas to a single drawing call: the
// canvas is created, drawn, captured into an image and dropped before
// Canvas returns, on success and on error alike. Renderers never hold a
// canvas across frames, so memory stays flat over long level sweeps.
//
//	img, err := sink.Canvas(7*vg.Inch, 7*vg.Inch, 150, func(c draw.Canvas) error {
//	    p.Draw(c)
//	    return nil
//	})
//
// [TrimBackground] crops uniform margins, and [WritePNG]/[ReadPNG] persist
// frames through disintegration/imaging.
package sink
