// Package dem loads and cleans digital elevation model rasters.
//
// A [Source] is an open single-band raster; [Open] picks a reader from the
// file extension (GeoTIFF or SRTM .hgt). [Load] reads only the pixel window
// that covers a geographic [BBox] and returns a [Grid] in which every
// invalid sample is NaN:
//
//	src, err := dem.Open("n41_e140_1arc_v3.tif")
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
//	g, err := dem.Load(src, dem.BBox{West: 140.60, South: 41.73, East: 140.85, North: 41.92},
//	    dem.LoadOptions{ZeroIsNoData: true})
//
// Reprojection and multi-tile mosaics are not supported: the bounding box
// must be expressed in the raster's own geographic coordinates.
package dem
