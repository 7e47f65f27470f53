package errors

import (
	"math"
	"strings"
	"unicode"
)

// maxLevels bounds the number of water levels a single run may render.
const maxLevels = 10000

// ValidateBBox validates a geographic bounding box in degrees.
//
// The validation rules:
//   - All values must be finite
//   - Longitudes within [-180, 180], latitudes within [-90, 90]
//   - West strictly below east, south strictly below north
func ValidateBBox(west, south, east, north float64) error {
	for _, v := range []float64{west, south, east, north} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return New(ErrCodeInvalidBBox, "bounding box values must be finite")
		}
	}
	if west < -180 || east > 180 {
		return New(ErrCodeInvalidBBox, "longitude out of range [-180, 180]: %g..%g", west, east)
	}
	if south < -90 || north > 90 {
		return New(ErrCodeInvalidBBox, "latitude out of range [-90, 90]: %g..%g", south, north)
	}
	if west >= east {
		return New(ErrCodeInvalidBBox, "west %g must be below east %g", west, east)
	}
	if south >= north {
		return New(ErrCodeInvalidBBox, "south %g must be below north %g", south, north)
	}
	return nil
}

// ValidateLevelRange validates an inclusive water-level range.
func ValidateLevelRange(start, stop, step float64) error {
	for _, v := range []float64{start, stop, step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return New(ErrCodeInvalidLevels, "level range values must be finite")
		}
	}
	if step <= 0 {
		return New(ErrCodeInvalidLevels, "level step must be positive, got %g", step)
	}
	if stop < start {
		return New(ErrCodeInvalidLevels, "level stop %g is below start %g", stop, start)
	}
	if (stop-start)/step >= maxLevels {
		return New(ErrCodeInvalidLevels, "too many levels (max %d)", maxLevels)
	}
	return nil
}

// ValidateFPS validates an animation playback rate in frames per second.
// GIF delays are stored in centiseconds, so rates above 100 fps cannot be
// represented.
func ValidateFPS(fps float64) error {
	if math.IsNaN(fps) || fps <= 0 {
		return New(ErrCodeInvalidConfig, "frame rate must be positive, got %g", fps)
	}
	if fps > 100 {
		return New(ErrCodeInvalidConfig, "frame rate %g exceeds 100 fps", fps)
	}
	return nil
}

// ValidateOutputPath validates a file or directory path used for output.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidateOutputPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidPath, "output path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}
