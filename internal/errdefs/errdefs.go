// Package errdefs defines the error taxonomy shared by the region, transform,
// match and detection packages.
//
// Validation failures are reported by wrapping one of the sentinels below, so
// callers can branch with errors.Is regardless of the context that was added:
//
//	if errors.Is(err, errdefs.ErrShapeMismatch) {
//	    // template does not fit the frame
//	}
//
// An empty detection result is not an error and has no sentinel here.
package errdefs

import "github.com/pkg/errors"

var (
	// ErrInvalidRegionData is returned when a region is built from values
	// outside {0, 1} or from a ragged grid.
	ErrInvalidRegionData = errors.New("invalid region data")

	// ErrInvalidArgument is returned for out-of-range parameters such as a
	// non-positive blur sigma or a negative dilation count.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrShapeMismatch is returned when a template cannot be matched against
	// a grid because it is empty or larger than the grid.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// InvalidArgument wraps ErrInvalidArgument with a formatted message.
func InvalidArgument(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// InvalidRegionData wraps ErrInvalidRegionData with a formatted message.
func InvalidRegionData(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidRegionData, format, args...)
}

// ShapeMismatch wraps ErrShapeMismatch with a formatted message.
func ShapeMismatch(format string, args ...interface{}) error {
	return errors.Wrapf(ErrShapeMismatch, format, args...)
}
