// Package imaging bridges image files and the float grids the detection
// pipeline works on.
//
// It loads still frames, isolates a single colour channel as a [0, 1] grid,
// crops calibration windows, persists matching templates, renders
// intermediate grids and masks as debug rasters, and builds the two
// visualization artifacts of a tracking run: the composite of all detected
// positions and the annotated still.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For windows, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// Grids are indexed (row, col), so grid cell (r, c) is pixel (X=c, Y=r).
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Conversion functions are
// stateless and can be called concurrently. Composite is not safe for
// concurrent use.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Crop windows outside the frame or with x1 >= x2 or y1 >= y2
//   - File I/O errors during image loading and saving
//   - Malformed colour strings
package imaging
