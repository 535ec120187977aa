package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/mat"
)

// Window is a rectangular crop window in pixel coordinates.
//
// (X1, Y1) is the inclusive top-left corner and (X2, Y2) the exclusive
// bottom-right corner; X is the column and Y the row.
type Window struct {
	X1 int `json:"x1" yaml:"x1"`
	Y1 int `json:"y1" yaml:"y1"`
	X2 int `json:"x2" yaml:"x2"`
	Y2 int `json:"y2" yaml:"y2"`
}

// Width returns X2 - X1.
func (w Window) Width() int { return w.X2 - w.X1 }

// Height returns Y2 - Y1.
func (w Window) Height() int { return w.Y2 - w.Y1 }

// Rect converts the window to an image.Rectangle.
func (w Window) Rect() image.Rectangle { return image.Rect(w.X1, w.Y1, w.X2, w.Y2) }

// Validate checks that the window is non-empty and lies within a
// width x height frame.
func (w Window) Validate(width, height int) error {
	if w.X1 >= w.X2 || w.Y1 >= w.Y2 {
		return fmt.Errorf("invalid crop window (%d,%d)-(%d,%d): x1 must be < x2, y1 must be < y2",
			w.X1, w.Y1, w.X2, w.Y2)
	}
	if w.X1 < 0 || w.Y1 < 0 || w.X2 > width || w.Y2 > height {
		return fmt.Errorf("crop window (%d,%d)-(%d,%d) outside frame bounds (0,0)-(%d,%d)",
			w.X1, w.Y1, w.X2, w.Y2, width, height)
	}
	return nil
}

// CropGrid copies the window out of a (row, col) grid.
func CropGrid(grid *mat.Dense, w Window) (*mat.Dense, error) {
	rows, cols := grid.Dims()
	if err := w.Validate(cols, rows); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(grid.Slice(w.Y1, w.Y2, w.X1, w.X2)), nil
}

// CropImage extracts the window from an image. Window coordinates are
// relative to the image's top-left corner.
func CropImage(img image.Image, w Window) (*image.NRGBA, error) {
	bounds := img.Bounds()
	if err := w.Validate(bounds.Dx(), bounds.Dy()); err != nil {
		return nil, err
	}
	return imaging.Crop(img, w.Rect().Add(bounds.Min)), nil
}
