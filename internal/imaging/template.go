package imaging

import (
	"fmt"
	"image"
	"image/color"

	"gonum.org/v1/gonum/mat"
)

// TemplateToGray16 renders a matching template as a 16-bit grayscale image,
// stretching its minimum to 0 and maximum to 65535.
//
// Normalized matching ignores brightness offset and contrast scaling, so the
// stretch loses nothing but quantization below 1/65535 of the template's range.
func TemplateToGray16(tpl *mat.Dense) *image.Gray16 {
	rows, cols := tpl.Dims()
	out := image.NewGray16(image.Rect(0, 0, cols, rows))
	lo, hi := mat.Min(tpl), mat.Max(tpl)
	span := hi - lo
	if span == 0 {
		return out
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := (tpl.At(y, x) - lo) / span
			out.SetGray16(x, y, color.Gray16{Y: uint16(v*65535 + 0.5)})
		}
	}
	return out
}

// SaveTemplate persists a matching template as a 16-bit grayscale PNG.
func SaveTemplate(path string, tpl *mat.Dense) error {
	if tpl == nil || tpl.IsEmpty() {
		return fmt.Errorf("template is empty")
	}
	return SavePNG(path, TemplateToGray16(tpl))
}

// TemplateFromImage converts an image to a template grid in [0, 1] using its
// 16-bit gray value.
func TemplateFromImage(img image.Image) (*mat.Dense, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("template image has no pixels")
	}
	out := mat.NewDense(b.Dy(), b.Dx(), nil)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			out.Set(y, x, float64(g.Y)/65535)
		}
	}
	return out, nil
}

// LoadTemplate reads a template written by SaveTemplate. Any grayscale or
// colour image is accepted; colour images are reduced to luminance.
func LoadTemplate(path string) (*mat.Dense, error) {
	img, err := LoadFrame(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	return TemplateFromImage(img)
}
