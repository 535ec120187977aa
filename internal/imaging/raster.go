package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/kilobot-tracker/internal/region"
)

// GridToGray renders a float grid as an 8-bit grayscale image, stretching the
// grid's minimum to black and its maximum to white. A flat grid renders black.
func GridToGray(grid *mat.Dense) *image.Gray {
	rows, cols := grid.Dims()
	out := image.NewGray(image.Rect(0, 0, cols, rows))
	lo, hi := mat.Min(grid), mat.Max(grid)
	span := hi - lo
	if span == 0 {
		return out
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := (grid.At(y, x) - lo) / span
			out.SetGray(x, y, color.Gray{Y: uint8(v*255 + 0.5)})
		}
	}
	return out
}

// MaskToGray renders a region as a black image with member cells white.
func MaskToGray(r region.Region) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, r.Cols(), r.Rows()))
	for _, c := range r.CoordList() {
		out.SetGray(c.Col, c.Row, color.Gray{Y: 255})
	}
	return out
}

// SavePNG writes img to path as PNG, creating parent directories as needed.
func SavePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// EncodedImage is a PNG image encoded as base64, the form images take in
// tool responses.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as a base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
