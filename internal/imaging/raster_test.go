package imaging

import (
	"encoding/base64"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/kilobot-tracker/internal/region"
)

func TestGridToGray(t *testing.T) {
	grid := mat.NewDense(1, 3, []float64{-1, 0, 1})
	gray := GridToGray(grid)

	want := []uint8{0, 128, 255}
	for x, w := range want {
		if got := gray.GrayAt(x, 0).Y; got != w {
			t.Errorf("pixel %d: got %d, want %d", x, got, w)
		}
	}
}

func TestGridToGray_Flat(t *testing.T) {
	grid := mat.NewDense(2, 2, []float64{0.5, 0.5, 0.5, 0.5})
	gray := GridToGray(grid)
	for _, v := range gray.Pix {
		if v != 0 {
			t.Fatalf("flat grid should render black, got %d", v)
		}
	}
}

func TestMaskToGray(t *testing.T) {
	r, err := region.FromInts([][]int{{0, 1}, {1, 0}})
	if err != nil {
		t.Fatalf("FromInts failed: %v", err)
	}
	gray := MaskToGray(r)
	if gray.Bounds().Dx() != 2 || gray.Bounds().Dy() != 2 {
		t.Fatalf("dimensions: got %v", gray.Bounds())
	}
	if gray.GrayAt(1, 0).Y != 255 || gray.GrayAt(0, 1).Y != 255 {
		t.Error("member cells should be white")
	}
	if gray.GrayAt(0, 0).Y != 0 || gray.GrayAt(1, 1).Y != 0 {
		t.Error("background cells should be black")
	}
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug", "edges.png")
	grid := mat.NewDense(3, 4, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11})

	if err := SavePNG(path, GridToGray(grid)); err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open saved file: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("saved file is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Errorf("dimensions: got %dx%d, want 4x3", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestEncodePNG(t *testing.T) {
	img := createSolidImage(7, 5, color.White)

	result, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if result.Width != 7 || result.Height != 5 {
		t.Errorf("dimensions: got %dx%d, want 7x5", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	if _, err := png.Decode(strings.NewReader(string(data))); err != nil {
		t.Errorf("payload is not a PNG: %v", err)
	}
}
