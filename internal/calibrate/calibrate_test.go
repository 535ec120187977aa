package calibrate

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/kilobot-tracker/internal/errdefs"
	"github.com/ironsheep/kilobot-tracker/internal/imaging"
	"github.com/ironsheep/kilobot-tracker/internal/match"
)

// still draws a 5x5 red bot centred at (20, 16) on a black 64x40 frame.
func still() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 64, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 64; x++ {
			c := color.RGBA{A: 255}
			if y >= 18 && y <= 22 && x >= 14 && x <= 18 {
				c.R = 255
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func writeStill(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calibration.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create still: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, still()); err != nil {
		t.Fatalf("failed to encode still: %v", err)
	}
	return path
}

var botWindow = imaging.Window{X1: 8, Y1: 12, X2: 25, Y2: 29}

func TestAcquire(t *testing.T) {
	tpl, err := Acquire(still(), Options{Window: botWindow, Sigma: 2})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	rows, cols := tpl.Grid.Dims()
	if rows != 17 || cols != 17 {
		t.Fatalf("template dims: got %dx%d, want 17x17", rows, cols)
	}
	if tpl.Sigma != 2 || tpl.Window != botWindow {
		t.Errorf("template metadata: got %+v", tpl)
	}

	// The bot edge ring is symmetric about the template centre.
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if math.Abs(tpl.Grid.At(r, c)-tpl.Grid.At(rows-1-r, cols-1-c)) > 1e-9 {
				t.Fatalf("template not symmetric at (%d,%d)", r, c)
			}
		}
	}
}

func TestAcquire_MatchesItsSource(t *testing.T) {
	tpl, err := Acquire(still(), Options{Window: botWindow, Sigma: 2})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	full, err := Acquire(still(), Options{Window: imaging.Window{X2: 64, Y2: 40}, Sigma: 2})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	scores, err := match.Normalized(full.Grid, tpl.Grid)
	if err != nil {
		t.Fatalf("Normalized failed: %v", err)
	}
	row, col, v := match.Peak(scores)
	if row != 20 || col != 16 || v < 0.999 {
		t.Errorf("peak: got (%d,%d)=%v, want (20,16)~1", row, col, v)
	}
}

func TestAcquire_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"window past frame", Options{Window: imaging.Window{X1: 50, Y1: 0, X2: 70, Y2: 10}, Sigma: 2}},
		{"empty window", Options{Window: imaging.Window{X1: 10, Y1: 10, X2: 10, Y2: 20}, Sigma: 2}},
		{"zero sigma", Options{Window: botWindow, Sigma: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Acquire(still(), tt.opts); !errors.Is(err, errdefs.ErrInvalidArgument) {
				t.Errorf("got %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestAcquireFile(t *testing.T) {
	path := writeStill(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "templates", "standard.png")
	preview := filepath.Join(dir, "preview.png")

	tpl, err := AcquireFile(path, Options{Window: botWindow, Sigma: 2, Channel: imaging.Red}, out, preview)
	if err != nil {
		t.Fatalf("AcquireFile failed: %v", err)
	}

	loaded, err := imaging.LoadTemplate(out)
	if err != nil {
		t.Fatalf("LoadTemplate failed: %v", err)
	}
	r1, c1 := tpl.Grid.Dims()
	r2, c2 := loaded.Dims()
	if r1 != r2 || c1 != c2 {
		t.Errorf("saved template dims %dx%d, want %dx%d", r2, c2, r1, c1)
	}

	img, err := imaging.LoadFrame(preview)
	if err != nil {
		t.Fatalf("preview not written: %v", err)
	}
	if img.Bounds().Dx() != 17 || img.Bounds().Dy() != 17 {
		t.Errorf("preview dims: got %v", img.Bounds())
	}
}

func TestAcquireFile_NoPreview(t *testing.T) {
	path := writeStill(t)
	out := filepath.Join(t.TempDir(), "standard.png")

	if _, err := AcquireFile(path, Options{Window: botWindow, Sigma: 2}, out, ""); err != nil {
		t.Fatalf("AcquireFile failed: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("template not written: %v", err)
	}
}
