package match

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/kilobot-tracker/internal/errdefs"
)

// noiseGrid creates a reproducible random grid.
func noiseGrid(rows, cols int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.Float64()
	}
	return mat.NewDense(rows, cols, data)
}

// crop copies rows [y0, y1) and cols [x0, x1) of m.
func crop(m *mat.Dense, y0, y1, x0, x1 int) *mat.Dense {
	return mat.DenseCopyOf(m.Slice(y0, y1, x0, x1))
}

func TestNormalized_SelfMatch(t *testing.T) {
	tests := []struct {
		name           string
		y0, y1, x0, x1 int
		wantRow        int
		wantCol        int
	}{
		{"odd template", 5, 10, 7, 12, 7, 9},
		{"even template", 4, 8, 4, 10, 6, 7},
		{"touching the edge", 0, 5, 0, 5, 2, 2},
	}

	img := noiseGrid(20, 24, 1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := crop(img, tt.y0, tt.y1, tt.x0, tt.x1)

			scores, err := Normalized(img, tpl)
			if err != nil {
				t.Fatalf("Normalized failed: %v", err)
			}
			rows, cols := scores.Dims()
			if rows != 20 || cols != 24 {
				t.Fatalf("shape: got %dx%d, want 20x24", rows, cols)
			}

			row, col, value := Peak(scores)
			if row != tt.wantRow || col != tt.wantCol {
				t.Errorf("peak at (%d,%d), want (%d,%d)", row, col, tt.wantRow, tt.wantCol)
			}
			if math.Abs(value-1) > 1e-9 {
				t.Errorf("peak score: got %v, want 1", value)
			}
		})
	}
}

func TestNormalized_ScoreRange(t *testing.T) {
	img := noiseGrid(15, 15, 2)
	tpl := noiseGrid(5, 5, 3)

	scores, err := Normalized(img, tpl)
	if err != nil {
		t.Fatalf("Normalized failed: %v", err)
	}
	if max := mat.Max(scores); max > 1+1e-9 {
		t.Errorf("max score %v exceeds 1", max)
	}
	if min := mat.Min(scores); min < -1-1e-9 {
		t.Errorf("min score %v below -1", min)
	}
}

func TestNormalized_AffineInvariance(t *testing.T) {
	img := noiseGrid(16, 16, 4)
	tpl := crop(img, 3, 8, 3, 8)

	scaled := mat.NewDense(5, 5, nil)
	scaled.Apply(func(_, _ int, v float64) float64 { return 3*v + 1 }, tpl)

	a, err := Normalized(img, tpl)
	if err != nil {
		t.Fatalf("Normalized failed: %v", err)
	}
	b, err := Normalized(img, scaled)
	if err != nil {
		t.Fatalf("Normalized failed: %v", err)
	}
	if !mat.EqualApprox(a, b, 1e-9) {
		t.Error("scores changed when the template was scaled and offset")
	}
}

func TestNormalized_FlatInputs(t *testing.T) {
	flat := mat.NewDense(10, 10, nil)
	flat.Apply(func(_, _ int, _ float64) float64 { return 0.3 }, flat)

	scores, err := Normalized(flat, noiseGrid(3, 3, 5))
	if err != nil {
		t.Fatalf("Normalized failed: %v", err)
	}
	// Only windows overlapping the zero padding have any variance.
	if got := scores.At(5, 5); got != 0 {
		t.Errorf("interior score on flat image: got %v, want 0", got)
	}

	scores, err = Normalized(noiseGrid(10, 10, 6), mat.NewDense(3, 3, nil))
	if err != nil {
		t.Fatalf("Normalized failed: %v", err)
	}
	if mat.Max(scores) != 0 || mat.Min(scores) != 0 {
		t.Error("flat template should score 0 everywhere")
	}
}

func TestNormalized_ShapeMismatch(t *testing.T) {
	img := noiseGrid(5, 5, 7)

	tests := []struct {
		name     string
		img, tpl *mat.Dense
	}{
		{"template taller", img, noiseGrid(6, 3, 8)},
		{"template wider", img, noiseGrid(3, 6, 8)},
		{"nil template", img, nil},
		{"nil image", nil, noiseGrid(3, 3, 8)},
		{"empty template", img, &mat.Dense{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalized(tt.img, tt.tpl)
			if !errors.Is(err, errdefs.ErrShapeMismatch) {
				t.Errorf("got %v, want ErrShapeMismatch", err)
			}
		})
	}
}

func TestNormalized_Deterministic(t *testing.T) {
	img := noiseGrid(12, 12, 9)
	tpl := crop(img, 2, 7, 2, 7)

	a, _ := Normalized(img, tpl)
	b, _ := Normalized(img, tpl)
	if !mat.Equal(a, b) {
		t.Error("repeated matching produced different scores")
	}
}

func TestBackend(t *testing.T) {
	fn, err := Backend("")
	if err != nil || fn == nil {
		t.Fatalf("default backend: got %v", err)
	}
	if _, err := Backend(Native); err != nil {
		t.Errorf("native backend: got %v", err)
	}
	if _, err := Backend("no-such-backend"); !errors.Is(err, errdefs.ErrInvalidArgument) {
		t.Errorf("unknown backend: got %v, want ErrInvalidArgument", err)
	}
}
