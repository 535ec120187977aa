package transform

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/kilobot-tracker/internal/errdefs"
	"github.com/ironsheep/kilobot-tracker/internal/region"
)

// constantGrid creates a rows x cols grid filled with v.
func constantGrid(rows, cols int, v float64) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = v
	}
	return mat.NewDense(rows, cols, data)
}

// mustMask builds a candidate mask from 0/1 rows.
func mustMask(t *testing.T, grid [][]int) region.Region {
	t.Helper()
	r, err := region.FromInts(grid)
	if err != nil {
		t.Fatalf("FromInts failed: %v", err)
	}
	return r
}

func TestReflect(t *testing.T) {
	tests := []struct {
		i, n, want int
	}{
		{-1, 4, 0},
		{-2, 4, 1},
		{4, 4, 3},
		{5, 4, 2},
		{9, 4, 1},
		{-5, 4, 3},
		{3, 1, 0},
	}
	for _, tt := range tests {
		if got := reflect(tt.i, tt.n); got != tt.want {
			t.Errorf("reflect(%d, %d): got %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}

func TestFindEdges_Flat(t *testing.T) {
	edges := FindEdges(constantGrid(6, 6, 0.4))
	rows, cols := edges.Dims()
	if rows != 6 || cols != 6 {
		t.Fatalf("shape: got %dx%d, want 6x6", rows, cols)
	}
	if max := mat.Max(edges); max > 1e-12 {
		t.Errorf("flat grid should have no edges, max %v", max)
	}
}

func TestFindEdges_Step(t *testing.T) {
	g := mat.NewDense(4, 6, nil)
	for y := 0; y < 4; y++ {
		for x := 3; x < 6; x++ {
			g.Set(y, x, 1)
		}
	}

	edges := FindEdges(g)
	want := 1 / math.Sqrt2
	for y := 0; y < 4; y++ {
		if got := edges.At(y, 2); math.Abs(got-want) > 1e-12 {
			t.Errorf("row %d col 2: got %v, want %v", y, got, want)
		}
		if got := edges.At(y, 3); math.Abs(got-want) > 1e-12 {
			t.Errorf("row %d col 3: got %v, want %v", y, got, want)
		}
		if got := edges.At(y, 0); got != 0 {
			t.Errorf("row %d col 0: got %v, want 0", y, got)
		}
	}
}

func TestGaussianFilter_InvalidSigma(t *testing.T) {
	g := constantGrid(3, 3, 1)
	for _, sigma := range []float64{0, -1, math.NaN(), math.Inf(1), MaxSigma + 1, 1e18} {
		if _, err := GaussianFilter(g, sigma); !errors.Is(err, errdefs.ErrInvalidArgument) {
			t.Errorf("sigma %v: got %v, want ErrInvalidArgument", sigma, err)
		}
	}
}

func TestGaussianFilter_MaxSigma(t *testing.T) {
	out, err := GaussianFilter(constantGrid(3, 3, 0.5), MaxSigma)
	if err != nil {
		t.Fatalf("GaussianFilter at MaxSigma failed: %v", err)
	}
	if !mat.EqualApprox(out, constantGrid(3, 3, 0.5), 1e-9) {
		t.Errorf("constant grid changed:\n%v", mat.Formatted(out))
	}
}

func TestGaussianFilter_Impulse(t *testing.T) {
	g := mat.NewDense(21, 21, nil)
	g.Set(10, 10, 1)

	out, err := GaussianFilter(g, 2)
	if err != nil {
		t.Fatalf("GaussianFilter failed: %v", err)
	}

	if sum := mat.Sum(out); math.Abs(sum-1) > 1e-9 {
		t.Errorf("mass: got %v, want 1", sum)
	}
	if out.At(10, 10) != mat.Max(out) {
		t.Error("peak moved away from the impulse")
	}
	if math.Abs(out.At(8, 10)-out.At(12, 10)) > 1e-12 || math.Abs(out.At(10, 7)-out.At(7, 10)) > 1e-12 {
		t.Error("response is not symmetric")
	}
}

func TestGaussianFilter_ConstantUnchanged(t *testing.T) {
	out, err := GaussianFilter(constantGrid(5, 7, 0.25), 5)
	if err != nil {
		t.Fatalf("GaussianFilter failed: %v", err)
	}
	want := constantGrid(5, 7, 0.25)
	if !mat.EqualApprox(out, want, 1e-9) {
		t.Errorf("constant grid changed:\n%v", mat.Formatted(out))
	}
}

func TestGaussianKernel(t *testing.T) {
	k := gaussianKernel(2)
	if len(k) != 17 {
		t.Errorf("kernel length: got %d, want 17", len(k))
	}
	if math.Abs(floats.Sum(k)-1) > 1e-12 {
		t.Errorf("kernel sum: got %v, want 1", floats.Sum(k))
	}
}

func TestThreshold(t *testing.T) {
	g := mat.NewDense(2, 3, []float64{0.1, 0.6, 0.61, 0.7, 0.59, 1})

	mask, err := Threshold(g, 0.6)
	if err != nil {
		t.Fatalf("Threshold failed: %v", err)
	}
	want := mustMask(t, [][]int{{0, 0, 1}, {1, 0, 1}})
	if !mask.Equal(want) {
		t.Errorf("got\n%s\nwant\n%s", mask, want)
	}

	if _, err := Threshold(g, math.NaN()); !errors.Is(err, errdefs.ErrInvalidArgument) {
		t.Errorf("NaN cutoff: got %v, want ErrInvalidArgument", err)
	}
}

func TestFindConnectedComponents(t *testing.T) {
	mask := mustMask(t, [][]int{
		{1, 1, 0, 0, 1},
		{0, 0, 0, 0, 1},
		{0, 1, 0, 0, 0},
		{0, 0, 1, 0, 0},
	})

	labels := FindConnectedComponents(mask)
	want := [][]int{
		{1, 1, 0, 0, 2},
		{0, 0, 0, 0, 2},
		{0, 3, 0, 0, 0},
		{0, 0, 3, 0, 0},
	}
	for y, row := range want {
		for x, id := range row {
			if got := labels.At(y, x); got != id {
				t.Errorf("(%d,%d): got label %d, want %d", y, x, got, id)
			}
		}
	}

	if got := len(labels.Labels()); got != 3 {
		t.Errorf("components: got %d, want 3", got)
	}
}

func TestFindConnectedComponents_DiagonalJoins(t *testing.T) {
	mask := mustMask(t, [][]int{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	})
	if got := len(FindConnectedComponents(mask).Labels()); got != 1 {
		t.Errorf("diagonal chain: got %d components, want 1", got)
	}
}

func TestComponentCentroids_SingleCell(t *testing.T) {
	mask := mustMask(t, [][]int{
		{0, 0, 0},
		{0, 1, 0},
		{0, 0, 0},
	})

	centroids := ComponentCentroids(FindConnectedComponents(mask))
	if len(centroids) != 1 {
		t.Fatalf("got %d centroids, want 1", len(centroids))
	}
	if c := centroids[1]; c != (Point{Row: 1, Col: 1}) {
		t.Errorf("centroid: got %+v, want (1,1)", c)
	}
}

func TestComponentCentroids_EmptyMask(t *testing.T) {
	mask := mustMask(t, [][]int{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}})

	centroids := ComponentCentroids(FindConnectedComponents(mask))
	if centroids == nil {
		t.Fatal("centroids should be an empty map, not nil")
	}
	if !centroids.Empty() {
		t.Errorf("got %d centroids, want 0", len(centroids))
	}
}

func TestComponentCentroids_Mean(t *testing.T) {
	labels, err := region.LabelMapFromRows([][]int{
		{1, 1, 0},
		{1, 1, 0},
		{0, 0, 2},
	})
	if err != nil {
		t.Fatalf("LabelMapFromRows failed: %v", err)
	}

	centroids := ComponentCentroids(labels)
	if c := centroids[1]; c != (Point{Row: 0.5, Col: 0.5}) {
		t.Errorf("label 1: got %+v, want (0.5,0.5)", c)
	}
	if c := centroids[2]; c != (Point{Row: 2, Col: 2}) {
		t.Errorf("label 2: got %+v, want (2,2)", c)
	}

	pts := centroids.Points()
	if len(pts) != 2 || pts[0] != centroids[1] {
		t.Errorf("Points not ordered by label: %+v", pts)
	}
}

func TestComponentRegions(t *testing.T) {
	labels, err := region.LabelMapFromRows([][]int{
		{0, 0, 0},
		{1, 1, 1},
		{2, 2, 2},
	})
	if err != nil {
		t.Fatalf("LabelMapFromRows failed: %v", err)
	}

	regions := ComponentRegions(labels)
	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(regions))
	}
	if regions[1].Area() != 3 || regions[2].Area() != 3 {
		t.Errorf("areas: got %d and %d, want 3 and 3", regions[1].Area(), regions[2].Area())
	}
	if regions[1].At(2, 0) {
		t.Error("label 1 region contains a label 2 cell")
	}
}

func TestPointPixel(t *testing.T) {
	p := Point{Row: 2.5, Col: 3.49}
	if got := p.Pixel(); got != (region.Coord{Row: 3, Col: 3}) {
		t.Errorf("Pixel: got %v, want (3,3)", got)
	}
}
