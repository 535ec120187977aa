// Package match implements normalized template matching on float grids.
//
// The score at each cell is the Pearson correlation between the template and
// the equally sized window of the image centred on that cell, so scores lie in
// [-1, 1] and are unaffected by brightness offset or contrast scaling of either
// input. The score grid has the same shape as the image: the image is padded
// with zeros by the template size before matching, and windows that overlap
// the padding see zeros there.
//
// For a template of h x w cells the window for cell (r, c) starts at
// (r - h/2, c - w/2) using integer division, so odd templates are centred
// exactly and even templates sit half a cell up and left.
package match

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/kilobot-tracker/internal/errdefs"
)

// Func computes a same-size normalized score grid.
type Func func(image, template *mat.Dense) (*mat.Dense, error)

// Native is the name of the pure Go backend.
const Native = "native"

// flatTolerance is the relative window variance below which a window is
// treated as flat. Summed-area tables leave rounding residue of about this
// size on constant windows.
const flatTolerance = 1e-10

var backends = map[string]Func{
	Native: Normalized,
}

// Backend returns the matcher registered under name. An empty name selects
// the native backend.
//
// Returns errdefs.ErrInvalidArgument for an unknown name, which includes
// backends that were not compiled in.
func Backend(name string) (Func, error) {
	if name == "" {
		name = Native
	}
	fn, ok := backends[name]
	if !ok {
		return nil, errdefs.InvalidArgument("unknown match backend %q (available: %v)", name, Backends())
	}
	return fn, nil
}

// Backends lists the registered backend names.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Normalized returns the zero-padded, same-size normalized cross-correlation
// of template over image.
//
// Windows whose variance is zero (including any window when the template
// itself is flat) score 0.
//
// Returns errdefs.ErrShapeMismatch if either grid is nil or the template is
// larger than the image in either dimension.
func Normalized(image, template *mat.Dense) (*mat.Dense, error) {
	if err := CheckShapes(image, template); err != nil {
		return nil, err
	}
	rows, cols := image.Dims()
	th, tw := template.Dims()

	img := image.RawMatrix()
	tpl := template.RawMatrix()

	n := float64(th * tw)
	var tMean float64
	for i := 0; i < th; i++ {
		for _, v := range tpl.Data[i*tpl.Stride : i*tpl.Stride+tw] {
			tMean += v
		}
	}
	tMean /= n
	var tSSD float64
	for i := 0; i < th; i++ {
		for _, v := range tpl.Data[i*tpl.Stride : i*tpl.Stride+tw] {
			d := v - tMean
			tSSD += d * d
		}
	}

	sum, sumSq := integrals(img, rows, cols)
	out := mat.NewDense(rows, cols, nil)

	for r := 0; r < rows; r++ {
		top := r - th/2
		y0, y1 := clamp(top, 0, rows), clamp(top+th, 0, rows)
		for c := 0; c < cols; c++ {
			left := c - tw/2
			x0, x1 := clamp(left, 0, cols), clamp(left+tw, 0, cols)

			var xcorr float64
			for y := y0; y < y1; y++ {
				irow := img.Data[y*img.Stride+x0 : y*img.Stride+x1]
				trow := tpl.Data[(y-top)*tpl.Stride+(x0-left):]
				for j, v := range irow {
					xcorr += v * trow[j]
				}
			}

			ws := boxSum(sum, cols, y0, y1, x0, x1)
			ws2 := boxSum(sumSq, cols, y0, y1, x0, x1)

			winVar := ws2 - ws*ws/n
			if winVar <= flatTolerance*ws2 || tSSD == 0 {
				continue
			}
			out.Set(r, c, (xcorr-ws*tMean)/math.Sqrt(winVar*tSSD))
		}
	}
	return out, nil
}

// CheckShapes validates that template can be matched against image.
func CheckShapes(image, template *mat.Dense) error {
	if image == nil || template == nil {
		return errdefs.ShapeMismatch("image and template must both be set")
	}
	if image.IsEmpty() || template.IsEmpty() {
		return errdefs.ShapeMismatch("image and template must be non-empty")
	}
	rows, cols := image.Dims()
	th, tw := template.Dims()
	if th > rows || tw > cols {
		return errdefs.ShapeMismatch("template %dx%d is larger than image %dx%d", th, tw, rows, cols)
	}
	return nil
}

// Peak returns the position and value of the highest score. Ties resolve to
// the first cell in raster order.
func Peak(scores *mat.Dense) (row, col int, value float64) {
	rows, cols := scores.Dims()
	value = math.Inf(-1)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if v := scores.At(y, x); v > value {
				row, col, value = y, x, v
			}
		}
	}
	return row, col, value
}

// integrals returns summed-area tables of the values and squared values with
// one leading row and column of zeros.
func integrals(m blas64.General, rows, cols int) (sum, sumSq []float64) {
	stride := cols + 1
	sum = make([]float64, (rows+1)*stride)
	sumSq = make([]float64, (rows+1)*stride)
	for y := 0; y < rows; y++ {
		var rowSum, rowSq float64
		for x := 0; x < cols; x++ {
			v := m.Data[y*m.Stride+x]
			rowSum += v
			rowSq += v * v
			sum[(y+1)*stride+x+1] = sum[y*stride+x+1] + rowSum
			sumSq[(y+1)*stride+x+1] = sumSq[y*stride+x+1] + rowSq
		}
	}
	return sum, sumSq
}

// boxSum reads the sum over rows [y0, y1) and cols [x0, x1) from a table
// built by integrals.
func boxSum(table []float64, cols, y0, y1, x0, x1 int) float64 {
	if y0 >= y1 || x0 >= x1 {
		return 0
	}
	stride := cols + 1
	return table[y1*stride+x1] - table[y0*stride+x1] - table[y1*stride+x0] + table[y0*stride+x0]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
