package transform

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/kilobot-tracker/internal/errdefs"
)

// GaussianTruncate is the kernel half-width in standard deviations.
const GaussianTruncate = 4.0

// MaxSigma is the largest accepted Gaussian sigma. Its kernel already spans
// 801 cells, far wider than any bot marker.
const MaxSigma = 100.0

// FindEdges returns the Sobel gradient magnitude of a single-channel grid.
//
// Both derivative kernels are normalized by 4 and the magnitude is
// sqrt((gx² + gy²) / 2): cells beside a unit step score 1/√2 and flat areas
// score 0. The output has the same shape as the input.
func FindEdges(channel *mat.Dense) *mat.Dense {
	rows, cols := channel.Dims()
	out := mat.NewDense(rows, cols, nil)

	// Smoothing [1 2 1] across the derivative direction, difference [1 0 -1]
	// along it.
	smooth := [3]float64{1, 2, 1}
	diff := [3]float64{1, 0, -1}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				py := reflect(y+ky, rows)
				for kx := -1; kx <= 1; kx++ {
					v := channel.At(py, reflect(x+kx, cols))
					gx += v * smooth[ky+1] * diff[kx+1]
					gy += v * diff[ky+1] * smooth[kx+1]
				}
			}
			gx /= 4
			gy /= 4
			out.Set(y, x, math.Sqrt((gx*gx+gy*gy)/2))
		}
	}
	return out
}

// GaussianFilter smooths grid with an isotropic Gaussian of standard deviation
// sigma, truncated at GaussianTruncate standard deviations.
//
// Larger sigma widens the tolerance of a later template match; detection of
// the larger leader marker uses a larger sigma on purpose.
//
// Returns errdefs.ErrInvalidArgument unless 0 < sigma <= MaxSigma.
func GaussianFilter(grid *mat.Dense, sigma float64) (*mat.Dense, error) {
	if err := CheckSigma(sigma); err != nil {
		return nil, err
	}
	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2
	rows, cols := grid.Dims()

	// Separable: filter along rows, then along columns.
	tmp := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var sum float64
			for k, w := range kernel {
				sum += w * grid.At(y, reflect(x+k-radius, cols))
			}
			tmp.Set(y, x, sum)
		}
	}

	out := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var sum float64
			for k, w := range kernel {
				sum += w * tmp.At(reflect(y+k-radius, rows), x)
			}
			out.Set(y, x, sum)
		}
	}
	return out, nil
}

// CheckSigma reports whether sigma is usable by GaussianFilter.
func CheckSigma(sigma float64) error {
	if !(sigma > 0) {
		return errdefs.InvalidArgument("gaussian sigma must be positive, got %v", sigma)
	}
	if sigma > MaxSigma {
		return errdefs.InvalidArgument("gaussian sigma %v exceeds maximum %v", sigma, MaxSigma)
	}
	return nil
}

// gaussianKernel returns normalized 1-D weights of length 2*radius+1.
func gaussianKernel(sigma float64) []float64 {
	radius := int(GaussianTruncate*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-0.5 * d * d / (sigma * sigma))
	}
	floats.Scale(1/floats.Sum(kernel), kernel)
	return kernel
}

// reflect maps an out-of-range index back into [0, n) by mirror reflection
// that repeats the edge cell. The mapping is periodic with period 2n, which
// keeps it valid for kernels wider than the grid.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}
