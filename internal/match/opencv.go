//go:build gocv

package match

import (
	"encoding/binary"
	"image/color"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// OpenCV is the name of the backend that delegates to cv::matchTemplate with
// TM_CCOEFF_NORMED. It is only registered when built with -tags gocv.
const OpenCV = "opencv"

func init() {
	backends[OpenCV] = NormalizedOpenCV
}

// NormalizedOpenCV computes the same score grid as Normalized using OpenCV.
// The image is zero-padded so that the result keeps the image's shape and
// the same window alignment.
func NormalizedOpenCV(image, template *mat.Dense) (*mat.Dense, error) {
	if err := CheckShapes(image, template); err != nil {
		return nil, err
	}
	rows, cols := image.Dims()
	th, tw := template.Dims()

	src, err := toMat(image)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	tpl, err := toMat(template)
	if err != nil {
		return nil, err
	}
	defer tpl.Close()

	padded := gocv.NewMat()
	defer padded.Close()
	gocv.CopyMakeBorder(src, &padded, th/2, th-1-th/2, tw/2, tw-1-tw/2, gocv.BorderConstant, color.RGBA{})

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.MatchTemplate(padded, tpl, &result, gocv.TmCcoeffNormed, mask)

	out := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := float64(result.GetFloatAt(y, x))
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			out.Set(y, x, v)
		}
	}
	return out, nil
}

// toMat converts a float grid into a single-channel CV_32F Mat.
func toMat(m *mat.Dense) (gocv.Mat, error) {
	rows, cols := m.Dims()
	buf := make([]byte, 4*rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			binary.LittleEndian.PutUint32(buf[4*(y*cols+x):], math.Float32bits(float32(m.At(y, x))))
		}
	}
	return gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV32F, buf)
}
