// Package calibrate acquires matching templates from calibration stills.
//
// A template is the calibration window cut out of the frame after the same
// channel, edge and blur stages the detector applies, so that matching
// compares like with like. Acquisition runs once per calibration session; the
// result is saved as a PNG and reused for every frame of the run.
package calibrate

import (
	"image"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/kilobot-tracker/internal/errdefs"
	"github.com/ironsheep/kilobot-tracker/internal/imaging"
	"github.com/ironsheep/kilobot-tracker/internal/transform"
)

// Options selects the calibration window and processing of a template.
type Options struct {
	// Window is the crop in frame pixels; X is the column and Y the row.
	Window imaging.Window

	// Sigma must match the Detector that will use the template.
	Sigma float64

	// Channel is the colour channel processed. Empty means red.
	Channel imaging.Channel
}

// Template is an acquired matching template.
type Template struct {
	Grid   *mat.Dense
	Window imaging.Window
	Sigma  float64
}

// Acquire processes img (channel, edges, blur) and crops opts.Window out of
// the result.
//
// A window that is empty or extends past the frame fails with
// errdefs.ErrInvalidArgument, as does a non-positive sigma.
func Acquire(img image.Image, opts Options) (*Template, error) {
	b := img.Bounds()
	if err := opts.Window.Validate(b.Dx(), b.Dy()); err != nil {
		return nil, errdefs.InvalidArgument("%v", err)
	}
	ch := opts.Channel
	if ch == "" {
		ch = imaging.Red
	}
	grid, err := imaging.ExtractChannel(img, ch)
	if err != nil {
		return nil, err
	}
	blurred, err := transform.GaussianFilter(transform.FindEdges(grid), opts.Sigma)
	if err != nil {
		return nil, err
	}
	tpl, err := imaging.CropGrid(blurred, opts.Window)
	if err != nil {
		return nil, errdefs.InvalidArgument("%v", err)
	}
	return &Template{Grid: tpl, Window: opts.Window, Sigma: opts.Sigma}, nil
}

// AcquireFile loads a calibration still, acquires a template from it and
// saves the template to out. When preview is not empty, the raw crop of the
// still is also saved there so the window can be checked by eye.
func AcquireFile(still string, opts Options, out, preview string) (*Template, error) {
	img, err := imaging.LoadFrame(still)
	if err != nil {
		return nil, err
	}
	tpl, err := Acquire(img, opts)
	if err != nil {
		return nil, err
	}
	if err := imaging.SaveTemplate(out, tpl.Grid); err != nil {
		return nil, err
	}
	if preview != "" {
		crop, err := imaging.CropImage(img, opts.Window)
		if err != nil {
			return nil, err
		}
		if err := imaging.SavePNG(preview, crop); err != nil {
			return nil, err
		}
	}
	return tpl, nil
}
