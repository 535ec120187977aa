package detection

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/kilobot-tracker/internal/errdefs"
	"github.com/ironsheep/kilobot-tracker/internal/imaging"
	"github.com/ironsheep/kilobot-tracker/internal/match"
	"github.com/ironsheep/kilobot-tracker/internal/region"
	"github.com/ironsheep/kilobot-tracker/internal/transform"
)

// Default calibration values for standard single-bot detection.
const (
	DefaultSigma     = 2.0
	DefaultThreshold = 0.6
)

// Detector locates template-shaped objects in still frames.
//
// A Detector holds no per-frame state; one value can be shared by many
// goroutines as long as its fields are not modified.
type Detector struct {
	// Channel is the colour channel searched. Empty means red.
	Channel imaging.Channel

	// Sigma is the Gaussian blur applied to the edge map. Use a small value
	// (around 2) for fine single-bot matching and a larger one (around 5) for
	// coarse leader-bot matching.
	Sigma float64

	// Threshold is the match score a cell must exceed to become a candidate.
	// Typical: 0.6 for standard detection, 0.7 for leader detection.
	Threshold float64

	// Template is the processed calibration crop matched against each frame.
	Template *mat.Dense

	// Match computes the normalized score grid. Nil selects match.Normalized.
	Match match.Func

	// KeepIntermediates retains the per-stage grids on the Result for debug
	// raster output.
	KeepIntermediates bool
}

// Bounds is an inclusive bounding box in grid coordinates.
type Bounds struct {
	MinRow int `json:"min_row"`
	MinCol int `json:"min_col"`
	MaxRow int `json:"max_row"`
	MaxCol int `json:"max_col"`
}

// Detection describes one detected object.
type Detection struct {
	// Label is the connected-component label of the candidate blob.
	Label int `json:"label"`

	// Row and Col are the blob centroid in frame pixel coordinates.
	Row float64 `json:"row"`
	Col float64 `json:"col"`

	// Area is the number of candidate cells in the blob.
	Area int `json:"area"`

	// Bounds encloses the blob.
	Bounds Bounds `json:"bounds"`

	// Score is the highest match score within the blob.
	Score float64 `json:"score"`
}

// Intermediates holds the grids produced by each pipeline stage.
type Intermediates struct {
	Channel    *mat.Dense
	Edges      *mat.Dense
	Blurred    *mat.Dense
	Scores     *mat.Dense
	Candidates region.Region
}

// Result contains the objects detected in a frame.
type Result struct {
	// Centroids maps component label to centroid. Empty when nothing was
	// found, which is a normal outcome.
	Centroids transform.Centroids `json:"-"`

	// Detections lists the objects in label order.
	Detections []Detection `json:"detections"`

	// Count is the number of detected objects.
	Count int `json:"count"`

	// Stages is set when KeepIntermediates is true.
	Stages *Intermediates `json:"-"`
}

// validate checks the detector configuration.
func (d *Detector) validate() error {
	if d.Template == nil || d.Template.IsEmpty() {
		return errdefs.ShapeMismatch("detector has no template")
	}
	if err := transform.CheckSigma(d.Sigma); err != nil {
		return err
	}
	return nil
}

// Detect runs the detection pipeline on one frame:
//
//  1. isolate the configured channel
//  2. edge-detect it
//  3. blur the edge map with Sigma
//  4. match Template against the blurred map, producing a same-size score grid
//  5. keep cells scoring above Threshold
//  6. label connected candidate blobs
//  7. reduce each blob to its centroid
//
// A template larger than the frame fails with errdefs.ErrShapeMismatch. A frame
// with no candidates returns an empty Result and no error.
func (d *Detector) Detect(img image.Image) (*Result, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	ch := d.Channel
	if ch == "" {
		ch = imaging.Red
	}
	grid, err := imaging.ExtractChannel(img, ch)
	if err != nil {
		return nil, fmt.Errorf("failed to isolate %s channel: %w", ch, err)
	}
	return d.DetectGrid(grid)
}

// DetectGrid runs the pipeline from step 2 on an already isolated channel.
func (d *Detector) DetectGrid(channel *mat.Dense) (*Result, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	if err := match.CheckShapes(channel, d.Template); err != nil {
		return nil, err
	}

	edges := transform.FindEdges(channel)
	blurred, err := transform.GaussianFilter(edges, d.Sigma)
	if err != nil {
		return nil, err
	}

	matchFn := d.Match
	if matchFn == nil {
		matchFn = match.Normalized
	}
	scores, err := matchFn(blurred, d.Template)
	if err != nil {
		return nil, err
	}

	candidates, err := transform.Threshold(scores, d.Threshold)
	if err != nil {
		return nil, err
	}
	labels := transform.FindConnectedComponents(candidates)
	centroids := transform.ComponentCentroids(labels)

	result := &Result{
		Centroids:  centroids,
		Detections: describe(labels, centroids, scores),
		Count:      len(centroids),
	}
	if d.KeepIntermediates {
		result.Stages = &Intermediates{
			Channel:    channel,
			Edges:      edges,
			Blurred:    blurred,
			Scores:     scores,
			Candidates: candidates,
		}
	}
	return result, nil
}

// DetectFile loads a frame from disk and runs Detect on it.
func (d *Detector) DetectFile(path string) (*Result, error) {
	img, err := imaging.LoadFrame(path)
	if err != nil {
		return nil, err
	}
	return d.Detect(img)
}

// describe builds per-blob statistics in label order.
func describe(labels region.LabelMap, centroids transform.Centroids, scores *mat.Dense) []Detection {
	out := make([]Detection, 0, len(centroids))
	regions := labels.Regions()
	for _, label := range centroids.Labels() {
		blob := regions[label]
		lo, hi, _ := blob.Bounds()
		best := 0.0
		for i, c := range blob.CoordList() {
			if v := scores.At(c.Row, c.Col); i == 0 || v > best {
				best = v
			}
		}
		p := centroids[label]
		out = append(out, Detection{
			Label:  label,
			Row:    p.Row,
			Col:    p.Col,
			Area:   blob.Area(),
			Bounds: Bounds{MinRow: lo.Row, MinCol: lo.Col, MaxRow: hi.Row, MaxCol: hi.Col},
			Score:  best,
		})
	}
	return out
}
