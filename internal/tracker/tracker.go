// Package tracker runs the detector over a directory of frames.
//
// Frames are independent, so they are processed by a bounded pool of workers
// sharing one read-only Detector. Results are merged afterwards in frame-name
// order: every centroid is marked on the composite canvas and, when a store is
// configured, the whole run is recorded in one transaction. A failed run
// leaves nothing in the store.
package tracker

import (
	"context"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/kilobot-tracker/internal/detection"
	"github.com/ironsheep/kilobot-tracker/internal/imaging"
	"github.com/ironsheep/kilobot-tracker/internal/store"
)

// Options configures a tracking run.
type Options struct {
	// Dir holds the frames, one still image per file.
	Dir string

	// Detector is shared by all workers and must not be modified during Run.
	Detector *detection.Detector

	// Profile names the calibration in logs and in the store.
	Profile string

	// TemplatePath is recorded in the store alongside the run.
	TemplatePath string

	// CanvasWidth and CanvasHeight size the composite, normally the video
	// resolution.
	CanvasWidth  int
	CanvasHeight int

	// DebugDir, when set, receives the intermediate rasters of every frame.
	DebugDir string

	// CompositePath, when set, is where the composite PNG is written.
	CompositePath string

	// Store, when set, records the run.
	Store *store.DB

	// Workers bounds parallelism. Zero means runtime.NumCPU().
	Workers int

	// Logger receives progress. Nil discards it.
	Logger *logrus.Logger
}

// FrameResult is the outcome for one frame.
type FrameResult struct {
	Frame  string
	Path   string
	Result *detection.Result
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	Profile    string
	Frames     []FrameResult
	Detections int

	// OffCanvas counts centroids that fell outside the composite canvas.
	OffCanvas int

	Composite *imaging.Composite
	Elapsed   time.Duration
}

// Run processes every frame in opts.Dir.
//
// The first frame that fails stops the run and its error is returned. A frame
// without detections is not a failure. Cancelling ctx stops workers before
// their next frame and returns ctx.Err().
func Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Detector == nil {
		return nil, fmt.Errorf("tracker needs a detector")
	}
	if opts.CanvasWidth <= 0 || opts.CanvasHeight <= 0 {
		return nil, fmt.Errorf("invalid composite canvas %dx%d", opts.CanvasWidth, opts.CanvasHeight)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	paths, err := imaging.ListFrames(opts.Dir)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.NewString()
	log := logger.WithFields(logrus.Fields{
		"run_id":  runID,
		"profile": opts.Profile,
	})
	log.WithFields(logrus.Fields{
		"dir":    opts.Dir,
		"frames": len(paths),
	}).Info("Starting tracking run")

	frames, err := process(ctx, opts, paths, log)
	if err != nil {
		log.WithError(err).Error("Tracking run failed")
		return nil, err
	}

	summary := &Summary{
		RunID:     runID,
		Profile:   opts.Profile,
		Frames:    frames,
		Composite: imaging.NewComposite(opts.CanvasWidth, opts.CanvasHeight),
	}
	for _, fr := range frames {
		for _, label := range fr.Result.Centroids.Labels() {
			px := fr.Result.Centroids[label].Pixel()
			if !summary.Composite.Mark(px.Row, px.Col) {
				summary.OffCanvas++
			}
		}
		summary.Detections += fr.Result.Count
	}

	if opts.Store != nil {
		run := &store.Run{
			ID:        runID,
			Profile:   opts.Profile,
			SourceDir: opts.Dir,
			Template:  opts.TemplatePath,
			StartedAt: start,
		}
		records := make([]store.Frame, len(frames))
		for i, fr := range frames {
			records[i] = store.Frame{Name: fr.Frame, Detections: storeDetections(fr.Result)}
		}
		if err := opts.Store.RecordRun(run, records); err != nil {
			log.WithError(err).Error("Failed to record run")
			return nil, err
		}
	}
	if opts.CompositePath != "" {
		if err := imaging.SavePNG(opts.CompositePath, summary.Composite.Image()); err != nil {
			return nil, err
		}
	}

	summary.Elapsed = time.Since(start)
	log.WithFields(logrus.Fields{
		"frames":     len(frames),
		"detections": summary.Detections,
		"off_canvas": summary.OffCanvas,
		"elapsed":    summary.Elapsed.String(),
	}).Info("Tracking run complete")
	return summary, nil
}

// process runs detection over paths with a bounded worker pool. Results are
// returned in the order of paths.
func process(ctx context.Context, opts Options, paths []string, log *logrus.Entry) ([]FrameResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	results := make([]FrameResult, len(paths))
	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				fr, err := processFrame(opts, paths[i])
				if err != nil {
					fail(err)
					continue
				}
				log.WithFields(logrus.Fields{
					"frame": fr.Frame,
					"count": fr.Result.Count,
				}).Debug("Frame processed")
				results[i] = fr
			}
		}()
	}

feed:
	for i := range paths {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// processFrame detects bots in one frame and writes its debug rasters.
func processFrame(opts Options, path string) (FrameResult, error) {
	name := filepath.Base(path)
	img, err := imaging.LoadFrame(path)
	if err != nil {
		return FrameResult{}, fmt.Errorf("frame %s: %w", name, err)
	}

	d := *opts.Detector
	d.KeepIntermediates = opts.DebugDir != ""
	result, err := d.Detect(img)
	if err != nil {
		return FrameResult{}, fmt.Errorf("frame %s: %w", name, err)
	}

	if opts.DebugDir != "" {
		if err := writeDebug(opts.DebugDir, name, channelName(d.Channel, img), result.Stages); err != nil {
			return FrameResult{}, err
		}
		result.Stages = nil
	}
	return FrameResult{Frame: name, Path: path, Result: result}, nil
}

// DebugNames returns the debug raster file names written for a frame, in
// pipeline order.
func DebugNames(frame, channel string) []string {
	base := strings.TrimSuffix(frame, filepath.Ext(frame))
	return []string{
		base + "_" + channel + ".png",
		base + "_edges.png",
		base + "_blurred.png",
		base + "_match.png",
		base + "_selected.png",
	}
}

func writeDebug(dir, frame, channel string, s *detection.Intermediates) error {
	names := DebugNames(frame, channel)
	rasters := []image.Image{
		imaging.GridToGray(s.Channel),
		imaging.GridToGray(s.Edges),
		imaging.GridToGray(s.Blurred),
		imaging.GridToGray(s.Scores),
		imaging.MaskToGray(s.Candidates),
	}
	for i, img := range rasters {
		if err := imaging.SavePNG(filepath.Join(dir, names[i]), img); err != nil {
			return err
		}
	}
	return nil
}

// channelName resolves the channel a detector searches in img, for naming
// debug rasters.
func channelName(c imaging.Channel, img image.Image) string {
	switch c {
	case "":
		return string(imaging.Red)
	case imaging.Auto:
		return string(imaging.StrongestChannel(img))
	default:
		return string(c)
	}
}

func storeDetections(r *detection.Result) []store.Detection {
	out := make([]store.Detection, 0, len(r.Detections))
	for _, d := range r.Detections {
		out = append(out, store.Detection{
			Label: d.Label,
			Row:   d.Row,
			Col:   d.Col,
			Area:  d.Area,
			Score: d.Score,
		})
	}
	return out
}
