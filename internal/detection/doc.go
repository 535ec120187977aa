// Package detection locates kilobots in still frames.
//
// A Detector runs a single-pass, state-free pipeline over each frame:
//
//  1. Channel isolation: the channel with the strongest bot contrast (red in
//     the reference arena) becomes a [0, 1] intensity grid
//  2. Edge detection: Sobel gradient magnitude
//  3. Blur: Gaussian smoothing widens the match tolerance
//  4. Template matching: normalized cross-correlation against a calibration
//     template, producing a score grid the same size as the frame
//  5. Thresholding: cells scoring above the cutoff become candidates
//  6. Labeling: 8-connected candidate blobs are numbered in raster order
//  7. Reduction: each blob collapses to its centroid
//
// # Coordinate System
//
// Results use grid coordinates: Row is the vertical position (0 = top) and Col
// the horizontal position (0 = left), so a detection at (Row, Col) is image
// pixel (X=Col, Y=Row). Centroids are fractional means of blob cells.
//
// # Calibration
//
// Sigma and Threshold are scene calibration knobs rather than algorithm
// constants. Standard detection uses sigma 2 and cutoff 0.6; leader-bot
// detection uses a larger template with sigma 5 and cutoff 0.7.
//
// # Empty Frames
//
// A frame without candidates yields a Result with Count 0 and an empty
// Centroids map. This is the common case for frames between bot appearances
// and is never reported as an error.
//
// # Concurrency
//
// Detect does not modify the Detector, so frames may be processed in parallel
// with one shared Detector.
package detection
