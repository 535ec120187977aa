// Package transform provides the pure grid operations used by the detection
// pipeline: edge detection, Gaussian smoothing, thresholding, connected
// component labeling and centroid extraction.
//
// Intensity grids are gonum *mat.Dense values indexed (row, col). Boolean
// grids are region.Region values. Every function returns a freshly allocated
// result and leaves its inputs untouched.
//
// # Border Handling
//
// Convolutions (FindEdges, GaussianFilter) extend the grid by mirror
// reflection that repeats the edge cell:
//
//	d c b a | a b c d | d c b a
//
// # Connectivity
//
// FindConnectedComponents uses region.Connectivity (8-connected), the same
// adjacency region.Region uses for erosion and dilation.
package transform
