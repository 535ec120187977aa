// Package region provides the Region type: an immutable boolean membership
// grid describing a blob of interest, together with the morphological
// operators used to analyse it.
//
// # Grid Convention
//
// A Region has Rows x Cols cells addressed as (row, col), with (0, 0) at the
// top-left. In image terms row is Y and col is X.
//
// # Pinned Conventions
//
// Two conventions that image libraries usually leave implicit are fixed here
// and used by every operator in this package and by component labeling in
// package transform:
//
//   - Connectivity is Eight: the structuring element is the full 3x3 square,
//     so diagonal neighbours count as adjacent.
//   - Zero padding: cells outside the grid are background. A member cell on
//     the grid edge therefore always borders background, is removed by Inner,
//     and counts towards Border and Perimeter.
//
// # Immutability
//
// Every operator (Inner, Border, Dilate, ConvexHull) returns a new Region with
// its own backing storage. A Region is never modified after construction and is
// safe for concurrent use.
//
// # Errors
//
// Constructors fail with errdefs.ErrInvalidRegionData when given values
// outside {0, 1} or ragged rows. Dilate fails with errdefs.ErrInvalidArgument
// for a negative iteration count.
package region
