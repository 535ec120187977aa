package transform

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/kilobot-tracker/internal/errdefs"
	"github.com/ironsheep/kilobot-tracker/internal/region"
)

// Point is a sub-pixel position in (row, col) order.
type Point struct {
	Row float64 `json:"row"`
	Col float64 `json:"col"`
}

// Pixel rounds the point to the nearest cell.
func (p Point) Pixel() region.Coord {
	return region.Coord{Row: int(math.Round(p.Row)), Col: int(math.Round(p.Col))}
}

// Centroids maps a component label to the mean position of its cells.
//
// An empty mapping is the normal "nothing found" result and not an error.
type Centroids map[int]Point

// Empty reports whether no components were found.
func (c Centroids) Empty() bool { return len(c) == 0 }

// Labels returns the component labels in ascending order.
func (c Centroids) Labels() []int {
	out := make([]int, 0, len(c))
	for id := range c {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Points returns the centroids ordered by label.
func (c Centroids) Points() []Point {
	out := make([]Point, 0, len(c))
	for _, id := range c.Labels() {
		out = append(out, c[id])
	}
	return out
}

// Threshold returns the cells of grid strictly greater than cutoff.
//
// Returns errdefs.ErrInvalidArgument for a NaN cutoff.
func Threshold(grid *mat.Dense, cutoff float64) (region.Region, error) {
	if math.IsNaN(cutoff) {
		return region.Region{}, errdefs.InvalidArgument("threshold cutoff is NaN")
	}
	rows, cols := grid.Dims()
	mask := make([]bool, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			mask[y*cols+x] = grid.At(y, x) > cutoff
		}
	}
	return region.MustMask(rows, cols, mask), nil
}

// FindConnectedComponents labels the maximal 8-connected sets of member cells.
//
// Labels run from 1 in raster order of each component's first cell;
// background cells are 0.
func FindConnectedComponents(mask region.Region) region.LabelMap {
	rows, cols := mask.Rows(), mask.Cols()
	ids := make([]int, rows*cols)
	offsets := region.Offsets(region.Connectivity)

	next := 0
	queue := make([]region.Coord, 0)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if !mask.At(y, x) || ids[y*cols+x] != 0 {
				continue
			}
			next++
			ids[y*cols+x] = next
			queue = append(queue[:0], region.Coord{Row: y, Col: x})

			for len(queue) > 0 {
				c := queue[0]
				queue = queue[1:]
				for _, o := range offsets {
					ny, nx := c.Row+o.Row, c.Col+o.Col
					if !mask.At(ny, nx) || ids[ny*cols+nx] != 0 {
						continue
					}
					ids[ny*cols+nx] = next
					queue = append(queue, region.Coord{Row: ny, Col: nx})
				}
			}
		}
	}
	return region.MustLabelMap(rows, cols, ids)
}

// ComponentCentroids returns the mean (row, col) of every positive label.
func ComponentCentroids(labels region.LabelMap) Centroids {
	type acc struct {
		sumRow, sumCol float64
		n              int
	}
	sums := make(map[int]*acc)
	for y := 0; y < labels.Rows(); y++ {
		for x := 0; x < labels.Cols(); x++ {
			id := labels.At(y, x)
			if id < 1 {
				continue
			}
			a, ok := sums[id]
			if !ok {
				a = &acc{}
				sums[id] = a
			}
			a.sumRow += float64(y)
			a.sumCol += float64(x)
			a.n++
		}
	}

	out := make(Centroids, len(sums))
	for id, a := range sums {
		out[id] = Point{Row: a.sumRow / float64(a.n), Col: a.sumCol / float64(a.n)}
	}
	return out
}

// ComponentRegions converts every labeled component into its own Region.
func ComponentRegions(labels region.LabelMap) map[int]region.Region {
	return labels.Regions()
}
