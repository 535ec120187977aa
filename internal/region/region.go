package region

import (
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/kilobot-tracker/internal/errdefs"
)

// Coord is a (row, col) index pair.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Region is an immutable boolean grid where true marks membership.
//
// The zero value is an empty 0x0 region.
type Region struct {
	rows, cols int
	bits       []bool
}

// New builds a Region from row-major values that must all be 0 or 1.
//
// Returns errdefs.ErrInvalidRegionData if len(values) != rows*cols, if either
// dimension is negative, or if any value is outside {0, 1}.
func New(rows, cols int, values []float64) (Region, error) {
	if rows < 0 || cols < 0 || len(values) != rows*cols {
		return Region{}, errdefs.InvalidRegionData("%d values for a %dx%d grid", len(values), rows, cols)
	}
	r := empty(rows, cols)
	for i, v := range values {
		switch v {
		case 0:
		case 1:
			r.bits[i] = true
		default:
			return Region{}, errdefs.InvalidRegionData("value %v at (%d,%d) is not 0 or 1", v, i/cols, i%cols)
		}
	}
	return r, nil
}

// FromInts builds a Region from integer rows whose values must be 0 or 1.
func FromInts(grid [][]int) (Region, error) {
	rows, cols, err := gridShape(len(grid), func(i int) int { return len(grid[i]) })
	if err != nil {
		return Region{}, err
	}
	values := make([]float64, 0, rows*cols)
	for _, row := range grid {
		for _, v := range row {
			values = append(values, float64(v))
		}
	}
	return New(rows, cols, values)
}

// FromBools builds a Region from boolean rows. Only ragged input fails.
func FromBools(grid [][]bool) (Region, error) {
	rows, cols, err := gridShape(len(grid), func(i int) int { return len(grid[i]) })
	if err != nil {
		return Region{}, err
	}
	r := empty(rows, cols)
	for y, row := range grid {
		copy(r.bits[y*cols:(y+1)*cols], row)
	}
	return r, nil
}

// FromMatrix builds a Region from a numeric matrix whose values must be 0 or 1.
func FromMatrix(m mat.Matrix) (Region, error) {
	rows, cols := m.Dims()
	values := make([]float64, 0, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			values = append(values, m.At(y, x))
		}
	}
	return New(rows, cols, values)
}

// FromIDArray builds the Region whose members are exactly the cells of labels
// equal to id. An id that does not occur yields an empty region of the same
// shape.
func FromIDArray(labels LabelMap, id int) Region {
	r := empty(labels.rows, labels.cols)
	for i, v := range labels.ids {
		r.bits[i] = v == id
	}
	return r
}

// FromMask builds a Region from a row-major mask. The mask is copied.
func FromMask(rows, cols int, mask []bool) (Region, error) {
	if rows < 0 || cols < 0 || len(mask) != rows*cols {
		return Region{}, errdefs.InvalidRegionData("%d cells for a %dx%d grid", len(mask), rows, cols)
	}
	r := empty(rows, cols)
	copy(r.bits, mask)
	return r, nil
}

// MustMask is like FromMask but panics on a shape mismatch.
func MustMask(rows, cols int, mask []bool) Region {
	r, err := FromMask(rows, cols, mask)
	if err != nil {
		panic(err)
	}
	return r
}

func gridShape(rows int, rowLen func(int) int) (int, int, error) {
	if rows == 0 {
		return 0, 0, nil
	}
	cols := rowLen(0)
	for i := 1; i < rows; i++ {
		if rowLen(i) != cols {
			return 0, 0, errdefs.InvalidRegionData("row %d has %d columns, want %d", i, rowLen(i), cols)
		}
	}
	return rows, cols, nil
}

func empty(rows, cols int) Region {
	return Region{rows: rows, cols: cols, bits: make([]bool, rows*cols)}
}

// Rows returns the grid height.
func (r Region) Rows() int { return r.rows }

// Cols returns the grid width.
func (r Region) Cols() int { return r.cols }

// At reports whether (row, col) is a member. Cells outside the grid are not.
func (r Region) At(row, col int) bool {
	if row < 0 || row >= r.rows || col < 0 || col >= r.cols {
		return false
	}
	return r.bits[row*r.cols+col]
}

// Mask returns a row-major copy of the membership grid.
func (r Region) Mask() []bool {
	out := make([]bool, len(r.bits))
	copy(out, r.bits)
	return out
}

// Bools returns a copy of the membership grid as rows.
func (r Region) Bools() [][]bool {
	out := make([][]bool, r.rows)
	for y := range out {
		out[y] = make([]bool, r.cols)
		copy(out[y], r.bits[y*r.cols:(y+1)*r.cols])
	}
	return out
}

// Area returns the number of member cells.
func (r Region) Area() int {
	n := 0
	for _, b := range r.bits {
		if b {
			n++
		}
	}
	return n
}

// Empty reports whether the region has no members.
func (r Region) Empty() bool {
	for _, b := range r.bits {
		if b {
			return false
		}
	}
	return true
}

// Perimeter is the area of the border.
func (r Region) Perimeter() int {
	return r.Border().Area()
}

// CoordElements returns the member cells as parallel row and column index
// slices in row-major order.
func (r Region) CoordElements() (rows, cols []int) {
	rows = make([]int, 0)
	cols = make([]int, 0)
	for i, b := range r.bits {
		if b {
			rows = append(rows, i/r.cols)
			cols = append(cols, i%r.cols)
		}
	}
	return rows, cols
}

// CoordList returns the member cells as (row, col) pairs in row-major order.
func (r Region) CoordList() []Coord {
	out := make([]Coord, 0)
	for i, b := range r.bits {
		if b {
			out = append(out, Coord{Row: i / r.cols, Col: i % r.cols})
		}
	}
	return out
}

// Bounds returns the inclusive bounding box of the members. ok is false for
// an empty region.
func (r Region) Bounds() (min, max Coord, ok bool) {
	for i, b := range r.bits {
		if !b {
			continue
		}
		c := Coord{Row: i / r.cols, Col: i % r.cols}
		if !ok {
			min, max, ok = c, c, true
			continue
		}
		if c.Row > max.Row {
			max.Row = c.Row
		}
		if c.Col < min.Col {
			min.Col = c.Col
		}
		if c.Col > max.Col {
			max.Col = c.Col
		}
	}
	return min, max, ok
}

// Equal reports whether both regions have the same shape and members.
func (r Region) Equal(o Region) bool {
	if r.rows != o.rows || r.cols != o.cols {
		return false
	}
	for i := range r.bits {
		if r.bits[i] != o.bits[i] {
			return false
		}
	}
	return true
}

// Matrix returns the region as a 0/1 matrix. It returns nil for a region
// with a zero dimension, which gonum cannot represent.
func (r Region) Matrix() *mat.Dense {
	if r.rows == 0 || r.cols == 0 {
		return nil
	}
	data := make([]float64, len(r.bits))
	for i, b := range r.bits {
		if b {
			data[i] = 1
		}
	}
	return mat.NewDense(r.rows, r.cols, data)
}

// String renders the grid as rows of 0 and 1.
func (r Region) String() string {
	var sb strings.Builder
	for y := 0; y < r.rows; y++ {
		for x := 0; x < r.cols; x++ {
			if x > 0 {
				sb.WriteByte(' ')
			}
			if r.bits[y*r.cols+x] {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
		if y < r.rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
