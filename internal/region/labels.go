package region

import (
	"sort"

	"github.com/ironsheep/kilobot-tracker/internal/errdefs"
)

// LabelMap is an integer grid produced by connected-component analysis.
// Each distinct positive value is one component; 0 is background.
type LabelMap struct {
	rows, cols int
	ids        []int
}

// NewLabelMap builds a LabelMap from row-major ids. The slice is copied.
func NewLabelMap(rows, cols int, ids []int) (LabelMap, error) {
	if rows < 0 || cols < 0 || len(ids) != rows*cols {
		return LabelMap{}, errdefs.InvalidArgument("%d labels for a %dx%d grid", len(ids), rows, cols)
	}
	m := LabelMap{rows: rows, cols: cols, ids: make([]int, len(ids))}
	copy(m.ids, ids)
	return m, nil
}

// LabelMapFromRows builds a LabelMap from integer rows.
func LabelMapFromRows(grid [][]int) (LabelMap, error) {
	rows := len(grid)
	cols := 0
	if rows > 0 {
		cols = len(grid[0])
	}
	ids := make([]int, 0, rows*cols)
	for i, row := range grid {
		if len(row) != cols {
			return LabelMap{}, errdefs.InvalidArgument("row %d has %d columns, want %d", i, len(row), cols)
		}
		ids = append(ids, row...)
	}
	return NewLabelMap(rows, cols, ids)
}

// Rows returns the grid height.
func (m LabelMap) Rows() int { return m.rows }

// Cols returns the grid width.
func (m LabelMap) Cols() int { return m.cols }

// At returns the label at (row, col), or 0 outside the grid.
func (m LabelMap) At(row, col int) int {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		return 0
	}
	return m.ids[row*m.cols+col]
}

// Count returns how many cells carry id.
func (m LabelMap) Count(id int) int {
	n := 0
	for _, v := range m.ids {
		if v == id {
			n++
		}
	}
	return n
}

// Labels returns the distinct positive labels in ascending order.
func (m LabelMap) Labels() []int {
	seen := make(map[int]struct{})
	for _, v := range m.ids {
		if v > 0 {
			seen[v] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// Regions derives one Region per distinct positive label.
func (m LabelMap) Regions() map[int]Region {
	out := make(map[int]Region)
	for _, id := range m.Labels() {
		out[id] = FromIDArray(m, id)
	}
	return out
}

// MustLabelMap is like NewLabelMap but panics on a shape mismatch. It is meant
// for callers that size ids from rows and cols themselves.
func MustLabelMap(rows, cols int, ids []int) LabelMap {
	m, err := NewLabelMap(rows, cols, ids)
	if err != nil {
		panic(err)
	}
	return m
}
