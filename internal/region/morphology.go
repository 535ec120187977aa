package region

import "github.com/ironsheep/kilobot-tracker/internal/errdefs"

// Adjacency selects which neighbours of a cell are considered touching.
type Adjacency int

const (
	// Four connects cells sharing an edge.
	Four Adjacency = 4
	// Eight connects cells sharing an edge or a corner.
	Eight Adjacency = 8
)

// Connectivity is the adjacency used by erosion, dilation and component
// labeling. Outside-of-grid cells are always treated as background.
const Connectivity = Eight

// Offsets returns the neighbour offsets for the given adjacency in a fixed
// scan order (top to bottom, left to right), excluding the centre.
func Offsets(a Adjacency) []Coord {
	if a == Four {
		return []Coord{{-1, 0}, {0, -1}, {0, 1}, {1, 0}}
	}
	return []Coord{
		{-1, -1}, {-1, 0}, {-1, 1},
		{0, -1}, {0, 1},
		{1, -1}, {1, 0}, {1, 1},
	}
}

// Inner returns the region eroded once: a member survives only if every
// neighbour is a member. Members on the grid edge never survive.
func (r Region) Inner() Region {
	out := empty(r.rows, r.cols)
	offsets := Offsets(Connectivity)
	for y := 0; y < r.rows; y++ {
		for x := 0; x < r.cols; x++ {
			if !r.bits[y*r.cols+x] {
				continue
			}
			keep := true
			for _, o := range offsets {
				if !r.At(y+o.Row, x+o.Col) {
					keep = false
					break
				}
			}
			out.bits[y*r.cols+x] = keep
		}
	}
	return out
}

// Border returns the members removed by one erosion: bitmap AND NOT inner.
func (r Region) Border() Region {
	inner := r.Inner()
	out := empty(r.rows, r.cols)
	for i, b := range r.bits {
		out.bits[i] = b && !inner.bits[i]
	}
	return out
}

// Dilate grows the region by iterations passes. Zero iterations returns an
// equal copy.
//
// Returns errdefs.ErrInvalidArgument for a negative count.
func (r Region) Dilate(iterations int) (Region, error) {
	if iterations < 0 {
		return Region{}, errdefs.InvalidArgument("dilation iterations must be non-negative, got %d", iterations)
	}
	out := empty(r.rows, r.cols)
	copy(out.bits, r.bits)
	for i := 0; i < iterations; i++ {
		out = out.dilateOnce()
	}
	return out, nil
}

func (r Region) dilateOnce() Region {
	out := empty(r.rows, r.cols)
	offsets := Offsets(Connectivity)
	for y := 0; y < r.rows; y++ {
		for x := 0; x < r.cols; x++ {
			idx := y*r.cols + x
			if r.bits[idx] {
				out.bits[idx] = true
				continue
			}
			for _, o := range offsets {
				if r.At(y+o.Row, x+o.Col) {
					out.bits[idx] = true
					break
				}
			}
		}
	}
	return out
}
