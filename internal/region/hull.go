package region

import "sort"

// point is a pixel-corner or pixel-centre position in doubled coordinates,
// so that half-pixel corners stay integral: cell (row, col) has its centre at
// (2*col, 2*row) and its corners at (2*col±1, 2*row±1).
type point struct {
	x, y int64
}

// ConvexHull returns the rasterized convex hull of the members. The hull is
// taken over the corners of every member cell, and a cell belongs to the
// result when its centre lies strictly inside the hull. Member centres are
// always strictly inside, so the hull contains the region. An empty region
// yields an empty hull.
//
// Centres lying exactly on a hull edge are excluded. skimage's
// convex_hull_image counts them in, so an L of three cells stays three cells
// here where skimage fills the full 2x2 block.
func (r Region) ConvexHull() Region {
	out := empty(r.rows, r.cols)
	corners := r.extremeCorners()
	if len(corners) == 0 {
		return out
	}
	hull := convexHull(corners)

	min, max, _ := r.Bounds()
	for y := min.Row; y <= max.Row; y++ {
		for x := min.Col; x <= max.Col; x++ {
			if insideConvex(hull, point{x: int64(2 * x), y: int64(2 * y)}) {
				out.bits[y*r.cols+x] = true
			}
		}
	}
	return out
}

// extremeCorners collects the corners of the leftmost and rightmost member
// of each row. Interior members cannot contribute hull vertices.
func (r Region) extremeCorners() []point {
	pts := make([]point, 0)
	for y := 0; y < r.rows; y++ {
		left, right := -1, -1
		for x := 0; x < r.cols; x++ {
			if r.bits[y*r.cols+x] {
				if left < 0 {
					left = x
				}
				right = x
			}
		}
		if left < 0 {
			continue
		}
		for _, x := range []int{left, right} {
			cx, cy := int64(2*x), int64(2*y)
			pts = append(pts,
				point{cx - 1, cy - 1}, point{cx + 1, cy - 1},
				point{cx - 1, cy + 1}, point{cx + 1, cy + 1})
		}
	}
	return pts
}

func cross(o, a, b point) int64 {
	return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
}

// convexHull returns the hull vertices in counter-clockwise order using the
// monotone chain algorithm. Collinear points are dropped.
func convexHull(pts []point) []point {
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].x != pts[j].x {
			return pts[i].x < pts[j].x
		}
		return pts[i].y < pts[j].y
	})
	uniq := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			uniq = append(uniq, p)
		}
	}
	pts = uniq
	if len(pts) < 3 {
		return pts
	}

	hull := make([]point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

func insideConvex(hull []point, p point) bool {
	n := len(hull)
	for i := 0; i < n; i++ {
		if cross(hull[i], hull[(i+1)%n], p) <= 0 {
			return false
		}
	}
	return true
}
