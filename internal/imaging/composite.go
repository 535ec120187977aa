package imaging

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Composite accumulates detection positions from many frames onto one canvas.
//
// The canvas starts black and every marked pixel turns white. A Composite is
// not safe for concurrent use; callers merge per-frame results into it from a
// single goroutine.
type Composite struct {
	canvas *image.NRGBA
	marked int
}

// NewComposite creates a black width x height canvas.
func NewComposite(width, height int) *Composite {
	canvas := imaging.New(width, height, color.NRGBA{A: 255})
	return &Composite{canvas: canvas}
}

// Mark paints the pixel at (row, col) white. It reports false, and does
// nothing, when the position is off the canvas.
func (c *Composite) Mark(row, col int) bool {
	if !(image.Point{X: col, Y: row}).In(c.canvas.Bounds()) {
		return false
	}
	c.canvas.SetNRGBA(col, row, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	c.marked++
	return true
}

// Marked returns how many Mark calls landed on the canvas.
func (c *Composite) Marked() int { return c.marked }

// Image returns a copy of the canvas.
func (c *Composite) Image() *image.NRGBA {
	return imaging.Clone(c.canvas)
}

// markerOffsets is the plus-shaped footprint drawn for each annotated point.
var markerOffsets = []image.Point{{0, 0}, {1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// AnnotateResult describes an annotated image.
type AnnotateResult struct {
	Image  *image.NRGBA
	Points int
}

// Annotate overlays trajectory points onto a copy of base.
//
// Every pixel of overlay whose red channel is non-zero is a trajectory point;
// it is drawn on base at the same position as a five-pixel plus in the given
// colour, clipped to base's bounds. Both images are addressed relative to their
// own top-left corner.
func Annotate(base, overlay image.Image, marker color.Color) *AnnotateResult {
	out := imaging.Clone(base)
	ob := overlay.Bounds()
	points := 0
	for y := 0; y < ob.Dy(); y++ {
		for x := 0; x < ob.Dx(); x++ {
			r, _, _, _ := overlay.At(ob.Min.X+x, ob.Min.Y+y).RGBA()
			if r>>8 == 0 {
				continue
			}
			points++
			for _, o := range markerOffsets {
				p := image.Point{X: x + o.X, Y: y + o.Y}
				if p.In(out.Bounds()) {
					out.Set(p.X, p.Y, marker)
				}
			}
		}
	}
	return &AnnotateResult{Image: out, Points: points}
}

// ParseColor parses a hex colour such as "#FF0000" or "ff0000".
func ParseColor(hex string) (color.NRGBA, error) {
	hex = strings.TrimSpace(hex)
	if hex == "" {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
