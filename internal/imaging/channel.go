package imaging

import (
	"fmt"
	"image"
	"strings"

	"github.com/anthonynsimon/bild/channel"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Channel names a single colour channel of an RGB image.
type Channel string

const (
	// Red carries the strongest kilobot contrast in the reference setup.
	Red   Channel = "red"
	Green Channel = "green"
	Blue  Channel = "blue"
	// Auto picks the channel with the highest intensity standard deviation.
	Auto Channel = "auto"
)

// ParseChannel converts a channel name (case-insensitive) to a Channel.
// An empty name selects Red.
func ParseChannel(name string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(name))); c {
	case "":
		return Red, nil
	case Red, Green, Blue, Auto:
		return c, nil
	default:
		return "", fmt.Errorf("unknown channel %q (want red, green, blue or auto)", name)
	}
}

func (c Channel) bild() (channel.Channel, error) {
	switch c {
	case Red:
		return channel.Red, nil
	case Green:
		return channel.Green, nil
	case Blue:
		return channel.Blue, nil
	default:
		return 0, fmt.Errorf("channel %q cannot be extracted directly", c)
	}
}

// ExtractChannel isolates one channel of img as a grid of intensities in
// [0, 1], indexed (row, col) = (y, x) relative to the image's top-left.
//
// Auto is resolved with StrongestChannel first.
//
// Returns an error for an empty image or an unknown channel.
func ExtractChannel(img image.Image, c Channel) (*mat.Dense, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("image has no pixels")
	}
	if c == Auto {
		c = StrongestChannel(img)
	}
	bc, err := c.bild()
	if err != nil {
		return nil, err
	}

	gray := channel.Extract(img, bc)
	return grayToGrid(gray), nil
}

// grayToGrid converts an 8-bit gray image to a [0, 1] grid.
func grayToGrid(gray *image.Gray) *mat.Dense {
	b := gray.Bounds()
	out := mat.NewDense(b.Dy(), b.Dx(), nil)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(y, x, float64(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)/255)
		}
	}
	return out
}

// StrongestChannel returns the RGB channel whose 8-bit intensities have the
// largest standard deviation, the channel where objects stand out most from
// the background. Ties prefer red, then green.
func StrongestChannel(img image.Image) Channel {
	bounds := img.Bounds()
	n := bounds.Dx() * bounds.Dy()
	if n == 0 {
		return Red
	}
	rs := make([]float64, 0, n)
	gs := make([]float64, 0, n)
	bs := make([]float64, 0, n)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			rs = append(rs, float64(r>>8))
			gs = append(gs, float64(g>>8))
			bs = append(bs, float64(b>>8))
		}
	}

	best, bestDev := Red, stat.PopStdDev(rs, nil)
	if d := stat.PopStdDev(gs, nil); d > bestDev {
		best, bestDev = Green, d
	}
	if d := stat.PopStdDev(bs, nil); d > bestDev {
		best = Blue
	}
	return best
}
