package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestParseChannel(t *testing.T) {
	tests := []struct {
		in      string
		want    Channel
		wantErr bool
	}{
		{"", Red, false},
		{"red", Red, false},
		{" Green ", Green, false},
		{"BLUE", Blue, false},
		{"auto", Auto, false},
		{"alpha", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChannel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseChannel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseChannel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractChannel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(2, 1, color.RGBA{51, 255, 0, 255})

	red, err := ExtractChannel(img, Red)
	if err != nil {
		t.Fatalf("ExtractChannel failed: %v", err)
	}
	rows, cols := red.Dims()
	if rows != 2 || cols != 3 {
		t.Fatalf("dims: got %dx%d, want 2x3", rows, cols)
	}
	if red.At(0, 0) != 1 {
		t.Errorf("red(0,0) = %v, want 1", red.At(0, 0))
	}
	if math.Abs(red.At(1, 2)-0.2) > 1e-12 {
		t.Errorf("red(1,2) = %v, want 0.2", red.At(1, 2))
	}
	if red.At(0, 1) != 0 {
		t.Errorf("red(0,1) = %v, want 0", red.At(0, 1))
	}

	green, err := ExtractChannel(img, Green)
	if err != nil {
		t.Fatalf("ExtractChannel failed: %v", err)
	}
	if green.At(1, 2) != 1 || green.At(0, 0) != 0 {
		t.Errorf("green channel mixed up: (1,2)=%v (0,0)=%v", green.At(1, 2), green.At(0, 0))
	}
}

func TestExtractChannel_Auto(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			b := uint8(0)
			if (x+y)%2 == 0 {
				b = 255
			}
			img.Set(x, y, color.RGBA{100, 100, b, 255})
		}
	}

	if got := StrongestChannel(img); got != Blue {
		t.Fatalf("StrongestChannel = %q, want blue", got)
	}
	grid, err := ExtractChannel(img, Auto)
	if err != nil {
		t.Fatalf("ExtractChannel failed: %v", err)
	}
	if grid.At(0, 0) != 1 || grid.At(0, 1) != 0 {
		t.Errorf("auto should extract blue: got (0,0)=%v (0,1)=%v", grid.At(0, 0), grid.At(0, 1))
	}
}

func TestStrongestChannel_TiePrefersRed(t *testing.T) {
	img := createSolidImage(5, 5, color.RGBA{10, 10, 10, 255})
	if got := StrongestChannel(img); got != Red {
		t.Errorf("flat image: got %q, want red", got)
	}
}

func TestExtractChannel_Empty(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := ExtractChannel(img, Red); err == nil {
		t.Error("ExtractChannel should fail for an empty image")
	}
}
