package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// ImageCache provides thread-safe caching of loaded images to avoid redundant disk reads.
//
// The cache stores decoded image.Image objects keyed by their file path. It is
// meant for images that are reused across many operations, such as calibration
// frames and the base image of an annotation. Per-frame images of a tracking
// run should be loaded with LoadFrame instead so they are released after use.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("/path/to/still.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cache.Evict("/path/to/still.png") // Optional: free memory
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// The image is cached using the exact path string provided. Different paths to the
// same file (e.g., relative vs absolute) will result in separate cache entries.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := LoadFrame(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
//
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// LoadFrame decodes a still image from disk without caching it.
//
// Supported formats are PNG, JPEG and GIF. JPEG orientation tags are honoured
// so that pixel coordinates match what a viewer shows.
func LoadFrame(path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image, loading it into the cache
// if not already present.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// frameExtensions lists the file extensions treated as still frames.
var frameExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// ListFrames returns the image files directly inside dir, sorted by name.
//
// Subdirectories and files with other extensions are skipped. Nothing in the
// detection pipeline depends on this order; sorting only makes runs
// reproducible.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	frames := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		frames = append(frames, filepath.Join(dir, e.Name()))
	}
	sort.Strings(frames)
	return frames, nil
}
