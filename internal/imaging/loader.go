package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"

	"github.com/disintegration/imaging"
	_ "github.com/samuel/go-pcx/pcx" // Register PCX format decoder
	_ "golang.org/x/image/bmp"       // Register BMP format decoder
	_ "golang.org/x/image/tiff"      // Register TIFF format decoder

	"github.com/ironsheep/pgm-tools-mcp/internal/pgm"
	"github.com/ironsheep/pgm-tools-mcp/internal/raster"
)

// RasterCache provides thread-safe caching of decoded rasters to avoid
// redundant disk reads and conversions.
//
// Entries are keyed by path and luminance mode. The cache keeps its own
// copy of every raster; Load hands out clones, so callers may mutate or
// release what they receive without affecting the cache.
//
// # Memory Management
//
// Cached rasters remain in memory until explicitly removed via Evict() or
// Clear(). The cache does not notice when a file changes on disk.
//
// # Example Usage
//
//	cache := imaging.NewRasterCache()
//	img, err := cache.Load("/path/to/scan.png", imaging.ModeRec601)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer img.Release()
type RasterCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*cacheEntry
}

type cacheKey struct {
	path string
	mode Mode
}

type cacheEntry struct {
	img    *raster.Image
	format string
}

// NewRasterCache creates and initializes a new empty raster cache.
func NewRasterCache() *RasterCache {
	return &RasterCache{
		entries: make(map[cacheKey]*cacheEntry),
	}
}

// Load returns a raster decoded from path, reading the file only on the
// first request for a given path and mode.
//
// P5 files are decoded by the pgm codec and keep their maxval; mode is
// ignored for them. Every other format registered with the image package
// (PNG, JPEG, GIF, BMP, TIFF, PCX) is reduced to gray according to mode and
// gets maxval 255. JPEG orientation tags are applied.
//
// The returned raster belongs to the caller.
func (c *RasterCache) Load(path string, mode Mode) (*raster.Image, error) {
	img, _, err := c.load(path, mode)
	return img, err
}

// load returns a clone of the cached raster for key and its format name.
func (c *RasterCache) load(path string, mode Mode) (*raster.Image, string, error) {
	if mode == "" {
		mode = ModeRec601
	}
	key := cacheKey{path, mode}

	c.mu.RLock()
	if e, ok := c.entries[key]; ok {
		img := e.img.Clone()
		c.mu.RUnlock()
		return img, e.format, nil
	}
	c.mu.RUnlock()

	e, err := decodeFile(path, mode)
	if err != nil {
		return nil, "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[key]; ok {
		// Lost a race with another loader of the same file.
		e.img.Release()
		e = old
	} else {
		c.entries[key] = e
	}
	return e.img.Clone(), e.format, nil
}

func decodeFile(path string, mode Mode) (*cacheEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	if bytes.HasPrefix(data, []byte("P5")) {
		img, err := pgm.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		return &cacheEntry{img: img, format: "pgm"}, nil
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	img, err := ToRaster(src, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	return &cacheEntry{img: img, format: format}, nil
}

// Clear removes all rasters from the cache and releases them.
func (c *RasterCache) Clear() {
	c.mu.Lock()
	old := c.entries
	c.entries = make(map[cacheKey]*cacheEntry)
	c.mu.Unlock()

	for _, e := range old {
		e.img.Release()
	}
}

// Evict removes every cached raster decoded from path. Rasters already
// handed out by Load are unaffected.
func (c *RasterCache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if key.path == path {
			e.img.Release()
			delete(c.entries, key)
		}
	}
}

// Len returns the number of cached rasters.
func (c *RasterCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RasterInfo contains metadata about an image file as a raster.
type RasterInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Maxval is the white level of the decoded raster.
	Maxval int `json:"maxval"`

	// Format is the name of the decoder that read the file: "pgm", "png",
	// "jpeg", "gif", "bmp", "tiff" or "pcx".
	Format string `json:"format"`

	// FileSizeBytes is the size of the file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadRasterInfo loads path into the cache (if not already cached) and
// describes it.
func LoadRasterInfo(cache *RasterCache, path string) (*RasterInfo, error) {
	img, format, err := cache.load(path, ModeRec601)
	if err != nil {
		return nil, err
	}
	defer img.Release()

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &RasterInfo{
		Width:         img.Width(),
		Height:        img.Height(),
		Maxval:        int(img.Maxval()),
		Format:        format,
		FileSizeBytes: stat.Size(),
	}, nil
}
