package raster

import (
	"errors"
	"fmt"
)

// PixMax is the largest maxval a raster may carry.
const PixMax = 255

// MaxPixels caps width*height for a single raster. Requests above it fail
// with ErrAlloc rather than attempting the allocation.
const MaxPixels = 1 << 28

// ErrAlloc is returned when the pixel buffer for a raster cannot be obtained.
var ErrAlloc = errors.New("raster: allocation failed")

// Image is an 8-bit grayscale raster with a fixed size and white point.
//
// Pixels are stored in a single row-major slice: position (x, y) lives at
// index y*width + x. Every stored level is kept within [0, maxval] by the
// operations of this package; SetPixel leaves that responsibility to the
// caller.
//
// An Image is owned by exactly one holder. Operations that produce a new
// raster return a fresh *Image; nothing in this package aliases pixel
// buffers between two live images.
type Image struct {
	width  int
	height int
	maxval uint8
	pix    []uint8
}

// New creates a black (all zero) raster.
//
// width and height must be non-negative and maxval must be positive; a
// violation panics. When the pixel count overflows or exceeds MaxPixels
// the call fails with ErrAlloc and the caller must not use the result.
func New(width, height int, maxval uint8) (*Image, error) {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("raster: negative dimensions %dx%d", width, height))
	}
	if maxval == 0 {
		panic("raster: maxval must be positive")
	}
	if height > 0 && width > MaxPixels/height {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrAlloc, width, height, MaxPixels)
	}
	return &Image{
		width:  width,
		height: height,
		maxval: maxval,
		pix:    make([]uint8, width*height),
	}, nil
}

// Release drops the pixel buffer. The image must not be used afterwards;
// releasing it again panics.
func (img *Image) Release() {
	img.mustLive()
	img.pix = nil
	img.width, img.height, img.maxval = 0, 0, 0
}

// Released reports whether Release has been called on img.
func (img *Image) Released() bool {
	return img.maxval == 0
}

func (img *Image) mustLive() {
	if img == nil {
		panic("raster: nil image")
	}
	if img.maxval == 0 {
		panic("raster: use of released image")
	}
}

// Width returns the number of columns.
func (img *Image) Width() int {
	img.mustLive()
	return img.width
}

// Height returns the number of rows.
func (img *Image) Height() int {
	img.mustLive()
	return img.height
}

// Maxval returns the white point of the raster.
func (img *Image) Maxval() uint8 {
	img.mustLive()
	return img.maxval
}

// ValidPos reports whether (x, y) addresses a pixel of img.
func (img *Image) ValidPos(x, y int) bool {
	img.mustLive()
	return 0 <= x && x < img.width && 0 <= y && y < img.height
}

// ValidRect reports whether the rectangle [x, x+w) x [y, y+h) lies
// completely inside img. All four arguments must be non-negative.
func (img *Image) ValidRect(x, y, w, h int) bool {
	img.mustLive()
	if x < 0 || y < 0 || w < 0 || h < 0 {
		panic(fmt.Sprintf("raster: negative rectangle (%d,%d,%d,%d)", x, y, w, h))
	}
	return x <= img.width-w && y <= img.height-h
}

// index maps a valid position to its offset in pix.
func (img *Image) index(x, y int) int {
	if !img.ValidPos(x, y) {
		panic(fmt.Sprintf("raster: position (%d,%d) outside %dx%d image", x, y, img.width, img.height))
	}
	return y*img.width + x
}

// Pixel returns the level at (x, y). The position must be valid.
func (img *Image) Pixel(x, y int) uint8 {
	return img.pix[img.index(x, y)]
}

// SetPixel stores level at (x, y). The position must be valid and the
// caller is responsible for keeping level <= Maxval().
func (img *Image) SetPixel(x, y int, level uint8) {
	img.pix[img.index(x, y)] = level
}

// Stats returns the smallest and largest level present in img.
// The image must not be empty.
func (img *Image) Stats() (min, max uint8) {
	img.mustLive()
	if len(img.pix) == 0 {
		panic("raster: stats of empty image")
	}
	min, max = img.pix[0], img.pix[0]
	for _, v := range img.pix[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Clone returns an independent copy of img.
func (img *Image) Clone() *Image {
	img.mustLive()
	pix := make([]uint8, len(img.pix))
	copy(pix, img.pix)
	return &Image{width: img.width, height: img.height, maxval: img.maxval, pix: pix}
}

// Equal reports whether other has the same size, white point and pixel
// levels as img.
func (img *Image) Equal(other *Image) bool {
	img.mustLive()
	other.mustLive()
	if img.width != other.width || img.height != other.height || img.maxval != other.maxval {
		return false
	}
	for i, v := range img.pix {
		if other.pix[i] != v {
			return false
		}
	}
	return true
}

// Pix returns a copy of the pixel levels in row-major order.
func (img *Image) Pix() []uint8 {
	img.mustLive()
	out := make([]uint8, len(img.pix))
	copy(out, img.pix)
	return out
}

// row returns the backing slice of row y.
func (img *Image) row(y int) []uint8 {
	return img.pix[y*img.width : (y+1)*img.width]
}
