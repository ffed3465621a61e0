package raster

import "fmt"

// Geometric transformations return a new raster and leave the receiver
// untouched. They fail only when the new raster cannot be allocated.

// Rotate returns img rotated 90 degrees counter-clockwise. Pixel (x, y)
// of img lands at (y, width-1-x) of the result, whose size is
// height x width.
func (img *Image) Rotate() (*Image, error) {
	img.mustLive()
	out, err := New(img.height, img.width, img.maxval)
	if err != nil {
		return nil, err
	}
	for y := 0; y < img.height; y++ {
		for x, v := range img.row(y) {
			out.pix[(img.width-1-x)*out.width+y] = v
		}
	}
	return out, nil
}

// Mirror returns img flipped left to right.
func (img *Image) Mirror() (*Image, error) {
	img.mustLive()
	out, err := New(img.width, img.height, img.maxval)
	if err != nil {
		return nil, err
	}
	for y := 0; y < img.height; y++ {
		src, dst := img.row(y), out.row(y)
		for x, v := range src {
			dst[img.width-1-x] = v
		}
	}
	return out, nil
}

// Crop returns the w x h subimage whose top-left corner is (x, y).
// The rectangle must be valid for img.
func (img *Image) Crop(x, y, w, h int) (*Image, error) {
	if !img.ValidRect(x, y, w, h) {
		panic(fmt.Sprintf("raster: crop (%d,%d,%d,%d) outside %dx%d image", x, y, w, h, img.width, img.height))
	}
	out, err := New(w, h, img.maxval)
	if err != nil {
		return nil, err
	}
	for j := 0; j < h; j++ {
		copy(out.row(j), img.row(y + j)[x:x+w])
	}
	return out, nil
}
