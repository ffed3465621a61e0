package raster

import "fmt"

// mustFit panics unless src fits inside img with its top-left corner at (x, y).
func (img *Image) mustFit(op string, x, y int, src *Image) {
	src.mustLive()
	if !img.ValidRect(x, y, src.width, src.height) {
		panic(fmt.Sprintf("raster: %s of %dx%d image at (%d,%d) outside %dx%d image",
			op, src.width, src.height, x, y, img.width, img.height))
	}
}

// Paste copies src into img with its top-left corner at (x, y).
// src must fit inside img at that position.
func (img *Image) Paste(x, y int, src *Image) {
	img.mustFit("paste", x, y, src)
	for j := 0; j < src.height; j++ {
		copy(img.row(y + j)[x:x+src.width], src.row(j))
	}
}

// Blend mixes src into img at (x, y): each covered pixel becomes
// (1-alpha)*p1 + alpha*p2, rounded half up and saturated to [0, maxval].
// alpha is normally in [0, 1]; values outside that range are allowed and
// over/underflows saturate. src must fit inside img at (x, y).
func (img *Image) Blend(x, y int, src *Image, alpha float64) {
	img.mustFit("blend", x, y, src)
	for j := 0; j < src.height; j++ {
		dst := img.row(y + j)[x : x+src.width]
		for i, p2 := range src.row(j) {
			dst[i] = img.saturate((1-alpha)*float64(dst[i]) + alpha*float64(p2))
		}
	}
}
