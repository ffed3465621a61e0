package raster

import "fmt"

// Blur applies a (2dx+1) x (2dy+1) mean filter to img in place.
//
// Each pixel becomes the mean, rounded half up, of the pixels of
// [x-dx, x+dx] x [y-dy, y+dy] that lie inside the image; near the borders
// the window simply shrinks. All means are computed from the original
// levels into a scratch buffer, which replaces the pixels only once the
// whole image has been filtered.
func (img *Image) Blur(dx, dy int) {
	img.mustLive()
	if dx < 0 || dy < 0 {
		panic(fmt.Sprintf("raster: negative blur radius (%d,%d)", dx, dy))
	}
	w, h := img.width, img.height
	if w == 0 || h == 0 {
		return
	}
	dx, dy = min(dx, w), min(dy, h)

	// sat[(y)*(w+1)+x] holds the sum of all pixels above and left of (x, y).
	stride := w + 1
	sat := make([]int64, stride*(h+1))
	for y := 0; y < h; y++ {
		var run int64
		for x, v := range img.row(y) {
			run += int64(v)
			sat[(y+1)*stride+x+1] = sat[y*stride+x+1] + run
		}
	}

	scratch := make([]uint8, len(img.pix))
	for y := 0; y < h; y++ {
		y0, y1 := max(y-dy, 0), min(y+dy+1, h)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-dx, 0), min(x+dx+1, w)
			sum := sat[y1*stride+x1] - sat[y0*stride+x1] - sat[y1*stride+x0] + sat[y0*stride+x0]
			n := int64((x1 - x0) * (y1 - y0))
			scratch[y*w+x] = uint8((2*sum + n) / (2 * n))
		}
	}
	copy(img.pix, scratch)
}
