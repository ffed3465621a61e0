package raster

import (
	"fmt"
	"math"
)

// Pixel transformations change levels in place and never touch geometry.

// Negative replaces every level with maxval - level, turning dark pixels
// light and vice versa.
func (img *Image) Negative() {
	img.mustLive()
	for i, v := range img.pix {
		img.pix[i] = img.maxval - v
	}
}

// Threshold sets every pixel with level >= thr to maxval and every other
// pixel to 0.
func (img *Image) Threshold(thr uint8) {
	img.mustLive()
	for i, v := range img.pix {
		if v >= thr {
			img.pix[i] = img.maxval
		} else {
			img.pix[i] = 0
		}
	}
}

// Brighten multiplies every level by factor, rounding half up and
// saturating at maxval. factor must lie in [0, 1].
func (img *Image) Brighten(factor float64) {
	img.mustLive()
	if !(factor >= 0 && factor <= 1) {
		panic(fmt.Sprintf("raster: brighten factor %v outside [0,1]", factor))
	}
	for i, v := range img.pix {
		img.pix[i] = img.saturate(float64(v) * factor)
	}
}

// saturate rounds v half up and clamps it into [0, maxval].
func (img *Image) saturate(v float64) uint8 {
	r := math.Floor(v + 0.5)
	if r < 0 {
		return 0
	}
	if r > float64(img.maxval) {
		return img.maxval
	}
	return uint8(r)
}
