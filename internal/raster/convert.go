package raster

import (
	"image"
	"image/draw"
)

// Gray returns img as an *image.Gray with levels rescaled from
// [0, maxval] to [0, 255], rounding half up. Levels above maxval are
// clamped to white.
func (img *Image) Gray() *image.Gray {
	img.mustLive()
	out := image.NewGray(image.Rect(0, 0, img.width, img.height))
	m := int(img.maxval)
	for y := 0; y < img.height; y++ {
		dst := out.Pix[y*out.Stride : y*out.Stride+img.width]
		for x, v := range img.row(y) {
			l := min(int(v), m)
			dst[x] = uint8((2*l*255 + m) / (2 * m))
		}
	}
	return out
}

// FromImage converts any image to a raster with maxval 255, using the
// luma weights of color.GrayModel. The result is anchored at (0, 0)
// regardless of src's bounds.
func FromImage(src image.Image) (*Image, error) {
	b := src.Bounds()
	img, err := New(b.Dx(), b.Dy(), PixMax)
	if err != nil {
		return nil, err
	}
	gray, ok := src.(*image.Gray)
	if !ok {
		gray = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
		b = gray.Bounds()
	}
	for y := 0; y < img.height; y++ {
		off := gray.PixOffset(b.Min.X, b.Min.Y+y)
		copy(img.row(y), gray.Pix[off:off+img.width])
	}
	return img, nil
}

// FromLevels builds a raster from row-major levels. Every level must be
// <= maxval and len(levels) must equal width*height.
func FromLevels(width, height int, maxval uint8, levels []uint8) (*Image, error) {
	img, err := New(width, height, maxval)
	if err != nil {
		return nil, err
	}
	if len(levels) != len(img.pix) {
		panic("raster: level count does not match dimensions")
	}
	for _, v := range levels {
		if v > maxval {
			panic("raster: level above maxval")
		}
	}
	copy(img.pix, levels)
	return img, nil
}
