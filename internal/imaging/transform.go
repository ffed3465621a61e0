package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/makeworld-the-better-one/dither/v2"
	"github.com/nfnt/resize"

	"github.com/ironsheep/pgm-tools-mcp/internal/raster"
)

var resizeFilters = map[string]resize.InterpolationFunction{
	"nearest":  resize.NearestNeighbor,
	"bilinear": resize.Bilinear,
	"bicubic":  resize.Bicubic,
	"mitchell": resize.MitchellNetravali,
	"lanczos2": resize.Lanczos2,
	"lanczos3": resize.Lanczos3,
}

// Resize returns a copy of img scaled to width x height. The levels are
// interpolated directly, so the result keeps img's maxval. filter is one
// of nearest, bilinear, bicubic, mitchell, lanczos2 or lanczos3; empty
// selects bicubic.
func Resize(img *raster.Image, width, height int, filter string) (*raster.Image, error) {
	if filter == "" {
		filter = "bicubic"
	}
	interp, ok := resizeFilters[filter]
	if !ok {
		return nil, fmt.Errorf("unknown resize filter %q", filter)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	if img.Width() == 0 || img.Height() == 0 {
		return nil, fmt.Errorf("cannot resize empty raster (%dx%d)", img.Width(), img.Height())
	}
	if width > raster.MaxPixels/height {
		return nil, fmt.Errorf("%w: %dx%d", raster.ErrAlloc, width, height)
	}

	src := &image.Gray{
		Pix:    img.Pix(),
		Stride: img.Width(),
		Rect:   image.Rect(0, 0, img.Width(), img.Height()),
	}
	scaled := resize.Resize(uint(width), uint(height), src, interp)

	// Ringing filters may overshoot maxval.
	levels := make([]uint8, 0, width*height)
	b := scaled.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			l := color.GrayModel.Convert(scaled.At(x, y)).(color.Gray).Y
			levels = append(levels, min(l, img.Maxval()))
		}
	}
	return raster.FromLevels(width, height, img.Maxval(), levels)
}

// DitherMethods lists the methods accepted by Dither.
var DitherMethods = []string{"floyd-steinberg", "atkinson", "bayer", "clustered"}

func newDitherer(method string) (*dither.Ditherer, error) {
	d := dither.NewDitherer([]color.Color{color.Black, color.White})
	switch method {
	case "floyd-steinberg", "":
		d.Matrix = dither.FloydSteinberg
	case "atkinson":
		d.Matrix = dither.Atkinson
	case "bayer":
		d.Mapper = dither.Bayer(8, 8, 1.0)
	case "clustered":
		d.Mapper = dither.PixelMapperFromMatrix(dither.ClusteredDot4x4, 1.0)
	default:
		return nil, fmt.Errorf("unknown dither method %q", method)
	}
	return d, nil
}

// Dither returns a bilevel copy of img: every pixel becomes 0 or maxval,
// arranged so that the local density approximates the original tone.
// The result keeps img's maxval.
func Dither(img *raster.Image, method string) (*raster.Image, error) {
	d, err := newDitherer(method)
	if err != nil {
		return nil, err
	}
	if img.Width() == 0 || img.Height() == 0 {
		return img.Clone(), nil
	}

	p := d.DitherPaletted(img.Gray())
	out, err := raster.New(img.Width(), img.Height(), img.Maxval())
	if err != nil {
		return nil, err
	}
	for y := 0; y < img.Height(); y++ {
		for x := 0; x < img.Width(); x++ {
			if r, _, _, _ := p.At(x, y).RGBA(); r > 0x7fff {
				out.SetPixel(x, y, img.Maxval())
			}
		}
	}
	return out, nil
}
