package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/pgm-tools-mcp/internal/raster"
)

// Mode selects how color pixels are reduced to a single gray level when
// importing a non-PGM image.
type Mode string

const (
	// ModeRec601 uses the ITU-R BT.601 luma weights (0.299, 0.587, 0.114).
	ModeRec601 Mode = "rec601"

	// ModeWeighted uses the 0.3/0.6/0.1 heuristic weights.
	ModeWeighted Mode = "weighted"

	// ModeLightness uses perceptual CIE L*, scaled to 0..255.
	ModeLightness Mode = "lightness"
)

// Modes lists the supported luminance modes.
var Modes = []Mode{ModeRec601, ModeWeighted, ModeLightness}

// ParseMode validates a mode name. The empty string selects ModeRec601.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeRec601, nil
	}
	for _, m := range Modes {
		if Mode(s) == m {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown luminance mode %q (valid: rec601, weighted, lightness)", s)
}

// ToRaster reduces src to a raster with maxval 255.
//
// Partially transparent pixels are composited over black for the rec601
// and weighted modes; ModeLightness ignores alpha except that fully
// transparent pixels become 0.
func ToRaster(src image.Image, mode Mode) (*raster.Image, error) {
	switch mode {
	case ModeRec601, "":
		return raster.FromImage(imaging.Grayscale(src))
	case ModeWeighted:
		return raster.FromImage(effect.Grayscale(src))
	case ModeLightness:
		return lightness(src)
	default:
		return nil, fmt.Errorf("unknown luminance mode %q", mode)
	}
}

func lightness(src image.Image) (*raster.Image, error) {
	b := src.Bounds()
	img, err := raster.New(b.Dx(), b.Dy(), raster.PixMax)
	if err != nil {
		return nil, err
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c, ok := colorful.MakeColor(src.At(b.Min.X+x, b.Min.Y+y))
			if !ok {
				continue
			}
			l, _, _ := c.Lab()
			v := math.Round(l * raster.PixMax)
			img.SetPixel(x, y, uint8(max(0, min(v, raster.PixMax))))
		}
	}
	return img, nil
}
