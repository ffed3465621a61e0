package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/samuel/go-pcx/pcx"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/ironsheep/pgm-tools-mcp/internal/pgm"
	"github.com/ironsheep/pgm-tools-mcp/internal/raster"
)

// DefaultJPEGQuality is used when ExportOptions.JPEGQuality is zero.
const DefaultJPEGQuality = 90

// Formats lists the export format names accepted by ParseFormat.
var Formats = []string{"pgm", "png", "jpeg", "gif", "bmp", "tiff", "pcx"}

// ExportOptions controls Export and Encode.
type ExportOptions struct {
	// Format is one of Formats. Empty means "derive from the file
	// extension" for Export and "pgm" for Encode.
	Format string

	// JPEGQuality is 1..100; zero selects DefaultJPEGQuality.
	JPEGQuality int
}

// ParseFormat normalizes a format name or file extension ("jpg", ".tif").
func ParseFormat(name string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "pgm":
		return "pgm", nil
	case "png":
		return "png", nil
	case "jpg", "jpeg":
		return "jpeg", nil
	case "gif":
		return "gif", nil
	case "bmp":
		return "bmp", nil
	case "tif", "tiff":
		return "tiff", nil
	case "pcx":
		return "pcx", nil
	}
	return "", fmt.Errorf("unsupported export format %q", name)
}

// Encode writes img to w in the requested format. Formats other than pgm
// store the levels rescaled to 0..255.
func Encode(w io.Writer, img *raster.Image, opts ExportOptions) error {
	format := opts.Format
	if format == "" {
		format = "pgm"
	}
	format, err := ParseFormat(format)
	if err != nil {
		return err
	}
	if format == "pgm" {
		return pgm.Encode(w, img)
	}

	gray := img.Gray()
	switch format {
	case "png":
		err = imaging.Encode(w, gray, imaging.PNG)
	case "jpeg":
		q := opts.JPEGQuality
		if q == 0 {
			q = DefaultJPEGQuality
		}
		err = imaging.Encode(w, gray, imaging.JPEG, imaging.JPEGQuality(q))
	case "gif":
		err = imaging.Encode(w, paletted(gray), imaging.GIF)
	case "bmp":
		err = bmp.Encode(w, gray)
	case "tiff":
		err = tiff.Encode(w, gray, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case "pcx":
		err = pcx.Encode(w, paletted(gray))
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return nil
}

// paletted converts gray to an image with a 256-level gray palette so the
// GIF and PCX encoders store it without quantizing.
func paletted(gray *image.Gray) *image.Paletted {
	pal := make(color.Palette, 256)
	for i := range pal {
		pal[i] = color.Gray{Y: uint8(i)}
	}
	out := image.NewPaletted(gray.Bounds(), pal)
	copy(out.Pix, gray.Pix)
	return out
}

// Export writes img to the file at path, creating or truncating it.
func Export(img *raster.Image, path string, opts ExportOptions) (err error) {
	if opts.Format == "" {
		opts.Format = filepath.Ext(path)
	}
	if opts.Format, err = ParseFormat(opts.Format); err != nil {
		return err
	}
	if opts.Format == "pgm" {
		return pgm.Save(path, img)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	return Encode(f, img, opts)
}

// PreviewResult contains a PNG rendering of a raster.
type PreviewResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePreview renders img as a base64 PNG, optionally scaled. Scales
// above 1 use nearest-neighbor so individual pixels stay visible; scales
// below 1 use Lanczos. A scale <= 0 is treated as 1.
func EncodePreview(img *raster.Image, scale float64) (*PreviewResult, error) {
	if img.Width() == 0 || img.Height() == 0 {
		return nil, fmt.Errorf("cannot preview empty raster (%dx%d)", img.Width(), img.Height())
	}

	var out image.Image = img.Gray()
	if scale > 0 && scale != 1.0 {
		newWidth := max(1, int(float64(img.Width())*scale))
		newHeight := max(1, int(float64(img.Height())*scale))
		filter := imaging.Lanczos
		if scale > 1 {
			filter = imaging.NearestNeighbor
		}
		out = imaging.Resize(out, newWidth, newHeight, filter)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	return &PreviewResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
