package pgm

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/ironsheep/pgm-tools-mcp/internal/raster"
)

// Encode writes img to w as a P5 image: the header
// "P5\n<width> <height>\n<maxval>\n" followed by the raw levels.
// No comments are emitted.
func Encode(w io.Writer, img *raster.Image) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P5\n%d %d\n%d\n", img.Width(), img.Height(), img.Maxval()); err != nil {
		return newError("encode", ErrWriteHeader, err)
	}
	if err := bw.Flush(); err != nil {
		return newError("encode", ErrWriteHeader, err)
	}
	if err := img.WritePixels(bw); err != nil {
		return newError("encode", ErrWritePixels, err)
	}
	if err := bw.Flush(); err != nil {
		return newError("encode", ErrWritePixels, err)
	}
	return nil
}

// Save writes img to the file at path, creating or truncating it.
//
// The write is not atomic: on failure a partial file may be left behind.
func Save(path string, img *raster.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return &Error{Op: "save", Path: path, Kind: ErrOpen, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &Error{Op: "save", Path: path, Kind: ErrWritePixels, Err: cerr}
		}
	}()

	if err := Encode(f, img); err != nil {
		return withPath("save", path, err)
	}
	return nil
}
