package raster

import (
	"errors"
	"fmt"
	"io"
)

// ErrLevel is returned by ReadPixels when a level exceeds maxval.
var ErrLevel = errors.New("raster: level above maxval")

// ReadPixels fills img with exactly Width()*Height() raw levels read from
// r in row-major order. A short read or a level above maxval is an error;
// in that case the contents of img are unspecified.
func (img *Image) ReadPixels(r io.Reader) error {
	img.mustLive()
	if _, err := io.ReadFull(r, img.pix); err != nil {
		return err
	}
	for i, v := range img.pix {
		if v > img.maxval {
			return fmt.Errorf("%w: %d at (%d,%d)", ErrLevel, v, i%img.width, i/img.width)
		}
	}
	return nil
}

// WritePixels writes the raw levels of img to w in row-major order.
func (img *Image) WritePixels(w io.Writer) error {
	img.mustLive()
	n, err := w.Write(img.pix)
	if err == nil && n < len(img.pix) {
		err = io.ErrShortWrite
	}
	return err
}
