package pgm

import (
	"bufio"
	"errors"
	"image"
	"image/color"
	"io"
	"os"

	"github.com/ironsheep/pgm-tools-mcp/internal/raster"
)

// maxDimension bounds the width and height fields while parsing, before
// the pixel budget in raster.New is consulted.
const maxDimension = 1<<31 - 1

// Header holds the fields of a P5 header.
type Header struct {
	Width  int
	Height int
	Maxval uint8
}

func init() {
	image.RegisterFormat("pgm", "P5", decodeImage, decodeImageConfig)
}

// Decode reads a P5 image from r.
//
// The header may contain comment lines ("#" to end of line) between any two
// tokens. Exactly one whitespace byte separates maxval from the pixel data,
// which must hold width*height bytes. Bytes after the pixel data are not
// read.
func Decode(r io.Reader) (*raster.Image, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	img, err := raster.New(h.Width, h.Height, h.Maxval)
	if err != nil {
		return nil, newError("decode", err, nil)
	}
	if err := img.ReadPixels(br); err != nil {
		img.Release()
		return nil, newError("decode", ErrPixels, err)
	}
	return img, nil
}

// DecodeConfig reads only the header of a P5 image.
func DecodeConfig(r io.Reader) (Header, error) {
	return readHeader(bufio.NewReader(r))
}

// Load reads the P5 file at path. The caller owns the returned raster.
func Load(path string) (*raster.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Op: "load", Path: path, Kind: ErrOpen, Err: err}
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, withPath("load", path, err)
	}
	return img, nil
}

func readHeader(br *bufio.Reader) (Header, error) {
	var h Header

	p, err1 := br.ReadByte()
	five, err2 := br.ReadByte()
	if err := errors.Join(err1, err2); err != nil || p != 'P' || five != '5' {
		return h, newError("decode", ErrFormat, err)
	}

	if err := skipSeparators(br); err != nil {
		return h, newError("decode", ErrWidth, err)
	}
	w, err := readNumber(br)
	if err != nil {
		return h, newError("decode", ErrWidth, err)
	}
	if err := skipSeparators(br); err != nil {
		return h, newError("decode", ErrHeight, err)
	}
	ht, err := readNumber(br)
	if err != nil {
		return h, newError("decode", ErrHeight, err)
	}
	if err := skipSeparators(br); err != nil {
		return h, newError("decode", ErrMaxval, err)
	}
	m, err := readNumber(br)
	if err != nil || m == 0 || m > raster.PixMax {
		return h, newError("decode", ErrMaxval, err)
	}

	c, err := br.ReadByte()
	if err != nil || !isSpace(c) {
		return h, newError("decode", ErrWhitespace, err)
	}

	h.Width, h.Height, h.Maxval = w, ht, uint8(m)
	return h, nil
}

// skipSeparators consumes whitespace and comment lines.
func skipSeparators(br *bufio.Reader) error {
	for {
		c, err := br.ReadByte()
		if err != nil {
			return err
		}
		switch {
		case isSpace(c):
		case c == '#':
			if _, err := br.ReadBytes('\n'); err != nil {
				return err
			}
		default:
			return br.UnreadByte()
		}
	}
}

// errSyntax marks a header field that is not an unsigned decimal number.
var errSyntax = errors.New("expected decimal number")

// readNumber parses an unsigned decimal and stops before the first
// non-digit byte.
func readNumber(br *bufio.Reader) (int, error) {
	n, digits := 0, 0
	for {
		c, err := br.ReadByte()
		if err == io.EOF && digits > 0 {
			return n, nil
		}
		if err != nil {
			return 0, err
		}
		if c < '0' || c > '9' {
			if digits == 0 {
				return 0, errSyntax
			}
			return n, br.UnreadByte()
		}
		d := int(c - '0')
		if n > (maxDimension-d)/10 {
			return 0, errSyntax
		}
		n = n*10 + d
		digits++
	}
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func decodeImage(r io.Reader) (image.Image, error) {
	img, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return img.Gray(), nil
}

func decodeImageConfig(r io.Reader) (image.Config, error) {
	h, err := DecodeConfig(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.GrayModel, Width: h.Width, Height: h.Height}, nil
}
