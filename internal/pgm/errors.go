package pgm

import (
	"errors"
	"fmt"
)

// Failure causes. Every error returned by this package matches exactly one
// of them (or raster.ErrAlloc) under errors.Is.
var (
	ErrOpen        = errors.New("pgm: open failed")
	ErrFormat      = errors.New("pgm: invalid file format")
	ErrWidth       = errors.New("pgm: invalid width")
	ErrHeight      = errors.New("pgm: invalid height")
	ErrMaxval      = errors.New("pgm: invalid maxval")
	ErrWhitespace  = errors.New("pgm: whitespace expected")
	ErrPixels      = errors.New("pgm: reading pixels")
	ErrWriteHeader = errors.New("pgm: writing header failed")
	ErrWritePixels = errors.New("pgm: writing pixels failed")
)

// Error describes a failed load, save, decode or encode.
//
// Kind is the failure cause; Err is the underlying system or I/O error,
// if any. Both are reachable through errors.Is and errors.As.
type Error struct {
	Op   string // "load", "save", "decode" or "encode"
	Path string // file name; empty for stream operations
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the cause and the underlying error.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// withPath attaches a file name to err, converting it to *Error if needed.
func withPath(op, path string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		e.Op = op
		e.Path = path
		return e
	}
	return fmt.Errorf("%s %s: %w", op, path, err)
}
