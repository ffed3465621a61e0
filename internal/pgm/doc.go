// Package pgm reads and writes binary ("P5") portable graymap files.
//
// See http://netpbm.sourceforge.net/doc/pgm.html for the format. Only
// 8-bit images (maxval 1..255) are supported.
//
// Importing this package registers the "pgm" format with the standard
// image package, so image.Decode (and libraries built on it) can open P5
// files; those decoders return an *image.Gray scaled to 0..255.
//
// # Error Handling
//
// Failures are reported as *Error values whose Kind is one of the ErrXxx
// causes (or raster.ErrAlloc) and whose Err carries the underlying system
// error. Use errors.Is to test for either:
//
//	img, err := pgm.Load("in.pgm")
//	if errors.Is(err, fs.ErrNotExist) { ... }
//	if errors.Is(err, pgm.ErrMaxval) { ... }
//
// A failed Save may leave a truncated file on disk.
package pgm
