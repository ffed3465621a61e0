// Package raster implements an in-memory 8-bit grayscale image and the
// pixel-indexed algorithms that operate on it.
//
// An Image has a fixed width, height and white point (maxval, 1..255).
// Levels range from 0 (black) to maxval (white) and are stored in a single
// row-major buffer.
//
// # Coordinate System
//
// Positions are 0-based with the origin at the top-left corner:
//   - X grows to the right, Y grows downward
//   - Rectangles are given as (x, y, w, h) and cover [x, x+w) x [y, y+h)
//
// # Operations
//
// Operations fall into groups with different ownership rules:
//   - Pixel transformations (Negative, Threshold, Brighten) and filtering
//     (Blur) modify the receiver in place
//   - Geometric transformations (Rotate, Mirror, Crop) return a new Image
//     and leave the receiver untouched
//   - Compositing (Paste, Blend) writes a source image into the receiver
//   - Matching (MatchSubImage, LocateSubImage) only reads
//
// # Error Handling
//
// Only allocation can fail at run time; it is reported as ErrAlloc.
// Everything else is a precondition: out-of-range coordinates, invalid
// rectangles, a brighten factor outside [0, 1], negative blur radii, or
// use of a released image. Breaking a precondition is a programming error
// and panics.
//
// # Thread Safety
//
// An Image is not safe for concurrent use. Give each goroutine its own
// image or serialize access.
package raster
