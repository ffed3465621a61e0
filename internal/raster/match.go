package raster

import (
	"bytes"
	"fmt"
)

// MatchSubImage reports whether sub equals the region of img whose
// top-left corner is (x, y). (x, y) must be a valid position of img, but
// sub may run past img's edges, in which case there is no match.
func (img *Image) MatchSubImage(x, y int, sub *Image) bool {
	if !img.ValidPos(x, y) {
		panic(fmt.Sprintf("raster: match position (%d,%d) outside %dx%d image", x, y, img.width, img.height))
	}
	sub.mustLive()
	if !img.ValidRect(x, y, sub.width, sub.height) {
		return false
	}
	for j := 0; j < sub.height; j++ {
		if !bytes.Equal(img.row(y + j)[x:x+sub.width], sub.row(j)) {
			return false
		}
	}
	return true
}

// LocateSubImage searches img for a region equal to sub and returns the
// top-left corner of the first one found.
//
// Candidates are visited row by row: y ascending, and x ascending within
// each row. Only positions where sub fits entirely are considered. When
// no match exists ok is false and x, y are meaningless.
func (img *Image) LocateSubImage(sub *Image) (x, y int, ok bool) {
	img.mustLive()
	sub.mustLive()
	if img.width == 0 || img.height == 0 {
		return 0, 0, false
	}
	for cy := 0; cy <= img.height-sub.height; cy++ {
		for cx := 0; cx <= img.width-sub.width; cx++ {
			if img.MatchSubImage(cx, cy, sub) {
				return cx, cy, true
			}
		}
	}
	return 0, 0, false
}
