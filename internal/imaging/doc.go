// Package imaging connects rasters to the wider image ecosystem.
//
// It imports PNG, JPEG, GIF, BMP, TIFF and PCX files (and P5 graymaps
// through the pgm codec) into rasters, exports rasters to the same
// formats, and renders base64 PNG previews for clients that display
// images inline. It also resamples and dithers rasters and summarizes
// or compares their levels.
//
// # Luminance Modes
//
// Color sources are reduced to one gray level per pixel with one of:
//   - rec601: ITU-R BT.601 luma, the default
//   - weighted: 0.3 R + 0.6 G + 0.1 B
//   - lightness: CIE L* scaled to 0..255
//
// Imported color images always get maxval 255. P5 files keep the maxval
// stored in their header.
//
// # Export
//
// pgm export writes the raster's levels unchanged. Every other format
// stores levels rescaled from [0, maxval] to [0, 255], so a raster with
// maxval 15 exported as PNG uses the full 8-bit range.
//
// # Thread Safety
//
// RasterCache is safe for concurrent use. Rasters returned by the cache
// are independent copies owned by the caller.
package imaging
