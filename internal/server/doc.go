// Package server implements the MCP (Model Context Protocol) server for
// grayscale raster tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the raster
// library through the MCP protocol. Clients create or load rasters, receive
// an opaque id for each, and then transform, query, save and release them
// by id.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// An optional HTTP transport (see Handler) accepts the same requests on
// POST /rpc and serves encoded rasters on GET /rasters/{id}.{format}.
//
// # Available Tools
//
// Lifecycle:
//   - raster_create, raster_load, raster_file_info
//   - raster_save, raster_export, raster_release, raster_list
//
// Queries:
//   - raster_info, raster_stats, raster_get_pixel, raster_set_pixel
//   - raster_preview: base64 PNG rendering
//   - raster_dominant_levels, raster_compare: level histogram and diff
//
// Transforms (in place):
//   - raster_negative, raster_threshold, raster_brighten, raster_blur
//   - raster_paste, raster_blend
//
// Transforms (new raster):
//   - raster_rotate, raster_mirror, raster_crop, raster_resize, raster_dither
//
// Pattern matching:
//   - raster_match, raster_locate
//
// # Handles
//
// Every raster lives in a per-server table keyed by a random UUID. The
// table is bounded by the max_handles setting; clients free entries with
// raster_release. Tool calls are serialized, so a raster is never touched
// by two calls at once.
//
// # Error Handling
//
// The raster package panics when its preconditions are violated. Tool
// arguments come from outside the process, so every handler checks them
// first and reports violations as JSON-RPC errors with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(cfg)
//	defer srv.Close()
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
