package server

import (
	"github.com/ironsheep/pgm-tools-mcp/internal/imaging"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// objectSchema builds a JSON schema for an object with the given
// properties.
func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

var idProperty = map[string]interface{}{
	"type":        "string",
	"description": "Raster id returned by raster_create, raster_load or a transform",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Lifecycle
		{
			Name:        "raster_create",
			Description: "Create a new grayscale raster filled with a single level. Returns its id.",
			InputSchema: objectSchema(map[string]interface{}{
				"width":  map[string]interface{}{"type": "integer", "description": "Width in pixels (>= 0)"},
				"height": map[string]interface{}{"type": "integer", "description": "Height in pixels (>= 0)"},
				"maxval": map[string]interface{}{
					"type":        "integer",
					"description": "White level, 1-255 (default 255)",
					"default":     255,
				},
				"fill": map[string]interface{}{
					"type":        "integer",
					"description": "Initial level of every pixel, 0-maxval (default 0)",
					"default":     0,
				},
			}, "width", "height"),
		},
		{
			Name:        "raster_load",
			Description: "Load an image file as a raster. P5 graymaps keep their maxval; PNG, JPEG, GIF, BMP, TIFF and PCX files are converted to gray with maxval 255.",
			InputSchema: objectSchema(map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the image file",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"enum":        imaging.Modes,
					"description": "How color pixels are reduced to gray (default rec601)",
					"default":     string(imaging.ModeRec601),
				},
			}, "path"),
		},
		{
			Name:        "raster_file_info",
			Description: "Describe an image file (dimensions, maxval, format, size) without creating a raster.",
			InputSchema: objectSchema(map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the image file",
				},
			}, "path"),
		},
		{
			Name:        "raster_save",
			Description: "Write a raster to a binary PGM (P5) file, keeping its maxval.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":   idProperty,
				"path": map[string]interface{}{"type": "string", "description": "Destination file path"},
			}, "id", "path"),
		},
		{
			Name:        "raster_export",
			Description: "Write a raster in another image format. Levels are rescaled to 0-255 for every format except pgm.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":   idProperty,
				"path": map[string]interface{}{"type": "string", "description": "Destination file path"},
				"format": map[string]interface{}{
					"type":        "string",
					"enum":        imaging.Formats,
					"description": "Output format. Derived from the file extension when omitted.",
				},
			}, "id", "path"),
		},
		{
			Name:        "raster_release",
			Description: "Release a raster and forget its id.",
			InputSchema: objectSchema(map[string]interface{}{"id": idProperty}, "id"),
		},
		{
			Name:        "raster_list",
			Description: "List every raster currently held by the server.",
			InputSchema: objectSchema(map[string]interface{}{}),
		},

		// Queries
		{
			Name:        "raster_info",
			Description: "Get the width, height and maxval of a raster.",
			InputSchema: objectSchema(map[string]interface{}{"id": idProperty}, "id"),
		},
		{
			Name:        "raster_stats",
			Description: "Get the smallest and largest level present in a non-empty raster.",
			InputSchema: objectSchema(map[string]interface{}{"id": idProperty}, "id"),
		},
		{
			Name:        "raster_get_pixel",
			Description: "Read the level at one pixel.",
			InputSchema: objectSchema(map[string]interface{}{
				"id": idProperty,
				"x":  map[string]interface{}{"type": "integer", "description": "X coordinate (0-based, from left)"},
				"y":  map[string]interface{}{"type": "integer", "description": "Y coordinate (0-based, from top)"},
			}, "id", "x", "y"),
		},
		{
			Name:        "raster_set_pixel",
			Description: "Write the level at one pixel.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":    idProperty,
				"x":     map[string]interface{}{"type": "integer", "description": "X coordinate (0-based, from left)"},
				"y":     map[string]interface{}{"type": "integer", "description": "Y coordinate (0-based, from top)"},
				"level": map[string]interface{}{"type": "integer", "description": "New level, 0-maxval"},
			}, "id", "x", "y", "level"),
		},
		{
			Name:        "raster_preview",
			Description: "Render a raster as a base64-encoded PNG for viewing.",
			InputSchema: objectSchema(map[string]interface{}{
				"id": idProperty,
				"scale": map[string]interface{}{
					"type":        "number",
					"description": "Optional scale factor (e.g., 4.0 to enlarge small rasters). Default 1.0",
					"default":     1.0,
				},
			}, "id"),
		},

		{
			Name:        "raster_dominant_levels",
			Description: "List the most common gray levels of a raster with their pixel counts and percentages.",
			InputSchema: objectSchema(map[string]interface{}{
				"id": idProperty,
				"count": map[string]interface{}{
					"type":        "integer",
					"description": "Number of levels to return; 0 returns every level present (default 5)",
					"default":     5,
				},
			}, "id"),
		},
		{
			Name:        "raster_compare",
			Description: "Compare two rasters pixel by pixel over the area both cover. Reports a similarity score, the number of differing pixels and the largest level difference.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":    idProperty,
				"other": map[string]interface{}{"type": "string", "description": "Id of the raster to compare against"},
				"tolerance": map[string]interface{}{
					"type":        "integer",
					"description": "Level difference still counted as equal (default 0)",
					"default":     0,
				},
			}, "id", "other"),
		},

		// Point-wise
		{
			Name:        "raster_negative",
			Description: "Invert a raster in place: every level becomes maxval - level.",
			InputSchema: objectSchema(map[string]interface{}{"id": idProperty}, "id"),
		},
		{
			Name:        "raster_threshold",
			Description: "Binarize a raster in place: levels >= threshold become maxval, the rest 0.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":        idProperty,
				"threshold": map[string]interface{}{"type": "integer", "description": "Threshold level, 0-255"},
			}, "id", "threshold"),
		},
		{
			Name:        "raster_brighten",
			Description: "Scale every level in place by a factor in [0,1], rounding half up.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":     idProperty,
				"factor": map[string]interface{}{"type": "number", "description": "Factor between 0 and 1"},
			}, "id", "factor"),
		},

		// Geometric
		{
			Name:        "raster_rotate",
			Description: "Rotate a raster 90 degrees counter-clockwise into a new raster.",
			InputSchema: objectSchema(map[string]interface{}{"id": idProperty}, "id"),
		},
		{
			Name:        "raster_mirror",
			Description: "Flip a raster left to right into a new raster.",
			InputSchema: objectSchema(map[string]interface{}{"id": idProperty}, "id"),
		},
		{
			Name:        "raster_crop",
			Description: "Copy a rectangular region into a new raster.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":     idProperty,
				"x":      map[string]interface{}{"type": "integer", "description": "Left edge X coordinate (0-based)"},
				"y":      map[string]interface{}{"type": "integer", "description": "Top edge Y coordinate (0-based)"},
				"width":  map[string]interface{}{"type": "integer", "description": "Region width"},
				"height": map[string]interface{}{"type": "integer", "description": "Region height"},
			}, "id", "x", "y", "width", "height"),
		},
		{
			Name:        "raster_resize",
			Description: "Scale a raster to a new size into a new raster, keeping its maxval.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":     idProperty,
				"width":  map[string]interface{}{"type": "integer", "description": "Target width (> 0)"},
				"height": map[string]interface{}{"type": "integer", "description": "Target height (> 0)"},
				"filter": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"nearest", "bilinear", "bicubic", "mitchell", "lanczos2", "lanczos3"},
					"description": "Interpolation filter (default bicubic)",
					"default":     "bicubic",
				},
			}, "id", "width", "height"),
		},

		// Compositing
		{
			Name:        "raster_paste",
			Description: "Copy a source raster into a target raster at (x, y). The source must fit inside the target.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":     idProperty,
				"source": map[string]interface{}{"type": "string", "description": "Id of the raster to paste"},
				"x":      map[string]interface{}{"type": "integer", "description": "Target X of the source's top-left pixel"},
				"y":      map[string]interface{}{"type": "integer", "description": "Target Y of the source's top-left pixel"},
			}, "id", "source", "x", "y"),
		},
		{
			Name:        "raster_blend",
			Description: "Mix a source raster into a target raster at (x, y): (1-alpha)*target + alpha*source, rounded and clamped to the target's maxval.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":     idProperty,
				"source": map[string]interface{}{"type": "string", "description": "Id of the raster to blend in"},
				"x":      map[string]interface{}{"type": "integer", "description": "Target X of the source's top-left pixel"},
				"y":      map[string]interface{}{"type": "integer", "description": "Target Y of the source's top-left pixel"},
				"alpha":  map[string]interface{}{"type": "number", "description": "Weight of the source (0 keeps the target, 1 copies the source)"},
			}, "id", "source", "x", "y", "alpha"),
		},

		// Pattern matching
		{
			Name:        "raster_match",
			Description: "Check whether a needle raster appears exactly at (x, y) of a haystack raster.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":     idProperty,
				"needle": map[string]interface{}{"type": "string", "description": "Id of the raster to look for"},
				"x":      map[string]interface{}{"type": "integer", "description": "Haystack X coordinate"},
				"y":      map[string]interface{}{"type": "integer", "description": "Haystack Y coordinate"},
			}, "id", "needle", "x", "y"),
		},
		{
			Name:        "raster_locate",
			Description: "Find the first position (scanning rows top to bottom, left to right) where a needle raster appears exactly in a haystack raster.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":     idProperty,
				"needle": map[string]interface{}{"type": "string", "description": "Id of the raster to look for"},
			}, "id", "needle"),
		},

		// Filters
		{
			Name:        "raster_blur",
			Description: "Box-blur a raster in place. Each pixel becomes the rounded mean of the window of radius dx by dy around it, clipped to the raster.",
			InputSchema: objectSchema(map[string]interface{}{
				"id": idProperty,
				"dx": map[string]interface{}{"type": "integer", "description": "Horizontal radius (>= 0)"},
				"dy": map[string]interface{}{"type": "integer", "description": "Vertical radius (>= 0)"},
			}, "id", "dx", "dy"),
		},
		{
			Name:        "raster_dither",
			Description: "Convert a raster to black and white (0 and maxval) by dithering, into a new raster.",
			InputSchema: objectSchema(map[string]interface{}{
				"id": idProperty,
				"method": map[string]interface{}{
					"type":        "string",
					"enum":        imaging.DitherMethods,
					"description": "Dithering method (default floyd-steinberg)",
					"default":     "floyd-steinberg",
				},
			}, "id"),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
