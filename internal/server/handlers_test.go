package server

import (
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/pgm-tools-mcp/internal/config"
	"github.com/ironsheep/pgm-tools-mcp/internal/raster"
)

// createTestImageFile creates a test PNG file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "handler-test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}

	return path
}

// callTool runs a tools/call request and decodes the text content of a
// successful result. A tool error is returned as an error.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) (map[string]interface{}, error) {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	}

	resp := s.handleRequest(req)
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		if resp.Error.Code != -32000 {
			t.Fatalf("Error code: got %d, want -32000", resp.Error.Code)
		}
		return nil, errors.New(resp.Error.Data.(string))
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %v, want one text item", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v, want text", content[0]["type"])
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), &out); err != nil {
		t.Fatalf("failed to decode tool result: %v", err)
	}
	return out, nil
}

// mustCall is callTool for calls that are expected to succeed.
func mustCall(t *testing.T, s *Server, name string, args map[string]interface{}) map[string]interface{} {
	t.Helper()
	out, err := callTool(t, s, name, args)
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	return out
}

// newRaster creates a raster through raster_create and returns its id.
func newRaster(t *testing.T, s *Server, width, height, maxval, fill int) string {
	t.Helper()
	out := mustCall(t, s, "raster_create", map[string]interface{}{
		"width": width, "height": height, "maxval": maxval, "fill": fill,
	})
	return out["id"].(string)
}

func level(t *testing.T, s *Server, id string, x, y int) int {
	t.Helper()
	out := mustCall(t, s, "raster_get_pixel", map[string]interface{}{"id": id, "x": x, "y": y})
	return int(out["level"].(float64))
}

func setLevel(t *testing.T, s *Server, id string, x, y, v int) {
	t.Helper()
	mustCall(t, s, "raster_set_pixel", map[string]interface{}{"id": id, "x": x, "y": y, "level": v})
}

func assertSize(t *testing.T, out map[string]interface{}, width, height, maxval int) {
	t.Helper()
	if got := int(out["width"].(float64)); got != width {
		t.Errorf("width: got %d, want %d", got, width)
	}
	if got := int(out["height"].(float64)); got != height {
		t.Errorf("height: got %d, want %d", got, height)
	}
	if got := int(out["maxval"].(float64)); got != maxval {
		t.Errorf("maxval: got %d, want %d", got, maxval)
	}
}

func TestHandleToolsCall_RasterCreate(t *testing.T) {
	s := New(nil)

	out := mustCall(t, s, "raster_create", map[string]interface{}{
		"width": 4, "height": 3, "maxval": 100, "fill": 50,
	})
	assertSize(t, out, 4, 3, 100)

	id := out["id"].(string)
	stats := mustCall(t, s, "raster_stats", map[string]interface{}{"id": id})
	if stats["min"] != 50.0 || stats["max"] != 50.0 {
		t.Errorf("stats: got %v, want min=max=50", stats)
	}
}

func TestHandleToolsCall_RasterCreateDefaults(t *testing.T) {
	s := New(nil)

	out := mustCall(t, s, "raster_create", map[string]interface{}{"width": 2, "height": 2})
	assertSize(t, out, 2, 2, 255)
	if got := level(t, s, out["id"].(string), 1, 1); got != 0 {
		t.Errorf("fill: got %d, want 0", got)
	}
}

func TestHandleToolsCall_RasterCreateEmpty(t *testing.T) {
	s := New(nil)

	out := mustCall(t, s, "raster_create", map[string]interface{}{"width": 0, "height": 5})
	assertSize(t, out, 0, 5, 255)

	if _, err := callTool(t, s, "raster_stats", map[string]interface{}{"id": out["id"]}); err == nil {
		t.Error("raster_stats should fail for an empty raster")
	}
	if _, err := callTool(t, s, "raster_preview", map[string]interface{}{"id": out["id"]}); err == nil {
		t.Error("raster_preview should fail for an empty raster")
	}
}

func TestHandleToolsCall_RasterCreateErrors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"negative width", map[string]interface{}{"width": -1, "height": 2}},
		{"negative height", map[string]interface{}{"width": 2, "height": -1}},
		{"maxval too large", map[string]interface{}{"width": 2, "height": 2, "maxval": 256}},
		{"negative maxval", map[string]interface{}{"width": 2, "height": 2, "maxval": -3}},
		{"fill above maxval", map[string]interface{}{"width": 2, "height": 2, "maxval": 10, "fill": 11}},
		{"negative fill", map[string]interface{}{"width": 2, "height": 2, "fill": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil)
			if _, err := callTool(t, s, "raster_create", tt.args); err == nil {
				t.Error("raster_create should fail")
			}
			if n := len(s.handles.ids()); n != 0 {
				t.Errorf("handles after failure: got %d, want 0", n)
			}
		})
	}
}

func TestHandleToolsCall_MaxPixels(t *testing.T) {
	cfg := config.Default()
	cfg.MaxPixels = 100
	s := New(cfg)

	_, err := callTool(t, s, "raster_create", map[string]interface{}{"width": 11, "height": 10})
	if err == nil {
		t.Fatal("raster_create should fail above max_pixels")
	}
	if !strings.Contains(err.Error(), raster.ErrAlloc.Error()) {
		t.Errorf("error: got %q, want it to mention %q", err, raster.ErrAlloc)
	}

	id := newRaster(t, s, 10, 10, 255, 0)
	if _, err := callTool(t, s, "raster_resize", map[string]interface{}{"id": id, "width": 20, "height": 20}); err == nil {
		t.Error("raster_resize should fail above max_pixels")
	}
	if _, err := callTool(t, s, "raster_preview", map[string]interface{}{"id": id, "scale": 2}); err == nil {
		t.Error("raster_preview should fail above max_pixels")
	}

	imgPath := createTestImageFile(t, 20, 20, color.White)
	if _, err := callTool(t, s, "raster_load", map[string]interface{}{"path": imgPath}); err == nil {
		t.Error("raster_load should fail above max_pixels")
	}
}

func TestHandleToolsCall_MaxHandles(t *testing.T) {
	cfg := config.Default()
	cfg.MaxHandles = 2
	s := New(cfg)

	first := newRaster(t, s, 1, 1, 255, 0)
	newRaster(t, s, 1, 1, 255, 0)

	if _, err := callTool(t, s, "raster_create", map[string]interface{}{"width": 1, "height": 1}); err == nil {
		t.Fatal("raster_create should fail when the handle table is full")
	}
	if _, err := callTool(t, s, "raster_rotate", map[string]interface{}{"id": first}); err == nil {
		t.Fatal("raster_rotate should fail when the handle table is full")
	}

	mustCall(t, s, "raster_release", map[string]interface{}{"id": first})
	newRaster(t, s, 1, 1, 255, 0)
}

func TestHandleToolsCall_RasterLoad(t *testing.T) {
	s := New(nil)
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 255, 255, 255})

	out := mustCall(t, s, "raster_load", map[string]interface{}{"path": imgPath})
	assertSize(t, out, 100, 80, 255)
	if got := level(t, s, out["id"].(string), 50, 40); got != 255 {
		t.Errorf("level: got %d, want 255", got)
	}
}

func TestHandleToolsCall_RasterLoadModes(t *testing.T) {
	s := New(nil)
	imgPath := createTestImageFile(t, 4, 4, color.RGBA{0, 255, 0, 255})

	levels := make(map[string]int)
	for _, mode := range []string{"rec601", "weighted", "lightness"} {
		out := mustCall(t, s, "raster_load", map[string]interface{}{"path": imgPath, "mode": mode})
		levels[mode] = level(t, s, out["id"].(string), 0, 0)
	}

	// 0.587*255 and 0.6*255 for pure green.
	if got := levels["rec601"]; got < 149 || got > 150 {
		t.Errorf("rec601: got %d, want ~150", got)
	}
	if got := levels["weighted"]; got < 152 || got > 153 {
		t.Errorf("weighted: got %d, want ~153", got)
	}
	if levels["lightness"] <= levels["weighted"] {
		t.Errorf("lightness %d should exceed weighted %d for pure green", levels["lightness"], levels["weighted"])
	}

	if _, err := callTool(t, s, "raster_load", map[string]interface{}{"path": imgPath, "mode": "sepia"}); err == nil {
		t.Error("raster_load should fail for an unknown mode")
	}
}

func TestHandleToolsCall_RasterLoadErrors(t *testing.T) {
	s := New(nil)

	if _, err := callTool(t, s, "raster_load", map[string]interface{}{"path": "/nonexistent/image.png"}); err == nil {
		t.Error("raster_load should fail for a missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.pgm")
	if err := os.WriteFile(bad, []byte("P5\n2 2\n255\n\x00"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := callTool(t, s, "raster_load", map[string]interface{}{"path": bad}); err == nil {
		t.Error("raster_load should fail for a truncated PGM")
	}
}

func TestHandleToolsCall_SaveAndLoad(t *testing.T) {
	s := New(nil)
	id := newRaster(t, s, 3, 2, 100, 40)
	setLevel(t, s, id, 2, 1, 99)

	path := filepath.Join(t.TempDir(), "out.pgm")
	out := mustCall(t, s, "raster_save", map[string]interface{}{"id": id, "path": path})
	if out["format"] != "pgm" {
		t.Errorf("format: got %v, want pgm", out["format"])
	}

	info := mustCall(t, s, "raster_file_info", map[string]interface{}{"path": path})
	assertSize(t, info, 3, 2, 100)
	if info["format"] != "pgm" {
		t.Errorf("file format: got %v, want pgm", info["format"])
	}

	loaded := mustCall(t, s, "raster_load", map[string]interface{}{"path": path})
	assertSize(t, loaded, 3, 2, 100)
	if got := level(t, s, loaded["id"].(string), 2, 1); got != 99 {
		t.Errorf("level: got %d, want 99", got)
	}

	// Saving again must not serve the cached copy of the old file.
	setLevel(t, s, id, 2, 1, 7)
	mustCall(t, s, "raster_save", map[string]interface{}{"id": id, "path": path})
	reloaded := mustCall(t, s, "raster_load", map[string]interface{}{"path": path})
	if got := level(t, s, reloaded["id"].(string), 2, 1); got != 7 {
		t.Errorf("level after resave: got %d, want 7", got)
	}
}

func TestHandleToolsCall_SaveErrors(t *testing.T) {
	s := New(nil)
	id := newRaster(t, s, 1, 1, 255, 0)

	if _, err := callTool(t, s, "raster_save", map[string]interface{}{"id": id}); err == nil {
		t.Error("raster_save should fail without a path")
	}
	if _, err := callTool(t, s, "raster_save", map[string]interface{}{"id": id, "path": "/nonexistent/dir/out.pgm"}); err == nil {
		t.Error("raster_save should fail for a missing directory")
	}
}

func TestHandleToolsCall_Export(t *testing.T) {
	s := New(nil)
	id := newRaster(t, s, 4, 4, 255, 200)
	dir := t.TempDir()

	tests := []struct {
		file   string
		format string
	}{
		{"out.png", ""},
		{"out.bmp", ""},
		{"out.tif", ""},
		{"out.gif", ""},
		{"out.pcx", ""},
		{"out.img", "png"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			mustCall(t, s, "raster_export", map[string]interface{}{"id": id, "path": path, "format": tt.format})

			loaded := mustCall(t, s, "raster_load", map[string]interface{}{"path": path})
			assertSize(t, loaded, 4, 4, 255)
			if got := level(t, s, loaded["id"].(string), 3, 3); got != 200 {
				t.Errorf("level: got %d, want 200", got)
			}
		})
	}

	if _, err := callTool(t, s, "raster_export", map[string]interface{}{"id": id, "path": filepath.Join(dir, "out.xyz")}); err == nil {
		t.Error("raster_export should fail for an unknown extension")
	}
	if _, err := callTool(t, s, "raster_export", map[string]interface{}{"id": id, "path": filepath.Join(dir, "a"), "format": "webp"}); err == nil {
		t.Error("raster_export should fail for an unknown format")
	}
}

func TestHandleToolsCall_ReleaseAndList(t *testing.T) {
	s := New(nil)
	a := newRaster(t, s, 1, 1, 255, 0)
	b := newRaster(t, s, 2, 2, 255, 0)

	list := mustCall(t, s, "raster_list", nil)
	rasters := list["rasters"].([]interface{})
	if len(rasters) != 2 {
		t.Fatalf("rasters: got %d, want 2", len(rasters))
	}
	if int(list["limit"].(float64)) != config.Default().MaxHandles {
		t.Errorf("limit: got %v, want %d", list["limit"], config.Default().MaxHandles)
	}

	out := mustCall(t, s, "raster_release", map[string]interface{}{"id": a})
	if out["released"] != a {
		t.Errorf("released: got %v, want %s", out["released"], a)
	}

	if _, err := callTool(t, s, "raster_info", map[string]interface{}{"id": a}); err == nil {
		t.Error("raster_info should fail after release")
	}
	if _, err := callTool(t, s, "raster_release", map[string]interface{}{"id": a}); err == nil {
		t.Error("second raster_release should fail")
	}

	list = mustCall(t, s, "raster_list", nil)
	rasters = list["rasters"].([]interface{})
	if len(rasters) != 1 || rasters[0].(map[string]interface{})["id"] != b {
		t.Errorf("rasters after release: got %v, want only %s", rasters, b)
	}
}

func TestHandleToolsCall_BadIDs(t *testing.T) {
	s := New(nil)
	newRaster(t, s, 1, 1, 255, 0)

	for _, id := range []string{"", "not-a-uuid", "6f1c2a3e-0000-4000-8000-000000000000"} {
		t.Run(id, func(t *testing.T) {
			if _, err := callTool(t, s, "raster_info", map[string]interface{}{"id": id}); err == nil {
				t.Errorf("raster_info(%q) should fail", id)
			}
		})
	}
}

func TestHandleToolsCall_Pixels(t *testing.T) {
	s := New(nil)
	id := newRaster(t, s, 4, 3, 100, 0)

	setLevel(t, s, id, 3, 2, 100)
	if got := level(t, s, id, 3, 2); got != 100 {
		t.Errorf("level: got %d, want 100", got)
	}

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"get x too large", "raster_get_pixel", map[string]interface{}{"id": id, "x": 4, "y": 0}},
		{"get negative y", "raster_get_pixel", map[string]interface{}{"id": id, "x": 0, "y": -1}},
		{"set y too large", "raster_set_pixel", map[string]interface{}{"id": id, "x": 0, "y": 3, "level": 1}},
		{"set above maxval", "raster_set_pixel", map[string]interface{}{"id": id, "x": 0, "y": 0, "level": 101}},
		{"set negative level", "raster_set_pixel", map[string]interface{}{"id": id, "x": 0, "y": 0, "level": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := callTool(t, s, tt.tool, tt.args); err == nil {
				t.Errorf("%s should fail", tt.tool)
			}
		})
	}
}

func TestHandleToolsCall_PointWise(t *testing.T) {
	s := New(nil)
	id := newRaster(t, s, 2, 1, 100, 50)
	setLevel(t, s, id, 1, 0, 7)

	mustCall(t, s, "raster_negative", map[string]interface{}{"id": id})
	if a, b := level(t, s, id, 0, 0), level(t, s, id, 1, 0); a != 50 || b != 93 {
		t.Errorf("negative: got [%d %d], want [50 93]", a, b)
	}

	mustCall(t, s, "raster_threshold", map[string]interface{}{"id": id, "threshold": 60})
	if a, b := level(t, s, id, 0, 0), level(t, s, id, 1, 0); a != 0 || b != 100 {
		t.Errorf("threshold: got [%d %d], want [0 100]", a, b)
	}

	mustCall(t, s, "raster_brighten", map[string]interface{}{"id": id, "factor": 0.25})
	if got := level(t, s, id, 1, 0); got != 25 {
		t.Errorf("brighten: got %d, want 25", got)
	}

	for _, factor := range []float64{-0.1, 1.5} {
		if _, err := callTool(t, s, "raster_brighten", map[string]interface{}{"id": id, "factor": factor}); err == nil {
			t.Errorf("raster_brighten(%v) should fail", factor)
		}
	}
	for _, thr := range []int{-1, 256} {
		if _, err := callTool(t, s, "raster_threshold", map[string]interface{}{"id": id, "threshold": thr}); err == nil {
			t.Errorf("raster_threshold(%d) should fail", thr)
		}
	}
}

func TestHandleToolsCall_Geometric(t *testing.T) {
	s := New(nil)
	id := newRaster(t, s, 4, 3, 200, 0)
	setLevel(t, s, id, 3, 0, 9)

	rotated := mustCall(t, s, "raster_rotate", map[string]interface{}{"id": id})
	assertSize(t, rotated, 3, 4, 200)
	if rotated["id"] == id {
		t.Error("raster_rotate should return a new id")
	}
	// Top-right corner moves to top-left on a counter-clockwise turn.
	if got := level(t, s, rotated["id"].(string), 0, 0); got != 9 {
		t.Errorf("rotated corner: got %d, want 9", got)
	}

	mirrored := mustCall(t, s, "raster_mirror", map[string]interface{}{"id": id})
	assertSize(t, mirrored, 4, 3, 200)
	if got := level(t, s, mirrored["id"].(string), 0, 0); got != 9 {
		t.Errorf("mirrored corner: got %d, want 9", got)
	}

	cropped := mustCall(t, s, "raster_crop", map[string]interface{}{"id": id, "x": 2, "y": 0, "width": 2, "height": 2})
	assertSize(t, cropped, 2, 2, 200)
	if got := level(t, s, cropped["id"].(string), 1, 0); got != 9 {
		t.Errorf("cropped corner: got %d, want 9", got)
	}

	resized := mustCall(t, s, "raster_resize", map[string]interface{}{"id": id, "width": 8, "height": 6, "filter": "nearest"})
	assertSize(t, resized, 8, 6, 200)

	// The source is untouched.
	if got := level(t, s, id, 3, 0); got != 9 {
		t.Errorf("source corner: got %d, want 9", got)
	}
}

func TestHandleToolsCall_GeometricErrors(t *testing.T) {
	s := New(nil)
	id := newRaster(t, s, 4, 3, 255, 0)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"crop past right edge", "raster_crop", map[string]interface{}{"id": id, "x": 3, "y": 0, "width": 2, "height": 1}},
		{"crop negative origin", "raster_crop", map[string]interface{}{"id": id, "x": -1, "y": 0, "width": 1, "height": 1}},
		{"crop negative size", "raster_crop", map[string]interface{}{"id": id, "x": 0, "y": 0, "width": -1, "height": 1}},
		{"resize to zero", "raster_resize", map[string]interface{}{"id": id, "width": 0, "height": 3}},
		{"resize unknown filter", "raster_resize", map[string]interface{}{"id": id, "width": 2, "height": 2, "filter": "sinc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := callTool(t, s, tt.tool, tt.args); err == nil {
				t.Errorf("%s should fail", tt.tool)
			}
		})
	}
}

func TestHandleToolsCall_Compositing(t *testing.T) {
	s := New(nil)
	dst := newRaster(t, s, 4, 4, 255, 0)
	src := newRaster(t, s, 2, 2, 255, 100)

	mustCall(t, s, "raster_paste", map[string]interface{}{"id": dst, "source": src, "x": 2, "y": 2})
	if a, b := level(t, s, dst, 1, 1), level(t, s, dst, 3, 3); a != 0 || b != 100 {
		t.Errorf("paste: got [%d %d], want [0 100]", a, b)
	}

	mustCall(t, s, "raster_blend", map[string]interface{}{"id": dst, "source": src, "x": 0, "y": 0, "alpha": 0.5})
	if got := level(t, s, dst, 1, 1); got != 50 {
		t.Errorf("blend: got %d, want 50", got)
	}

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"paste off edge", "raster_paste", map[string]interface{}{"id": dst, "source": src, "x": 3, "y": 3}},
		{"paste negative", "raster_paste", map[string]interface{}{"id": dst, "source": src, "x": -1, "y": 0}},
		{"paste larger source", "raster_paste", map[string]interface{}{"id": src, "source": dst, "x": 0, "y": 0}},
		{"paste unknown source", "raster_paste", map[string]interface{}{"id": dst, "source": "nope", "x": 0, "y": 0}},
		{"blend without alpha", "raster_blend", map[string]interface{}{"id": dst, "source": src, "x": 0, "y": 0}},
		{"blend off edge", "raster_blend", map[string]interface{}{"id": dst, "source": src, "x": 0, "y": 3, "alpha": 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := callTool(t, s, tt.tool, tt.args); err == nil {
				t.Errorf("%s should fail", tt.tool)
			}
		})
	}
}

func TestHandleToolsCall_PasteOntoItself(t *testing.T) {
	s := New(nil)
	id := newRaster(t, s, 3, 3, 255, 10)

	mustCall(t, s, "raster_paste", map[string]interface{}{"id": id, "source": id, "x": 0, "y": 0})
	if got := level(t, s, id, 2, 2); got != 10 {
		t.Errorf("level: got %d, want 10", got)
	}
}

func TestHandleToolsCall_MatchAndLocate(t *testing.T) {
	s := New(nil)
	haystack := newRaster(t, s, 5, 5, 255, 0)
	setLevel(t, s, haystack, 3, 2, 200)
	needle := newRaster(t, s, 1, 1, 255, 200)
	missing := newRaster(t, s, 1, 1, 255, 7)

	out := mustCall(t, s, "raster_locate", map[string]interface{}{"id": haystack, "needle": needle})
	if out["found"] != true || out["x"] != 3.0 || out["y"] != 2.0 {
		t.Errorf("locate: got %v, want found at (3,2)", out)
	}

	out = mustCall(t, s, "raster_locate", map[string]interface{}{"id": haystack, "needle": missing})
	if out["found"] != false {
		t.Errorf("locate: got %v, want not found", out)
	}

	out = mustCall(t, s, "raster_match", map[string]interface{}{"id": haystack, "needle": needle, "x": 3, "y": 2})
	if out["match"] != true {
		t.Errorf("match at (3,2): got %v, want true", out["match"])
	}
	out = mustCall(t, s, "raster_match", map[string]interface{}{"id": haystack, "needle": needle, "x": 0, "y": 0})
	if out["match"] != false {
		t.Errorf("match at (0,0): got %v, want false", out["match"])
	}

	if _, err := callTool(t, s, "raster_match", map[string]interface{}{"id": haystack, "needle": needle, "x": 5, "y": 0}); err == nil {
		t.Error("raster_match should fail outside the haystack")
	}
}

func TestHandleToolsCall_Blur(t *testing.T) {
	s := New(nil)
	id := newRaster(t, s, 3, 1, 255, 0)
	setLevel(t, s, id, 1, 0, 90)

	mustCall(t, s, "raster_blur", map[string]interface{}{"id": id, "dx": 1, "dy": 0})
	want := []int{45, 30, 45}
	for x, w := range want {
		if got := level(t, s, id, x, 0); got != w {
			t.Errorf("level(%d,0): got %d, want %d", x, got, w)
		}
	}

	if _, err := callTool(t, s, "raster_blur", map[string]interface{}{"id": id, "dx": -1, "dy": 0}); err == nil {
		t.Error("raster_blur should fail for a negative radius")
	}
}

func TestHandleToolsCall_Dither(t *testing.T) {
	s := New(nil)
	id := newRaster(t, s, 8, 8, 255, 128)

	for _, method := range []string{"", "floyd-steinberg", "atkinson", "bayer", "clustered"} {
		t.Run(method, func(t *testing.T) {
			out := mustCall(t, s, "raster_dither", map[string]interface{}{"id": id, "method": method})
			assertSize(t, out, 8, 8, 255)
			stats := mustCall(t, s, "raster_stats", map[string]interface{}{"id": out["id"]})
			for _, k := range []string{"min", "max"} {
				if v := stats[k]; v != 0.0 && v != 255.0 {
					t.Errorf("%s: got %v, want 0 or 255", k, v)
				}
			}
		})
	}

	if _, err := callTool(t, s, "raster_dither", map[string]interface{}{"id": id, "method": "random"}); err == nil {
		t.Error("raster_dither should fail for an unknown method")
	}
}

func TestHandleToolsCall_Preview(t *testing.T) {
	s := New(nil)
	id := newRaster(t, s, 4, 3, 255, 0)

	out := mustCall(t, s, "raster_preview", map[string]interface{}{"id": id, "scale": 2})
	if out["width"] != 8.0 || out["height"] != 6.0 {
		t.Errorf("preview size: got %vx%v, want 8x6", out["width"], out["height"])
	}
	if out["mime_type"] != "image/png" {
		t.Errorf("mime_type: got %v, want image/png", out["mime_type"])
	}
	if out["image_base64"] == "" {
		t.Error("image_base64 should not be empty")
	}

	for _, scale := range []float64{-1, 17} {
		if _, err := callTool(t, s, "raster_preview", map[string]interface{}{"id": id, "scale": scale}); err == nil {
			t.Errorf("raster_preview(scale %v) should fail", scale)
		}
	}
}

func TestHandleToolsCall_DominantLevels(t *testing.T) {
	s := New(nil)
	id := newRaster(t, s, 4, 1, 255, 10)
	setLevel(t, s, id, 0, 0, 200)

	out := mustCall(t, s, "raster_dominant_levels", map[string]interface{}{"id": id})
	levels := out["levels"].([]interface{})
	if len(levels) != 2 {
		t.Fatalf("levels: got %d entries, want 2", len(levels))
	}
	top := levels[0].(map[string]interface{})
	if top["level"] != 10.0 || top["count"] != 3.0 {
		t.Errorf("top level: got %v, want level 10 with count 3", top)
	}

	out = mustCall(t, s, "raster_dominant_levels", map[string]interface{}{"id": id, "count": 1})
	if n := len(out["levels"].([]interface{})); n != 1 {
		t.Errorf("levels with count 1: got %d entries, want 1", n)
	}
}

func TestHandleToolsCall_Compare(t *testing.T) {
	s := New(nil)
	a := newRaster(t, s, 3, 3, 255, 50)
	b := newRaster(t, s, 3, 3, 255, 50)
	setLevel(t, s, b, 1, 1, 52)

	out := mustCall(t, s, "raster_compare", map[string]interface{}{"id": a, "other": b})
	if out["pixels_different"] != 1.0 || out["max_level_diff"] != 2.0 || out["identical"] != false {
		t.Errorf("compare: got %v, want 1 differing pixel with diff 2", out)
	}

	out = mustCall(t, s, "raster_compare", map[string]interface{}{"id": a, "other": b, "tolerance": 2})
	if out["similarity_score"] != 1.0 {
		t.Errorf("similarity with tolerance: got %v, want 1", out["similarity_score"])
	}

	if _, err := callTool(t, s, "raster_compare", map[string]interface{}{"id": a, "other": b, "tolerance": -1}); err == nil {
		t.Error("raster_compare should fail for a negative tolerance")
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(nil)
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	}

	resp := s.handleRequest(req)

	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("Error: got %+v, want code -32602", resp.Error)
	}
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	s := New(nil)

	_, err := s.executeTool("unknown_tool", json.RawMessage(`{}`))
	if err == nil {
		t.Error("executeTool should fail for unknown tool")
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New(nil)

	_, err := s.executeTool("raster_create", json.RawMessage(`{invalid`))
	if err == nil {
		t.Error("executeTool should fail for invalid JSON")
	}
}

func TestExecuteTool_RecoversPanic(t *testing.T) {
	s := New(nil)
	img, err := raster.New(2, 2, 255)
	if err != nil {
		t.Fatalf("raster.New failed: %v", err)
	}
	info, err := s.register(img)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	// A raster released behind the table's back trips a raster panic.
	img.Release()

	_, err = s.executeTool("raster_negative", json.RawMessage(`{"id":"`+info.ID+`"}`))
	if err == nil || !strings.Contains(err.Error(), "internal error") {
		t.Errorf("error: got %v, want internal error", err)
	}
}
