package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"runtime/debug"

	"github.com/ironsheep/pgm-tools-mcp/internal/imaging"
	"github.com/ironsheep/pgm-tools-mcp/internal/pgm"
	"github.com/ironsheep/pgm-tools-mcp/internal/raster"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "raster_load", "raster_crop").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Handlers validate every argument before touching a raster, so a bad
// request never reaches a raster precondition. A panic that slips through
// anyway is logged and reported as a tool error.
func (s *Server) executeTool(name string, args json.RawMessage) (result interface{}, err error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in tool %s: %v", name, r)
			s.debugf("stacktrace from panic:\n%s", debug.Stack())
			result, err = nil, fmt.Errorf("internal error: %v", r)
		}
	}()

	switch name {
	// Lifecycle
	case "raster_create":
		return s.handleRasterCreate(args)
	case "raster_load":
		return s.handleRasterLoad(args)
	case "raster_file_info":
		return s.handleRasterFileInfo(args)
	case "raster_save":
		return s.handleRasterSave(args)
	case "raster_export":
		return s.handleRasterExport(args)
	case "raster_release":
		return s.handleRasterRelease(args)
	case "raster_list":
		return s.handleRasterList(args)

	// Queries
	case "raster_info":
		return s.handleRasterInfo(args)
	case "raster_stats":
		return s.handleRasterStats(args)
	case "raster_get_pixel":
		return s.handleRasterGetPixel(args)
	case "raster_set_pixel":
		return s.handleRasterSetPixel(args)
	case "raster_preview":
		return s.handleRasterPreview(args)
	case "raster_dominant_levels":
		return s.handleRasterDominantLevels(args)
	case "raster_compare":
		return s.handleRasterCompare(args)

	// Point-wise
	case "raster_negative":
		return s.handleRasterNegative(args)
	case "raster_threshold":
		return s.handleRasterThreshold(args)
	case "raster_brighten":
		return s.handleRasterBrighten(args)

	// Geometric
	case "raster_rotate":
		return s.handleRasterRotate(args)
	case "raster_mirror":
		return s.handleRasterMirror(args)
	case "raster_crop":
		return s.handleRasterCrop(args)
	case "raster_resize":
		return s.handleRasterResize(args)

	// Compositing
	case "raster_paste":
		return s.handleRasterPaste(args)
	case "raster_blend":
		return s.handleRasterBlend(args)

	// Pattern matching
	case "raster_match":
		return s.handleRasterMatch(args)
	case "raster_locate":
		return s.handleRasterLocate(args)

	// Filters
	case "raster_blur":
		return s.handleRasterBlur(args)
	case "raster_dither":
		return s.handleRasterDither(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// RasterInfo describes a raster held by the server.
type RasterInfo struct {
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Maxval int    `json:"maxval"`
}

func describe(id string, img *raster.Image) *RasterInfo {
	return &RasterInfo{
		ID:     id,
		Width:  img.Width(),
		Height: img.Height(),
		Maxval: int(img.Maxval()),
	}
}

// register stores img under a new handle and describes it.
func (s *Server) register(img *raster.Image) (*RasterInfo, error) {
	id, err := s.handles.add(img)
	if err != nil {
		return nil, err
	}
	s.debugf("Registered raster %s (%dx%d, maxval %d)", id, img.Width(), img.Height(), img.Maxval())
	return describe(id, img), nil
}

// checkSize enforces the configured per-raster pixel limit.
func (s *Server) checkSize(width, height int) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("invalid size %dx%d", width, height)
	}
	if height > 0 && width > s.cfg.MaxPixels/height {
		return fmt.Errorf("%w: %dx%d exceeds max_pixels %d", raster.ErrAlloc, width, height, s.cfg.MaxPixels)
	}
	return nil
}

func checkLevel(name string, v int, img *raster.Image) error {
	if v < 0 || v > int(img.Maxval()) {
		return fmt.Errorf("%s %d outside [0,%d]", name, v, img.Maxval())
	}
	return nil
}

func checkPos(img *raster.Image, x, y int) error {
	if !img.ValidPos(x, y) {
		return fmt.Errorf("position (%d,%d) outside %dx%d raster", x, y, img.Width(), img.Height())
	}
	return nil
}

func checkNonEmpty(img *raster.Image) error {
	if img.Width() == 0 || img.Height() == 0 {
		return fmt.Errorf("raster is empty (%dx%d)", img.Width(), img.Height())
	}
	return nil
}

// checkFits verifies that src placed at (x, y) lies inside dst.
func checkFits(dst *raster.Image, x, y int, src *raster.Image) error {
	if x < 0 || y < 0 || !dst.ValidRect(x, y, src.Width(), src.Height()) {
		return fmt.Errorf("%dx%d raster at (%d,%d) does not fit inside %dx%d raster",
			src.Width(), src.Height(), x, y, dst.Width(), dst.Height())
	}
	return nil
}

type idArgs struct {
	ID string `json:"id"`
}

func (s *Server) lookup(args json.RawMessage) (string, *raster.Image, error) {
	var a idArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", nil, err
	}
	img, err := s.handles.get(a.ID)
	return a.ID, img, err
}

// === Lifecycle Handlers ===

type rasterCreateArgs struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Maxval int `json:"maxval"`
	Fill   int `json:"fill"`
}

func (s *Server) handleRasterCreate(args json.RawMessage) (interface{}, error) {
	var a rasterCreateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Maxval == 0 {
		a.Maxval = raster.PixMax
	}
	if a.Maxval < 1 || a.Maxval > raster.PixMax {
		return nil, fmt.Errorf("maxval %d outside [1,%d]", a.Maxval, raster.PixMax)
	}
	if a.Fill < 0 || a.Fill > a.Maxval {
		return nil, fmt.Errorf("fill %d outside [0,%d]", a.Fill, a.Maxval)
	}
	if err := s.checkSize(a.Width, a.Height); err != nil {
		return nil, err
	}

	levels := bytes.Repeat([]byte{uint8(a.Fill)}, a.Width*a.Height)
	img, err := raster.FromLevels(a.Width, a.Height, uint8(a.Maxval), levels)
	if err != nil {
		return nil, err
	}
	return s.register(img)
}

type rasterLoadArgs struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
}

func (s *Server) handleRasterLoad(args json.RawMessage) (interface{}, error) {
	var a rasterLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	mode, err := imaging.ParseMode(a.Mode)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path, mode)
	if err != nil {
		return nil, err
	}
	if err := s.checkSize(img.Width(), img.Height()); err != nil {
		img.Release()
		return nil, err
	}
	return s.register(img)
}

type pathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleRasterFileInfo(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadRasterInfo(s.cache, a.Path)
}

type rasterSaveArgs struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

func (s *Server) handleRasterSave(args json.RawMessage) (interface{}, error) {
	var a rasterSaveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.handles.get(a.ID)
	if err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if err := pgm.Save(a.Path, img); err != nil {
		return nil, err
	}
	s.cache.Evict(a.Path)
	return map[string]interface{}{"id": a.ID, "path": a.Path, "format": "pgm"}, nil
}

type rasterExportArgs struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Format string `json:"format"`
}

func (s *Server) handleRasterExport(args json.RawMessage) (interface{}, error) {
	var a rasterExportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.handles.get(a.ID)
	if err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	opts := imaging.ExportOptions{Format: a.Format, JPEGQuality: s.cfg.JPEGQuality}
	if err := imaging.Export(img, a.Path, opts); err != nil {
		return nil, err
	}
	s.cache.Evict(a.Path)
	return map[string]interface{}{"id": a.ID, "path": a.Path}, nil
}

func (s *Server) handleRasterRelease(args json.RawMessage) (interface{}, error) {
	var a idArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := s.handles.remove(a.ID); err != nil {
		return nil, err
	}
	s.debugf("Released raster %s", a.ID)
	return map[string]interface{}{"released": a.ID}, nil
}

func (s *Server) handleRasterList(args json.RawMessage) (interface{}, error) {
	list := make([]*RasterInfo, 0, len(s.handles.rasters))
	s.handles.each(func(id string, img *raster.Image) {
		list = append(list, describe(id, img))
	})
	return map[string]interface{}{"rasters": list, "limit": s.handles.max}, nil
}

// === Query Handlers ===

func (s *Server) handleRasterInfo(args json.RawMessage) (interface{}, error) {
	id, img, err := s.lookup(args)
	if err != nil {
		return nil, err
	}
	return describe(id, img), nil
}

func (s *Server) handleRasterStats(args json.RawMessage) (interface{}, error) {
	_, img, err := s.lookup(args)
	if err != nil {
		return nil, err
	}
	if err := checkNonEmpty(img); err != nil {
		return nil, err
	}
	lo, hi := img.Stats()
	return map[string]interface{}{"min": lo, "max": hi}, nil
}

type rasterPixelArgs struct {
	ID    string `json:"id"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Level int    `json:"level"`
}

func (s *Server) handleRasterGetPixel(args json.RawMessage) (interface{}, error) {
	var a rasterPixelArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.handles.get(a.ID)
	if err != nil {
		return nil, err
	}
	if err := checkPos(img, a.X, a.Y); err != nil {
		return nil, err
	}
	return map[string]interface{}{"x": a.X, "y": a.Y, "level": img.Pixel(a.X, a.Y)}, nil
}

func (s *Server) handleRasterSetPixel(args json.RawMessage) (interface{}, error) {
	var a rasterPixelArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.handles.get(a.ID)
	if err != nil {
		return nil, err
	}
	if err := checkPos(img, a.X, a.Y); err != nil {
		return nil, err
	}
	if err := checkLevel("level", a.Level, img); err != nil {
		return nil, err
	}
	img.SetPixel(a.X, a.Y, uint8(a.Level))
	return map[string]interface{}{"x": a.X, "y": a.Y, "level": a.Level}, nil
}

type rasterPreviewArgs struct {
	ID    string  `json:"id"`
	Scale float64 `json:"scale"`
}

func (s *Server) handleRasterPreview(args json.RawMessage) (interface{}, error) {
	var a rasterPreviewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	if a.Scale < 0 || a.Scale > 16 {
		return nil, fmt.Errorf("scale %v outside (0,16]", a.Scale)
	}
	img, err := s.handles.get(a.ID)
	if err != nil {
		return nil, err
	}
	w := int(float64(img.Width()) * a.Scale)
	h := int(float64(img.Height()) * a.Scale)
	if err := s.checkSize(w, h); err != nil {
		return nil, err
	}
	return imaging.EncodePreview(img, a.Scale)
}

type rasterDominantLevelsArgs struct {
	ID    string `json:"id"`
	Count *int   `json:"count"`
}

func (s *Server) handleRasterDominantLevels(args json.RawMessage) (interface{}, error) {
	var a rasterDominantLevelsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.handles.get(a.ID)
	if err != nil {
		return nil, err
	}
	count := 5
	if a.Count != nil {
		count = *a.Count
	}
	return imaging.DominantLevels(img, count)
}

type rasterCompareArgs struct {
	ID        string `json:"id"`
	Other     string `json:"other"`
	Tolerance int    `json:"tolerance"`
}

func (s *Server) handleRasterCompare(args json.RawMessage) (interface{}, error) {
	var a rasterCompareArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.handles.get(a.ID)
	if err != nil {
		return nil, err
	}
	other, err := s.handles.get(a.Other)
	if err != nil {
		return nil, err
	}
	return imaging.Compare(img, other, a.Tolerance)
}

// === Point-wise Handlers ===

func (s *Server) handleRasterNegative(args json.RawMessage) (interface{}, error) {
	id, img, err := s.lookup(args)
	if err != nil {
		return nil, err
	}
	img.Negative()
	return describe(id, img), nil
}

type rasterThresholdArgs struct {
	ID        string `json:"id"`
	Threshold int    `json:"threshold"`
}

func (s *Server) handleRasterThreshold(args json.RawMessage) (interface{}, error) {
	var a rasterThresholdArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.handles.get(a.ID)
	if err != nil {
		return nil, err
	}
	if a.Threshold < 0 || a.Threshold > raster.PixMax {
		return nil, fmt.Errorf("threshold %d outside [0,%d]", a.Threshold, raster.PixMax)
	}
	img.Threshold(uint8(a.Threshold))
	return describe(a.ID, img), nil
}

type rasterBrightenArgs struct {
	ID     string  `json:"id"`
	Factor float64 `json:"factor"`
}

func (s *Server) handleRasterBrighten(args json.RawMessage) (interface{}, error) {
	var a rasterBrightenArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.handles.get(a.ID)
	if err != nil {
		return nil, err
	}
	if !(a.Factor >= 0 && a.Factor <= 1) {
		return nil, fmt.Errorf("factor %v outside [0,1]", a.Factor)
	}
	img.Brighten(a.Factor)
	return describe(a.ID, img), nil
}

// === Geometric Handlers ===

func (s *Server) handleRasterRotate(args json.RawMessage) (interface{}, error) {
	_, img, err := s.lookup(args)
	if err != nil {
		return nil, err
	}
	out, err := img.Rotate()
	if err != nil {
		return nil, err
	}
	return s.register(out)
}

func (s *Server) handleRasterMirror(args json.RawMessage) (interface{}, error) {
	_, img, err := s.lookup(args)
	if err != nil {
		return nil, err
	}
	out, err := img.Mirror()
	if err != nil {
		return nil, err
	}
	return s.register(out)
}

type rasterCropArgs struct {
	ID     string `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (s *Server) handleRasterCrop(args json.RawMessage) (interface{}, error) {
	var a rasterCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.handles.get(a.ID)
	if err != nil {
		return nil, err
	}
	if a.X < 0 || a.Y < 0 || a.Width < 0 || a.Height < 0 || !img.ValidRect(a.X, a.Y, a.Width, a.Height) {
		return nil, fmt.Errorf("crop region (%d,%d) %dx%d outside %dx%d raster",
			a.X, a.Y, a.Width, a.Height, img.Width(), img.Height())
	}
	out, err := img.Crop(a.X, a.Y, a.Width, a.Height)
	if err != nil {
		return nil, err
	}
	return s.register(out)
}

type rasterResizeArgs struct {
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Filter string `json:"filter"`
}

func (s *Server) handleRasterResize(args json.RawMessage) (interface{}, error) {
	var a rasterResizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.handles.get(a.ID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSize(a.Width, a.Height); err != nil {
		return nil, err
	}
	out, err := imaging.Resize(img, a.Width, a.Height, a.Filter)
	if err != nil {
		return nil, err
	}
	return s.register(out)
}

// === Compositing Handlers ===

type rasterCompositeArgs struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	X      int      `json:"x"`
	Y      int      `json:"y"`
	Alpha  *float64 `json:"alpha"`
}

func (s *Server) compositeOperands(args json.RawMessage) (*rasterCompositeArgs, *raster.Image, *raster.Image, error) {
	var a rasterCompositeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, nil, nil, err
	}
	dst, err := s.handles.get(a.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	src, err := s.handles.get(a.Source)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := checkFits(dst, a.X, a.Y, src); err != nil {
		return nil, nil, nil, err
	}
	return &a, dst, src, nil
}

func (s *Server) handleRasterPaste(args json.RawMessage) (interface{}, error) {
	a, dst, src, err := s.compositeOperands(args)
	if err != nil {
		return nil, err
	}
	dst.Paste(a.X, a.Y, src)
	return describe(a.ID, dst), nil
}

func (s *Server) handleRasterBlend(args json.RawMessage) (interface{}, error) {
	a, dst, src, err := s.compositeOperands(args)
	if err != nil {
		return nil, err
	}
	if a.Alpha == nil {
		return nil, fmt.Errorf("alpha is required")
	}
	if math.IsNaN(*a.Alpha) || math.IsInf(*a.Alpha, 0) {
		return nil, fmt.Errorf("alpha %v is not finite", *a.Alpha)
	}
	dst.Blend(a.X, a.Y, src, *a.Alpha)
	return describe(a.ID, dst), nil
}

// === Pattern Matching Handlers ===

type rasterMatchArgs struct {
	ID     string `json:"id"`
	Needle string `json:"needle"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

func (s *Server) matchOperands(a *rasterMatchArgs) (*raster.Image, *raster.Image, error) {
	haystack, err := s.handles.get(a.ID)
	if err != nil {
		return nil, nil, err
	}
	needle, err := s.handles.get(a.Needle)
	if err != nil {
		return nil, nil, err
	}
	return haystack, needle, nil
}

func (s *Server) handleRasterMatch(args json.RawMessage) (interface{}, error) {
	var a rasterMatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	haystack, needle, err := s.matchOperands(&a)
	if err != nil {
		return nil, err
	}
	if err := checkPos(haystack, a.X, a.Y); err != nil {
		return nil, err
	}
	return map[string]interface{}{"x": a.X, "y": a.Y, "match": haystack.MatchSubImage(a.X, a.Y, needle)}, nil
}

func (s *Server) handleRasterLocate(args json.RawMessage) (interface{}, error) {
	var a rasterMatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	haystack, needle, err := s.matchOperands(&a)
	if err != nil {
		return nil, err
	}
	x, y, ok := haystack.LocateSubImage(needle)
	if !ok {
		return map[string]interface{}{"found": false}, nil
	}
	return map[string]interface{}{"found": true, "x": x, "y": y}, nil
}

// === Filter Handlers ===

type rasterBlurArgs struct {
	ID string `json:"id"`
	DX int    `json:"dx"`
	DY int    `json:"dy"`
}

func (s *Server) handleRasterBlur(args json.RawMessage) (interface{}, error) {
	var a rasterBlurArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.handles.get(a.ID)
	if err != nil {
		return nil, err
	}
	if a.DX < 0 || a.DY < 0 {
		return nil, fmt.Errorf("blur radii (%d,%d) must be non-negative", a.DX, a.DY)
	}
	img.Blur(a.DX, a.DY)
	return describe(a.ID, img), nil
}

type rasterDitherArgs struct {
	ID     string `json:"id"`
	Method string `json:"method"`
}

func (s *Server) handleRasterDither(args json.RawMessage) (interface{}, error) {
	var a rasterDitherArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.handles.get(a.ID)
	if err != nil {
		return nil, err
	}
	out, err := imaging.Dither(img, a.Method)
	if err != nil {
		return nil, err
	}
	return s.register(out)
}
