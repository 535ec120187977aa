package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/kilobot-tracker/internal/calibrate"
	"github.com/ironsheep/kilobot-tracker/internal/config"
	"github.com/ironsheep/kilobot-tracker/internal/detection"
	"github.com/ironsheep/kilobot-tracker/internal/imaging"
	"github.com/ironsheep/kilobot-tracker/internal/region"
	"github.com/ironsheep/kilobot-tracker/internal/store"
	"github.com/ironsheep/kilobot-tracker/internal/tracker"
	"github.com/ironsheep/kilobot-tracker/internal/transform"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "kilobot_detect", "region_analyze").
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

	log := s.logger.WithField("tool", params.Name)
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		log.WithError(err).Warn("Tool execution failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	log.Debug("Tool executed")

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
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Resolves the calibration profile and applies overrides
//  3. Loads images and templates as needed
//  4. Calls the appropriate detection/calibrate/region function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Detection
	case "kilobot_detect":
		return s.handleDetect(args)
	case "kilobot_acquire_template":
		return s.handleAcquireTemplate(args)
	case "kilobot_track":
		return s.handleTrack(args)

	// Region analysis
	case "region_analyze":
		return s.handleRegionAnalyze(args)

	// Visualization
	case "kilobot_annotate":
		return s.handleAnnotate(args)

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

// === Shared argument handling ===

// profileArgs are the calibration overrides accepted by the detection tools.
type profileArgs struct {
	Profile   string   `json:"profile"`
	Channel   string   `json:"channel"`
	Sigma     *float64 `json:"sigma"`
	Threshold *float64 `json:"threshold"`
}

// profile resolves the requested profile and applies the overrides.
func (s *Server) profile(a profileArgs) (config.Profile, error) {
	p, err := s.cfg.Select(a.Profile)
	if err != nil {
		return config.Profile{}, err
	}
	if a.Channel != "" {
		c, err := imaging.ParseChannel(a.Channel)
		if err != nil {
			return config.Profile{}, err
		}
		p.Channel = c
	}
	if a.Sigma != nil {
		p.Sigma = *a.Sigma
	}
	if a.Threshold != nil {
		p.Threshold = *a.Threshold
	}
	if err := p.Validate(); err != nil {
		return config.Profile{}, err
	}
	return p, nil
}

// template loads a template PNG, reusing previously loaded templates.
func (s *Server) template(path string) (*mat.Dense, error) {
	if path == "" {
		return nil, fmt.Errorf("no template given and the profile has none")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tpl, ok := s.templates[path]; ok {
		return tpl, nil
	}
	tpl, err := imaging.LoadTemplate(path)
	if err != nil {
		return nil, err
	}
	s.templates[path] = tpl
	return tpl, nil
}

func (s *Server) forgetTemplate(path string) {
	s.mu.Lock()
	delete(s.templates, path)
	s.mu.Unlock()
}

// === Basic Image Information Handlers ===

type imagePathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Detection Handlers ===

type detectArgs struct {
	profileArgs
	Path     string `json:"path"`
	Template string `json:"template"`
}

// DetectResult is the response of kilobot_detect.
type DetectResult struct {
	Path       string                `json:"path"`
	Profile    string                `json:"profile"`
	Width      int                   `json:"width"`
	Height     int                   `json:"height"`
	Count      int                   `json:"count"`
	Detections []detection.Detection `json:"detections"`
}

func (s *Server) handleDetect(args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.profile(a.profileArgs)
	if err != nil {
		return nil, err
	}
	if a.Template == "" {
		a.Template = p.TemplatePath
	}
	tpl, err := s.template(a.Template)
	if err != nil {
		return nil, err
	}
	d, err := p.Detector(tpl)
	if err != nil {
		return nil, err
	}

	img, err := imaging.LoadFrame(a.Path)
	if err != nil {
		return nil, err
	}
	result, err := d.Detect(img)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"path":    a.Path,
		"profile": p.Name,
		"count":   result.Count,
	}).Info("Frame analyzed")

	return &DetectResult{
		Path:       a.Path,
		Profile:    p.Name,
		Width:      img.Bounds().Dx(),
		Height:     img.Bounds().Dy(),
		Count:      result.Count,
		Detections: result.Detections,
	}, nil
}

type acquireArgs struct {
	profileArgs
	Path    string          `json:"path"`
	Out     string          `json:"out"`
	Preview string          `json:"preview"`
	Window  *imaging.Window `json:"window"`
}

// AcquireResult is the response of kilobot_acquire_template.
type AcquireResult struct {
	Template string                `json:"template"`
	Preview  string                `json:"preview,omitempty"`
	Profile  string                `json:"profile"`
	Window   imaging.Window        `json:"window"`
	Sigma    float64               `json:"sigma"`
	Rows     int                   `json:"rows"`
	Cols     int                   `json:"cols"`
	Image    *imaging.EncodedImage `json:"image"`
}

func (s *Server) handleAcquireTemplate(args json.RawMessage) (interface{}, error) {
	var a acquireArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.profile(a.profileArgs)
	if err != nil {
		return nil, err
	}
	if a.Window != nil {
		p.Window = *a.Window
	}
	if a.Out == "" {
		a.Out = p.TemplatePath
	}
	if a.Out == "" {
		return nil, fmt.Errorf("no output path given and the profile has no template path")
	}

	tpl, err := calibrate.AcquireFile(a.Path, p.CalibrateOptions(), a.Out, a.Preview)
	if err != nil {
		return nil, err
	}
	s.forgetTemplate(a.Out)

	encoded, err := imaging.EncodePNG(imaging.GridToGray(tpl.Grid))
	if err != nil {
		return nil, err
	}
	rows, cols := tpl.Grid.Dims()
	return &AcquireResult{
		Template: a.Out,
		Preview:  a.Preview,
		Profile:  p.Name,
		Window:   tpl.Window,
		Sigma:    tpl.Sigma,
		Rows:     rows,
		Cols:     cols,
		Image:    encoded,
	}, nil
}

type trackArgs struct {
	profileArgs
	Dir       string `json:"dir"`
	Template  string `json:"template"`
	Composite string `json:"composite"`
	DebugDir  string `json:"debug_dir"`
}

// FrameCount is the number of detections in one frame.
type FrameCount struct {
	Frame string `json:"frame"`
	Count int    `json:"count"`
}

// TrackResult is the response of kilobot_track.
type TrackResult struct {
	RunID      string       `json:"run_id"`
	Profile    string       `json:"profile"`
	Frames     []FrameCount `json:"frames"`
	Detections int          `json:"detections"`
	OffCanvas  int          `json:"off_canvas"`
	Composite  string       `json:"composite,omitempty"`
	Database   string       `json:"database,omitempty"`
}

func (s *Server) handleTrack(args json.RawMessage) (interface{}, error) {
	var a trackArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.profile(a.profileArgs)
	if err != nil {
		return nil, err
	}
	if a.Template == "" {
		a.Template = p.TemplatePath
	}
	tpl, err := s.template(a.Template)
	if err != nil {
		return nil, err
	}
	d, err := p.Detector(tpl)
	if err != nil {
		return nil, err
	}

	if a.DebugDir == "" {
		a.DebugDir = s.cfg.DebugDir
	}
	var db *store.DB
	if s.cfg.Database != "" {
		if db, err = store.Open(s.cfg.Database); err != nil {
			return nil, err
		}
		defer db.Close()
	}

	summary, err := tracker.Run(context.Background(), tracker.Options{
		Dir:           a.Dir,
		Detector:      d,
		Profile:       p.Name,
		TemplatePath:  a.Template,
		CanvasWidth:   p.Canvas.Width,
		CanvasHeight:  p.Canvas.Height,
		DebugDir:      a.DebugDir,
		CompositePath: a.Composite,
		Store:         db,
		Workers:       s.cfg.Workers,
		Logger:        s.logger,
	})
	if err != nil {
		return nil, err
	}

	if a.Composite != "" {
		s.cache.Evict(a.Composite)
	}

	frames := make([]FrameCount, len(summary.Frames))
	for i, fr := range summary.Frames {
		frames[i] = FrameCount{Frame: fr.Frame, Count: fr.Result.Count}
	}
	return &TrackResult{
		RunID:      summary.RunID,
		Profile:    p.Name,
		Frames:     frames,
		Detections: summary.Detections,
		OffCanvas:  summary.OffCanvas,
		Composite:  a.Composite,
		Database:   s.cfg.Database,
	}, nil
}

// === Region Analysis Handlers ===

type regionAnalyzeArgs struct {
	Mask   [][]int `json:"mask"`
	Dilate int     `json:"dilate"`
}

// ComponentInfo describes one connected component of an analyzed mask.
type ComponentInfo struct {
	Label int     `json:"label"`
	Area  int     `json:"area"`
	Row   float64 `json:"row"`
	Col   float64 `json:"col"`
}

// RegionAnalysis is the response of region_analyze.
type RegionAnalysis struct {
	Rows       int               `json:"rows"`
	Cols       int               `json:"cols"`
	Area       int               `json:"area"`
	Perimeter  int               `json:"perimeter"`
	InnerArea  int               `json:"inner_area"`
	BorderArea int               `json:"border_area"`
	HullArea   int               `json:"hull_area"`
	Bounds     *detection.Bounds `json:"bounds,omitempty"`
	Components []ComponentInfo   `json:"components"`
	Bitmap     string            `json:"bitmap"`
}

func (s *Server) handleRegionAnalyze(args json.RawMessage) (interface{}, error) {
	var a regionAnalyzeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	r, err := region.FromInts(a.Mask)
	if err != nil {
		return nil, err
	}
	r, err = r.Dilate(a.Dilate)
	if err != nil {
		return nil, err
	}
	return analyzeRegion(r), nil
}

func analyzeRegion(r region.Region) *RegionAnalysis {
	out := &RegionAnalysis{
		Rows:       r.Rows(),
		Cols:       r.Cols(),
		Area:       r.Area(),
		Perimeter:  r.Perimeter(),
		InnerArea:  r.Inner().Area(),
		BorderArea: r.Border().Area(),
		HullArea:   r.ConvexHull().Area(),
		Components: []ComponentInfo{},
		Bitmap:     r.String(),
	}
	if lo, hi, ok := r.Bounds(); ok {
		out.Bounds = &detection.Bounds{MinRow: lo.Row, MinCol: lo.Col, MaxRow: hi.Row, MaxCol: hi.Col}
	}

	labels := transform.FindConnectedComponents(r)
	centroids := transform.ComponentCentroids(labels)
	for _, label := range centroids.Labels() {
		p := centroids[label]
		out.Components = append(out.Components, ComponentInfo{
			Label: label,
			Area:  labels.Count(label),
			Row:   p.Row,
			Col:   p.Col,
		})
	}
	return out
}

// === Visualization Handlers ===

type annotateArgs struct {
	Base    string `json:"base"`
	Overlay string `json:"overlay"`
	Color   string `json:"color"`
	Out     string `json:"out"`
}

// AnnotateResponse is the response of kilobot_annotate.
type AnnotateResponse struct {
	Points int                   `json:"points"`
	Out    string                `json:"out,omitempty"`
	Image  *imaging.EncodedImage `json:"image,omitempty"`
}

func (s *Server) handleAnnotate(args json.RawMessage) (interface{}, error) {
	var a annotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Color) == "" {
		a.Color = "#FF0000"
	}
	marker, err := imaging.ParseColor(a.Color)
	if err != nil {
		return nil, err
	}

	base, err := s.cache.Load(a.Base)
	if err != nil {
		return nil, err
	}
	overlay, err := s.cache.Load(a.Overlay)
	if err != nil {
		return nil, err
	}

	result := imaging.Annotate(base, overlay, marker)
	if a.Out != "" {
		if err := imaging.SavePNG(a.Out, result.Image); err != nil {
			return nil, err
		}
		return &AnnotateResponse{Points: result.Points, Out: a.Out}, nil
	}

	encoded, err := imaging.EncodePNG(result.Image)
	if err != nil {
		return nil, err
	}
	return &AnnotateResponse{Points: result.Points, Image: encoded}, nil
}
