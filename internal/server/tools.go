package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// profileProperties are the calibration overrides shared by the detection
// and template tools.
func profileProperties() map[string]interface{} {
	return map[string]interface{}{
		"profile": map[string]interface{}{
			"type":        "string",
			"description": "Calibration profile (standard or leader, or one from the config file). Default: KILOBOT_PROFILE or the configured default",
		},
		"channel": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"red", "green", "blue", "auto"},
			"description": "Colour channel to search. Overrides the profile",
		},
		"sigma": map[string]interface{}{
			"type":        "number",
			"description": "Gaussian blur sigma applied to the edge map. Overrides the profile",
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},

		// Detection
		{
			Name:        "kilobot_detect",
			Description: "Detect kilobots in a still frame by edge detection, template matching and connected-component analysis. Returns one centroid (row, col) per detected bot; an empty list means no bots were found.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(profileProperties(), map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the frame",
					},
					"template": map[string]interface{}{
						"type":        "string",
						"description": "Path to a template PNG written by kilobot_acquire_template. Default: the profile's template",
					},
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "Match score a cell must exceed to be a candidate (e.g. 0.6 standard, 0.7 leader). Overrides the profile",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "kilobot_acquire_template",
			Description: "Build a matching template from a calibration still: isolate the channel, edge-detect, blur and crop the calibration window. The template is saved as a 16-bit PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(profileProperties(), map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the calibration still",
					},
					"out": map[string]interface{}{
						"type":        "string",
						"description": "Where to save the template. Default: the profile's template path",
					},
					"preview": map[string]interface{}{
						"type":        "string",
						"description": "Optional path for a raw crop of the calibration window",
					},
					"window": map[string]interface{}{
						"type":        "object",
						"description": "Calibration window (x2, y2 exclusive). Overrides the profile",
						"properties": map[string]interface{}{
							"x1": map[string]interface{}{"type": "integer"},
							"y1": map[string]interface{}{"type": "integer"},
							"x2": map[string]interface{}{"type": "integer"},
							"y2": map[string]interface{}{"type": "integer"},
						},
						"required": []string{"x1", "y1", "x2", "y2"},
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "kilobot_track",
			Description: "Run detection over every frame in a directory and build the composite of all detected positions. The run is recorded in the configured database, if any.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(profileProperties(), map[string]interface{}{
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory of frames",
					},
					"template": map[string]interface{}{
						"type":        "string",
						"description": "Template PNG. Default: the profile's template",
					},
					"composite": map[string]interface{}{
						"type":        "string",
						"description": "Optional path for the composite PNG",
					},
					"debug_dir": map[string]interface{}{
						"type":        "string",
						"description": "Optional directory for per-frame debug rasters. Default: the configured debug_dir",
					},
				}),
				"required": []string{"dir"},
			},
		},

		// Region analysis
		{
			Name:        "region_analyze",
			Description: "Analyze a binary mask given as rows of 0/1: area, perimeter, inner and border areas, convex hull area, bounds, and the 8-connected components with their centroids.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"mask": map[string]interface{}{
						"type":        "array",
						"description": "Rows of 0/1 values",
						"items": map[string]interface{}{
							"type":  "array",
							"items": map[string]interface{}{"type": "integer", "enum": []int{0, 1}},
						},
					},
					"dilate": map[string]interface{}{
						"type":        "integer",
						"description": "Dilation passes applied before analysis. Default 0",
						"default":     0,
					},
				},
				"required": []string{"mask"},
			},
		},

		// Visualization
		{
			Name:        "kilobot_annotate",
			Description: "Draw the trajectory points of an overlay image (any pixel with a non-zero red channel, e.g. a tracking composite) onto a base image as coloured plus markers.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"base": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the base image",
					},
					"overlay": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the overlay image",
					},
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Marker colour as hex. Default #FF0000",
						"default":     "#FF0000",
					},
					"out": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to save the annotated image. When omitted the image is returned as base64 PNG",
					},
				},
				"required": []string{"base", "overlay"},
			},
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
