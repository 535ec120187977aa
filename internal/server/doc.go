// Package server implements the MCP (Model Context Protocol) server for the
// kilobot tracker.
//
// This package provides a JSON-RPC 2.0 server that exposes detection, template
// acquisition and region analysis through the MCP protocol, so an MCP client
// can calibrate and inspect a tracking setup interactively.
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
// # Available Tools
//
// Image Information:
//   - image_dimensions: Get width and height
//
// Detection:
//   - kilobot_detect: Detect bots in one frame
//   - kilobot_acquire_template: Build and save a template from a calibration still
//   - kilobot_track: Detect bots in every frame of a directory and build the composite
//
// Region Analysis:
//   - region_analyze: Area, perimeter, inner/border split, convex hull and components of a 0/1 mask
//
// Visualization:
//   - kilobot_annotate: Draw trajectory points onto a base image
//
// # Profiles
//
// Detection tools take calibration values from a named profile (see package
// config) and accept per-call overrides for channel, sigma and threshold.
//
// # Caching
//
// Loaded images and templates are cached by path for the lifetime of the
// server. Acquiring a template replaces the cached copy at its output path.
//
// # Logging
//
// Logs are written to stderr with logrus; stdout carries only protocol
// messages.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
package server
