// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server bridges the operation registry onto the Model Context
// Protocol. Each registered descriptor becomes an MCP tool whose input
// schema is derived from the descriptor's parameter declarations; one
// generic handler decodes arguments and dispatches through the registry.
package server

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/pdiddy/cmm-toolserver/internal/registry"
)

// New builds an MCP server exposing every operation in the registry.
func New(reg *registry.Registry, name, version string, log zerolog.Logger) *mcp.Server {
	slog := log.With().Str("component", "server").Logger()

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, nil)

	for _, d := range reg.Descriptors() {
		srv.AddTool(&mcp.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: InputSchema(d),
		}, dispatchHandler(reg, d.Name, slog))
	}
	return srv
}

// dispatchHandler returns the MCP handler for one operation. Failures
// travel inside the result with IsError set; the error return is
// reserved for protocol-level breakage.
func dispatchHandler(reg *registry.Registry, op string, log zerolog.Logger) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeArgs(req.Params.Arguments)
		if err != nil {
			return errorResult("validation: arguments are not a JSON object"), nil
		}

		result, err := reg.Invoke(ctx, op, args)
		if err != nil {
			// Typed kinds render as "kind: reason"; nothing else leaves
			// the process. Full detail is already on the stderr log.
			log.Debug().Str("op", op).Err(err).Msg("tool call failed")
			return errorResult(err.Error()), nil
		}
		return successResult(result)
	}
}

// decodeArgs normalizes the wire arguments. The transport hands raw JSON
// to untyped handlers; in-process callers may pass a map directly.
func decodeArgs(v any) (map[string]any, error) {
	switch a := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return a, nil
	case json.RawMessage:
		if len(a) == 0 {
			return nil, nil
		}
		var args map[string]any
		if err := json.Unmarshal(a, &args); err != nil {
			return nil, err
		}
		return args, nil
	default:
		data, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		var args map[string]any
		if err := json.Unmarshal(data, &args); err != nil {
			return nil, err
		}
		return args, nil
	}
}

// successResult renders a handler's return value: strings as plain text,
// anything structured as indented JSON.
func successResult(result any) (*mcp.CallToolResult, error) {
	text, ok := result.(string)
	if !ok {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return errorResult("parse: result not serializable"), nil
		}
		text = string(data)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

// InputSchema converts a descriptor's parameter declarations to a JSON
// Schema object.
func InputSchema(d registry.Descriptor) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(d.Params))
	var required []string

	for _, p := range d.Params {
		properties[p.Name] = paramSchema(p)
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func paramSchema(p registry.Param) *jsonschema.Schema {
	s := &jsonschema.Schema{Description: p.Description}

	switch p.Type {
	case registry.TypeString:
		s.Type = "string"
	case registry.TypeInt:
		s.Type = "integer"
	case registry.TypeNumber:
		s.Type = "number"
	case registry.TypeBool:
		s.Type = "boolean"
	case registry.TypeStringSlice:
		s.Type = "array"
		s.Items = &jsonschema.Schema{Type: "string"}
	}

	for _, v := range p.Enum {
		s.Enum = append(s.Enum, v)
	}
	s.Minimum = p.Min
	s.Maximum = p.Max
	if p.Default != nil {
		if raw, err := json.Marshal(p.Default); err == nil {
			s.Default = raw
		}
	}
	return s
}
