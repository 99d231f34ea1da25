// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/pdiddy/cmm-toolserver/internal/registry"
	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New(zerolog.Nop())

	r.MustRegister(registry.Descriptor{
		Name:        "greet",
		Description: "Greets by name",
		Params: []registry.Param{
			{Name: "name", Type: registry.TypeString, Description: "Who to greet", Required: true},
			{Name: "times", Type: registry.TypeInt, Default: 1, Min: registry.Bound(1), Max: registry.Bound(3)},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			name, _ := args["name"].(string)
			times, _ := args["times"].(int)
			return strings.TrimSpace(strings.Repeat("hello "+name+" ", times)), nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "stats",
		Description: "Returns a structured result",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]int{"count": 3}, nil
		},
	})

	r.MustRegister(registry.Descriptor{
		Name:        "missing",
		Description: "Always not found",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, &types.NotFoundError{Source: "arxiv", ID: "0000.00000"}
		},
	})

	return r
}

// connect spins up the server over in-memory transports and returns a
// connected client session.
func connect(t *testing.T, reg *registry.Registry) *mcp.ClientSession {
	t.Helper()

	srv := New(reg, "cmm-toolserver-test", "0.0.1", zerolog.Nop())

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	if _, err := srv.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): content type %T", name, result.Content[0])
	}
	return tc.Text, result.IsError
}

func TestListToolsExposesRegistry(t *testing.T) {
	session := connect(t, testRegistry(t))

	listed, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := make(map[string]bool, len(listed.Tools))
	for _, tool := range listed.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"greet", "stats", "missing"} {
		if !names[want] {
			t.Errorf("tool %q not listed", want)
		}
	}
}

func TestCallToolStringResult(t *testing.T) {
	session := connect(t, testRegistry(t))

	text, isErr := callTool(t, session, "greet", map[string]any{"name": "world", "times": 2})
	if isErr {
		t.Fatalf("unexpected error result: %s", text)
	}
	if text != "hello world hello world" {
		t.Errorf("text = %q", text)
	}
}

func TestCallToolStructuredResultIsJSON(t *testing.T) {
	session := connect(t, testRegistry(t))

	text, isErr := callTool(t, session, "stats", nil)
	if isErr {
		t.Fatalf("unexpected error result: %s", text)
	}
	var decoded map[string]int
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, text)
	}
	if decoded["count"] != 3 {
		t.Errorf("count = %d", decoded["count"])
	}
}

func TestCallToolValidationFailure(t *testing.T) {
	session := connect(t, testRegistry(t))

	text, isErr := callTool(t, session, "greet", map[string]any{"name": "x", "times": 9})
	if !isErr {
		t.Fatal("expected IsError result")
	}
	if !strings.HasPrefix(text, "validation:") {
		t.Errorf("text = %q, want validation kind prefix", text)
	}
}

func TestCallToolDomainErrorKind(t *testing.T) {
	session := connect(t, testRegistry(t))

	text, isErr := callTool(t, session, "missing", nil)
	if !isErr {
		t.Fatal("expected IsError result")
	}
	if !strings.HasPrefix(text, "not found:") {
		t.Errorf("text = %q, want not-found kind prefix", text)
	}
}

func TestInputSchemaFromDescriptor(t *testing.T) {
	d := registry.Descriptor{
		Name: "example",
		Params: []registry.Param{
			{Name: "query", Type: registry.TypeString, Required: true, Description: "Search terms"},
			{Name: "limit", Type: registry.TypeInt, Default: 10, Min: registry.Bound(1), Max: registry.Bound(100)},
			{Name: "sort_by", Type: registry.TypeString, Enum: []string{"relevance", "date"}},
			{Name: "countries", Type: registry.TypeStringSlice},
			{Name: "critical_only", Type: registry.TypeBool},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) { return nil, nil },
	}

	s := InputSchema(d)
	if s.Type != "object" {
		t.Errorf("Type = %q", s.Type)
	}
	if len(s.Required) != 1 || s.Required[0] != "query" {
		t.Errorf("Required = %v", s.Required)
	}

	limit := s.Properties["limit"]
	if limit.Type != "integer" || limit.Minimum == nil || *limit.Minimum != 1 || *limit.Maximum != 100 {
		t.Errorf("limit schema = %+v", limit)
	}
	if string(limit.Default) != "10" {
		t.Errorf("limit default = %s", limit.Default)
	}
	if len(s.Properties["sort_by"].Enum) != 2 {
		t.Errorf("enum = %v", s.Properties["sort_by"].Enum)
	}
	countries := s.Properties["countries"]
	if countries.Type != "array" || countries.Items == nil || countries.Items.Type != "string" {
		t.Errorf("countries schema = %+v", countries)
	}
	if s.Properties["critical_only"].Type != "boolean" {
		t.Errorf("bool schema = %+v", s.Properties["critical_only"])
	}
}

func TestDecodeArgs(t *testing.T) {
	args, err := decodeArgs(json.RawMessage(`{"a": 1}`))
	if err != nil || args["a"] != float64(1) {
		t.Errorf("raw message: args = %v, err = %v", args, err)
	}

	args, err = decodeArgs(nil)
	if err != nil || args != nil {
		t.Errorf("nil: args = %v, err = %v", args, err)
	}

	if _, err := decodeArgs(json.RawMessage(`[1, 2]`)); err == nil {
		t.Error("array arguments accepted, want error")
	}
}
