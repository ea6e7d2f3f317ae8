package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flood-ai/flood-memory/internal/memory"
	"github.com/flood-ai/flood-memory/internal/server/graph"
	"github.com/flood-ai/flood-memory/internal/server/service"
)

func newTestServer(t *testing.T) *server.MCPServer {
	t.Helper()
	ctx := context.Background()

	repo, err := graph.NewSQLite(ctx, filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close(ctx) })

	return NewServer(service.New(memory.New(repo)), zap.NewNop())
}

// rpc sends one JSON-RPC message and returns the decoded response.
func rpc(t *testing.T, s *server.MCPServer, msg string) map[string]any {
	t.Helper()
	resp := s.HandleMessage(context.Background(), json.RawMessage(msg))
	require.NotNil(t, resp)

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

type toolResult struct {
	text    string
	isError bool
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) toolResult {
	t.Helper()
	params, err := json.Marshal(map[string]any{"name": name, "arguments": args})
	require.NoError(t, err)

	out := rpc(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":`+string(params)+`}`)
	result, ok := out["result"].(map[string]any)
	require.True(t, ok, "no result in %v", out)

	content := result["content"].([]any)
	require.Len(t, content, 1)
	isError, _ := result["isError"].(bool)
	return toolResult{text: content[0].(map[string]any)["text"].(string), isError: isError}
}

func TestInitializeAndList(t *testing.T) {
	s := newTestServer(t)

	out := rpc(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`)
	info := out["result"].(map[string]any)["serverInfo"].(map[string]any)
	assert.Equal(t, ServerName, info["name"])
	assert.Equal(t, ServerVersion, info["version"])

	out = rpc(t, s, `{"jsonrpc":"2.0","id":2,"method":"ping"}`)
	assert.Contains(t, out, "result")

	out = rpc(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/list"}`)
	var names []string
	for _, tool := range out["result"].(map[string]any)["tools"].([]any) {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	assert.ElementsMatch(t, []string{"remember", "recall", "connections", "forget", "update"}, names)
}

func TestToolsEndToEnd(t *testing.T) {
	s := newTestServer(t)

	res := callTool(t, s, "remember", map[string]any{"content": "MCP first", "tags": []string{"mcp"}})
	require.False(t, res.isError, res.text)
	var a graph.Node
	require.NoError(t, json.Unmarshal([]byte(res.text), &a))
	assert.Contains(t, res.text, "\n  \"id\"")

	res = callTool(t, s, "remember", map[string]any{"content": "MCP second", "links": []string{a.ID}})
	require.False(t, res.isError, res.text)
	var b graph.Node
	require.NoError(t, json.Unmarshal([]byte(res.text), &b))
	assert.Equal(t, []string{a.ID}, b.Links.IDs())

	res = callTool(t, s, "recall", map[string]any{"query": "MCP", "tags": []string{"mcp"}})
	require.False(t, res.isError, res.text)
	var recalled []graph.Node
	require.NoError(t, json.Unmarshal([]byte(res.text), &recalled))
	require.Len(t, recalled, 1)
	assert.Equal(t, a.ID, recalled[0].ID)
	assert.Equal(t, int64(1), recalled[0].AccessCount)

	res = callTool(t, s, "recall", map[string]any{"query": "MCP", "limit": 0})
	require.False(t, res.isError, res.text)
	assert.JSONEq(t, `[]`, res.text)

	res = callTool(t, s, "connections", map[string]any{"node_id": a.ID})
	require.False(t, res.isError, res.text)
	var conns []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.text), &conns))
	require.Len(t, conns, 2)
	assert.Equal(t, float64(0), conns[0]["distance"])
	assert.Equal(t, float64(1), conns[1]["distance"])

	res = callTool(t, s, "update", map[string]any{"node_id": b.ID, "content": "MCP second, edited"})
	require.False(t, res.isError, res.text)
	assert.Contains(t, res.text, "edited")

	res = callTool(t, s, "forget", map[string]any{"node_id": a.ID})
	require.False(t, res.isError, res.text)
	assert.JSONEq(t, `{"deleted":"`+a.ID+`"}`, res.text)
}

func TestToolErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{name: "recall without query or tags", tool: "recall", args: map[string]any{}, want: "At least one of query or tags is required"},
		{name: "forget unknown", tool: "forget", args: map[string]any{"node_id": "missing"}, want: "Node not found"},
		{name: "update unknown", tool: "update", args: map[string]any{"node_id": "missing", "content": "x"}, want: "Node not found"},
		{name: "connections unknown", tool: "connections", args: map[string]any{"node_id": "missing"}, want: "Node not found"},
		{name: "remember without content", tool: "remember", args: map[string]any{"tags": []string{"x"}}, want: "content is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, s, tt.tool, tt.args)
			assert.True(t, res.isError)

			var msg string
			require.NoError(t, json.Unmarshal([]byte(res.text), &msg))
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestDefinitionsRequireIDs(t *testing.T) {
	for _, tool := range All(nil, zap.NewNop()) {
		def := tool.Definition()
		switch def.Name {
		case "remember":
			assert.Equal(t, []string{"content"}, def.InputSchema.Required)
		case "recall":
			assert.Empty(t, def.InputSchema.Required)
		default:
			assert.Equal(t, []string{"node_id"}, def.InputSchema.Required, def.Name)
		}
	}
}

func TestHandlerDirect(t *testing.T) {
	ctx := context.Background()
	repo, err := graph.NewSQLite(ctx, filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	defer repo.Close(ctx)

	tool := &RememberTool{svc: service.New(memory.New(repo)), logger: zap.NewNop()}

	req := mcp.CallToolRequest{}
	req.Params.Name = "remember"
	req.Params.Arguments = map[string]any{"content": "direct", "source": "unit"}

	result, err := tool.Handle(ctx, req)
	require.NoError(t, err)
	require.False(t, result.IsError)
	text := result.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, `"source": "unit"`)
}
