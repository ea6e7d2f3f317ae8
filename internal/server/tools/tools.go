package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/flood-ai/flood-memory/internal/memory"
	"github.com/flood-ai/flood-memory/internal/server/service"
)

// Tool is one MCP tool: its schema and its handler.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// All returns the memory tools in listing order.
func All(svc *service.Service, logger *zap.Logger) []Tool {
	return []Tool{
		&RememberTool{svc: svc, logger: logger},
		&RecallTool{svc: svc, logger: logger},
		&ConnectionsTool{svc: svc, logger: logger},
		&ForgetTool{svc: svc, logger: logger},
		&UpdateTool{svc: svc, logger: logger},
	}
}

type RememberTool struct {
	svc    *service.Service
	logger *zap.Logger
}

func (t *RememberTool) Definition() mcp.Tool {
	return mcp.NewTool("remember",
		mcp.WithDescription("Store a memory node"),
		mcp.WithString("content", mcp.Required(), mcp.Description("The memory to store")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Tags for categorization")),
		mcp.WithArray("links", mcp.WithStringItems(), mcp.Description("Node IDs to link to")),
		mcp.WithString("source", mcp.DefaultString(""), mcp.Description("Conversation label or context")),
	)
}

func (t *RememberTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args service.RememberRequest
	if err := req.BindArguments(&args); err != nil {
		return errorResult(err.Error()), nil
	}
	result, err := t.svc.Remember(ctx, args)
	return respond(t.logger, "remember", result, err), nil
}

type RecallTool struct {
	svc    *service.Service
	logger *zap.Logger
}

func (t *RecallTool) Definition() mcp.Tool {
	return mcp.NewTool("recall",
		mcp.WithDescription("Search memory by text query, tags, or both. Returns matching nodes sorted by relevance."),
		mcp.WithString("query", mcp.DefaultString(""), mcp.Description("Text to search for")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Filter by tags (AND logic)")),
		mcp.WithNumber("limit", mcp.DefaultNumber(memory.DefaultLimit), mcp.Description("Max results to return")),
	)
}

func (t *RecallTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args service.RecallRequest
	if err := req.BindArguments(&args); err != nil {
		return errorResult(err.Error()), nil
	}
	result, err := t.svc.Recall(ctx, args)
	return respond(t.logger, "recall", result, err), nil
}

type ConnectionsTool struct {
	svc    *service.Service
	logger *zap.Logger
}

func (t *ConnectionsTool) Definition() mcp.Tool {
	return mcp.NewTool("connections",
		mcp.WithDescription("Traverse the link graph from a starting node via BFS"),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Starting node ID")),
		mcp.WithNumber("depth", mcp.DefaultNumber(memory.DefaultDepth), mcp.Description("How many hops to traverse")),
	)
}

func (t *ConnectionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args service.ConnectionsRequest
	if err := req.BindArguments(&args); err != nil {
		return errorResult(err.Error()), nil
	}
	result, err := t.svc.Connections(ctx, args)
	return respond(t.logger, "connections", result, err), nil
}

type ForgetTool struct {
	svc    *service.Service
	logger *zap.Logger
}

func (t *ForgetTool) Definition() mcp.Tool {
	return mcp.NewTool("forget",
		mcp.WithDescription("Delete a memory node by ID. Cleans up back-links in connected nodes."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("ID of the node to delete")),
	)
}

func (t *ForgetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args service.ForgetRequest
	if err := req.BindArguments(&args); err != nil {
		return errorResult(err.Error()), nil
	}
	result, err := t.svc.Forget(ctx, args)
	return respond(t.logger, "forget", result, err), nil
}

type UpdateTool struct {
	svc    *service.Service
	logger *zap.Logger
}

func (t *UpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("update",
		mcp.WithDescription("Partial update of an existing memory node. Only provided fields are changed."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("ID of the node to update")),
		mcp.WithString("content", mcp.Description("New content (replaces existing)")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("New tags (replaces existing)")),
		mcp.WithArray("links", mcp.WithStringItems(), mcp.Description("New links (replaces existing, bidirectional sync applied)")),
	)
}

func (t *UpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args service.UpdateRequest
	if err := req.BindArguments(&args); err != nil {
		return errorResult(err.Error()), nil
	}
	result, err := t.svc.Update(ctx, args)
	return respond(t.logger, "update", result, err), nil
}

// respond turns an operation result into a tool result. Failures become
// isError results rather than protocol errors.
func respond(logger *zap.Logger, tool string, data any, err error) *mcp.CallToolResult {
	if err != nil {
		return errorResult(service.Message(err))
	}
	text, err := encode(data)
	if err != nil {
		logger.Error("encoding tool result", zap.String("tool", tool), zap.Error(err))
		return errorResult(err.Error())
	}
	return mcp.NewToolResultText(text)
}

// errorResult carries msg JSON-encoded, like every other tool payload.
func errorResult(msg string) *mcp.CallToolResult {
	text, err := encode(msg)
	if err != nil {
		text = msg
	}
	return mcp.NewToolResultError(text)
}

func encode(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
