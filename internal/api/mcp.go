package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/taskchat/internal/assistant"
	"github.com/kalambet/taskchat/internal/validate"
)

const recentQueriesLimit = 10

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Service *assistant.Service
	Version string
}

// NewMCPServer creates an MCP server exposing the chat, feedback and stats
// flows as tools and the recent queries as a resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"taskchat",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("taskchat: task-typed assistant. Inputs must start with the bracket tag of their task type, e.g. [question]."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("chat",
			mcp.WithDescription("Ask the assistant. The input must start with [question], [summary], [creative] or [advice] matching task_type."),
			mcp.WithString("input", mcp.Description("User input, starting with the task tag"), mcp.Required()),
			mcp.WithString("task_type", mcp.Description("One of question, summary, creative, advice"), mcp.Required()),
		),
		mcpChat(deps),
	)

	s.AddTool(
		mcp.NewTool("feedback",
			mcp.WithDescription("Mark a previous answer as helpful or not."),
			mcp.WithNumber("id", mcp.Description("Query id returned by chat"), mcp.Required()),
			mcp.WithBoolean("is_helpful", mcp.Description("Whether the answer helped"), mcp.Required()),
		),
		mcpFeedback(deps),
	)

	s.AddTool(
		mcp.NewTool("get_stats",
			mcp.WithDescription("Read the counters and success rate of a session."),
			mcp.WithString("session_id", mcp.Description("Session identifier"), mcp.Required()),
		),
		mcpGetStats(deps),
	)

	s.AddTool(
		mcp.NewTool("update_stats",
			mcp.WithDescription("Overwrite the counters of a session."),
			mcp.WithString("session_id", mcp.Description("Session identifier"), mcp.Required()),
			mcp.WithNumber("queries_count", mcp.Description("Number of queries issued"), mcp.Required()),
			mcp.WithNumber("helpful_count", mcp.Description("Number of queries marked helpful"), mcp.Required()),
		),
		mcpUpdateStats(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"queries://recent",
			"Recent Queries",
			mcp.WithResourceDescription("Last 10 recorded queries, newest first"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

// rawArg re-encodes a tool argument so it goes through the same validation as
// an HTTP body. A missing argument yields a nil message.
func rawArg(req mcp.CallToolRequest, name string) json.RawMessage {
	v, ok := req.GetArguments()[name]
	if !ok {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func mcpChat(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := deps.Service.Chat(ctx, validate.ChatPayload{
			Input:    rawArg(req, "input"),
			TaskType: rawArg(req, "task_type"),
		})
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(res)
	}
}

func mcpFeedback(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := deps.Service.Feedback(validate.FeedbackPayload{
			ID:        rawArg(req, "id"),
			IsHelpful: rawArg(req, "is_helpful"),
		})
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(fmt.Sprintf("Marked query %d as helpful=%t", q.ID, *q.IsHelpful)), nil
	}
}

func mcpGetStats(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		return mcpJSON(deps.Service.Stats(sessionID))
	}
}

func mcpUpdateStats(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		queries, err := req.RequireInt("queries_count")
		if err != nil {
			return mcpError("queries_count is required"), nil
		}
		helpful, err := req.RequireInt("helpful_count")
		if err != nil {
			return mcpError("helpful_count is required"), nil
		}

		sum, err := deps.Service.UpdateStats(sessionID, assistant.StatsUpdate{
			QueriesCount: queries,
			HelpfulCount: helpful,
		})
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(sum)
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Service.Recent(recentQueriesLimit))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal queries: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
