package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/arbiterhq/arbiter/internal/domain/task"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.runDebateTool(),
		s.getDebateTool(),
		s.historyAnalyticsTool(),
		s.listReviewersTool(),
	)
}

func (s *Server) runDebateTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("run_debate",
		mcplib.WithDescription("Submit a task to the review council and return the consensus decision"),
		mcplib.WithString("description",
			mcplib.Required(),
			mcplib.Description("The task or change to deliberate on"),
		),
		mcplib.WithString("type",
			mcplib.Description("Task type hint, e.g. bugfix, feature, refactor"),
		),
		mcplib.WithString("context",
			mcplib.Description("Additional context given to every reviewer"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleRunDebate,
	}
}

func (s *Server) getDebateTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_debate",
		mcplib.WithDescription("Get a stored debate record by ID"),
		mcplib.WithString("debate_id",
			mcplib.Required(),
			mcplib.Description("The debate record ID to look up"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleGetDebate,
	}
}

func (s *Server) historyAnalyticsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("history_analytics",
		mcplib.WithDescription("Get aggregate approval and consensus statistics over stored debates"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleHistoryAnalytics,
	}
}

func (s *Server) listReviewersTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_reviewers",
		mcplib.WithDescription("List registered reviewers with weights, specialties, and availability"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListReviewers,
	}
}

func (s *Server) handleRunDebate(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Council == nil {
		return mcplib.NewToolResultError("council not configured"), nil
	}
	args := req.GetArguments()
	description, ok := args["description"].(string)
	if !ok || description == "" {
		return mcplib.NewToolResultError("description is required"), nil
	}
	taskType, _ := args["type"].(string)
	taskCtx, _ := args["context"].(string)

	rec, err := s.deps.Council.RunDebate(ctx, &task.Task{
		ID:          uuid.NewString(),
		Description: description,
		Type:        taskType,
		Context:     taskCtx,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("debate failed", err), nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal record", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleGetDebate(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.History == nil {
		return mcplib.NewToolResultError("history not configured"), nil
	}
	args := req.GetArguments()
	id, ok := args["debate_id"].(string)
	if !ok || id == "" {
		return mcplib.NewToolResultError("debate_id is required"), nil
	}
	rec, err := s.deps.History.Get(id)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to get debate %s", id), err,
		), nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal record", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleHistoryAnalytics(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.History == nil {
		return mcplib.NewToolResultError("history not configured"), nil
	}
	a, err := s.deps.History.Analytics(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to compute analytics", err), nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal analytics", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleListReviewers(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Reviewers == nil {
		return mcplib.NewToolResultError("council not configured"), nil
	}
	data, err := json.Marshal(s.deps.Reviewers.Reviewers(ctx))
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal reviewers", err), nil
	}
	return toolResultJSON(string(data)), nil
}
