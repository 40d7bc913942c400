package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"arbiter://analytics",
			"History Analytics",
			mcplib.WithResourceDescription("Aggregate approval and consensus statistics over stored debates"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleAnalyticsResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			"arbiter://reviewers",
			"Reviewer Roster",
			mcplib.WithResourceDescription("Registered reviewers with weights, specialties, and availability"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleReviewersResource,
	)
}

func (s *Server) handleAnalyticsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.History == nil {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"error":"history not configured"}`,
			},
		}, nil
	}
	a, err := s.deps.History.Analytics(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleReviewersResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Reviewers == nil {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"error":"council not configured"}`,
			},
		}, nil
	}
	data, err := json.Marshal(s.deps.Reviewers.Reviewers(ctx))
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
