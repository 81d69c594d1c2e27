package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

const defaultCollection = "default"

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"session-buddy://stats",
			"Store Stats",
			mcplib.WithResourceDescription("Conversation/reflection/insight counts for the default collection"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleStatsResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			"session-buddy://pools",
			"Pool Health",
			mcplib.WithResourceDescription("Health status of every worker pool"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handlePoolsResource,
	)
}

func (s *Server) handleStatsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Memory == nil {
		return errResourceContents(req.Params.URI, "memory store not configured"), nil
	}
	stats, err := s.deps.Memory.GetStats(ctx, defaultCollection)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(stats)
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

func (s *Server) handlePoolsResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Pool == nil {
		return errResourceContents(req.Params.URI, "pool router not configured"), nil
	}
	health := s.deps.Pool.GetHealthStatus()
	data, err := json.Marshal(health)
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

func errResourceContents(uri, message string) []mcplib.ResourceContents {
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     `{"error":"` + message + `"}`,
		},
	}
}
