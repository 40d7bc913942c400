// Package mcp exposes the deliberation engine over the Model Context
// Protocol so agent clients can run debates and inspect outcomes.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/arbiterhq/arbiter/internal/domain/debate"
	"github.com/arbiterhq/arbiter/internal/domain/task"
	"github.com/arbiterhq/arbiter/internal/service"
)

// DebateRunner runs a full council debate for a task.
type DebateRunner interface {
	RunDebate(ctx context.Context, t *task.Task) (*debate.Record, error)
}

// HistoryReader reads stored debate records and their aggregate summary.
type HistoryReader interface {
	Get(id string) (*debate.Record, error)
	Analytics(ctx context.Context) (*service.HistoryAnalytics, error)
}

// ReviewerLister reports the registered roster with live availability.
type ReviewerLister interface {
	Reviewers(ctx context.Context) []service.ReviewerInfo
}

// ServerConfig holds the MCP server identity and listen address.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  string // empty disables auth
}

// ServerDeps are the collaborators tools delegate to. Nil collaborators
// make the corresponding tools return an error result instead of failing
// at startup.
type ServerDeps struct {
	Council   DebateRunner
	History   HistoryReader
	Reviewers ReviewerLister
}

// Server hosts the MCP tool surface over streamable HTTP.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	httpSrv   *http.Server
	log       *slog.Logger
}

// NewServer creates an MCP server with all tools and resources registered.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		log:  slog.Default(),
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithResourceCapabilities(false, true),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server, mainly for tests.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Start begins serving MCP over streamable HTTP. It returns immediately;
// listen errors are logged.
func (s *Server) Start() error {
	var handler http.Handler = mcpserver.NewStreamableHTTPServer(s.mcpServer)
	handler = AuthMiddleware(s.cfg.APIKey, handler)

	s.httpSrv = &http.Server{Addr: s.cfg.Addr, Handler: handler}
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("mcp server failed", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP listener.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func toolResultJSON(data string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(data)
}
