// Package mcp implements a Model Context Protocol server exposing Repopulse
// activity analysis as an MCP tool over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/repopulse/repopulse/pkg/observability"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "repopulse"
	// serverVersion is the MCP server implementation version.
	serverVersion = "1.0.0"

	// toolCount is the expected number of registered tools.
	toolCount = 1
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics is an optional pipeline metrics recorder. Nil disables
	// per-run metrics.
	Metrics *observability.PipelineMetrics

	// CacheDir overrides where diff caches are stored.
	CacheDir string

	// CloneDir overrides where git repositories are cloned.
	CloneDir string
}

// Server wraps the MCP SDK server with Repopulse tool registrations.
type Server struct {
	inner *mcpsdk.Server
	deps  ServerDeps
	mu    sync.RWMutex
	tools []string
}

// NewServer creates a new MCP server with all Repopulse tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: serverVersion,
		},
		opts,
	)

	srv := &Server{
		inner: inner,
		deps:  deps,
		tools: make([]string, 0, toolCount),
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	err := s.inner.Run(ctx, &mcpsdk.StdioTransport{})
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// registerTools adds all Repopulse MCP tools to the server.
func (s *Server) registerTools() {
	s.registerActivityTool()
}

func (s *Server) registerActivityTool() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameActivity,
		Description: activityToolDescription,
	}, s.handleActivity)

	s.trackTool(ToolNameActivity)
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}
