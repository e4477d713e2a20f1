package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/todoist-mcp/internal/instrumentation"
)

const (
	// DefaultHTTPAddr is the default listen address for the streamable HTTP transport.
	DefaultHTTPAddr = ":8080"

	// MCPEndpointPath is where the streamable HTTP transport is mounted.
	MCPEndpointPath = "/mcp"
)

// HTTPServer exposes an MCP server over the streamable HTTP transport
// together with the health probes.
type HTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	health     *HealthChecker
	metrics    *instrumentation.Metrics
	httpServer *http.Server
}

// NewHTTPServer creates an HTTPServer listening on addr. metrics may be nil.
func NewHTTPServer(addr string, mcpServer *mcpserver.MCPServer, health *HealthChecker, metrics *instrumentation.Metrics) *HTTPServer {
	if addr == "" {
		addr = DefaultHTTPAddr
	}
	s := &HTTPServer{
		mcpServer: mcpServer,
		health:    health,
		metrics:   metrics,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler builds the routing tree.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.health != nil {
		s.health.RegisterHealthEndpoints(mux)
	}

	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(MCPEndpointPath),
	)
	mux.Handle(MCPEndpointPath, s.recordRequests(MCPEndpointPath, streamable))
	return mux
}

// Start blocks serving until Shutdown is called.
func (s *HTTPServer) Start() error {
	slog.Info("starting streamable HTTP server", "addr", s.httpServer.Addr, "endpoint", MCPEndpointPath)
	return s.httpServer.ListenAndServe()
}

// Shutdown marks the server not ready and stops it gracefully.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.health != nil {
		s.health.SetReady(false)
	}
	return s.httpServer.Shutdown(ctx)
}

// recordRequests records one HTTP request metric per call, labelled with
// route rather than the raw URL path.
func (s *HTTPServer) recordRequests(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, route, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps server-sent event streams working through the wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
