package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/todoist-mcp/internal/config"
	"github.com/teemow/todoist-mcp/internal/instrumentation"
	"github.com/teemow/todoist-mcp/internal/logging"
	"github.com/teemow/todoist-mcp/internal/resources"
	"github.com/teemow/todoist-mcp/internal/server"
	"github.com/teemow/todoist-mcp/internal/todoist"
	"github.com/teemow/todoist-mcp/internal/tools/assignment_tools"
)

// serveOptions holds the raw flag values. Only flags the user actually set
// override the loaded configuration.
type serveOptions struct {
	configFile     string
	transport      string
	httpAddr       string
	debug          bool
	readOnly       bool
	metricsEnabled bool
	metricsAddr    string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server with the Todoist assignment tools.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport at /mcp, with health probes

Authentication:
  Set TODOIST_API_TOKEN to a Todoist personal API token.

Configuration precedence: flags > environment > config file > defaults.

Read-only mode:
  With --read-only, manage-assignments only performs dry runs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	bindServeFlags(cmd, opts)
	return cmd
}

func bindServeFlags(cmd *cobra.Command, opts *serveOptions) {
	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "Path to a YAML config file")
	flags.StringVar(&opts.transport, "transport", config.TransportStdio, "Transport type: stdio or streamable-http")
	flags.StringVar(&opts.httpAddr, "http-addr", config.DefaultHTTPAddr, "HTTP server address (for streamable-http transport)")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&opts.readOnly, "read-only", false, "Only allow dry runs of write operations")
	flags.BoolVar(&opts.metricsEnabled, "metrics-enabled", true, "Serve Prometheus metrics on a dedicated port (streamable-http only)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", config.DefaultMetricsAddr, "Metrics server address")
}

// loadConfig layers explicitly set flags over config.Load and validates the result.
func loadConfig(cmd *cobra.Command, opts *serveOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Server.Transport = opts.transport
	}
	if flags.Changed("http-addr") {
		cfg.Server.HTTPAddr = opts.httpAddr
	}
	if flags.Changed("debug") {
		cfg.Server.Debug = opts.debug
	}
	if flags.Changed("read-only") {
		cfg.Server.ReadOnly = opts.readOnly
	}
	if flags.Changed("metrics-enabled") {
		cfg.Metrics.Enabled = opts.metricsEnabled
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = opts.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	shutdownCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout carries the stdio protocol, so logs always go to stderr.
	logger := logging.NewLogger(os.Stderr, cfg.Server.Debug)
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(flushCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	client, err := todoist.NewClient(shutdownCtx, cfg.Todoist.APIToken,
		todoist.WithBaseURL(cfg.Todoist.BaseURL),
		todoist.WithTimeout(cfg.Todoist.Timeout),
		todoist.WithLogger(logging.NewSlogAdapter(logging.WithService(logger, instrumentation.ServiceTodoist))),
		todoist.WithMetrics(provider.Metrics()),
	)
	if err != nil {
		return fmt.Errorf("failed to create todoist client: %w", err)
	}

	contextOpts := []server.ContextOption{
		server.WithLogger(logger),
		server.WithCacheTTL(cfg.Todoist.CacheTTL),
		server.WithReadOnly(cfg.Server.ReadOnly),
	}
	if provider.Enabled() {
		contextOpts = append(contextOpts,
			server.WithMetrics(provider.Metrics()),
			server.WithAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)),
		)
	}

	serverContext, err := server.NewServerContext(shutdownCtx, client, contextOpts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	mcpSrv, err := newMCPServer(serverContext)
	if err != nil {
		return err
	}

	logger.Info("starting todoist-mcp",
		"version", version,
		"transport", cfg.Server.Transport,
		"read_only", cfg.Server.ReadOnly,
		"token", logging.SanitizeToken(cfg.Todoist.APIToken),
	)

	switch cfg.Server.Transport {
	case config.TransportStdio:
		return runStdioServer(mcpSrv)
	case config.TransportStreamableHTTP:
		return runStreamableHTTPServer(mcpSrv, serverContext, cfg, provider, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", cfg.Server.Transport)
	}
}

// newMCPServer creates the MCP server with every tool and resource registered.
func newMCPServer(sc *server.ServerContext) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("todoist-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)

	if err := assignment_tools.RegisterAssignmentTools(mcpSrv, sc); err != nil {
		return nil, fmt.Errorf("failed to register assignment tools: %w", err)
	}
	resources.RegisterResources(mcpSrv, sc)

	return mcpSrv, nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// runStreamableHTTPServer serves until the server context ends, which
// happens on a shutdown signal or on ServerContext.Shutdown.
func runStreamableHTTPServer(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, cfg *config.Config, provider *instrumentation.Provider, logger *slog.Logger) error {
	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && provider.ServesPrometheus() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	httpServer := server.NewHTTPServer(cfg.Server.HTTPAddr, mcpSrv, server.NewHealthChecker(sc, version), sc.Metrics())

	serverDone := make(chan error, 2)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}()
	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverDone <- fmt.Errorf("metrics server stopped with error: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-sc.Context().Done():
		logger.Info("shutdown signal received, stopping HTTP server")
	case runErr = <-serverDone:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("error shutting down HTTP server: %w", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("error shutting down metrics server: %w", err))
		}
	}

	if len(errs) == 0 {
		logger.Info("HTTP server gracefully stopped", "timeout", server.DefaultShutdownTimeout.String())
	}
	return errors.Join(errs...)
}
