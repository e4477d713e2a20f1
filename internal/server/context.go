package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/todoist-mcp/internal/assignments"
	"github.com/teemow/todoist-mcp/internal/instrumentation"
	"github.com/teemow/todoist-mcp/internal/todoist"
)

// ServerContext holds the shared state for all MCP tool and resource handlers.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	client    todoist.API
	resolver  *assignments.UserResolver
	validator *assignments.Validator
	manager   *assignments.Manager

	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	logger      *slog.Logger
	readOnly    bool

	mu       sync.RWMutex
	shutdown bool
}

// ContextOption configures a ServerContext.
type ContextOption func(*contextOptions)

type contextOptions struct {
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	cacheTTL    time.Duration
	readOnly    bool
}

// WithLogger sets the logger shared by the assignment services and handlers.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(o *contextOptions) { o.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) ContextOption {
	return func(o *contextOptions) { o.metrics = m }
}

// WithAuditLogger sets the audit logger used for tool invocations.
func WithAuditLogger(a *instrumentation.AuditLogger) ContextOption {
	return func(o *contextOptions) { o.auditLogger = a }
}

// WithCacheTTL sets the resolver cache lifetime.
func WithCacheTTL(ttl time.Duration) ContextOption {
	return func(o *contextOptions) { o.cacheTTL = ttl }
}

// WithReadOnly disables every tool that would modify Todoist data.
func WithReadOnly(readOnly bool) ContextOption {
	return func(o *contextOptions) { o.readOnly = readOnly }
}

// NewServerContext wires the assignment services around client.
func NewServerContext(ctx context.Context, client todoist.API, opts ...ContextOption) (*ServerContext, error) {
	if client == nil {
		return nil, fmt.Errorf("todoist client is required")
	}

	o := contextOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	svcOpts := []assignments.Option{
		assignments.WithLogger(o.logger),
		assignments.WithMetrics(o.metrics),
	}
	if o.cacheTTL > 0 {
		svcOpts = append(svcOpts, assignments.WithCacheTTL(o.cacheTTL))
	}

	resolver := assignments.NewUserResolver(client, svcOpts...)
	validator := assignments.NewValidator(client, resolver, svcOpts...)
	manager := assignments.NewManager(client, resolver, validator, svcOpts...)

	ctx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:         ctx,
		cancel:      cancel,
		client:      client,
		resolver:    resolver,
		validator:   validator,
		manager:     manager,
		metrics:     o.metrics,
		auditLogger: o.auditLogger,
		logger:      o.logger,
		readOnly:    o.readOnly,
	}, nil
}

// Context returns the server context. It is cancelled on Shutdown and when
// the parent passed to NewServerContext ends.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Client returns the Todoist API client.
func (sc *ServerContext) Client() todoist.API {
	return sc.client
}

// Resolver returns the user resolver.
func (sc *ServerContext) Resolver() *assignments.UserResolver {
	return sc.resolver
}

// Validator returns the assignment validator.
func (sc *ServerContext) Validator() *assignments.Validator {
	return sc.validator
}

// Assignments returns the bulk assignment manager.
func (sc *ServerContext) Assignments() *assignments.Manager {
	return sc.manager
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// ReadOnly reports whether write operations are disabled.
func (sc *ServerContext) ReadOnly() bool {
	return sc.readOnly
}

// Metrics returns the metrics recorder, or nil when instrumentation is off.
// The assignment services record into the same recorder; it is fixed at
// construction through WithMetrics.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil when auditing is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// IsShutdown reports whether Shutdown has been called.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and drops cached resolutions.
// It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	sc.resolver.ClearCache()
	return nil
}
