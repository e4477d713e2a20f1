package server

import (
	"context"
	"testing"

	"github.com/teemow/todoist-mcp/internal/instrumentation"
	"github.com/teemow/todoist-mcp/internal/logging"
	"github.com/teemow/todoist-mcp/internal/todoist/todoisttest"
)

func newTestServerContext(t *testing.T, opts ...ContextOption) (*ServerContext, *todoisttest.Fake) {
	t.Helper()
	api := todoisttest.New()
	sc, err := NewServerContext(context.Background(), api, opts...)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, api
}

func TestNewServerContext_RequiresClient(t *testing.T) {
	if _, err := NewServerContext(context.Background(), nil); err == nil {
		t.Error("NewServerContext(nil) expected error")
	}
}

func TestNewServerContext_WiresServices(t *testing.T) {
	sc, api := newTestServerContext(t, WithReadOnly(true))

	if sc.Client() != api {
		t.Error("Client() does not return the configured client")
	}
	if sc.Resolver() == nil || sc.Validator() == nil || sc.Assignments() == nil {
		t.Error("assignment services not initialised")
	}
	if !sc.ReadOnly() {
		t.Error("ReadOnly() = false, want true")
	}
	if sc.Logger() == nil {
		t.Error("Logger() returned nil")
	}
}

func TestServerContext_MetricsAndAudit(t *testing.T) {
	sc, _ := newTestServerContext(t)

	if sc.Metrics() != nil {
		t.Error("Metrics() should be nil by default")
	}
	if sc.AuditLogger() != nil {
		t.Error("AuditLogger() should be nil by default")
	}

	m := &instrumentation.Metrics{}
	audit := instrumentation.NewAuditLogger(logging.NopLogger().Logger())
	sc, _ = newTestServerContext(t, WithMetrics(m), WithAuditLogger(audit))

	if sc.Metrics() != m {
		t.Error("WithMetrics() not applied")
	}
	if sc.AuditLogger() != audit {
		t.Error("WithAuditLogger() not applied")
	}
}

func TestServerContext_Shutdown(t *testing.T) {
	sc, _ := newTestServerContext(t)

	if sc.IsShutdown() {
		t.Fatal("IsShutdown() = true before Shutdown")
	}
	if err := sc.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !sc.IsShutdown() {
		t.Error("IsShutdown() = false after Shutdown")
	}
	if sc.Context().Err() == nil {
		t.Error("context not cancelled after Shutdown")
	}
	if err := sc.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}
