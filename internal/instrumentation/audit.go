package instrumentation

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation captures one MCP tool call for the audit log.
//
// Task and project IDs are logged as-is. Responsible-user identifiers are
// never stored here; callers hash them with logging.AnonymizeIdentifier first.
type ToolInvocation struct {
	Tool string

	// Target information
	Operation string // assign, unassign, reassign for manage-assignments
	ProjectID string
	TaskCount int
	DryRun    bool
	UserHash  string

	// Raw arguments, only logged when enabled in AuditLoggingConfig
	Arguments map[string]any

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete when the tool finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithOperation sets the assignment operation and dry-run flag.
func (ti *ToolInvocation) WithOperation(operation string, dryRun bool) *ToolInvocation {
	ti.Operation = operation
	ti.DryRun = dryRun
	return ti
}

// WithTargets records how many tasks and which project a call touched.
func (ti *ToolInvocation) WithTargets(projectID string, taskCount int) *ToolInvocation {
	ti.ProjectID = projectID
	ti.TaskCount = taskCount
	return ti
}

// WithUserHash sets the anonymized responsible-user identifier.
func (ti *ToolInvocation) WithUserHash(hash string) *ToolInvocation {
	ti.UserHash = hash
	return ti
}

// WithArguments attaches the raw tool arguments.
func (ti *ToolInvocation) WithArguments(args map[string]any) *ToolInvocation {
	ti.Arguments = args
	return ti
}

// WithSpanContext copies trace and span IDs from the span in ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

// Complete marks the invocation as finished and computes its duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteWithError marks the invocation as failed.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the structured log attributes for the invocation.
// Empty optional fields are omitted.
func (ti *ToolInvocation) LogAttrs(includeArguments bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if ti.Operation != "" {
		attrs = append(attrs, slog.String("operation", ti.Operation), slog.Bool("dry_run", ti.DryRun))
	}
	if ti.ProjectID != "" {
		attrs = append(attrs, slog.String("project_id", ti.ProjectID))
	}
	if ti.TaskCount > 0 {
		attrs = append(attrs, slog.Int("task_count", ti.TaskCount))
	}
	if ti.UserHash != "" {
		attrs = append(attrs, slog.String("user_hash", ti.UserHash))
	}
	if includeArguments && len(ti.Arguments) > 0 {
		if raw, err := json.Marshal(ti.Arguments); err == nil {
			attrs = append(attrs, slog.String("arguments", string(raw)))
		}
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}

	return attrs
}

// AuditLogger writes one structured record per tool invocation.
type AuditLogger struct {
	logger           *slog.Logger
	includeArguments bool
	enabled          bool
}

// NewAuditLogger creates an enabled AuditLogger that omits raw arguments.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates an AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:           logger,
		includeArguments: config.IncludeArguments,
		enabled:          config.Enabled,
	}
}

// LogToolInvocation logs ti at info level on success and warn level on failure.
// A nil AuditLogger logs nothing.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	level := slog.LevelInfo
	msg := "tool_executed"
	if !ti.Success {
		level = slog.LevelWarn
		msg = "tool_failed"
	}

	al.logger.LogAttrs(context.Background(), level, msg, ti.LogAttrs(al.includeArguments)...)
}
