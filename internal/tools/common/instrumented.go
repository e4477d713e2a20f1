package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/todoist-mcp/internal/instrumentation"
	"github.com/teemow/todoist-mcp/internal/logging"
	"github.com/teemow/todoist-mcp/internal/server"
)

// InstrumentedToolHandler wraps a tool handler with a tracing span, metrics
// and audit logging.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my-tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.NewSpanAttributeBuilder().
				WithTool(toolName).
				WithReadOnly(sc.ReadOnly()).
				Build()...,
		)
		defer span.End()

		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		start := time.Now()
		invocation := invocationFromArgs(toolName, request.GetArguments()).WithSpanContext(ctx)

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			invocation.Complete(false, nil)
			instrumentation.AddSpanEvent(span, "tool_error_result")
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		metrics.RecordToolInvocation(ctx, toolName, status, duration)
		auditLogger.LogToolInvocation(invocation)

		return result, err
	}
}

// invocationFromArgs fills the audit record from the well-known assignment
// arguments. Responsible users are hashed before they reach the record.
func invocationFromArgs(toolName string, args map[string]any) *instrumentation.ToolInvocation {
	inv := instrumentation.NewToolInvocation(toolName).WithArguments(args)
	if args == nil {
		return inv
	}

	if op := StringArg(args, "operation"); op != "" {
		inv.WithOperation(op, BoolArg(args, "dryRun", false))
	}

	taskCount := 0
	if ids, err := StringSliceArg(args, "taskIds"); err == nil {
		taskCount = len(ids)
	}
	inv.WithTargets(StringArg(args, "projectId"), taskCount)

	if user := StringArg(args, "responsibleUser"); user != "" {
		inv.WithUserHash(logging.AnonymizeIdentifier(user))
	}
	return inv
}
