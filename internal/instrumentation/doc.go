// Package instrumentation provides OpenTelemetry instrumentation for the
// todoist-mcp server.
//
// # Metrics
//
// MCP tool metrics:
//   - mcp_tool_invocations_total: Counter of tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of tool execution durations
//
// Todoist API metrics:
//   - todoist_api_operations_total: Counter of API calls by operation and status
//   - todoist_api_operation_duration_seconds: Histogram of API call durations
//
// Assignment metrics:
//   - assignment_operations_total: Counter of per-task assignment outcomes by
//     operation (assign, unassign, reassign), status and dry-run flag
//   - resolver_cache_lookups_total: Counter of resolver cache lookups by cache and result
//
// HTTP metrics (streamable-http transport only):
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>) and Todoist API
// calls (todoist.<operation>).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: todoist-mcp)
package instrumentation
