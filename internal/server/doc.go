// Package server holds the shared state behind the MCP handlers and the
// HTTP listeners that expose them.
//
// ServerContext owns the Todoist client and the assignment services built
// on it (UserResolver, Validator and the bulk Manager), plus the metrics
// and audit sinks handlers report to.
//
// HTTPServer mounts the streamable HTTP transport at /mcp next to the
// Kubernetes probes (/healthz, /readyz, /healthz/detailed). MetricsServer
// exposes /metrics on its own port.
package server
