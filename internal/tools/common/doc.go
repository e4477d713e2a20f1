// Package common holds helpers shared by the MCP tool packages: the
// instrumentation wrapper every handler is registered through, argument
// accessors and the dual text/structured result builder.
package common
