// Package logging holds the slog conventions shared by todoist-mcp.
//
// Attribute keys are fixed here (operation, tool, service, task_id,
// project_id, user_hash) so log queries work the same across packages.
//
//	logger := logging.WithOperation(slog.Default(), "assignments.assign")
//	logger.Debug("resolving user", logging.UserHash(identifier))
//
// Names and emails handed to the resolver come straight from the
// conversation. They are logged only as hashes, and the Todoist API token
// only through SanitizeToken.
package logging
