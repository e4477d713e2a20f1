// Package resources registers the MCP resources served next to the tools.
//
// todoist://projects/{projectId}/collaborators returns the assignable
// collaborators of a project as JSON, read through the UserResolver cache.
package resources
