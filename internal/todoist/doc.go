// Package todoist is a small client for the Todoist REST API covering the
// calls the assignment tools need: reading and reassigning tasks, reading
// projects, and listing project collaborators.
//
// Authentication uses a personal API token sent as a bearer token through
// an oauth2 static token source. Every call is traced as todoist.<operation>
// and counted in todoist_api_operations_total. Non-2xx responses are
// returned as *APIError; use IsNotFound to detect missing resources.
package todoist
