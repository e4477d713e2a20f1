// Package assignment_tools registers the Todoist task assignment tools:
// manage-assignments for bulk assign, unassign and reassign runs,
// get-assignment-eligibility for read-only diagnosis, and
// find-project-collaborators for looking up who can be assigned.
package assignment_tools
