// Package assignments resolves people to Todoist user IDs, validates that a
// task can be assigned to them, and runs bulk assign, unassign and reassign
// operations over up to MaxTasksPerRequest tasks.
//
// The three layers build on each other:
//
//   - UserResolver turns a name, email or raw ID into a ResolvedUser using
//     the collaborators of every shared project. Results are cached with a
//     TTL, including failed lookups.
//   - Validator checks a single Assignment (user exists, project is shared,
//     user collaborates on it, task is reachable) and reports a typed
//     ValidationError with remediation suggestions.
//   - Manager fetches the tasks of a Request, validates them, applies or
//     simulates the updates and returns one OperationResult per task.
//
// Per-task failures never abort a batch. Only malformed requests (unknown
// operation, bad task count, missing responsible user) return an error.
package assignments
