package instrumentation

// Label values here are bounded so they can be used on metrics without
// blowing up series counts. Never put task IDs, project IDs or user
// identifiers on a metric.

// Todoist API operations.
const (
	OperationGetTask          = "get_task"
	OperationUpdateTask       = "update_task"
	OperationGetProject       = "get_project"
	OperationListProjects     = "list_projects"
	OperationListCollaborator = "list_collaborators"
)

// Resolver cache names.
const (
	CacheUsers         = "users"
	CacheCollaborators = "collaborators"
)

// BatchSizeBucket maps a task count to a small fixed set of labels.
//
//	BatchSizeBucket(0)   // "0"
//	BatchSizeBucket(1)   // "1"
//	BatchSizeBucket(7)   // "2-10"
//	BatchSizeBucket(50)  // "26-50"
//	BatchSizeBucket(51)  // "50+"
func BatchSizeBucket(n int) string {
	switch {
	case n <= 0:
		return "0"
	case n == 1:
		return "1"
	case n <= 10:
		return "2-10"
	case n <= 25:
		return "11-25"
	case n <= 50:
		return "26-50"
	default:
		return "50+"
	}
}
