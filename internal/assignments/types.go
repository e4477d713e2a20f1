package assignments

import (
	"errors"
	"fmt"
)

// MaxTasksPerRequest bounds the number of task IDs in one bulk request.
const MaxTasksPerRequest = 50

// Fatal request errors. Everything else is reported per task.
var (
	ErrMissingResponsibleUser = errors.New("responsibleUser is required for assign and reassign operations")
	ErrInvalidOperation       = errors.New("operation must be one of assign, unassign, reassign")
	ErrInvalidTaskCount       = fmt.Errorf("taskIds must contain between 1 and %d task IDs", MaxTasksPerRequest)
)

// ResolvedUser is the outcome of resolving a free-form identifier.
type ResolvedUser struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// Assignment is a candidate binding of a task in a project to a user
// identifier that has not been resolved yet. TaskID is empty when
// validating for a task that does not exist yet.
type Assignment struct {
	TaskID         string
	ProjectID      string
	ResponsibleUID string
}

// ErrorType classifies a failed validation.
type ErrorType string

const (
	ErrorUserNotFound      ErrorType = "USER_NOT_FOUND"
	ErrorUserNotCollab     ErrorType = "USER_NOT_COLLABORATOR"
	ErrorProjectNotShared  ErrorType = "PROJECT_NOT_SHARED"
	ErrorTaskNotAccessible ErrorType = "TASK_NOT_ACCESSIBLE"
	ErrorPermissionDenied  ErrorType = "PERMISSION_DENIED"
	ErrorProjectNotFound   ErrorType = "PROJECT_NOT_FOUND"
	ErrorTaskNotFound      ErrorType = "TASK_NOT_FOUND"
)

// ValidationError explains why an assignment is invalid and how to fix it.
type ValidationError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Suggestions []string  `json:"suggestions,omitempty"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidationResult is the verdict for one Assignment.
type ValidationResult struct {
	IsValid      bool             `json:"isValid"`
	ResolvedUser *ResolvedUser    `json:"resolvedUser,omitempty"`
	Error        *ValidationError `json:"error,omitempty"`
	TaskID       string           `json:"taskId,omitempty"`
	ProjectID    string           `json:"projectId,omitempty"`
}

// Operation is a bulk assignment operation.
type Operation string

const (
	OperationAssign   Operation = "assign"
	OperationUnassign Operation = "unassign"
	OperationReassign Operation = "reassign"
)

// Operations lists the valid operations in schema order.
var Operations = []Operation{OperationAssign, OperationUnassign, OperationReassign}

// ParseOperation validates s as an Operation.
func ParseOperation(s string) (Operation, error) {
	for _, op := range Operations {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w, got %q", ErrInvalidOperation, s)
}

// NeedsResponsibleUser reports whether the operation assigns someone.
func (o Operation) NeedsResponsibleUser() bool {
	return o == OperationAssign || o == OperationReassign
}

// Request is the input of a bulk assignment run.
type Request struct {
	Operation        Operation
	TaskIDs          []string
	ResponsibleUser  string
	FromAssigneeUser string
	DryRun           bool
}

// OperationResult is the outcome for a single task of a bulk run.
type OperationResult struct {
	TaskID             string  `json:"taskId"`
	Success            bool    `json:"success"`
	Error              string  `json:"error,omitempty"`
	OriginalAssigneeID *string `json:"originalAssigneeId,omitempty"`
	NewAssigneeID      *string `json:"newAssigneeId,omitempty"`
}

// Report is the aggregated outcome of a bulk run.
//
// Failed is always TotalRequested minus Successful, so tasks excluded by the
// reassign pre-filter count towards it even though they have no entry in
// Results. Skipped reports how many tasks the pre-filter excluded.
type Report struct {
	Operation      Operation         `json:"operation"`
	Results        []OperationResult `json:"results"`
	TotalRequested int               `json:"totalRequested"`
	Successful     int               `json:"successful"`
	Failed         int               `json:"failed"`
	Skipped        int               `json:"skipped"`
	DryRun         bool              `json:"dryRun"`
}
