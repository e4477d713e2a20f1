package assignments

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teemow/todoist-mcp/internal/logging"
	"github.com/teemow/todoist-mcp/internal/todoist"
	"github.com/teemow/todoist-mcp/internal/tools/batch"
)

// Validator decides whether assignments can be carried out.
type Validator struct {
	api         todoist.API
	resolver    *UserResolver
	logger      *slog.Logger
	concurrency int
}

// NewValidator creates a Validator that resolves users through resolver.
func NewValidator(api todoist.API, resolver *UserResolver, opts ...Option) *Validator {
	s := newSettings(opts)
	return &Validator{
		api:         api,
		resolver:    resolver,
		logger:      s.logger,
		concurrency: s.concurrency,
	}
}

// ValidateAssignment runs the checks for a, stopping at the first failure:
// the user resolves, the project exists and is shared, the user collaborates
// on that project, and the task (if any) can be fetched.
func (v *Validator) ValidateAssignment(ctx context.Context, a Assignment) ValidationResult {
	result := ValidationResult{TaskID: a.TaskID, ProjectID: a.ProjectID}

	user := v.resolver.ResolveUser(ctx, a.ResponsibleUID)
	if user == nil {
		result.Error = userNotFound(a.ResponsibleUID)
		return result
	}
	result.ResolvedUser = user

	project, err := v.api.GetProject(ctx, a.ProjectID)
	if err != nil {
		result.Error = projectError(a.ProjectID, err)
		return result
	}
	if !project.IsShared {
		result.Error = projectNotShared(project)
		return result
	}
	if project.Workspace != nil && !project.Workspace.CanAssignTasks {
		result.Error = &ValidationError{
			Type:    ErrorPermissionDenied,
			Message: fmt.Sprintf("You are not allowed to assign tasks in workspace project %q", project.Name),
			Suggestions: []string{
				"Ask a workspace admin to grant you permission to assign tasks",
				"Assign the task from an account with a higher workspace role",
			},
		}
		return result
	}

	if !v.resolver.ValidateProjectCollaborator(ctx, a.ProjectID, user.UserID) {
		result.Error = &ValidationError{
			Type:    ErrorUserNotCollab,
			Message: fmt.Sprintf("%s is not a collaborator on project %q", user.DisplayName, project.Name),
			Suggestions: []string{
				"Invite the user to collaborate on this project first",
				"Use find-project-collaborators to see who can be assigned",
				"Move the task to a project the user already collaborates on",
			},
		}
		return result
	}

	if a.TaskID != "" {
		if _, err := v.api.GetTask(ctx, a.TaskID); err != nil {
			result.Error = taskError(a.TaskID, err)
			return result
		}
	}

	result.IsValid = true
	return result
}

// ValidateBulkAssignment validates every assignment concurrently. The result
// at index i belongs to assignments[i].
func (v *Validator) ValidateBulkAssignment(ctx context.Context, assignments []Assignment) []ValidationResult {
	outcomes := batch.Settle(ctx, assignments, v.concurrency, func(ctx context.Context, a Assignment) (ValidationResult, error) {
		return v.ValidateAssignment(ctx, a), nil
	})

	results := make([]ValidationResult, len(outcomes))
	for i, o := range outcomes {
		if !o.OK() {
			// Only reachable when ctx is done before the item started.
			results[i] = ValidationResult{
				TaskID:    assignments[i].TaskID,
				ProjectID: assignments[i].ProjectID,
				Error:     &ValidationError{Type: ErrorPermissionDenied, Message: o.Err.Error()},
			}
			continue
		}
		results[i] = o.Value
	}
	return results
}

// ValidateTaskCreationAssignment validates assigning a not yet created task
// in projectID.
func (v *Validator) ValidateTaskCreationAssignment(ctx context.Context, projectID, responsibleUID string) ValidationResult {
	return v.ValidateAssignment(ctx, Assignment{ProjectID: projectID, ResponsibleUID: responsibleUID})
}

// ValidateTaskUpdateAssignment validates changing the assignee of an existing
// task. A nil responsibleUID is an unassignment and is always valid.
func (v *Validator) ValidateTaskUpdateAssignment(ctx context.Context, taskID string, responsibleUID *string) ValidationResult {
	if responsibleUID == nil {
		return ValidationResult{IsValid: true, TaskID: taskID}
	}

	task, err := v.api.GetTask(ctx, taskID)
	if err != nil {
		return ValidationResult{TaskID: taskID, Error: taskError(taskID, err)}
	}

	return v.ValidateAssignment(ctx, Assignment{
		TaskID:         taskID,
		ProjectID:      task.ProjectID,
		ResponsibleUID: *responsibleUID,
	})
}

func userNotFound(identifier string) *ValidationError {
	return &ValidationError{
		Type:    ErrorUserNotFound,
		Message: fmt.Sprintf("User %q not found among collaborators of your shared projects", identifier),
		Suggestions: []string{
			"Check the spelling of the name or email",
			"Make sure the user collaborates on at least one shared project",
			"Try the user's full email address",
		},
	}
}

func projectNotShared(project *todoist.Project) *ValidationError {
	return &ValidationError{
		Type:    ErrorProjectNotShared,
		Message: fmt.Sprintf("Project %q is not shared, tasks can only be assigned in shared projects", project.Name),
		Suggestions: []string{
			"Share the project with the user first",
			"Move the task to a shared project",
		},
	}
}

func projectError(projectID string, err error) *ValidationError {
	if todoist.IsNotFound(err) {
		return &ValidationError{
			Type:    ErrorProjectNotFound,
			Message: fmt.Sprintf("Project %s not found", projectID),
			Suggestions: []string{
				"Check the project ID",
				"Make sure the project has not been deleted or archived",
			},
		}
	}
	return &ValidationError{
		Type:    ErrorPermissionDenied,
		Message: fmt.Sprintf("Cannot access project %s: %v", projectID, err),
		Suggestions: []string{
			"Check that your API token has access to this project",
			"Retry the operation in a moment",
		},
	}
}

func taskError(taskID string, err error) *ValidationError {
	if todoist.IsForbidden(err) {
		return &ValidationError{
			Type:    ErrorTaskNotAccessible,
			Message: fmt.Sprintf("Task %s is not accessible", taskID),
			Suggestions: []string{
				"Check that you still have access to the task's project",
				"Ask the project owner to share the project with you",
			},
		}
	}
	return &ValidationError{
		Type:    ErrorTaskNotFound,
		Message: fmt.Sprintf("Task %s not found or not accessible", taskID),
		Suggestions: []string{
			"Check the task ID",
			"Make sure the task has not been completed or deleted",
		},
	}
}

func logValidationFailure(logger *slog.Logger, r ValidationResult) {
	if r.Error == nil {
		return
	}
	logger.Debug("assignment rejected",
		logging.TaskID(r.TaskID),
		logging.ProjectID(r.ProjectID),
		slog.String("reason", string(r.Error.Type)),
	)
}
