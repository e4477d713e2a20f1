package assignments

import (
	"context"
	"fmt"
	"strings"

	"github.com/teemow/todoist-mcp/internal/todoist"
	"github.com/teemow/todoist-mcp/internal/tools/batch"
)

// EligibilityRequest asks whether tasks in a project can be assigned, and
// optionally whether a specific user can take them.
type EligibilityRequest struct {
	ProjectID       string
	ResponsibleUser string
	TaskIDs         []string
}

// ProjectEligibility describes the project part of an eligibility report.
type ProjectEligibility struct {
	ID                string              `json:"id"`
	Name              string              `json:"name,omitempty"`
	Accessible        bool                `json:"accessible"`
	Shared            bool                `json:"shared"`
	Kind              todoist.ProjectKind `json:"kind,omitempty"`
	CollaboratorCount int                 `json:"collaboratorCount"`
}

// UserEligibility describes the user part of an eligibility report.
type UserEligibility struct {
	Identifier     string        `json:"identifier"`
	Resolved       bool          `json:"resolved"`
	ResolvedUser   *ResolvedUser `json:"resolvedUser,omitempty"`
	IsCollaborator bool          `json:"isCollaborator"`
}

// TaskEligibility describes the task part of an eligibility report.
type TaskEligibility struct {
	Requested      int      `json:"requested"`
	Accessible     int      `json:"accessible"`
	Inaccessible   []string `json:"inaccessible,omitempty"`
	OutsideProject []string `json:"outsideProject,omitempty"`
}

// EligibilityReport is a read-only diagnosis of assignment problems.
type EligibilityReport struct {
	Project         ProjectEligibility `json:"project"`
	User            *UserEligibility   `json:"user,omitempty"`
	Tasks           *TaskEligibility   `json:"tasks,omitempty"`
	CanAssign       bool               `json:"canAssign"`
	Recommendations []string           `json:"recommendations"`
}

// GetAssignmentEligibility gathers what is known about assigning the
// requested tasks. It never mutates anything and reports problems as
// recommendations instead of errors.
func (v *Validator) GetAssignmentEligibility(ctx context.Context, req EligibilityRequest) *EligibilityReport {
	report := &EligibilityReport{
		Project:         ProjectEligibility{ID: req.ProjectID},
		Recommendations: []string{},
	}
	recommend := func(format string, args ...any) {
		report.Recommendations = append(report.Recommendations, fmt.Sprintf(format, args...))
	}

	project, err := v.api.GetProject(ctx, req.ProjectID)
	if err != nil {
		recommend("Project %s cannot be accessed (%v); check the project ID and your access", req.ProjectID, err)
	} else {
		report.Project.Name = project.Name
		report.Project.Accessible = true
		report.Project.Shared = project.IsShared
		report.Project.Kind = project.Kind
		if !project.IsShared {
			recommend("Share project %q before assigning tasks in it", project.Name)
		} else {
			report.Project.CollaboratorCount = len(v.resolver.GetProjectCollaborators(ctx, project.ID))
			if report.Project.CollaboratorCount == 0 {
				recommend("Project %q has no collaborators that can be assigned; invite someone first", project.Name)
			}
		}
	}

	if identifier := strings.TrimSpace(req.ResponsibleUser); identifier != "" {
		user := &UserEligibility{Identifier: identifier}
		report.User = user

		if resolved := v.resolver.ResolveUser(ctx, identifier); resolved != nil {
			user.Resolved = true
			user.ResolvedUser = resolved
			if report.Project.Shared {
				user.IsCollaborator = v.resolver.ValidateProjectCollaborator(ctx, req.ProjectID, resolved.UserID)
			}
			if report.Project.Shared && !user.IsCollaborator {
				recommend("Invite %s to collaborate on the project", resolved.DisplayName)
			}
		} else {
			recommend("User %q could not be resolved; try their full email address", identifier)
		}
	}

	if len(req.TaskIDs) > 0 {
		report.Tasks = v.taskEligibility(ctx, req)
		if n := len(report.Tasks.Inaccessible); n > 0 {
			recommend("%d task(s) could not be fetched: %s", n, strings.Join(report.Tasks.Inaccessible, ", "))
		}
		if n := len(report.Tasks.OutsideProject); n > 0 {
			recommend("%d task(s) belong to a different project: %s", n, strings.Join(report.Tasks.OutsideProject, ", "))
		}
	}

	report.CanAssign = report.Project.Accessible &&
		report.Project.Shared &&
		report.Project.CollaboratorCount > 0 &&
		(report.User == nil || report.User.IsCollaborator) &&
		(report.Tasks == nil || report.Tasks.Accessible == report.Tasks.Requested)

	if report.CanAssign {
		recommend("Assignment looks possible; run manage-assignments with dryRun to confirm")
	}
	return report
}

func (v *Validator) taskEligibility(ctx context.Context, req EligibilityRequest) *TaskEligibility {
	outcomes := batch.Settle(ctx, req.TaskIDs, v.concurrency, v.api.GetTask)

	tasks := &TaskEligibility{Requested: len(req.TaskIDs)}
	for i, o := range outcomes {
		switch {
		case !o.OK():
			tasks.Inaccessible = append(tasks.Inaccessible, req.TaskIDs[i])
		case o.Value.ProjectID != req.ProjectID:
			tasks.OutsideProject = append(tasks.OutsideProject, req.TaskIDs[i])
		default:
			tasks.Accessible++
		}
	}
	return tasks
}
