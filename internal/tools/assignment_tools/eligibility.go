package assignment_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/todoist-mcp/internal/assignments"
	"github.com/teemow/todoist-mcp/internal/server"
	"github.com/teemow/todoist-mcp/internal/tools/common"
)

func newAssignmentEligibilityTool() mcp.Tool {
	return mcp.NewTool(AssignmentEligibilityToolName,
		mcp.WithDescription("Explain whether tasks in a project can be assigned, and to whom. Checks that the project is shared, that the user resolves and collaborates on it, and that the tasks are accessible. Changes nothing."),
		mcp.WithTitleAnnotation("Check assignment eligibility"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("projectId",
			mcp.Required(),
			mcp.Description("The project the tasks belong to"),
		),
		mcp.WithString("responsibleUser",
			mcp.Description("Name, email or user ID of the intended assignee"),
		),
		mcp.WithArray("taskIds",
			mcp.WithStringItems(),
			mcp.MaxItems(assignments.MaxTasksPerRequest),
			mcp.Description("Optional task IDs to check (up to 50)"),
		),
	)
}

func handleAssignmentEligibility(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		projectID := common.StringArg(args, "projectId")
		if projectID == "" {
			return mcp.NewToolResultError("projectId is required"), nil
		}

		req := assignments.EligibilityRequest{
			ProjectID:       projectID,
			ResponsibleUser: common.StringArg(args, "responsibleUser"),
		}
		if _, ok := args["taskIds"]; ok {
			ids, err := common.StringSliceArg(args, "taskIds")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if len(ids) > assignments.MaxTasksPerRequest {
				return mcp.NewToolResultError(fmt.Sprintf("at most %d taskIds can be checked at once, got %d", assignments.MaxTasksPerRequest, len(ids))), nil
			}
			req.TaskIDs = ids
		}

		report := sc.Validator().GetAssignmentEligibility(ctx, req)
		return common.StructuredResult(summarizeEligibility(report), report), nil
	}
}

func summarizeEligibility(r *assignments.EligibilityReport) string {
	var b strings.Builder

	name := r.Project.ID
	if r.Project.Name != "" {
		name = fmt.Sprintf("%q (%s)", r.Project.Name, r.Project.ID)
	}
	if r.CanAssign {
		fmt.Fprintf(&b, "Tasks in project %s can be assigned.", name)
	} else {
		fmt.Fprintf(&b, "Tasks in project %s cannot be assigned as requested.", name)
	}

	if r.Project.Accessible {
		fmt.Fprintf(&b, "\nProject: shared=%t, collaborators=%d", r.Project.Shared, r.Project.CollaboratorCount)
	}
	if u := r.User; u != nil {
		if u.Resolved {
			fmt.Fprintf(&b, "\nUser: %s (%s), collaborator=%t", u.ResolvedUser.DisplayName, u.ResolvedUser.UserID, u.IsCollaborator)
		} else {
			b.WriteString("\nUser: not found")
		}
	}
	if t := r.Tasks; t != nil {
		fmt.Fprintf(&b, "\nTasks: %d of %d accessible in this project", t.Accessible, t.Requested)
	}

	if len(r.Recommendations) > 0 {
		b.WriteString("\n\nRecommendations:")
		for _, rec := range r.Recommendations {
			b.WriteString("\n- " + rec)
		}
	}
	return b.String()
}
