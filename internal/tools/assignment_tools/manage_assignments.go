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

const manageAssignmentsDescription = `Assign, unassign or reassign up to 50 Todoist tasks in one call.

- assign: give every task to responsibleUser.
- unassign: remove the assignee from every task.
- reassign: give tasks to responsibleUser. With fromAssigneeUser, only tasks currently assigned to that user are changed.

Users can be given as a name, an email address or a Todoist user ID. Each task is validated independently: the project must be shared and the user must collaborate on it. Use dryRun to preview the outcome without changing anything.`

const readOnlyNote = "\n\nThis server runs in read-only mode: only dry runs are performed."

func operationNames() []string {
	names := make([]string, len(assignments.Operations))
	for i, op := range assignments.Operations {
		names[i] = string(op)
	}
	return names
}

func newManageAssignmentsTool(readOnly bool) mcp.Tool {
	description := manageAssignmentsDescription
	if readOnly {
		description += readOnlyNote
	}

	return mcp.NewTool(ManageAssignmentsToolName,
		mcp.WithDescription(description),
		mcp.WithTitleAnnotation("Manage task assignments"),
		mcp.WithReadOnlyHintAnnotation(readOnly),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Enum(operationNames()...),
			mcp.Description("The assignment operation to perform"),
		),
		mcp.WithArray("taskIds",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.MinItems(1),
			mcp.MaxItems(assignments.MaxTasksPerRequest),
			mcp.Description("IDs of the tasks to update (1-50)"),
		),
		mcp.WithString("responsibleUser",
			mcp.Description("Name, email or user ID of the new assignee. Required for assign and reassign"),
		),
		mcp.WithString("fromAssigneeUser",
			mcp.Description("For reassign: only change tasks currently assigned to this user"),
		),
		mcp.WithBoolean("dryRun",
			mcp.DefaultBool(false),
			mcp.Description("Validate and report without changing any task"),
		),
	)
}

func handleManageAssignments(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		op, err := assignments.ParseOperation(common.StringArg(args, "operation"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		taskIDs, err := common.StringSliceArg(args, "taskIds")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		req := assignments.Request{
			Operation:        op,
			TaskIDs:          taskIDs,
			ResponsibleUser:  common.StringArg(args, "responsibleUser"),
			FromAssigneeUser: common.StringArg(args, "fromAssigneeUser"),
			DryRun:           common.BoolArg(args, "dryRun", false),
		}

		if sc.ReadOnly() && !req.DryRun {
			return mcp.NewToolResultError("server is in read-only mode: set dryRun to true to preview the assignment"), nil
		}

		report, err := sc.Assignments().Run(ctx, req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return common.StructuredResult(summarizeReport(report), report), nil
	}
}

var operationTitles = map[assignments.Operation]string{
	assignments.OperationAssign:   "Assign",
	assignments.OperationUnassign: "Unassign",
	assignments.OperationReassign: "Reassign",
}

// summarizeReport renders the text digest that accompanies the structured report.
func summarizeReport(r *assignments.Report) string {
	var b strings.Builder

	if r.DryRun {
		b.WriteString("[dry run] ")
	}
	fmt.Fprintf(&b, "%s: %d of %d task(s) succeeded", operationTitles[r.Operation], r.Successful, r.TotalRequested)
	if r.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", r.Failed)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(&b, " (%d skipped: not assigned to the given user)", r.Skipped)
	}
	b.WriteString(".")

	var succeeded, failed []string
	for _, res := range r.Results {
		if !res.Success {
			failed = append(failed, fmt.Sprintf("- %s: %s", res.TaskID, res.Error))
			continue
		}
		line := "- " + res.TaskID
		if res.NewAssigneeID != nil {
			line += " -> " + *res.NewAssigneeID
		}
		succeeded = append(succeeded, line)
	}

	if len(succeeded) > 0 {
		b.WriteString("\n\nSucceeded:\n")
		b.WriteString(strings.Join(succeeded, "\n"))
	}
	if len(failed) > 0 {
		b.WriteString("\n\nFailed:\n")
		b.WriteString(strings.Join(failed, "\n"))
	}
	if r.DryRun && r.Successful > 0 {
		b.WriteString("\n\nNo tasks were changed. Run again without dryRun to apply.")
	}
	return b.String()
}
