package assignment_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/todoist-mcp/internal/server"
	"github.com/teemow/todoist-mcp/internal/todoist"
	"github.com/teemow/todoist-mcp/internal/tools/common"
)

// CollaboratorList is the structured output of find-project-collaborators.
type CollaboratorList struct {
	ProjectID     string                 `json:"projectId"`
	Search        string                 `json:"search,omitempty"`
	Collaborators []todoist.Collaborator `json:"collaborators"`
	TotalCount    int                    `json:"totalCount"`
}

func newFindProjectCollaboratorsTool() mcp.Tool {
	return mcp.NewTool(FindProjectCollaboratorsToolName,
		mcp.WithDescription("List the collaborators of a shared Todoist project, i.e. the users tasks in it can be assigned to."),
		mcp.WithTitleAnnotation("Find project collaborators"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithString("projectId",
			mcp.Required(),
			mcp.Description("The project to list collaborators for"),
		),
		mcp.WithString("search",
			mcp.Description("Only return collaborators whose name or email contains this text (case-insensitive)"),
		),
	)
}

func handleFindProjectCollaborators(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		projectID := common.StringArg(args, "projectId")
		if projectID == "" {
			return mcp.NewToolResultError("projectId is required"), nil
		}
		search := common.StringArg(args, "search")

		all := sc.Resolver().GetProjectCollaborators(ctx, projectID)
		matched := filterCollaborators(all, search)

		list := CollaboratorList{
			ProjectID:     projectID,
			Search:        search,
			Collaborators: matched,
			TotalCount:    len(all),
		}
		return common.StructuredResult(summarizeCollaborators(list), list), nil
	}
}

func filterCollaborators(collaborators []todoist.Collaborator, search string) []todoist.Collaborator {
	needle := strings.ToLower(strings.TrimSpace(search))
	matched := make([]todoist.Collaborator, 0, len(collaborators))
	for _, c := range collaborators {
		if needle == "" ||
			strings.Contains(strings.ToLower(c.Name), needle) ||
			strings.Contains(strings.ToLower(c.Email), needle) {
			matched = append(matched, c)
		}
	}
	return matched
}

func summarizeCollaborators(l CollaboratorList) string {
	if l.TotalCount == 0 {
		return fmt.Sprintf("No collaborators found for project %s. The project may not be shared, or it may not exist.", l.ProjectID)
	}

	var b strings.Builder
	if l.Search != "" {
		fmt.Fprintf(&b, "%d of %d collaborator(s) in project %s match %q", len(l.Collaborators), l.TotalCount, l.ProjectID, l.Search)
	} else {
		fmt.Fprintf(&b, "%d collaborator(s) in project %s", l.TotalCount, l.ProjectID)
	}
	for _, c := range l.Collaborators {
		fmt.Fprintf(&b, "\n- %s <%s> (id: %s)", c.Name, c.Email, c.ID)
	}
	return b.String()
}
