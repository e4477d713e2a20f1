package assignment_tools

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/todoist-mcp/internal/assignments"
	"github.com/teemow/todoist-mcp/internal/server"
	"github.com/teemow/todoist-mcp/internal/todoist"
	"github.com/teemow/todoist-mcp/internal/todoist/todoisttest"
)

var (
	john = todoist.Collaborator{ID: "1001", Name: "John Doe", Email: "john@example.com"}
	jane = todoist.Collaborator{ID: "1002", Name: "Jane Roe", Email: "jane@example.com"}
)

func newTestServerContext(t *testing.T, readOnly bool) (*server.ServerContext, *todoisttest.Fake) {
	t.Helper()

	api := todoisttest.New()
	api.AddProject("p1", "Team", true, john, jane)
	api.AddProject("p2", "Private", false)
	api.AddTask("t1", "p1", "")
	api.AddTask("t2", "p1", "")
	api.AddTask("t3", "p1", jane.ID)
	api.AddTask("t4", "p2", "")

	sc, err := server.NewServerContext(context.Background(), api, server.WithReadOnly(readOnly))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, api
}

func call(t *testing.T, handler mcpserver.ToolHandlerFunc, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "first content is not text")
	return text.Text
}

func TestRegisterAssignmentTools(t *testing.T) {
	sc, _ := newTestServerContext(t, false)
	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))

	require.NoError(t, RegisterAssignmentTools(s, sc))

	tools := s.ListTools()
	for _, name := range []string{ManageAssignmentsToolName, AssignmentEligibilityToolName, FindProjectCollaboratorsToolName} {
		assert.Contains(t, tools, name)
	}

	manage := tools[ManageAssignmentsToolName].Tool
	assert.Contains(t, manage.InputSchema.Required, "operation")
	assert.Contains(t, manage.InputSchema.Required, "taskIds")
	require.NotNil(t, manage.Annotations.ReadOnlyHint)
	assert.False(t, *manage.Annotations.ReadOnlyHint)
}

func TestManageAssignments_ReadOnlyDescription(t *testing.T) {
	tool := newManageAssignmentsTool(true)
	assert.Contains(t, tool.Description, "read-only mode")
	require.NotNil(t, tool.Annotations.ReadOnlyHint)
	assert.True(t, *tool.Annotations.ReadOnlyHint)
}

func TestManageAssignments_Assign(t *testing.T) {
	sc, api := newTestServerContext(t, false)

	result := call(t, handleManageAssignments(sc), map[string]any{
		"operation":       "assign",
		"taskIds":         []any{"t1", "t2"},
		"responsibleUser": "john@example.com",
	})
	require.False(t, result.IsError, resultText(t, result))

	report, ok := result.StructuredContent.(*assignments.Report)
	require.True(t, ok)
	assert.Equal(t, 2, report.TotalRequested)
	assert.Equal(t, 2, report.Successful)
	assert.Equal(t, 0, report.Failed)
	assert.False(t, report.DryRun)

	assert.Equal(t, john.ID, api.Assignee("t1"))
	assert.Equal(t, john.ID, api.Assignee("t2"))
	assert.Contains(t, resultText(t, result), "Assign: 2 of 2 task(s) succeeded.")
}

func TestManageAssignments_PartialFailure(t *testing.T) {
	sc, api := newTestServerContext(t, false)

	result := call(t, handleManageAssignments(sc), map[string]any{
		"operation":       "assign",
		"taskIds":         []any{"t1", "t4", "missing"},
		"responsibleUser": "John Doe",
	})
	require.False(t, result.IsError)

	report := result.StructuredContent.(*assignments.Report)
	assert.Equal(t, 3, report.TotalRequested)
	assert.Equal(t, 1, report.Successful)
	assert.Equal(t, 2, report.Failed)
	require.Len(t, report.Results, 3)
	assert.Equal(t, "t1", report.Results[0].TaskID)
	assert.Equal(t, "t4", report.Results[1].TaskID)
	assert.Equal(t, "missing", report.Results[2].TaskID)

	assert.Equal(t, []string{"t1"}, api.Updates())

	text := resultText(t, result)
	assert.Contains(t, text, "2 failed")
	assert.Contains(t, text, "- missing: ")
}

func TestManageAssignments_DryRun(t *testing.T) {
	sc, api := newTestServerContext(t, false)

	result := call(t, handleManageAssignments(sc), map[string]any{
		"operation":       "assign",
		"taskIds":         `["t1","t2"]`,
		"responsibleUser": "jane",
		"dryRun":          true,
	})
	require.False(t, result.IsError, resultText(t, result))

	report := result.StructuredContent.(*assignments.Report)
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Successful)
	require.NotNil(t, report.Results[0].NewAssigneeID)
	assert.Equal(t, jane.ID, *report.Results[0].NewAssigneeID)

	assert.Empty(t, api.Updates())
	assert.Contains(t, resultText(t, result), "[dry run]")
}

func TestManageAssignments_ReadOnly(t *testing.T) {
	sc, api := newTestServerContext(t, true)
	handler := handleManageAssignments(sc)

	result := call(t, handler, map[string]any{
		"operation": "unassign",
		"taskIds":   []any{"t3"},
	})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "read-only")

	result = call(t, handler, map[string]any{
		"operation": "unassign",
		"taskIds":   []any{"t3"},
		"dryRun":    true,
	})
	assert.False(t, result.IsError)
	assert.Empty(t, api.Updates())
	assert.Equal(t, jane.ID, api.Assignee("t3"))
}

func TestManageAssignments_Reassign(t *testing.T) {
	sc, api := newTestServerContext(t, false)

	result := call(t, handleManageAssignments(sc), map[string]any{
		"operation":        "reassign",
		"taskIds":          []any{"t1", "t3"},
		"responsibleUser":  john.ID,
		"fromAssigneeUser": "jane@example.com",
	})
	require.False(t, result.IsError, resultText(t, result))

	report := result.StructuredContent.(*assignments.Report)
	assert.Equal(t, 2, report.TotalRequested)
	assert.Equal(t, 1, report.Successful)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "t3", report.Results[0].TaskID)

	assert.Equal(t, john.ID, api.Assignee("t3"))
	assert.Equal(t, "", api.Assignee("t1"))
	assert.Contains(t, resultText(t, result), "1 skipped")
}

func TestManageAssignments_InvalidInput(t *testing.T) {
	sc, api := newTestServerContext(t, false)
	handler := handleManageAssignments(sc)

	tests := []struct {
		name    string
		args    map[string]any
		wantMsg string
	}{
		{
			name:    "unknown operation",
			args:    map[string]any{"operation": "delete", "taskIds": []any{"t1"}},
			wantMsg: "operation must be one of",
		},
		{
			name:    "missing task ids",
			args:    map[string]any{"operation": "unassign"},
			wantMsg: "taskIds is required",
		},
		{
			name:    "assign without responsible user",
			args:    map[string]any{"operation": "assign", "taskIds": []any{"t1"}},
			wantMsg: "responsibleUser",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := call(t, handler, tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.wantMsg)
		})
	}
	assert.Empty(t, api.Updates())
}

func TestManageAssignments_TooManyTasks(t *testing.T) {
	sc, api := newTestServerContext(t, false)

	ids := make([]any, assignments.MaxTasksPerRequest+1)
	for i := range ids {
		ids[i] = "t1"
	}
	result := call(t, handleManageAssignments(sc), map[string]any{
		"operation": "unassign",
		"taskIds":   ids,
	})
	assert.True(t, result.IsError)
	assert.Empty(t, api.Updates())
}

func TestAssignmentEligibility(t *testing.T) {
	sc, api := newTestServerContext(t, false)
	handler := handleAssignmentEligibility(sc)

	t.Run("eligible", func(t *testing.T) {
		result := call(t, handler, map[string]any{
			"projectId":       "p1",
			"responsibleUser": "john",
			"taskIds":         []any{"t1", "t2"},
		})
		require.False(t, result.IsError)

		report := result.StructuredContent.(*assignments.EligibilityReport)
		assert.True(t, report.CanAssign)
		assert.Equal(t, 2, report.Project.CollaboratorCount)
		require.NotNil(t, report.User)
		assert.True(t, report.User.IsCollaborator)
		assert.Contains(t, resultText(t, result), "can be assigned")
	})

	t.Run("unshared project and missing task", func(t *testing.T) {
		result := call(t, handler, map[string]any{
			"projectId": "p2",
			"taskIds":   []any{"t4", "nope"},
		})
		require.False(t, result.IsError)

		report := result.StructuredContent.(*assignments.EligibilityReport)
		assert.False(t, report.CanAssign)
		assert.False(t, report.Project.Shared)
		require.NotNil(t, report.Tasks)
		assert.Equal(t, []string{"nope"}, report.Tasks.Inaccessible)
		assert.Contains(t, resultText(t, result), "Recommendations:")
	})

	t.Run("missing project id", func(t *testing.T) {
		result := call(t, handler, map[string]any{})
		assert.True(t, result.IsError)
	})

	assert.Empty(t, api.Updates())
}

func TestFindProjectCollaborators(t *testing.T) {
	sc, _ := newTestServerContext(t, false)
	handler := handleFindProjectCollaborators(sc)

	tests := []struct {
		name      string
		args      map[string]any
		wantIDs   []string
		wantTotal int
		wantText  string
	}{
		{
			name:      "all collaborators",
			args:      map[string]any{"projectId": "p1"},
			wantIDs:   []string{john.ID, jane.ID},
			wantTotal: 2,
			wantText:  "2 collaborator(s) in project p1",
		},
		{
			name:      "search by email domain is case-insensitive",
			args:      map[string]any{"projectId": "p1", "search": "JANE@"},
			wantIDs:   []string{jane.ID},
			wantTotal: 2,
			wantText:  "1 of 2 collaborator(s)",
		},
		{
			name:      "unknown project",
			args:      map[string]any{"projectId": "unknown"},
			wantIDs:   []string{},
			wantTotal: 0,
			wantText:  "No collaborators found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := call(t, handler, tt.args)
			require.False(t, result.IsError)

			list := result.StructuredContent.(CollaboratorList)
			ids := make([]string, 0, len(list.Collaborators))
			for _, c := range list.Collaborators {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantTotal, list.TotalCount)
			assert.Contains(t, resultText(t, result), tt.wantText)
		})
	}
}
