package assignments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/todoist-mcp/internal/instrumentation"
	"github.com/teemow/todoist-mcp/internal/todoist/todoisttest"
)

func newTestManager(api *todoisttest.Fake) *Manager {
	resolver := NewUserResolver(api)
	return NewManager(api, resolver, NewValidator(api, resolver))
}

func resultsByTask(report *Report) map[string]OperationResult {
	out := make(map[string]OperationResult, len(report.Results))
	for _, r := range report.Results {
		out[r.TaskID] = r
	}
	return out
}

func TestRequest_Validate(t *testing.T) {
	tooMany := make([]string, MaxTasksPerRequest+1)
	for i := range tooMany {
		tooMany[i] = "t"
	}

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{name: "assign ok", req: Request{Operation: OperationAssign, TaskIDs: []string{"t1"}, ResponsibleUser: "john"}},
		{name: "unassign needs no user", req: Request{Operation: OperationUnassign, TaskIDs: []string{"t1"}}},
		{name: "assign without user", req: Request{Operation: OperationAssign, TaskIDs: []string{"t1"}}, wantErr: ErrMissingResponsibleUser},
		{name: "reassign with blank user", req: Request{Operation: OperationReassign, TaskIDs: []string{"t1"}, ResponsibleUser: "  "}, wantErr: ErrMissingResponsibleUser},
		{name: "unknown operation", req: Request{Operation: "delete", TaskIDs: []string{"t1"}}, wantErr: ErrInvalidOperation},
		{name: "no tasks", req: Request{Operation: OperationUnassign}, wantErr: ErrInvalidTaskCount},
		{name: "too many tasks", req: Request{Operation: OperationUnassign, TaskIDs: tooMany}, wantErr: ErrInvalidTaskCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestManager_MissingResponsibleUserTouchesNothing(t *testing.T) {
	api := newFakeAPI()
	api.AddTask("t1", "p1", "")

	report, err := newTestManager(api).Run(context.Background(), Request{Operation: OperationReassign, TaskIDs: []string{"t1"}})

	assert.ErrorIs(t, err, ErrMissingResponsibleUser)
	assert.Nil(t, report)
	assert.Zero(t, api.Calls(instrumentation.OperationGetTask))
	assert.Zero(t, len(api.Updates()))
}

func TestManager_AssignThreeValidTasks(t *testing.T) {
	api := newFakeAPI()
	api.AddProject("p1", "Team", true, john)
	for _, id := range []string{"t1", "t2", "t3"} {
		api.AddTask(id, "p1", "")
	}

	report, err := newTestManager(api).Run(context.Background(), Request{
		Operation:       OperationAssign,
		TaskIDs:         []string{"t1", "t2", "t3"},
		ResponsibleUser: "john@x.com",
	})
	require.NoError(t, err)

	assert.Equal(t, OperationAssign, report.Operation)
	assert.Equal(t, 3, report.TotalRequested)
	assert.Equal(t, 3, report.Successful)
	assert.Equal(t, 0, report.Failed)
	assert.False(t, report.DryRun)

	patches := api.Patches()
	require.Len(t, patches, 3)
	for _, p := range patches {
		assert.True(t, p.Assignee.IsSet())
		assert.False(t, p.Assignee.IsClear())
		assert.Equal(t, "u1", p.Assignee.UserID())
	}
	for _, r := range report.Results {
		assert.True(t, r.Success)
		require.NotNil(t, r.NewAssigneeID)
		assert.Equal(t, "u1", *r.NewAssigneeID)
		assert.Nil(t, r.OriginalAssigneeID)
	}
}

func TestManager_PartialFetchFailure(t *testing.T) {
	api := newFakeAPI()
	api.AddProject("p1", "Team", true, john)
	api.AddTask("t1", "p1", "")
	api.AddTask("t3", "p1", "")
	api.FailTask("t2", errors.New("network down"))

	report, err := newTestManager(api).Run(context.Background(), Request{
		Operation:       OperationAssign,
		TaskIDs:         []string{"t1", "t2", "t3"},
		ResponsibleUser: "John Doe",
	})
	require.NoError(t, err)

	require.Len(t, report.Results, 3)
	byTask := resultsByTask(report)
	assert.True(t, byTask["t1"].Success)
	assert.True(t, byTask["t3"].Success)
	assert.False(t, byTask["t2"].Success)
	assert.Equal(t, "Task not found or not accessible", byTask["t2"].Error)
	assert.Equal(t, 2, report.Successful)
	assert.Equal(t, 1, report.Failed)

	// fetch errors come last
	assert.Equal(t, "t2", report.Results[2].TaskID)
}

func TestManager_AllFetchesFail(t *testing.T) {
	api := newFakeAPI()

	report, err := newTestManager(api).Run(context.Background(), Request{
		Operation:       OperationAssign,
		TaskIDs:         []string{"a", "b"},
		ResponsibleUser: "John Doe",
	})
	require.NoError(t, err)

	assert.Len(t, report.Results, 2)
	assert.Equal(t, 0, report.Successful)
	assert.Equal(t, 2, report.Failed)
	assert.Zero(t, api.Calls(instrumentation.OperationListProjects), "no validation after all fetches failed")
}

func TestManager_ResultOrdering(t *testing.T) {
	api := newFakeAPI()
	api.AddProject("p1", "Team", true, john)
	api.AddProject("p2", "Mine", false)
	api.AddTask("ok", "p1", "")
	api.AddTask("unshared", "p2", "")

	report, err := newTestManager(api).Run(context.Background(), Request{
		Operation:       OperationAssign,
		TaskIDs:         []string{"missing", "unshared", "ok"},
		ResponsibleUser: "John Doe",
	})
	require.NoError(t, err)

	require.Len(t, report.Results, 3)
	assert.Equal(t, "ok", report.Results[0].TaskID)
	assert.Equal(t, "unshared", report.Results[1].TaskID)
	assert.Contains(t, report.Results[1].Error, "not shared")
	assert.Equal(t, "missing", report.Results[2].TaskID)
}

func TestManager_ValidationFailureNotUpdated(t *testing.T) {
	api := newFakeAPI()
	api.AddProject("p1", "Team", true, jane)
	api.AddProject("p2", "Other", true, john)
	api.AddTask("t1", "p1", "")

	report, err := newTestManager(api).Run(context.Background(), Request{
		Operation:       OperationAssign,
		TaskIDs:         []string{"t1"},
		ResponsibleUser: "John Doe",
	})
	require.NoError(t, err)

	assert.Zero(t, len(api.Updates()))
	require.Len(t, report.Results, 1)
	assert.False(t, report.Results[0].Success)
	assert.Contains(t, report.Results[0].Error, "not a collaborator")
}

func TestManager_UpdateFailureIsolated(t *testing.T) {
	api := newFakeAPI()
	api.AddProject("p1", "Team", true, john)
	api.AddTask("t1", "p1", "")
	api.AddTask("t2", "p1", "")
	api.FailUpdate("t2", errors.New("rate limited"))

	report, err := newTestManager(api).Run(context.Background(), Request{
		Operation:       OperationAssign,
		TaskIDs:         []string{"t1", "t2"},
		ResponsibleUser: "John Doe",
	})
	require.NoError(t, err)

	byTask := resultsByTask(report)
	assert.True(t, byTask["t1"].Success)
	assert.False(t, byTask["t2"].Success)
	assert.Equal(t, "rate limited", byTask["t2"].Error)
	assert.Equal(t, 1, report.Successful)
	assert.Equal(t, 1, report.Failed)
}

func TestManager_DryRunHasNoSideEffects(t *testing.T) {
	for _, op := range []Operation{OperationAssign, OperationUnassign, OperationReassign} {
		t.Run(string(op), func(t *testing.T) {
			api := newFakeAPI()
			api.AddProject("p1", "Team", true, john, jane)
			api.AddTask("t1", "p1", "u2")
			api.AddTask("t2", "p1", "")

			report, err := newTestManager(api).Run(context.Background(), Request{
				Operation:       op,
				TaskIDs:         []string{"t1", "t2"},
				ResponsibleUser: "John Doe",
				DryRun:          true,
			})
			require.NoError(t, err)

			assert.Zero(t, len(api.Updates()))
			assert.True(t, report.DryRun)
			assert.Equal(t, 2, report.Successful)
			for _, r := range report.Results {
				assert.True(t, r.Success)
			}
		})
	}
}

func TestManager_DryRunReportsValidationFailures(t *testing.T) {
	api := newFakeAPI()
	api.AddProject("p1", "Team", true, john)
	api.AddTask("t1", "p1", "")

	report, err := newTestManager(api).Run(context.Background(), Request{
		Operation:       OperationAssign,
		TaskIDs:         []string{"t1"},
		ResponsibleUser: "nobody@x.com",
		DryRun:          true,
	})
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.False(t, report.Results[0].Success)
	assert.Contains(t, report.Results[0].Error, "not found")
}

func TestManager_Unassign(t *testing.T) {
	api := newFakeAPI()
	api.AddTask("t1", "p1", "u1")
	api.AddTask("t2", "p1", "")

	report, err := newTestManager(api).Run(context.Background(), Request{
		Operation: OperationUnassign,
		TaskIDs:   []string{"t1", "t2"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Successful, "unassigning an unassigned task succeeds")
	assert.Zero(t, api.Calls(instrumentation.OperationListProjects), "unassign skips validation")
	patches := api.Patches()
	require.Len(t, patches, 2)
	for _, p := range patches {
		assert.True(t, p.Assignee.IsClear())
	}

	byTask := resultsByTask(report)
	require.NotNil(t, byTask["t1"].OriginalAssigneeID)
	assert.Equal(t, "u1", *byTask["t1"].OriginalAssigneeID)
	assert.Nil(t, byTask["t1"].NewAssigneeID)
}

func TestManager_UnassignFailureKeepsOriginalAssignee(t *testing.T) {
	api := newFakeAPI()
	api.AddTask("t1", "p1", "u1")
	api.FailUpdate("t1", errors.New("forbidden"))

	report, err := newTestManager(api).Run(context.Background(), Request{Operation: OperationUnassign, TaskIDs: []string{"t1"}})
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	r := report.Results[0]
	assert.False(t, r.Success)
	assert.Equal(t, "forbidden", r.Error)
	require.NotNil(t, r.OriginalAssigneeID)
	assert.Equal(t, "u1", *r.OriginalAssigneeID)
}

func TestManager_ReassignPreFilter(t *testing.T) {
	api := newFakeAPI()
	api.AddProject("p1", "Team", true, john, jane, bob)
	api.AddTask("t1", "p1", "u2")
	api.AddTask("t2", "p1", "u3")
	api.AddTask("t3", "p1", "u2")

	report, err := newTestManager(api).Run(context.Background(), Request{
		Operation:        OperationReassign,
		TaskIDs:          []string{"t1", "t2", "t3"},
		ResponsibleUser:  "John Doe",
		FromAssigneeUser: "jane@x.com",
	})
	require.NoError(t, err)

	assert.Len(t, report.Results, 2)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Successful)
	assert.Equal(t, 3, report.TotalRequested)
	assert.Equal(t, 1, report.Failed, "failed is totalRequested minus successful")

	byTask := resultsByTask(report)
	assert.NotContains(t, byTask, "t2")
	require.NotNil(t, byTask["t1"].OriginalAssigneeID)
	assert.Equal(t, "u2", *byTask["t1"].OriginalAssigneeID)
	assert.Equal(t, "u1", *byTask["t1"].NewAssigneeID)
}

func TestManager_ReassignFromUserAssignedToNothing(t *testing.T) {
	api := newFakeAPI()
	api.AddProject("p1", "Team", true, john, jane, bob)
	for _, id := range []string{"t1", "t2", "t3"} {
		api.AddTask(id, "p1", "u2")
	}

	report, err := newTestManager(api).Run(context.Background(), Request{
		Operation:        OperationReassign,
		TaskIDs:          []string{"t1", "t2", "t3"},
		ResponsibleUser:  "John Doe",
		FromAssigneeUser: "Bob Johnson",
	})
	require.NoError(t, err)

	assert.Empty(t, report.Results)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 0, report.Successful)
	assert.Zero(t, len(api.Updates()))
}

func TestManager_ReassignUnresolvableFromUser(t *testing.T) {
	api := newFakeAPI()
	api.AddProject("p1", "Team", true, john, jane)
	api.AddTask("t1", "p1", "u2")

	report, err := newTestManager(api).Run(context.Background(), Request{
		Operation:        OperationReassign,
		TaskIDs:          []string{"t1"},
		ResponsibleUser:  "John Doe",
		FromAssigneeUser: "Nobody",
	})
	require.NoError(t, err)

	assert.Empty(t, report.Results)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, len(api.Updates()))
}

func TestManager_ReassignWithoutFromUser(t *testing.T) {
	api := newFakeAPI()
	api.AddProject("p1", "Team", true, john, jane)
	api.AddTask("t1", "p1", "u2")
	api.AddTask("t2", "p1", "")

	report, err := newTestManager(api).Run(context.Background(), Request{
		Operation:       OperationReassign,
		TaskIDs:         []string{"t1", "t2"},
		ResponsibleUser: "John Doe",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Successful)
	assert.Zero(t, report.Skipped)
}

func TestManager_ConcurrentValidationSharesLookups(t *testing.T) {
	api := newFakeAPI()
	api.AddProject("p1", "Team", true, john)
	taskIDs := make([]string, MaxTasksPerRequest)
	for i := range taskIDs {
		taskIDs[i] = fmt.Sprintf("t%d", i)
		api.AddTask(taskIDs[i], "p1", "")
	}
	api.SetLatency(func(op, _ string) time.Duration {
		if op == instrumentation.OperationListProjects || op == instrumentation.OperationListCollaborator {
			return 20 * time.Millisecond
		}
		return 0
	})

	report, err := newTestManager(api).Run(context.Background(), Request{
		Operation:       OperationAssign,
		TaskIDs:         taskIDs,
		ResponsibleUser: "John Doe",
		DryRun:          true,
	})
	require.NoError(t, err)

	assert.Equal(t, MaxTasksPerRequest, report.Successful)
	assert.Equal(t, 1, api.Calls(instrumentation.OperationListProjects))
	assert.Equal(t, 1, api.CollaboratorCalls("p1"))
}
