package todoist

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), testToken, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := NewClient(context.Background(), "  ")
	assert.Error(t, err)
}

func TestClient_GetTask(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/tasks/t1", r.URL.Path)
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"id":"t1","content":"Write report","project_id":"p1","responsible_uid":"u1"}`)
	})

	task, err := c.GetTask(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, "Write report", task.Content)
	assert.Equal(t, "p1", task.ProjectID)
	assert.Equal(t, "u1", task.Assignee())
}

func TestClient_GetTask_LegacyAssigneeField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"t1","project_id":"p1","assignee_id":"u9"}`)
	})

	task, err := c.GetTask(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "u9", task.Assignee())
}

func TestClient_GetTask_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Task not found", http.StatusNotFound)
	})

	_, err := c.GetTask(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsForbidden(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "get_task", apiErr.Op)
	assert.Equal(t, "Task not found", apiErr.Message)
}

func TestClient_UpdateTask(t *testing.T) {
	tests := []struct {
		name     string
		patch    TaskPatch
		wantBody map[string]any
	}{
		{
			name:     "set assignee",
			patch:    TaskPatch{Assignee: SetAssignee("u1")},
			wantBody: map[string]any{"assignee_id": "u1"},
		},
		{
			name:     "clear assignee sends null",
			patch:    TaskPatch{Assignee: ClearAssignee()},
			wantBody: map[string]any{"assignee_id": nil},
		},
		{
			name:     "unset assignee is omitted",
			patch:    TaskPatch{},
			wantBody: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/tasks/t1", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, tt.wantBody, body)

				_, _ = io.WriteString(w, `{"id":"t1","project_id":"p1"}`)
			})

			task, err := c.UpdateTask(context.Background(), "t1", tt.patch)
			require.NoError(t, err)
			assert.Equal(t, "t1", task.ID)
		})
	}
}

func TestClient_UpdateTask_Forbidden(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.UpdateTask(context.Background(), "t1", TaskPatch{Assignee: SetAssignee("u1")})
	require.Error(t, err)
	assert.True(t, IsForbidden(err))
	assert.Contains(t, err.Error(), "403 Forbidden")
}

func TestClient_GetProject_Kinds(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind ProjectKind
		check    func(t *testing.T, p *Project)
	}{
		{
			name:     "personal",
			body:     `{"id":"p1","name":"Home","is_shared":true,"parent_id":"p0","inbox_project":false}`,
			wantKind: ProjectKindPersonal,
			check: func(t *testing.T, p *Project) {
				require.NotNil(t, p.Personal)
				assert.Nil(t, p.Workspace)
				assert.Equal(t, "p0", p.Personal.ParentID)
			},
		},
		{
			name:     "workspace",
			body:     `{"id":"p2","name":"Team","is_shared":true,"workspace_id":"w1","folder_id":"f1","is_invite_only":true,"role":"ADMIN"}`,
			wantKind: ProjectKindWorkspace,
			check: func(t *testing.T, p *Project) {
				require.NotNil(t, p.Workspace)
				assert.Nil(t, p.Personal)
				assert.Equal(t, "w1", p.Workspace.WorkspaceID)
				assert.Equal(t, "f1", p.Workspace.FolderID)
				assert.True(t, p.Workspace.IsInviteOnly)
				assert.True(t, p.Workspace.CanAssignTasks)
			},
		},
		{
			name:     "empty workspace id is personal",
			body:     `{"id":"p3","name":"Solo","workspace_id":""}`,
			wantKind: ProjectKindPersonal,
			check:    func(t *testing.T, p *Project) { assert.False(t, p.IsShared) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})

			p, err := c.GetProject(context.Background(), "p")
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, p.Kind)
			tt.check(t, p)
		})
	}
}

func TestProject_MarshalRoundTripKeepsKind(t *testing.T) {
	in := Project{
		ID:        "p2",
		Name:      "Team",
		IsShared:  true,
		Kind:      ProjectKindWorkspace,
		Workspace: &WorkspaceProject{WorkspaceID: "w1", CanAssignTasks: false},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Project
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, ProjectKindWorkspace, out.Kind)
	assert.False(t, out.Workspace.CanAssignTasks)
}

func TestClient_GetProjects(t *testing.T) {
	t.Run("envelope with cursor", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/projects", r.URL.Path)
			assert.Equal(t, "abc", r.URL.Query().Get("cursor"))
			assert.Equal(t, "50", r.URL.Query().Get("limit"))
			_, _ = io.WriteString(w, `{"results":[{"id":"p1","name":"A","is_shared":true}],"next_cursor":"def"}`)
		})

		page, err := c.GetProjects(context.Background(), ProjectQuery{Cursor: "abc", Limit: 50})
		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		assert.Equal(t, "p1", page.Results[0].ID)
		assert.Equal(t, "def", page.NextCursor)
	})

	t.Run("bare array", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.URL.RawQuery)
			_, _ = io.WriteString(w, `[{"id":"p1","name":"A"},{"id":"p2","name":"B"}]`)
		})

		page, err := c.GetProjects(context.Background(), ProjectQuery{})
		require.NoError(t, err)
		assert.Len(t, page.Results, 2)
		assert.Empty(t, page.NextCursor)
	})
}

func TestClient_GetProjectCollaborators_Pages(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/projects/p1/collaborators", r.URL.Path)
		switch r.URL.Query().Get("cursor") {
		case "":
			_, _ = io.WriteString(w, `{"results":[{"id":"u1","name":"John Doe","email":"john@x.com"}],"next_cursor":"page2"}`)
		case "page2":
			_, _ = io.WriteString(w, `{"results":[{"id":"u2","name":"Jane Roe","email":"jane@x.com"}],"next_cursor":null}`)
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	})

	collaborators, err := c.GetProjectCollaborators(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []Collaborator{
		{ID: "u1", Name: "John Doe", Email: "john@x.com"},
		{ID: "u2", Name: "Jane Roe", Email: "jane@x.com"},
	}, collaborators)
}

func TestClient_GetProjectCollaborators_BareArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"u1","name":"John Doe","email":"john@x.com"}]`)
	})

	collaborators, err := c.GetProjectCollaborators(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, collaborators, 1)
}

func TestClient_InvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":`)
	})

	_, err := c.GetTask(context.Background(), "t1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
	assert.False(t, IsNotFound(err))
}

func TestCollaborator_Complete(t *testing.T) {
	assert.True(t, Collaborator{ID: "u1", Name: "A", Email: "a@x.com"}.Complete())
	assert.False(t, Collaborator{ID: "u1", Name: "A"}.Complete())
	assert.False(t, Collaborator{Name: "A", Email: "a@x.com"}.Complete())
}

func TestAssigneeChange(t *testing.T) {
	var unset AssigneeChange
	assert.False(t, unset.IsSet())

	set := SetAssignee("u1")
	assert.True(t, set.IsSet())
	assert.False(t, set.IsClear())
	assert.Equal(t, "u1", set.UserID())

	cleared := ClearAssignee()
	assert.True(t, cleared.IsSet())
	assert.True(t, cleared.IsClear())
	assert.Empty(t, cleared.UserID())
}
