package todoist

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Task is a Todoist task.
type Task struct {
	ID          string  `json:"id"`
	Content     string  `json:"content"`
	Description string  `json:"description,omitempty"`
	ProjectID   string  `json:"project_id"`
	SectionID   string  `json:"section_id,omitempty"`
	ParentID    string  `json:"parent_id,omitempty"`
	AssigneeID  *string `json:"responsible_uid"`
	AssignerID  *string `json:"assigned_by_uid,omitempty"`
	Checked     bool    `json:"checked"`
	Priority    int     `json:"priority,omitempty"`
	URL         string  `json:"url,omitempty"`
}

// UnmarshalJSON accepts the assignee under responsible_uid or the older
// assignee_id field.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	var raw struct {
		plain
		LegacyAssigneeID *string `json:"assignee_id"`
		LegacyAssignerID *string `json:"assigner_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Task(raw.plain)
	if t.AssigneeID == nil {
		t.AssigneeID = raw.LegacyAssigneeID
	}
	if t.AssignerID == nil {
		t.AssignerID = raw.LegacyAssignerID
	}
	return nil
}

// Assignee returns the assignee ID, or "" when the task is unassigned.
func (t *Task) Assignee() string {
	if t.AssigneeID == nil {
		return ""
	}
	return *t.AssigneeID
}

// ProjectKind discriminates personal projects from workspace projects.
type ProjectKind string

const (
	ProjectKindPersonal  ProjectKind = "personal"
	ProjectKindWorkspace ProjectKind = "workspace"
)

// Project is a Todoist project. Kind is decided when decoding: projects that
// carry a workspace_id are workspace projects and have Workspace set, all
// others are personal projects and have Personal set.
type Project struct {
	ID         string
	Name       string
	Color      string
	IsShared   bool
	IsFavorite bool
	IsArchived bool
	ViewStyle  string
	Kind       ProjectKind

	Personal  *PersonalProject
	Workspace *WorkspaceProject
}

// PersonalProject holds fields only present on personal projects.
type PersonalProject struct {
	ParentID     string
	InboxProject bool
}

// WorkspaceProject holds fields only present on workspace projects.
type WorkspaceProject struct {
	WorkspaceID    string
	FolderID       string
	IsInviteOnly   bool
	Role           string
	CanAssignTasks bool
}

type projectWire struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Color          string  `json:"color,omitempty"`
	IsShared       bool    `json:"is_shared"`
	IsFavorite     bool    `json:"is_favorite"`
	IsArchived     bool    `json:"is_archived"`
	ViewStyle      string  `json:"view_style,omitempty"`
	ParentID       *string `json:"parent_id,omitempty"`
	InboxProject   bool    `json:"inbox_project,omitempty"`
	WorkspaceID    *string `json:"workspace_id,omitempty"`
	FolderID       *string `json:"folder_id,omitempty"`
	IsInviteOnly   *bool   `json:"is_invite_only,omitempty"`
	Role           string  `json:"role,omitempty"`
	CanAssignTasks *bool   `json:"can_assign_tasks,omitempty"`
}

// UnmarshalJSON decodes either project shape into the tagged representation.
func (p *Project) UnmarshalJSON(data []byte) error {
	var w projectWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*p = Project{
		ID:         w.ID,
		Name:       w.Name,
		Color:      w.Color,
		IsShared:   w.IsShared,
		IsFavorite: w.IsFavorite,
		IsArchived: w.IsArchived,
		ViewStyle:  w.ViewStyle,
	}

	if w.WorkspaceID != nil && *w.WorkspaceID != "" {
		p.Kind = ProjectKindWorkspace
		p.Workspace = &WorkspaceProject{
			WorkspaceID:    *w.WorkspaceID,
			FolderID:       deref(w.FolderID),
			IsInviteOnly:   w.IsInviteOnly != nil && *w.IsInviteOnly,
			Role:           w.Role,
			CanAssignTasks: w.CanAssignTasks == nil || *w.CanAssignTasks,
		}
		return nil
	}

	p.Kind = ProjectKindPersonal
	p.Personal = &PersonalProject{
		ParentID:     deref(w.ParentID),
		InboxProject: w.InboxProject,
	}
	return nil
}

// MarshalJSON writes the wire shape back out.
func (p Project) MarshalJSON() ([]byte, error) {
	w := projectWire{
		ID:         p.ID,
		Name:       p.Name,
		Color:      p.Color,
		IsShared:   p.IsShared,
		IsFavorite: p.IsFavorite,
		IsArchived: p.IsArchived,
		ViewStyle:  p.ViewStyle,
	}
	switch {
	case p.Workspace != nil:
		w.WorkspaceID = &p.Workspace.WorkspaceID
		if p.Workspace.FolderID != "" {
			w.FolderID = &p.Workspace.FolderID
		}
		w.IsInviteOnly = &p.Workspace.IsInviteOnly
		w.Role = p.Workspace.Role
		w.CanAssignTasks = &p.Workspace.CanAssignTasks
	case p.Personal != nil:
		if p.Personal.ParentID != "" {
			w.ParentID = &p.Personal.ParentID
		}
		w.InboxProject = p.Personal.InboxProject
	}
	return json.Marshal(w)
}

// Collaborator is a user who has access to a shared project.
type Collaborator struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Complete reports whether id, name and email are all set.
func (c Collaborator) Complete() bool {
	return c.ID != "" && c.Name != "" && c.Email != ""
}

// ProjectQuery selects a page of projects.
type ProjectQuery struct {
	Cursor string
	Limit  int
}

// ProjectPage is one page of projects. NextCursor is empty on the last page.
type ProjectPage struct {
	Results    []Project
	NextCursor string
}

type assigneeState int

const (
	assigneeUnset assigneeState = iota
	assigneeSet
	assigneeClear
)

// AssigneeChange is a tri-state assignee update: leave unchanged, set to a
// user, or clear. The zero value leaves the assignee unchanged.
type AssigneeChange struct {
	state assigneeState
	id    string
}

// SetAssignee assigns the task to userID.
func SetAssignee(userID string) AssigneeChange {
	return AssigneeChange{state: assigneeSet, id: userID}
}

// ClearAssignee removes the task's assignee.
func ClearAssignee() AssigneeChange {
	return AssigneeChange{state: assigneeClear}
}

// IsSet reports whether the change modifies the assignee at all.
func (a AssigneeChange) IsSet() bool { return a.state != assigneeUnset }

// IsClear reports whether the change removes the assignee.
func (a AssigneeChange) IsClear() bool { return a.state == assigneeClear }

// UserID returns the new assignee, or "" for unset and clear changes.
func (a AssigneeChange) UserID() string { return a.id }

// TaskPatch is a partial task update. An unset assignee is not sent.
type TaskPatch struct {
	Assignee AssigneeChange
}

// MarshalJSON encodes only the fields being changed. A cleared assignee is
// sent as an explicit null.
func (p TaskPatch) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, 1)
	switch p.Assignee.state {
	case assigneeSet:
		fields["assignee_id"] = p.Assignee.id
	case assigneeClear:
		fields["assignee_id"] = nil
	}
	return json.Marshal(fields)
}

// listEnvelope is the paginated list shape.
type listEnvelope[T any] struct {
	Results    []T     `json:"results"`
	NextCursor *string `json:"next_cursor"`
}

// decodeList accepts a bare JSON array or a {"results": [...]} envelope.
func decodeList[T any](data []byte) ([]T, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, "", nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, "", fmt.Errorf("decode list: %w", err)
		}
		return items, "", nil
	}

	var env listEnvelope[T]
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, "", fmt.Errorf("decode list: %w", err)
	}
	return env.Results, deref(env.NextCursor), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
