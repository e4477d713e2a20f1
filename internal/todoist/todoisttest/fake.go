// Package todoisttest provides an in-memory todoist.API for tests.
package todoisttest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/teemow/todoist-mcp/internal/instrumentation"
	"github.com/teemow/todoist-mcp/internal/todoist"
)

// Fake is a concurrency-safe in-memory todoist.API. The zero value is not
// usable; create one with New.
type Fake struct {
	mu sync.Mutex

	tasks         map[string]*todoist.Task
	projects      []todoist.Project
	collaborators map[string][]todoist.Collaborator

	taskErrors         map[string]error
	updateErrors       map[string]error
	collaboratorErrors map[string]error
	projectsErr        error

	pageSize int
	latency  func(op, id string) time.Duration

	updates           []string
	patches           []todoist.TaskPatch
	calls             map[string]int
	collaboratorCalls map[string]int
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		tasks:              make(map[string]*todoist.Task),
		collaborators:      make(map[string][]todoist.Collaborator),
		taskErrors:         make(map[string]error),
		updateErrors:       make(map[string]error),
		collaboratorErrors: make(map[string]error),
		calls:              make(map[string]int),
		collaboratorCalls:  make(map[string]int),
	}
}

// AddProject adds a personal project with the given collaborators.
func (f *Fake) AddProject(id, name string, shared bool, collaborators ...todoist.Collaborator) {
	f.PutProject(todoist.Project{
		ID:       id,
		Name:     name,
		IsShared: shared,
		Kind:     todoist.ProjectKindPersonal,
		Personal: &todoist.PersonalProject{},
	}, collaborators...)
}

// PutProject adds p as is, for projects AddProject cannot describe.
func (f *Fake) PutProject(p todoist.Project, collaborators ...todoist.Collaborator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects = append(f.projects, p)
	f.collaborators[p.ID] = collaborators
}

// SetCollaborators replaces the collaborators of projectID.
func (f *Fake) SetCollaborators(projectID string, collaborators ...todoist.Collaborator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collaborators[projectID] = collaborators
}

// AddTask adds a task. An empty assignee leaves it unassigned.
func (f *Fake) AddTask(id, projectID, assignee string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &todoist.Task{ID: id, Content: "Task " + id, ProjectID: projectID}
	if assignee != "" {
		t.AssigneeID = &assignee
	}
	f.tasks[id] = t
}

// FailTask makes every GetTask for id return err. A nil err clears it.
func (f *Fake) FailTask(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	setOrClear(f.taskErrors, id, err)
}

// FailUpdate makes every UpdateTask for id return err. A nil err clears it.
func (f *Fake) FailUpdate(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	setOrClear(f.updateErrors, id, err)
}

// FailCollaborators makes GetProjectCollaborators for projectID return err.
// A nil err clears it.
func (f *Fake) FailCollaborators(projectID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	setOrClear(f.collaboratorErrors, projectID, err)
}

// FailProjects makes GetProjects return err. A nil err clears it.
func (f *Fake) FailProjects(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projectsErr = err
}

// SetPageSize makes GetProjects return at most n projects per page. Zero
// serves everything on one page.
func (f *Fake) SetPageSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageSize = n
}

// SetLatency delays every call by fn(op, id). op is the instrumentation
// operation name; id is the task or project ID, or "" for GetProjects.
func (f *Fake) SetLatency(fn func(op, id string) time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = fn
}

// Assignee returns the current assignee of task id, or "".
func (f *Fake) Assignee(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[id]; ok {
		return t.Assignee()
	}
	return ""
}

// Updates returns the IDs of every task passed to UpdateTask, in call order.
func (f *Fake) Updates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.updates...)
}

// Patches returns every patch passed to UpdateTask, in call order.
func (f *Fake) Patches() []todoist.TaskPatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]todoist.TaskPatch(nil), f.patches...)
}

// Calls returns how often the operation op was invoked, failures included.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// CollaboratorCalls returns how often the collaborators of projectID were listed.
func (f *Fake) CollaboratorCalls(projectID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collaboratorCalls[projectID]
}

// NotFound returns the error the real client reports for a 404.
func NotFound(op string) error {
	return &todoist.APIError{Op: op, StatusCode: http.StatusNotFound}
}

func setOrClear(m map[string]error, key string, err error) {
	if err == nil {
		delete(m, key)
		return
	}
	m[key] = err
}

// begin waits out the configured latency and counts the call.
func (f *Fake) begin(ctx context.Context, op, id string) error {
	f.mu.Lock()
	latency := f.latency
	f.mu.Unlock()

	if latency != nil {
		if d := latency(op, id); d > 0 {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
	return nil
}

func (f *Fake) GetTask(ctx context.Context, id string) (*todoist.Task, error) {
	if err := f.begin(ctx, instrumentation.OperationGetTask, id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.taskErrors[id]; err != nil {
		return nil, err
	}
	t, ok := f.tasks[id]
	if !ok {
		return nil, NotFound(instrumentation.OperationGetTask)
	}
	c := *t
	return &c, nil
}

func (f *Fake) UpdateTask(ctx context.Context, id string, patch todoist.TaskPatch) (*todoist.Task, error) {
	if err := f.begin(ctx, instrumentation.OperationUpdateTask, id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updates = append(f.updates, id)
	f.patches = append(f.patches, patch)
	if err := f.updateErrors[id]; err != nil {
		return nil, err
	}
	t, ok := f.tasks[id]
	if !ok {
		return nil, NotFound(instrumentation.OperationUpdateTask)
	}
	switch {
	case patch.Assignee.IsClear():
		t.AssigneeID = nil
	case patch.Assignee.IsSet():
		uid := patch.Assignee.UserID()
		t.AssigneeID = &uid
	}
	c := *t
	return &c, nil
}

func (f *Fake) GetProject(ctx context.Context, id string) (*todoist.Project, error) {
	if err := f.begin(ctx, instrumentation.OperationGetProject, id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.projects {
		if p.ID == id {
			c := p
			return &c, nil
		}
	}
	return nil, NotFound(instrumentation.OperationGetProject)
}

// GetProjects pages through the projects with "offset-N" cursors.
func (f *Fake) GetProjects(ctx context.Context, q todoist.ProjectQuery) (*todoist.ProjectPage, error) {
	if err := f.begin(ctx, instrumentation.OperationListProjects, ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.projectsErr != nil {
		return nil, f.projectsErr
	}

	start := 0
	if q.Cursor != "" {
		if _, err := fmt.Sscanf(q.Cursor, "offset-%d", &start); err != nil {
			return nil, err
		}
	}
	start = min(start, len(f.projects))
	end := len(f.projects)
	if f.pageSize > 0 {
		end = min(start+f.pageSize, end)
	}

	page := &todoist.ProjectPage{Results: append([]todoist.Project(nil), f.projects[start:end]...)}
	if end < len(f.projects) {
		page.NextCursor = fmt.Sprintf("offset-%d", end)
	}
	return page, nil
}

func (f *Fake) GetProjectCollaborators(ctx context.Context, projectID string) ([]todoist.Collaborator, error) {
	if err := f.begin(ctx, instrumentation.OperationListCollaborator, projectID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.collaboratorCalls[projectID]++
	if err := f.collaboratorErrors[projectID]; err != nil {
		return nil, err
	}
	collaborators, ok := f.collaborators[projectID]
	if !ok {
		return nil, NotFound(instrumentation.OperationListCollaborator)
	}
	return append([]todoist.Collaborator(nil), collaborators...), nil
}

var _ todoist.API = (*Fake)(nil)
