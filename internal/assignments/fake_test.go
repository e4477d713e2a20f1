package assignments

import (
	"sync"
	"time"

	"github.com/teemow/todoist-mcp/internal/todoist"
	"github.com/teemow/todoist-mcp/internal/todoist/todoisttest"
)

// newFakeAPI serves projects two per page so resolver tests cover paging.
func newFakeAPI() *todoisttest.Fake {
	api := todoisttest.New()
	api.SetPageSize(2)
	return api
}

func strPtr(s string) *string { return &s }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	john = todoist.Collaborator{ID: "u1", Name: "John Doe", Email: "john@x.com"}
	jane = todoist.Collaborator{ID: "u2", Name: "Jane Roe", Email: "jane@x.com"}
	bob  = todoist.Collaborator{ID: "u3", Name: "Bob Johnson", Email: "bob@y.org"}
)
