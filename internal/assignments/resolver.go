package assignments

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/teemow/todoist-mcp/internal/cache"
	"github.com/teemow/todoist-mcp/internal/instrumentation"
	"github.com/teemow/todoist-mcp/internal/logging"
	"github.com/teemow/todoist-mcp/internal/todoist"
	"github.com/teemow/todoist-mcp/internal/tools/batch"
)

const (
	allCollaboratorsKey    = "all_collaborators"
	projectCollaboratorKey = "project_"
	userFlightKey          = "user_"

	projectPageSize = 200
	maxProjectPages = 50
)

// UserResolver resolves names, emails and raw IDs to Todoist users and
// caches project collaborator lists.
type UserResolver struct {
	api           todoist.API
	users         *cache.Cache[*ResolvedUser]
	collaborators *cache.Cache[[]todoist.Collaborator]
	logger        *slog.Logger
	metrics       *instrumentation.Metrics
	concurrency   int

	// flights collapses concurrent cache misses for the same key into one
	// API round trip.
	flights singleflight.Group
}

// Option configures the assignment services.
type Option func(*settings)

type settings struct {
	ttl         time.Duration
	clock       cache.Clock
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	concurrency int
}

func newSettings(opts []Option) settings {
	s := settings{
		ttl:         cache.DefaultTTL,
		logger:      slog.Default(),
		concurrency: MaxTasksPerRequest,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithCacheTTL sets how long resolutions and collaborator lists are cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *settings) { s.ttl = ttl }
}

// WithClock replaces the cache time source.
func WithClock(clock cache.Clock) Option {
	return func(s *settings) { s.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithConcurrency caps concurrent API calls within one fan-out step.
func WithConcurrency(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewUserResolver creates a resolver with empty caches.
func NewUserResolver(api todoist.API, opts ...Option) *UserResolver {
	s := newSettings(opts)
	cacheOpts := []cache.Option{cache.WithTTL(s.ttl), cache.WithClock(s.clock)}

	return &UserResolver{
		api:           api,
		users:         cache.New[*ResolvedUser](cacheOpts...),
		collaborators: cache.New[[]todoist.Collaborator](cacheOpts...),
		logger:        s.logger,
		metrics:       s.metrics,
		concurrency:   s.concurrency,
	}
}

// ResolveUser maps identifier to a user. It returns nil when the identifier
// is blank or matches no collaborator of any shared project. API failures
// are logged and also yield nil.
//
// Identifiers shaped like a user ID are returned as-is without an API call.
// Otherwise collaborators are matched case-insensitively in this order:
// exact name, exact email, name substring, email substring. Within a tier
// the first collaborator in list order wins.
//
// Every outcome, including nil, is cached under the trimmed identifier.
func (r *UserResolver) ResolveUser(ctx context.Context, identifier string) *ResolvedUser {
	key := strings.TrimSpace(identifier)
	if key == "" {
		return nil
	}

	if cached, ok := r.users.Get(key); ok {
		r.metrics.RecordCacheLookup(ctx, instrumentation.CacheUsers, true)
		return copyUser(cached)
	}
	r.metrics.RecordCacheLookup(ctx, instrumentation.CacheUsers, false)

	if LooksLikeUserID(key) {
		user := &ResolvedUser{UserID: key, DisplayName: key}
		r.users.Set(key, user)
		return copyUser(user)
	}

	// A cancelled caller learns nothing about the user.
	if ctx.Err() != nil {
		return nil
	}

	user, err := coalesce(ctx, &r.flights, userFlightKey+key, func(ctx context.Context) (*ResolvedUser, error) {
		if cached, ok := r.users.Get(key); ok {
			return cached, nil
		}
		user := matchCollaborator(r.allCollaborators(ctx), key)
		r.users.Set(key, user)
		if user == nil {
			r.logger.Debug("user not resolved", logging.UserHash(key))
		}
		return user, nil
	})
	if err != nil {
		return nil
	}
	return copyUser(user)
}

func matchCollaborator(collaborators []todoist.Collaborator, identifier string) *ResolvedUser {
	if len(collaborators) == 0 {
		return nil
	}

	needle := strings.ToLower(identifier)
	tiers := []func(c todoist.Collaborator) bool{
		func(c todoist.Collaborator) bool { return strings.ToLower(c.Name) == needle },
		func(c todoist.Collaborator) bool { return strings.ToLower(c.Email) == needle },
		func(c todoist.Collaborator) bool { return strings.Contains(strings.ToLower(c.Name), needle) },
		func(c todoist.Collaborator) bool { return strings.Contains(strings.ToLower(c.Email), needle) },
	}

	for _, matches := range tiers {
		for _, c := range collaborators {
			if matches(c) {
				return &ResolvedUser{UserID: c.ID, DisplayName: c.Name}
			}
		}
	}
	return nil
}

// GetProjectCollaborators returns the complete collaborator entries of a
// project. Failures are logged and yield an empty list that is not cached.
func (r *UserResolver) GetProjectCollaborators(ctx context.Context, projectID string) []todoist.Collaborator {
	key := projectCollaboratorKey + projectID
	if cached, ok := r.collaborators.Get(key); ok {
		r.metrics.RecordCacheLookup(ctx, instrumentation.CacheCollaborators, true)
		return cached
	}
	r.metrics.RecordCacheLookup(ctx, instrumentation.CacheCollaborators, false)

	collaborators, err := r.projectCollaborators(ctx, projectID)
	if err != nil {
		r.logger.Warn("failed to fetch project collaborators", logging.ProjectID(projectID), logging.Err(err))
		return []todoist.Collaborator{}
	}
	return collaborators
}

// projectCollaborators fetches the collaborators of projectID once per
// concurrent burst of callers.
func (r *UserResolver) projectCollaborators(ctx context.Context, projectID string) ([]todoist.Collaborator, error) {
	key := projectCollaboratorKey + projectID
	return coalesce(ctx, &r.flights, key, func(ctx context.Context) ([]todoist.Collaborator, error) {
		if cached, ok := r.collaborators.Get(key); ok {
			return cached, nil
		}
		return r.fetchProjectCollaborators(ctx, projectID)
	})
}

// fetchProjectCollaborators calls the API, keeps complete entries and
// caches the filtered list.
func (r *UserResolver) fetchProjectCollaborators(ctx context.Context, projectID string) ([]todoist.Collaborator, error) {
	raw, err := r.api.GetProjectCollaborators(ctx, projectID)
	if err != nil {
		return nil, err
	}

	collaborators := make([]todoist.Collaborator, 0, len(raw))
	for _, c := range raw {
		if c.Complete() {
			collaborators = append(collaborators, c)
		}
	}

	r.collaborators.Set(projectCollaboratorKey+projectID, collaborators)
	return collaborators, nil
}

// ValidateProjectCollaborator reports whether userID collaborates on projectID.
func (r *UserResolver) ValidateProjectCollaborator(ctx context.Context, projectID, userID string) bool {
	for _, c := range r.GetProjectCollaborators(ctx, projectID) {
		if c.ID == userID {
			return true
		}
	}
	return false
}

// allCollaborators returns the union of collaborators of every shared
// project, deduplicated by ID with the first occurrence kept. A project
// whose collaborators cannot be fetched is skipped.
func (r *UserResolver) allCollaborators(ctx context.Context) []todoist.Collaborator {
	if cached, ok := r.collaborators.Get(allCollaboratorsKey); ok {
		r.metrics.RecordCacheLookup(ctx, instrumentation.CacheCollaborators, true)
		return cached
	}
	r.metrics.RecordCacheLookup(ctx, instrumentation.CacheCollaborators, false)

	all, _ := coalesce(ctx, &r.flights, allCollaboratorsKey, func(ctx context.Context) ([]todoist.Collaborator, error) {
		if cached, ok := r.collaborators.Get(allCollaboratorsKey); ok {
			return cached, nil
		}
		return r.collectCollaborators(ctx), nil
	})
	return all
}

func (r *UserResolver) collectCollaborators(ctx context.Context) []todoist.Collaborator {
	projects, err := r.sharedProjects(ctx)
	if err != nil {
		r.logger.Warn("failed to list projects", logging.Err(err))
		return nil
	}

	outcomes := batch.Settle(ctx, projects, r.concurrency, func(ctx context.Context, p todoist.Project) ([]todoist.Collaborator, error) {
		return r.projectCollaborators(ctx, p.ID)
	})

	seen := make(map[string]bool)
	var all []todoist.Collaborator
	for i, o := range outcomes {
		if !o.OK() {
			r.logger.Warn("failed to fetch project collaborators", logging.ProjectID(projects[i].ID), logging.Err(o.Err))
			continue
		}
		for _, c := range o.Value {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			all = append(all, c)
		}
	}

	if ctx.Err() == nil {
		r.collaborators.Set(allCollaboratorsKey, all)
	}
	return all
}

func (r *UserResolver) sharedProjects(ctx context.Context) ([]todoist.Project, error) {
	var (
		shared []todoist.Project
		cursor string
	)
	for range maxProjectPages {
		page, err := r.api.GetProjects(ctx, todoist.ProjectQuery{Cursor: cursor, Limit: projectPageSize})
		if err != nil {
			return nil, err
		}
		for _, p := range page.Results {
			if p.IsShared {
				shared = append(shared, p)
			}
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return shared, nil
}

// ClearCache drops every cached resolution and collaborator list.
func (r *UserResolver) ClearCache() {
	r.logger.Debug("clearing resolver cache", "users", r.users.Len(), "collaborator_lists", r.collaborators.Len())
	r.users.Clear()
	r.collaborators.Clear()
}

func copyUser(u *ResolvedUser) *ResolvedUser {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// coalesce runs fn once for all concurrent callers of key. fn runs on a
// context detached from the caller's cancellation; each caller stops
// waiting when its own ctx is done.
func coalesce[T any](ctx context.Context, g *singleflight.Group, key string, fn func(context.Context) (T, error)) (T, error) {
	ch := g.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
