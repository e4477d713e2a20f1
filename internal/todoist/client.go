package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/teemow/todoist-mcp/internal/instrumentation"
	"github.com/teemow/todoist-mcp/internal/logging"
)

// DefaultBaseURL is the Todoist unified API root.
const DefaultBaseURL = "https://api.todoist.com/api/v1"

// maxCollaboratorPages bounds cursor paging of a single collaborator list.
const maxCollaboratorPages = 20

// API is the subset of the Todoist API used by the assignment tools.
type API interface {
	GetTask(ctx context.Context, id string) (*Task, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (*Task, error)
	GetProject(ctx context.Context, id string) (*Project, error)
	GetProjects(ctx context.Context, query ProjectQuery) (*ProjectPage, error)
	GetProjectCollaborators(ctx context.Context, projectID string) ([]Collaborator, error)
}

var _ API = (*Client)(nil)

// Client talks to the Todoist REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
	metrics    *instrumentation.Metrics
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets the underlying transport client. The bearer token is
// layered on top of it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request debug logging.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the recorder for todoist_api_operations_total.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTimeout sets a per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a client authenticated with a personal API token.
func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("todoist: API token is required")
	}

	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		logger:     logging.NopLogger(),
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	c.httpClient = oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient), ts)

	return c, nil
}

// GetTask fetches a single task.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var task Task
	if err := c.do(ctx, instrumentation.OperationGetTask, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &task,
		attribute.String(instrumentation.SpanAttrTaskID, id)); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies patch to a task and returns the updated task.
func (c *Client) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*Task, error) {
	var task Task
	if err := c.do(ctx, instrumentation.OperationUpdateTask, http.MethodPost, "/tasks/"+url.PathEscape(id), patch, &task,
		attribute.String(instrumentation.SpanAttrTaskID, id)); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetProject fetches a single project.
func (c *Client) GetProject(ctx context.Context, id string) (*Project, error) {
	var project Project
	if err := c.do(ctx, instrumentation.OperationGetProject, http.MethodGet, "/projects/"+url.PathEscape(id), nil, &project,
		attribute.String(instrumentation.SpanAttrProjectID, id)); err != nil {
		return nil, err
	}
	return &project, nil
}

// GetProjects fetches one page of the user's projects.
func (c *Client) GetProjects(ctx context.Context, query ProjectQuery) (*ProjectPage, error) {
	params := url.Values{}
	if query.Cursor != "" {
		params.Set("cursor", query.Cursor)
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}

	path := "/projects"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var raw json.RawMessage
	if err := c.do(ctx, instrumentation.OperationListProjects, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	projects, next, err := decodeList[Project](raw)
	if err != nil {
		return nil, fmt.Errorf("todoist %s: %w", instrumentation.OperationListProjects, err)
	}
	return &ProjectPage{Results: projects, NextCursor: next}, nil
}

// GetProjectCollaborators returns every collaborator of a shared project,
// following pagination cursors.
func (c *Client) GetProjectCollaborators(ctx context.Context, projectID string) ([]Collaborator, error) {
	base := "/projects/" + url.PathEscape(projectID) + "/collaborators"

	var (
		all    []Collaborator
		cursor string
	)
	for range maxCollaboratorPages {
		path := base
		if cursor != "" {
			path += "?" + url.Values{"cursor": {cursor}}.Encode()
		}

		var raw json.RawMessage
		if err := c.do(ctx, instrumentation.OperationListCollaborator, http.MethodGet, path, nil, &raw,
			attribute.String(instrumentation.SpanAttrProjectID, projectID)); err != nil {
			return nil, err
		}

		page, next, err := decodeList[Collaborator](raw)
		if err != nil {
			return nil, fmt.Errorf("todoist %s: %w", instrumentation.OperationListCollaborator, err)
		}
		all = append(all, page...)

		if next == "" {
			return all, nil
		}
		cursor = next
	}

	c.logger.Warn("collaborator paging limit reached",
		logging.ProjectID(projectID), slog.Int("pages", maxCollaboratorPages))
	return all, nil
}

// do performs one API call. body is JSON-encoded when non-nil; out receives
// the decoded response when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any, attrs ...attribute.KeyValue) (err error) {
	ctx, span := instrumentation.StartAPISpan(ctx, op, attrs...)
	defer span.End()

	start := time.Now()
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		c.metrics.RecordAPIOperation(ctx, op, status, time.Since(start))
		c.logger.Debug("todoist request",
			logging.Operation(op),
			slog.String("method", method),
			slog.Duration(logging.KeyDuration, time.Since(start)),
			logging.Status(status),
		)
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("todoist %s: encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("todoist %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("todoist %s: %w", op, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrHTTPStatus, resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("todoist %s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("todoist %s: decode response: %w", op, err)
	}
	return nil
}
