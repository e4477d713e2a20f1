package assignments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teemow/todoist-mcp/internal/instrumentation"
	"github.com/teemow/todoist-mcp/internal/logging"
	"github.com/teemow/todoist-mcp/internal/todoist"
	"github.com/teemow/todoist-mcp/internal/tools/batch"
)

const taskNotAccessibleMessage = "Task not found or not accessible"

// Manager runs bulk assignment operations.
type Manager struct {
	api         todoist.API
	resolver    *UserResolver
	validator   *Validator
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	concurrency int
}

// NewManager creates a Manager.
func NewManager(api todoist.API, resolver *UserResolver, validator *Validator, opts ...Option) *Manager {
	s := newSettings(opts)
	return &Manager{
		api:         api,
		resolver:    resolver,
		validator:   validator,
		logger:      s.logger,
		metrics:     s.metrics,
		concurrency: s.concurrency,
	}
}

// Validate checks the request-level preconditions. A failing request must
// not touch any task.
func (req Request) Validate() error {
	if _, err := ParseOperation(string(req.Operation)); err != nil {
		return err
	}
	if len(req.TaskIDs) == 0 || len(req.TaskIDs) > MaxTasksPerRequest {
		return fmt.Errorf("%w, got %d", ErrInvalidTaskCount, len(req.TaskIDs))
	}
	if req.Operation.NeedsResponsibleUser() && strings.TrimSpace(req.ResponsibleUser) == "" {
		return ErrMissingResponsibleUser
	}
	return nil
}

// fetchedTask pairs a task with its input position so results stay traceable.
type fetchedTask struct {
	id   string
	task *todoist.Task
}

// Run executes req and reports one OperationResult per requested task,
// except for tasks dropped by the reassign pre-filter. Per-task failures
// are part of the report; only an invalid request returns an error.
//
// Phases run strictly one after another: fetch all tasks, then validate,
// then update. Within a phase calls run concurrently. Updates that already
// succeeded are not rolled back when others fail.
func (m *Manager) Run(ctx context.Context, req Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger := m.logger.With(
		slog.String("assignment_operation", string(req.Operation)),
		slog.Bool("dry_run", req.DryRun),
	)
	m.metrics.RecordAssignmentBatch(ctx, string(req.Operation), len(req.TaskIDs))

	tasks, fetchErrors := m.fetchTasks(ctx, req.TaskIDs)

	var (
		opResults        []OperationResult
		validationErrors []OperationResult
		skipped          int
	)

	if len(tasks) > 0 {
		if req.Operation == OperationReassign && strings.TrimSpace(req.FromAssigneeUser) != "" {
			before := len(tasks)
			tasks = m.filterByAssignee(ctx, tasks, req.FromAssigneeUser)
			skipped = before - len(tasks)
			if skipped > 0 {
				logger.Info("tasks excluded by current assignee filter",
					slog.Int("skipped", skipped), logging.UserHash(req.FromAssigneeUser))
			}
		}

		if req.Operation == OperationUnassign {
			opResults = m.unassign(ctx, tasks, req.DryRun)
		} else {
			var valid []validAssignment
			valid, validationErrors = m.validate(ctx, tasks, req.ResponsibleUser)
			opResults = m.assign(ctx, valid, req.DryRun)
		}
	}

	results := make([]OperationResult, 0, len(opResults)+len(validationErrors)+len(fetchErrors))
	results = append(results, opResults...)
	results = append(results, validationErrors...)
	results = append(results, fetchErrors...)

	report := &Report{
		Operation:      req.Operation,
		Results:        results,
		TotalRequested: len(req.TaskIDs),
		Skipped:        skipped,
		DryRun:         req.DryRun,
	}
	for _, r := range results {
		if r.Success {
			report.Successful++
		}
	}
	report.Failed = report.TotalRequested - report.Successful

	m.metrics.RecordAssignmentOperation(ctx, string(req.Operation), instrumentation.StatusSuccess, req.DryRun, report.Successful)
	m.metrics.RecordAssignmentOperation(ctx, string(req.Operation), instrumentation.StatusError, req.DryRun, len(results)-report.Successful)

	logger.Info("bulk assignment finished",
		slog.Int("requested", report.TotalRequested),
		slog.Int("successful", report.Successful),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped),
	)
	return report, nil
}

func (m *Manager) fetchTasks(ctx context.Context, ids []string) ([]fetchedTask, []OperationResult) {
	outcomes := batch.Settle(ctx, ids, m.concurrency, m.api.GetTask)

	var (
		tasks  []fetchedTask
		failed []OperationResult
	)
	for i, o := range outcomes {
		if !o.OK() {
			m.logger.Debug("task fetch failed", logging.TaskID(ids[i]), logging.Err(o.Err))
			failed = append(failed, OperationResult{TaskID: ids[i], Error: taskNotAccessibleMessage})
			continue
		}
		tasks = append(tasks, fetchedTask{id: ids[i], task: o.Value})
	}
	return tasks, failed
}

// filterByAssignee keeps the tasks currently assigned to the user that
// fromUser resolves to. An unresolvable fromUser keeps nothing.
func (m *Manager) filterByAssignee(ctx context.Context, tasks []fetchedTask, fromUser string) []fetchedTask {
	from := m.resolver.ResolveUser(ctx, fromUser)
	if from == nil {
		return nil
	}

	kept := tasks[:0:0]
	for _, t := range tasks {
		if t.task.Assignee() == from.UserID {
			kept = append(kept, t)
		}
	}
	return kept
}

func (m *Manager) unassign(ctx context.Context, tasks []fetchedTask, dryRun bool) []OperationResult {
	outcomes := batch.Settle(ctx, tasks, m.concurrency, func(ctx context.Context, t fetchedTask) (OperationResult, error) {
		result := OperationResult{TaskID: t.id, OriginalAssigneeID: t.task.AssigneeID}
		if dryRun {
			result.Success = true
			return result, nil
		}
		if _, err := m.api.UpdateTask(ctx, t.id, todoist.TaskPatch{Assignee: todoist.ClearAssignee()}); err != nil {
			result.Error = err.Error()
			return result, nil
		}
		result.Success = true
		return result, nil
	})
	return settledResults(outcomes, tasks)
}

type validAssignment struct {
	fetchedTask
	userID string
}

// validate splits tasks into those the resolved user can be assigned to and
// terminal failures carrying the validator's message.
func (m *Manager) validate(ctx context.Context, tasks []fetchedTask, responsibleUser string) ([]validAssignment, []OperationResult) {
	candidates := make([]Assignment, len(tasks))
	for i, t := range tasks {
		candidates[i] = Assignment{TaskID: t.id, ProjectID: t.task.ProjectID, ResponsibleUID: responsibleUser}
	}

	var (
		valid  []validAssignment
		failed []OperationResult
	)
	for i, r := range m.validator.ValidateBulkAssignment(ctx, candidates) {
		if r.IsValid && r.ResolvedUser != nil {
			valid = append(valid, validAssignment{fetchedTask: tasks[i], userID: r.ResolvedUser.UserID})
			continue
		}
		logValidationFailure(m.logger, r)
		msg := "Assignment validation failed"
		if r.Error != nil {
			msg = r.Error.Message
		}
		failed = append(failed, OperationResult{
			TaskID:             tasks[i].id,
			Error:              msg,
			OriginalAssigneeID: tasks[i].task.AssigneeID,
		})
	}
	return valid, failed
}

func (m *Manager) assign(ctx context.Context, valid []validAssignment, dryRun bool) []OperationResult {
	if len(valid) == 0 {
		return nil
	}

	outcomes := batch.Settle(ctx, valid, m.concurrency, func(ctx context.Context, a validAssignment) (OperationResult, error) {
		userID := a.userID
		result := OperationResult{
			TaskID:             a.id,
			OriginalAssigneeID: a.task.AssigneeID,
			NewAssigneeID:      &userID,
		}
		if dryRun {
			result.Success = true
			return result, nil
		}
		if _, err := m.api.UpdateTask(ctx, a.id, todoist.TaskPatch{Assignee: todoist.SetAssignee(userID)}); err != nil {
			result.Error = err.Error()
			return result, nil
		}
		result.Success = true
		return result, nil
	})

	tasks := make([]fetchedTask, len(valid))
	for i, a := range valid {
		tasks[i] = a.fetchedTask
	}
	return settledResults(outcomes, tasks)
}

// settledResults unwraps per-task outcomes. An outcome only carries an error
// when ctx ended before the task was attempted.
func settledResults(outcomes []batch.Outcome[OperationResult], tasks []fetchedTask) []OperationResult {
	results := make([]OperationResult, len(outcomes))
	for i, o := range outcomes {
		if o.OK() {
			results[i] = o.Value
			continue
		}
		results[i] = OperationResult{
			TaskID:             tasks[i].id,
			Error:              o.Err.Error(),
			OriginalAssigneeID: tasks[i].task.AssigneeID,
		}
	}
	return results
}
