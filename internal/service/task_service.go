package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
	"taskManager/internal/notify"
	"taskManager/internal/policy"
	repo "taskManager/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const DefaultListLimit = 50

type TaskService struct {
	repo       TaskRepository
	users      UserDirectory
	dispatcher Dispatcher
	now        func() time.Time
}

type ServiceOption func(*TaskService)

// WithClock replaces the wall clock used for activity timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *TaskService) {
		s.now = now
	}
}

func NewTaskService(repo TaskRepository, users UserDirectory, dispatcher Dispatcher, options ...ServiceOption) *TaskService {
	s := &TaskService{
		repo:       repo,
		users:      users,
		dispatcher: dispatcher,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

type CreateTaskInput struct {
	Title       string
	Description string
	Priority    task.Priority
	DueDate     *time.Time
	Tags        []string
}

type ListTasksInput struct {
	Status string
	Limit  int
}

type TaskList struct {
	Tasks   []*task.Task
	IsAdmin bool
}

type AssignResult struct {
	Task          *task.Task
	NewlyAssigned []string
	Notifications notify.Result
}

type StatusResult struct {
	Task           *task.Task
	PreviousStatus task.Status
	Notifications  notify.Result
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	return multierr.Combine(s.repo.HealthCheck(ctx), s.users.HealthCheck(ctx))
}

func (s *TaskService) CreateTask(ctx context.Context, caller *user.Caller, in CreateTaskInput) (*task.Task, error) {
	if err := authorize(policy.Request{Caller: caller, Op: policy.OpCreate}); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, NewValidationError("title", "Task title is required")
	}
	if in.Priority != "" && !in.Priority.Valid() {
		busErr := NewValidationError("priority", "invalid priority")
		busErr.Details["validPriorities"] = task.Priorities
		return nil, busErr
	}

	newTask := task.New(title, caller.ID,
		task.WithDescription(in.Description),
		task.WithPriority(in.Priority),
		task.WithDueDate(in.DueDate),
		task.WithTags(in.Tags),
		task.WithCreator(caller.Name, caller.Email),
	)

	if err := s.repo.Create(ctx, newTask); err != nil {
		logger.Error("Service: failed to create task", err, zap.String("task_id", newTask.ID.String()))
		return nil, NewInternal("Failed to create task", err)
	}

	logger.Info("Service: task created", zap.String("task_id", newTask.ID.String()), zap.String("by", caller.ID))
	return newTask, nil
}

func (s *TaskService) GetTask(ctx context.Context, caller *user.Caller, id string) (*task.Task, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	t, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := authorize(policy.Request{Caller: caller, Op: policy.OpRead, Task: t}); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTasks returns every task to admins and only assigned tasks to members,
// most recently updated first.
func (s *TaskService) ListTasks(ctx context.Context, caller *user.Caller, in ListTasksInput) (*TaskList, error) {
	if err := authorize(policy.Request{Caller: caller, Op: policy.OpList}); err != nil {
		return nil, err
	}

	status := task.Status(strings.ToUpper(strings.TrimSpace(in.Status)))
	if status != "" && !status.Valid() {
		busErr := NewValidationError("status", "invalid status filter")
		busErr.Details["validStatuses"] = task.Statuses
		return nil, busErr
	}

	limit := in.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var (
		tasks []*task.Task
		err   error
	)
	scope := policy.ListScopeFor(caller)
	switch {
	case scope.All && status != "":
		tasks, err = s.repo.ListByStatus(ctx, status, limit)
	case scope.All:
		tasks, err = s.repo.ListAll(ctx, limit)
	default:
		tasks, err = s.repo.ListForAssignee(ctx, scope.Assignee, limit)
		if err == nil {
			tasks = policy.FilterByStatus(tasks, status)
		}
	}
	if err != nil {
		logger.Error("Service: failed to list tasks", err, zap.String("caller", caller.ID))
		return nil, NewInternal("Failed to list tasks", err)
	}

	task.SortByRecent(tasks)
	return &TaskList{Tasks: tasks, IsAdmin: scope.All}, nil
}

// UpdateTask applies the whitelisted fields. One TASK_UPDATED entry is logged
// only when some value really changed.
func (s *TaskService) UpdateTask(ctx context.Context, caller *user.Caller, id string, patch task.Patch) (*task.Task, error) {
	if err := authorize(policy.Request{Caller: caller, Op: policy.OpUpdate}); err != nil {
		return nil, err
	}

	t, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}

	changes, err := policy.ApplyPatch(t, patch)
	if err != nil {
		return nil, fromPolicyError(err)
	}

	updated, err := s.writeFields(ctx, t.ID, patch.Fields())
	if err != nil {
		return nil, err
	}

	if entry, ok := policy.UpdateEntry(changes, caller, s.now()); ok {
		if err := s.appendActivity(ctx, updated, entry); err != nil {
			return nil, err
		}
	}

	logger.Info("Service: task updated", zap.String("task_id", id), zap.Int("changed_fields", len(changes)))
	return updated, nil
}

// AssignMembers adds members and notifies only the newly added ones.
func (s *TaskService) AssignMembers(ctx context.Context, caller *user.Caller, id string, memberIDs []string) (*AssignResult, error) {
	if err := authorize(policy.Request{Caller: caller, Op: policy.OpAssign}); err != nil {
		return nil, err
	}

	t, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}

	added, err := policy.AssignmentRecipients(t.AssignedMembers, memberIDs)
	if err != nil {
		return nil, fromPolicyError(err)
	}

	updated, err := s.writeFields(ctx, t.ID, map[string]any{
		repo.FieldAssignedMembers: policy.MergeMembers(t.AssignedMembers, added),
	})
	if err != nil {
		return nil, err
	}

	entry := policy.NewEntry(task.ActionMembersAssigned, caller, s.now(), map[string]any{"memberIds": added})
	if err := s.appendActivity(ctx, updated, entry); err != nil {
		return nil, err
	}

	// the assignment is committed; delivery is best effort
	sent := s.dispatcher.Dispatch(context.WithoutCancel(ctx), added, notify.AssignmentEmail(updated, caller.DisplayName()))

	logger.Info("Service: members assigned",
		zap.String("task_id", id),
		zap.Strings("added", added),
		zap.Int("notified", sent.Sent))
	return &AssignResult{Task: updated, NewlyAssigned: added, Notifications: sent}, nil
}

// ChangeStatus validates the requested status before looking at who is asking,
// so a same-status request is a validation error for every caller.
func (s *TaskService) ChangeStatus(ctx context.Context, caller *user.Caller, id string, newStatus string) (*StatusResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	to := task.Status(strings.TrimSpace(newStatus))
	if err := policy.ValidateStatusChange(nil, to); err != nil {
		return nil, fromPolicyError(err)
	}

	t, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := policy.ValidateStatusChange(t, to); err != nil {
		return nil, fromPolicyError(err)
	}
	if err := authorize(policy.Request{Caller: caller, Op: policy.OpChangeStatus, Task: t, NewStatus: to}); err != nil {
		return nil, err
	}

	change, err := policy.ApplyStatusChange(t, to, caller, s.now())
	if err != nil {
		return nil, fromPolicyError(err)
	}

	updated, err := s.writeFields(ctx, t.ID, map[string]any{
		repo.FieldStatus:           change.Status,
		repo.FieldLastStatusUpdate: change.LastUpdate,
	})
	if err != nil {
		return nil, err
	}
	if err := s.appendActivity(ctx, updated, change.Entry); err != nil {
		return nil, err
	}

	admins, err := s.users.ListUsersInGroup(ctx, user.GroupAdmins, 0)
	if err != nil {
		// admins only widen the audience; the change itself stands
		logger.Warn("Service: failed to list admins for notification", zap.Error(err))
		admins = nil
	}
	recipients := policy.StatusChangeRecipients(updated, admins, caller.ID)
	sent := s.dispatcher.Dispatch(context.WithoutCancel(ctx), recipients,
		notify.StatusChangeEmail(updated, t.Status, to, caller.DisplayName()))

	logger.Info("Service: status changed",
		zap.String("task_id", id),
		zap.String("from", string(t.Status)),
		zap.String("to", string(to)),
		zap.Int("notified", sent.Sent))
	return &StatusResult{Task: updated, PreviousStatus: t.Status, Notifications: sent}, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, caller *user.Caller, id string) error {
	if err := authorize(policy.Request{Caller: caller, Op: policy.OpDelete}); err != nil {
		return err
	}

	taskID, err := uuid.Parse(id)
	if err != nil {
		return NewNotFound("Task", id)
	}

	if err := s.repo.Delete(ctx, taskID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			logger.Info("Service: task not found", zap.String("target_id", id))
			return NewNotFound("Task", id)
		}
		logger.Error("Service: failed to delete task", err, zap.String("task_id", id))
		return NewInternal("Failed to delete task", err)
	}

	logger.Info("Service: task deleted", zap.String("task_id", id), zap.String("by", caller.ID))
	return nil
}

func (s *TaskService) loadTask(ctx context.Context, id string) (*task.Task, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, NewNotFound("Task", id)
	}

	t, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			logger.Info("Service: task not found", zap.String("target_id", id))
			return nil, NewNotFound("Task", id)
		}
		logger.Error("Service: failed to load task", err, zap.String("task_id", id))
		return nil, NewInternal("Failed to load task", err)
	}
	return t, nil
}

func (s *TaskService) writeFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*task.Task, error) {
	updated, err := s.repo.UpdateFields(ctx, id, fields)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NewNotFound("Task", id.String())
		}
		logger.Error("Service: failed to update task", err, zap.String("task_id", id.String()))
		return nil, NewInternal("Failed to update task", err)
	}
	return updated, nil
}

// appendActivity persists entry and mirrors it onto the returned task.
func (s *TaskService) appendActivity(ctx context.Context, t *task.Task, entry task.ActivityEntry) error {
	stored, err := s.repo.AppendActivity(ctx, t.ID, entry)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFound("Task", t.ID.String())
		}
		logger.Error("Service: failed to append activity", err, zap.String("task_id", t.ID.String()))
		return NewInternal("Failed to record activity", err)
	}
	t.ActivityLog = append(t.ActivityLog, stored)
	return nil
}

func requireCaller(caller *user.Caller) error {
	if caller == nil || caller.ID == "" {
		return NewBusinessError(CodeUnauthorized, "Unauthorized")
	}
	return nil
}

// Admit runs the caller checks that need no task, so a transport can reject
// a request before reading its body.
func Admit(caller *user.Caller, op policy.Operation) error {
	if d := policy.Admit(caller, op); !d.Allowed {
		return fromDecision(d)
	}
	return nil
}

func authorize(req policy.Request) error {
	if d := policy.Authorize(req); !d.Allowed {
		return fromDecision(d)
	}
	return nil
}
