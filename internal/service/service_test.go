package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
	"taskManager/internal/notify"
	"taskManager/internal/repository"
	"taskManager/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskRepository) Create(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*task.Task, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) AppendActivity(ctx context.Context, id uuid.UUID, entry task.ActivityEntry) (task.ActivityEntry, error) {
	args := m.Called(ctx, id, entry)
	return entry, args.Error(0)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) ListAll(ctx context.Context, limit int) ([]*task.Task, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) ListByStatus(ctx context.Context, status task.Status, limit int) ([]*task.Task, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) ListForAssignee(ctx context.Context, userID string, limit int) ([]*task.Task, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

type MockUserDirectory struct {
	mock.Mock
}

// the directory view holds only what the services call
var _ service.UserDirectory = (*MockUserDirectory)(nil)

func (m *MockUserDirectory) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}


func (m *MockUserDirectory) ResolveEmail(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockUserDirectory) ListUsers(ctx context.Context, limit int) ([]user.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]user.User), args.Error(1)
}

func (m *MockUserDirectory) ListUsersInGroup(ctx context.Context, group string, limit int) ([]user.User, error) {
	args := m.Called(ctx, group, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]user.User), args.Error(1)
}

func (m *MockUserDirectory) GroupsFor(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, ids []string, build notify.BuildFunc) notify.Result {
	args := m.Called(ctx, ids, build)
	return args.Get(0).(notify.Result)
}

var (
	admin    = &user.Caller{ID: "admin-1", Email: "admin@example.com", Name: "Admin", Groups: []string{user.GroupAdmins}}
	memberA  = &user.Caller{ID: "A", Email: "a@example.com", Name: "Alice", Groups: []string{user.GroupMembers}}
	memberC  = &user.Caller{ID: "C", Email: "c@example.com", Groups: []string{user.GroupMembers}}
	fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
)

type fixture struct {
	repo  *MockTaskRepository
	users *MockUserDirectory
	disp  *MockDispatcher
	svc   *service.TaskService
}

func newFixture() *fixture {
	f := &fixture{
		repo:  new(MockTaskRepository),
		users: new(MockUserDirectory),
		disp:  new(MockDispatcher),
	}
	f.svc = service.NewTaskService(f.repo, f.users, f.disp, service.WithClock(func() time.Time { return fixedNow }))
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.repo.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.disp.AssertExpectations(t)
}

func existingTask(status task.Status, members ...string) *task.Task {
	t := task.New("Ship v1", "admin-1")
	t.Status = status
	t.AssignedMembers = append([]string{}, members...)
	t.CreatedAt = fixedNow.Add(-time.Hour)
	t.UpdatedAt = fixedNow.Add(-time.Hour)
	return t
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, service.IsCode(err, code), "expected %s, got %v", code, err)
}

func TestCreateTask(t *testing.T) {
	tests := []struct {
		name      string
		caller    *user.Caller
		input     service.CreateTaskInput
		setupMock func(*MockTaskRepository)
		wantCode  string
	}{
		{
			name:   "admin creates task with defaults",
			caller: admin,
			input:  service.CreateTaskInput{Title: "Ship v1"},
			setupMock: func(r *MockTaskRepository) {
				r.On("Create", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
					return t.Title == "Ship v1" &&
						t.Status == task.StatusOpen &&
						t.Priority == task.PriorityMedium &&
						len(t.AssignedMembers) == 0 &&
						t.CreatedBy == "admin-1" &&
						t.CreatedByEmail == "admin@example.com"
				})).Return(nil).Once()
			},
		},
		{
			name:     "no caller",
			caller:   nil,
			input:    service.CreateTaskInput{Title: "x"},
			wantCode: service.CodeUnauthorized,
		},
		{
			name:     "member is forbidden",
			caller:   memberA,
			input:    service.CreateTaskInput{Title: "x"},
			wantCode: service.CodeForbidden,
		},
		{
			name:     "blank title",
			caller:   admin,
			input:    service.CreateTaskInput{Title: "   "},
			wantCode: service.CodeValidation,
		},
		{
			name:     "invalid priority",
			caller:   admin,
			input:    service.CreateTaskInput{Title: "x", Priority: "CRITICAL"},
			wantCode: service.CodeValidation,
		},
		{
			name:   "store failure",
			caller: admin,
			input:  service.CreateTaskInput{Title: "x"},
			setupMock: func(r *MockTaskRepository) {
				r.On("Create", mock.Anything, mock.Anything).Return(repository.ErrAlreadyExists).Once()
			},
			wantCode: service.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setupMock != nil {
				tt.setupMock(f.repo)
			}

			created, err := f.svc.CreateTask(context.Background(), tt.caller, tt.input)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				assert.Nil(t, created)
			} else {
				require.NoError(t, err)
				assert.Equal(t, task.StatusOpen, created.Status)
				assert.Empty(t, created.AssignedMembers)
				assert.Equal(t, task.PriorityMedium, created.Priority)
			}
			f.assertExpectations(t)
		})
	}
}

func TestGetTask(t *testing.T) {
	assigned := existingTask(task.StatusOpen, "A")

	t.Run("assigned member reads", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, assigned.ID).Return(assigned, nil).Once()

		got, err := f.svc.GetTask(context.Background(), memberA, assigned.ID.String())
		require.NoError(t, err)
		assert.Equal(t, assigned.ID, got.ID)
		f.assertExpectations(t)
	})

	t.Run("unassigned member is forbidden", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, assigned.ID).Return(assigned, nil).Once()

		_, err := f.svc.GetTask(context.Background(), memberC, assigned.ID.String())
		assertCode(t, err, service.CodeForbidden)
		f.assertExpectations(t)
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newFixture()
		missing := uuid.New()
		f.repo.On("GetByID", mock.Anything, missing).Return(nil, repository.ErrNotFound).Once()

		_, err := f.svc.GetTask(context.Background(), admin, missing.String())
		assertCode(t, err, service.CodeNotFound)
		f.assertExpectations(t)
	})

	t.Run("malformed id", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.GetTask(context.Background(), admin, "not-a-uuid")
		assertCode(t, err, service.CodeNotFound)
		f.assertExpectations(t)
	})

	t.Run("no caller never reaches the store", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.GetTask(context.Background(), nil, assigned.ID.String())
		assertCode(t, err, service.CodeUnauthorized)
		f.assertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", mock.Anything, assigned.ID).Return(nil, errors.New("connection reset")).Once()

		_, err := f.svc.GetTask(context.Background(), admin, assigned.ID.String())
		assertCode(t, err, service.CodeInternal)
		f.assertExpectations(t)
	})
}

func TestListTasks(t *testing.T) {
	older := existingTask(task.StatusOpen, "A")
	newer := existingTask(task.StatusInProgress, "A")
	newer.UpdatedAt = fixedNow
	closed := existingTask(task.StatusClosed, "A")
	closed.UpdatedAt = fixedNow.Add(-2 * time.Hour)

	t.Run("admin lists all with default limit", func(t *testing.T) {
		f := newFixture()
		f.repo.On("ListAll", mock.Anything, service.DefaultListLimit).
			Return([]*task.Task{older, newer}, nil).Once()

		list, err := f.svc.ListTasks(context.Background(), admin, service.ListTasksInput{})
		require.NoError(t, err)
		assert.True(t, list.IsAdmin)
		require.Len(t, list.Tasks, 2)
		assert.Equal(t, newer.ID, list.Tasks[0].ID)
		f.assertExpectations(t)
	})

	t.Run("admin status filter uses the status index", func(t *testing.T) {
		f := newFixture()
		f.repo.On("ListByStatus", mock.Anything, task.StatusOpen, 10).
			Return([]*task.Task{older}, nil).Once()

		list, err := f.svc.ListTasks(context.Background(), admin, service.ListTasksInput{Status: "open", Limit: 10})
		require.NoError(t, err)
		assert.Len(t, list.Tasks, 1)
		f.assertExpectations(t)
	})

	t.Run("member sees assigned tasks filtered afterwards", func(t *testing.T) {
		f := newFixture()
		f.repo.On("ListForAssignee", mock.Anything, "A", service.DefaultListLimit).
			Return([]*task.Task{older, newer, closed}, nil).Once()

		list, err := f.svc.ListTasks(context.Background(), memberA, service.ListTasksInput{Status: "OPEN"})
		require.NoError(t, err)
		assert.False(t, list.IsAdmin)
		require.Len(t, list.Tasks, 1)
		assert.Equal(t, older.ID, list.Tasks[0].ID)
		f.assertExpectations(t)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.ListTasks(context.Background(), admin, service.ListTasksInput{Status: "DONE"})
		assertCode(t, err, service.CodeValidation)
		f.assertExpectations(t)
	})

	t.Run("no caller", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.ListTasks(context.Background(), nil, service.ListTasksInput{})
		assertCode(t, err, service.CodeUnauthorized)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture()
		f.repo.On("ListAll", mock.Anything, service.DefaultListLimit).Return(nil, errors.New("boom")).Once()

		_, err := f.svc.ListTasks(context.Background(), admin, service.ListTasksInput{})
		assertCode(t, err, service.CodeInternal)
		f.assertExpectations(t)
	})
}

func TestUpdateTask(t *testing.T) {
	high := task.PriorityHigh

	t.Run("priority change logs one entry", func(t *testing.T) {
		f := newFixture()
		current := existingTask(task.StatusOpen)
		updated := current.Clone()
		updated.Priority = task.PriorityHigh

		f.repo.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()
		f.repo.On("UpdateFields", mock.Anything, current.ID, map[string]any{"priority": task.PriorityHigh}).
			Return(updated, nil).Once()
		f.repo.On("AppendActivity", mock.Anything, current.ID, mock.MatchedBy(func(e task.ActivityEntry) bool {
			change, ok := e.Details["priority"].(task.FieldChange)
			return e.Action == task.ActionTaskUpdated &&
				len(e.Details) == 1 &&
				ok &&
				change.From == task.PriorityMedium &&
				change.To == task.PriorityHigh
		})).Return(nil).Once()

		got, err := f.svc.UpdateTask(context.Background(), admin, current.ID.String(), task.Patch{Priority: &high})
		require.NoError(t, err)
		assert.Equal(t, task.PriorityHigh, got.Priority)
		assert.Len(t, got.ActivityLog, 1)
		f.assertExpectations(t)
	})

	t.Run("identical values write no entry", func(t *testing.T) {
		f := newFixture()
		current := existingTask(task.StatusOpen)
		current.Priority = task.PriorityHigh

		f.repo.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()
		f.repo.On("UpdateFields", mock.Anything, current.ID, mock.Anything).Return(current.Clone(), nil).Once()

		got, err := f.svc.UpdateTask(context.Background(), admin, current.ID.String(), task.Patch{Priority: &high})
		require.NoError(t, err)
		assert.Empty(t, got.ActivityLog)
		f.repo.AssertNotCalled(t, "AppendActivity", mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("empty patch", func(t *testing.T) {
		f := newFixture()
		current := existingTask(task.StatusOpen)
		f.repo.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()

		_, err := f.svc.UpdateTask(context.Background(), admin, current.ID.String(), task.Patch{})
		assertCode(t, err, service.CodeValidation)
		f.assertExpectations(t)
	})

	t.Run("invalid priority never writes", func(t *testing.T) {
		f := newFixture()
		current := existingTask(task.StatusOpen)
		bad := task.Priority("NOW")
		f.repo.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()

		_, err := f.svc.UpdateTask(context.Background(), admin, current.ID.String(), task.Patch{Priority: &bad})
		assertCode(t, err, service.CodeValidation)
		f.repo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("member is forbidden", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.UpdateTask(context.Background(), memberA, uuid.NewString(), task.Patch{Priority: &high})
		assertCode(t, err, service.CodeForbidden)
		f.assertExpectations(t)
	})
}

func TestAssignMembers(t *testing.T) {
	t.Run("new members are assigned and notified", func(t *testing.T) {
		f := newFixture()
		current := existingTask(task.StatusOpen)
		updated := current.Clone()
		updated.AssignedMembers = []string{"A", "B"}

		f.repo.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()
		f.repo.On("UpdateFields", mock.Anything, current.ID, map[string]any{"assignedMembers": []string{"A", "B"}}).
			Return(updated, nil).Once()
		f.repo.On("AppendActivity", mock.Anything, current.ID, mock.MatchedBy(func(e task.ActivityEntry) bool {
			return e.Action == task.ActionMembersAssigned
		})).Return(nil).Once()
		f.disp.On("Dispatch", mock.Anything, []string{"A", "B"}, mock.Anything).
			Return(notify.Result{Sent: 2}).Once()

		res, err := f.svc.AssignMembers(context.Background(), admin, current.ID.String(), []string{"A", "B", "A"})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, res.NewlyAssigned)
		assert.Equal(t, []string{"A", "B"}, res.Task.AssignedMembers)
		assert.Equal(t, 2, res.Notifications.Sent)
		f.assertExpectations(t)
	})

	t.Run("only newly added members are notified", func(t *testing.T) {
		f := newFixture()
		current := existingTask(task.StatusOpen, "A")
		updated := current.Clone()
		updated.AssignedMembers = []string{"A", "B"}

		f.repo.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()
		f.repo.On("UpdateFields", mock.Anything, current.ID, mock.Anything).Return(updated, nil).Once()
		f.repo.On("AppendActivity", mock.Anything, current.ID, mock.Anything).Return(nil).Once()
		f.disp.On("Dispatch", mock.Anything, []string{"B"}, mock.Anything).Return(notify.Result{Sent: 1}).Once()

		res, err := f.svc.AssignMembers(context.Background(), admin, current.ID.String(), []string{"A", "B"})
		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, res.NewlyAssigned)
		f.assertExpectations(t)
	})

	t.Run("already assigned set is rejected without notifications", func(t *testing.T) {
		f := newFixture()
		current := existingTask(task.StatusOpen, "A", "B")
		f.repo.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()

		_, err := f.svc.AssignMembers(context.Background(), admin, current.ID.String(), []string{"B", "A"})
		assertCode(t, err, service.CodeValidation)

		var busErr *service.BusinessError
		require.ErrorAs(t, err, &busErr)
		assert.Equal(t, "All members are already assigned to this task", busErr.Message)
		assert.Equal(t, "memberIds", busErr.Details["field"])
		assert.Equal(t, busErr.Message, busErr.Details["reason"])
		assert.Equal(t, []string{"A", "B"}, busErr.Details["assignedMembers"])
		f.disp.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("missing member ids", func(t *testing.T) {
		f := newFixture()
		current := existingTask(task.StatusOpen)
		f.repo.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()

		_, err := f.svc.AssignMembers(context.Background(), admin, current.ID.String(), nil)
		assertCode(t, err, service.CodeValidation)
	})

	t.Run("member is forbidden", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.AssignMembers(context.Background(), memberA, uuid.NewString(), []string{"B"})
		assertCode(t, err, service.CodeForbidden)
		f.assertExpectations(t)
	})
}

func TestChangeStatus(t *testing.T) {
	admins := []user.User{
		{ID: "admin-1", Groups: []string{user.GroupAdmins}},
		{ID: "admin-2", Groups: []string{user.GroupAdmins}},
	}

	t.Run("assigned member moves task forward", func(t *testing.T) {
		f := newFixture()
		current := existingTask(task.StatusOpen, "A", "B")
		updated := current.Clone()
		updated.Status = task.StatusInProgress

		f.repo.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()
		f.repo.On("UpdateFields", mock.Anything, current.ID, mock.MatchedBy(func(fields map[string]any) bool {
			upd, ok := fields["lastStatusUpdate"].(task.StatusUpdate)
			return fields["status"] == task.StatusInProgress &&
				ok &&
				upd.From == task.StatusOpen &&
				upd.To == task.StatusInProgress &&
				upd.UpdatedBy == "A" &&
				upd.UpdatedByName == "Alice" &&
				upd.UpdatedAt.Equal(fixedNow)
		})).Return(updated, nil).Once()
		f.repo.On("AppendActivity", mock.Anything, current.ID, mock.MatchedBy(func(e task.ActivityEntry) bool {
			return e.Action == task.ActionStatusChanged &&
				e.Details["from"] == task.StatusOpen &&
				e.Details["to"] == task.StatusInProgress
		})).Return(nil).Once()
		f.users.On("ListUsersInGroup", mock.Anything, user.GroupAdmins, 0).Return(admins, nil).Once()
		f.disp.On("Dispatch", mock.Anything, []string{"admin-1", "admin-2", "B"}, mock.Anything).
			Return(notify.Result{Sent: 2, Failed: 1}).Once()

		res, err := f.svc.ChangeStatus(context.Background(), memberA, current.ID.String(), "IN_PROGRESS")
		require.NoError(t, err)
		assert.Equal(t, task.StatusOpen, res.PreviousStatus)
		assert.Equal(t, task.StatusInProgress, res.Task.Status)
		assert.Len(t, res.Task.ActivityLog, 1)
		// a failed delivery does not fail the change
		assert.Equal(t, notify.Result{Sent: 2, Failed: 1}, res.Notifications)
		f.assertExpectations(t)
	})

	t.Run("member cannot close", func(t *testing.T) {
		f := newFixture()
		current := existingTask(task.StatusOpen, "A")
		f.repo.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()

		_, err := f.svc.ChangeStatus(context.Background(), memberA, current.ID.String(), "CLOSED")
		assertCode(t, err, service.CodeForbidden)
		f.repo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("closed task is frozen for members", func(t *testing.T) {
		f := newFixture()
		current := existingTask(task.StatusClosed, "A")
		f.repo.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()

		_, err := f.svc.ChangeStatus(context.Background(), memberA, current.ID.String(), "OPEN")
		assertCode(t, err, service.CodeForbidden)
		f.assertExpectations(t)
	})

	t.Run("unassigned member", func(t *testing.T) {
		f := newFixture()
		current := existingTask(task.StatusOpen, "A")
		f.repo.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()

		_, err := f.svc.ChangeStatus(context.Background(), memberC, current.ID.String(), "IN_PROGRESS")
		assertCode(t, err, service.CodeForbidden)
		f.assertExpectations(t)
	})

	t.Run("same status is a validation error for any caller", func(t *testing.T) {
		for _, caller := range []*user.Caller{admin, memberA, memberC} {
			f := newFixture()
			current := existingTask(task.StatusOpen, "A")
			f.repo.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()

			_, err := f.svc.ChangeStatus(context.Background(), caller, current.ID.String(), "OPEN")
			assertCode(t, err, service.CodeValidation)
			f.assertExpectations(t)
		}
	})

	t.Run("unknown status is rejected before lookup", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.ChangeStatus(context.Background(), admin, uuid.NewString(), "DONE")
		assertCode(t, err, service.CodeValidation)

		var busErr *service.BusinessError
		require.ErrorAs(t, err, &busErr)
		assert.Equal(t, task.Statuses, busErr.Details["validStatuses"])
		assert.Equal(t, "status", busErr.Details["field"])
		f.assertExpectations(t)
	})

	t.Run("no caller", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.ChangeStatus(context.Background(), nil, uuid.NewString(), "OPEN")
		assertCode(t, err, service.CodeUnauthorized)
	})

	t.Run("admin reopens closed task even when admins cannot be listed", func(t *testing.T) {
		f := newFixture()
		current := existingTask(task.StatusClosed, "A")
		updated := current.Clone()
		updated.Status = task.StatusOpen

		f.repo.On("GetByID", mock.Anything, current.ID).Return(current, nil).Once()
		f.repo.On("UpdateFields", mock.Anything, current.ID, mock.Anything).Return(updated, nil).Once()
		f.repo.On("AppendActivity", mock.Anything, current.ID, mock.Anything).Return(nil).Once()
		f.users.On("ListUsersInGroup", mock.Anything, user.GroupAdmins, 0).Return(nil, errors.New("directory down")).Once()
		// creator is the acting admin, so only the assignee remains
		f.disp.On("Dispatch", mock.Anything, []string{"A"}, mock.Anything).Return(notify.Result{Sent: 1}).Once()

		res, err := f.svc.ChangeStatus(context.Background(), admin, current.ID.String(), "OPEN")
		require.NoError(t, err)
		assert.Equal(t, task.StatusClosed, res.PreviousStatus)
		f.assertExpectations(t)
	})
}

func TestDeleteTask(t *testing.T) {
	id := uuid.New()

	t.Run("admin deletes", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Delete", mock.Anything, id).Return(nil).Once()
		assert.NoError(t, f.svc.DeleteTask(context.Background(), admin, id.String()))
		f.assertExpectations(t)
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Delete", mock.Anything, id).Return(repository.ErrNotFound).Once()
		assertCode(t, f.svc.DeleteTask(context.Background(), admin, id.String()), service.CodeNotFound)
		f.assertExpectations(t)
	})

	t.Run("member is forbidden", func(t *testing.T) {
		f := newFixture()
		assertCode(t, f.svc.DeleteTask(context.Background(), memberA, id.String()), service.CodeForbidden)
		f.assertExpectations(t)
	})
}

func TestHealthCheck(t *testing.T) {
	f := newFixture()
	f.repo.On("HealthCheck", mock.Anything).Return(errors.New("db down")).Once()
	f.users.On("HealthCheck", mock.Anything).Return(nil).Once()

	err := f.svc.HealthCheck(context.Background())
	assert.EqualError(t, err, "db down")
	f.assertExpectations(t)
}
