package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"taskManager/internal/models/task"
	"taskManager/internal/repository"
	"taskManager/internal/repository/task/sqlite"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T) *sqlite.Storage {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTask(title string, status task.Status, members ...string) *task.Task {
	t := task.New(title, "admin-1", task.WithTags([]string{"ops"}))
	t.Status = status
	t.AssignedMembers = append([]string{}, members...)
	return t
}

func TestStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)
	require.NoError(t, s.HealthCheck(ctx))

	created := newTask("Deploy", task.StatusOpen, "member-a")
	require.NoError(t, s.Create(ctx, created))

	got, err := s.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, []string{"member-a"}, got.AssignedMembers)
	assert.Equal(t, []string{"ops"}, got.Tags)
	assert.True(t, created.UpdatedAt.Equal(got.UpdatedAt))

	dup := newTask("Other", task.StatusOpen)
	dup.ID = created.ID
	assert.ErrorIs(t, s.Create(ctx, dup), repository.ErrAlreadyExists)

	_, err = s.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStorage_InMemory(t *testing.T) {
	s, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	created := newTask("ephemeral", task.StatusOpen)
	require.NoError(t, s.Create(context.Background(), created))
	_, err = s.GetByID(context.Background(), created.ID)
	assert.NoError(t, err)
}

func TestStorage_UpdateFields(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	created := newTask("Old", task.StatusOpen, "member-a")
	require.NoError(t, s.Create(ctx, created))

	updated, err := s.UpdateFields(ctx, created.ID, map[string]any{
		repository.FieldTitle:           "New",
		repository.FieldAssignedMembers: []string{"member-b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	forA, err := s.ListForAssignee(ctx, "member-a", 0)
	require.NoError(t, err)
	assert.Empty(t, forA)

	forB, err := s.ListForAssignee(ctx, "member-b", 0)
	require.NoError(t, err)
	assert.Len(t, forB, 1)

	_, err = s.UpdateFields(ctx, created.ID, map[string]any{"bogus": 1})
	assert.ErrorIs(t, err, repository.ErrUnknownField)

	// failed update leaves the row untouched
	got, err := s.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)

	_, err = s.UpdateFields(ctx, uuid.New(), map[string]any{repository.FieldTitle: "x"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStorage_AppendActivity(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	created := newTask("busy", task.StatusOpen)
	require.NoError(t, s.Create(ctx, created))

	const appends = 20
	var wg sync.WaitGroup
	for i := 0; i < appends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AppendActivity(ctx, created.ID, task.ActivityEntry{ID: uuid.NewString(), Action: task.ActionTaskUpdated})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, got.ActivityLog, appends)

	_, err = s.AppendActivity(ctx, uuid.New(), task.ActivityEntry{ID: "x"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStorage_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tasks := []*task.Task{
		newTask("1", task.StatusOpen, "A"),
		newTask("2", task.StatusOpen, "B"),
		newTask("3", task.StatusClosed, "A", "B"),
	}
	for i, tt := range tasks {
		tt.UpdatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Create(ctx, tt))
	}

	all, err := s.ListAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].Title)

	limited, err := s.ListAll(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	open, err := s.ListByStatus(ctx, task.StatusOpen, 0)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	require.NoError(t, s.Delete(ctx, tasks[2].ID))
	assert.ErrorIs(t, s.Delete(ctx, tasks[2].ID), repository.ErrNotFound)

	forA, err := s.ListForAssignee(ctx, "A", 0)
	require.NoError(t, err)
	require.Len(t, forA, 1)
	assert.Equal(t, "1", forA[0].Title)
}
