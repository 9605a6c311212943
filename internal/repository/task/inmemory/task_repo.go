package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	repo "taskManager/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskStorage struct {
	storage map[uuid.UUID]*task.Task
	mtx     *sync.RWMutex
	ids     []uuid.UUID
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
		mtx:     &sync.RWMutex{},
		ids:     []uuid.UUID{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Info("Repository: in-memory storage is healthy")
	return nil
}

// Create is a conditional put: an existing id is never overwritten.
func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[taskToCreate.ID]; ok {
		logger.Warn("Repository: duplicate task id on create", zap.String("task_id", taskToCreate.ID.String()))
		return repo.ErrAlreadyExists
	}

	s.storage[taskToCreate.ID] = taskToCreate.Clone()
	s.ids = append(s.ids, taskToCreate.ID)
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return taskToGet.Clone(), nil
}

func (s *TaskStorage) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}

	updated := existing.Clone()
	if err := repo.ApplyFields(updated, fields, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("update task fields: %w", err)
	}
	s.storage[id] = updated
	return updated.Clone(), nil
}

func (s *TaskStorage) AppendActivity(ctx context.Context, id uuid.UUID, entry task.ActivityEntry) (task.ActivityEntry, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.storage[id]
	if !ok {
		return task.ActivityEntry{}, repo.ErrNotFound
	}

	existing.ActivityLog = append(existing.ActivityLog, entry)
	if now := time.Now().UTC(); now.After(existing.UpdatedAt) {
		existing.UpdatedAt = now
	}
	return entry, nil
}

// hard delete, no tombstone
func (s *TaskStorage) Delete(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[id]; !ok {
		return repo.ErrNotFound
	}

	delete(s.storage, id)
	for ind, val := range s.ids {
		if val == id {
			s.ids = append(s.ids[:ind], s.ids[ind+1:]...)
			break
		}
	}
	return nil
}

func (s *TaskStorage) ListAll(ctx context.Context, limit int) ([]*task.Task, error) {
	return s.list(limit, func(*task.Task) bool { return true }), nil
}

func (s *TaskStorage) ListByStatus(ctx context.Context, status task.Status, limit int) ([]*task.Task, error) {
	return s.list(limit, func(t *task.Task) bool { return t.Status == status }), nil
}

func (s *TaskStorage) ListForAssignee(ctx context.Context, userID string, limit int) ([]*task.Task, error) {
	return s.list(limit, func(t *task.Task) bool { return t.IsAssigned(userID) }), nil
}

// list returns matches most recently updated first, capped at limit.
func (s *TaskStorage) list(limit int, match func(*task.Task) bool) []*task.Task {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, id := range s.ids {
		t := s.storage[id]
		if !match(t) {
			continue
		}
		res = append(res, t.Clone())
	}

	task.SortByRecent(res)
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res
}
