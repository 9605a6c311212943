package service

import (
	"context"

	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
	"taskManager/internal/notify"

	"github.com/google/uuid"
)

type TaskRepository interface {
	HealthCheck(context.Context) error
	// Create fails with repository.ErrAlreadyExists instead of overwriting.
	Create(context.Context, *task.Task) error
	GetByID(context.Context, uuid.UUID) (*task.Task, error)
	UpdateFields(context.Context, uuid.UUID, map[string]any) (*task.Task, error)
	AppendActivity(context.Context, uuid.UUID, task.ActivityEntry) (task.ActivityEntry, error)
	Delete(context.Context, uuid.UUID) error
	ListAll(context.Context, int) ([]*task.Task, error)
	ListByStatus(context.Context, task.Status, int) ([]*task.Task, error)
	ListForAssignee(context.Context, string, int) ([]*task.Task, error)
}

type UserDirectory interface {
	HealthCheck(context.Context) error
	ResolveEmail(context.Context, string) (string, error)
	ListUsers(context.Context, int) ([]user.User, error)
	ListUsersInGroup(context.Context, string, int) ([]user.User, error)
	GroupsFor(context.Context, string) ([]string, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, recipientIDs []string, build notify.BuildFunc) notify.Result
}
