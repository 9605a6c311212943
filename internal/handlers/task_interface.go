package handlers

import (
	"context"

	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
	"taskManager/internal/service"
)

type TaskService interface {
	HealthCheck(context.Context) error
	CreateTask(context.Context, *user.Caller, service.CreateTaskInput) (*task.Task, error)
	GetTask(context.Context, *user.Caller, string) (*task.Task, error)
	ListTasks(context.Context, *user.Caller, service.ListTasksInput) (*service.TaskList, error)
	UpdateTask(context.Context, *user.Caller, string, task.Patch) (*task.Task, error)
	AssignMembers(context.Context, *user.Caller, string, []string) (*service.AssignResult, error)
	ChangeStatus(context.Context, *user.Caller, string, string) (*service.StatusResult, error)
	DeleteTask(context.Context, *user.Caller, string) error
}

type UserService interface {
	ListUsers(ctx context.Context, caller *user.Caller, group string, limit int) ([]user.User, error)
}
