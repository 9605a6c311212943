package task

import (
	"time"

	"github.com/google/uuid"
)

type TaskOption func(*Task)

// New builds a fresh task: status OPEN, no assignees, priority MEDIUM unless overridden.
func New(title, createdBy string, options ...TaskOption) *Task {
	now := time.Now().UTC()
	t := &Task{
		ID:              uuid.New(),
		Title:           title,
		Status:          StatusOpen,
		Priority:        PriorityMedium,
		CreatedBy:       createdBy,
		AssignedMembers: []string{},
		Tags:            []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func WithDescription(description string) TaskOption {
	if description == "" {
		return nil
	}
	return func(task *Task) {
		task.Description = description
	}
}

func WithPriority(priority Priority) TaskOption {
	if priority == "" {
		return nil
	}
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithDueDate(dueDate *time.Time) TaskOption {
	if dueDate == nil || dueDate.IsZero() {
		return nil
	}
	return func(task *Task) {
		d := *dueDate
		task.DueDate = &d
	}
}

func WithTags(tags []string) TaskOption {
	if len(tags) == 0 {
		return nil
	}
	return func(task *Task) {
		task.Tags = append([]string{}, tags...)
	}
}

func WithCreator(name, email string) TaskOption {
	return func(task *Task) {
		task.CreatedByName = name
		task.CreatedByEmail = email
	}
}
