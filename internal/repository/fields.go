package repository

import (
	"fmt"
	"time"

	"taskManager/internal/models/task"
)

// Field names accepted by UpdateFields, matching the task's wire names.
const (
	FieldTitle            = "title"
	FieldDescription      = "description"
	FieldPriority         = "priority"
	FieldDueDate          = "dueDate"
	FieldTags             = "tags"
	FieldStatus           = "status"
	FieldLastStatusUpdate = "lastStatusUpdate"
	FieldAssignedMembers  = "assignedMembers"
)

// ApplyFields merges partial fields into t and bumps UpdatedAt without
// letting it move backwards. Stores that rewrite whole records share it.
func ApplyFields(t *task.Task, fields map[string]any, now time.Time) error {
	for name, value := range fields {
		if err := applyField(t, name, value); err != nil {
			return err
		}
	}
	if now.After(t.UpdatedAt) {
		t.UpdatedAt = now
	}
	return nil
}

func applyField(t *task.Task, name string, value any) error {
	switch name {
	case FieldTitle:
		v, ok := value.(string)
		if !ok {
			return typeError(name, value)
		}
		t.Title = v
	case FieldDescription:
		v, ok := value.(string)
		if !ok {
			return typeError(name, value)
		}
		t.Description = v
	case FieldPriority:
		v, ok := value.(task.Priority)
		if !ok {
			return typeError(name, value)
		}
		t.Priority = v
	case FieldStatus:
		v, ok := value.(task.Status)
		if !ok {
			return typeError(name, value)
		}
		t.Status = v
	case FieldDueDate:
		v, ok := value.(*time.Time)
		if !ok {
			return typeError(name, value)
		}
		if v == nil {
			t.DueDate = nil
		} else {
			d := *v
			t.DueDate = &d
		}
	case FieldTags:
		v, ok := value.([]string)
		if !ok {
			return typeError(name, value)
		}
		t.Tags = append([]string{}, v...)
	case FieldAssignedMembers:
		v, ok := value.([]string)
		if !ok {
			return typeError(name, value)
		}
		t.AssignedMembers = append([]string{}, v...)
	case FieldLastStatusUpdate:
		v, ok := value.(task.StatusUpdate)
		if !ok {
			return typeError(name, value)
		}
		t.LastStatusUpdate = &v
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return nil
}

func typeError(name string, value any) error {
	return fmt.Errorf("%w: %s has unexpected type %T", ErrUnknownField, name, value)
}
