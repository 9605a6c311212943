package policy

import (
	"slices"
	"strings"
	"time"

	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
)

// ApplyPatch validates the whitelisted fields, applies them to t and returns
// the fields whose value actually changed. Nothing is mutated when
// validation fails.
func ApplyPatch(t *task.Task, p task.Patch) (map[string]task.FieldChange, error) {
	if p.Empty() {
		return nil, invalid("", "No valid fields to update")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return nil, invalid("title", "title cannot be empty")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		err := invalid("priority", "invalid priority")
		err.Details["validPriorities"] = task.Priorities
		return nil, err
	}

	changes := make(map[string]task.FieldChange)

	if p.Title != nil && *p.Title != t.Title {
		changes["title"] = task.FieldChange{From: t.Title, To: *p.Title}
		t.Title = *p.Title
	}
	if p.Description != nil && *p.Description != t.Description {
		changes["description"] = task.FieldChange{From: t.Description, To: *p.Description}
		t.Description = *p.Description
	}
	if p.Priority != nil && *p.Priority != t.Priority {
		changes["priority"] = task.FieldChange{From: t.Priority, To: *p.Priority}
		t.Priority = *p.Priority
	}
	if p.DueDateSet && !sameDate(t.DueDate, p.DueDate) {
		changes["dueDate"] = task.FieldChange{From: dateValue(t.DueDate), To: dateValue(p.DueDate)}
		t.DueDate = p.DueDate
	}
	if p.Tags != nil && !slices.Equal(t.Tags, *p.Tags) {
		changes["tags"] = task.FieldChange{From: slices.Clone(t.Tags), To: slices.Clone(*p.Tags)}
		t.Tags = slices.Clone(*p.Tags)
	}

	return changes, nil
}

// UpdateEntry aggregates a change set into one TASK_UPDATED entry. It
// reports false when nothing changed so no entry is written.
func UpdateEntry(changes map[string]task.FieldChange, actor *user.Caller, now time.Time) (task.ActivityEntry, bool) {
	if len(changes) == 0 {
		return task.ActivityEntry{}, false
	}
	details := make(map[string]any, len(changes))
	for field, ch := range changes {
		details[field] = ch
	}
	return NewEntry(task.ActionTaskUpdated, actor, now, details), true
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func dateValue(d *time.Time) any {
	if d == nil {
		return nil
	}
	return d.Format(time.DateOnly)
}
