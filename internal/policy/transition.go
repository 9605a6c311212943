package policy

import (
	"time"

	"taskManager/internal/models/task"
	"taskManager/internal/models/user"

	"github.com/google/uuid"
)

// ValidateStatusChange checks the requested status independently of who asks.
// Any state may move to any other state; moving to the current state is an error.
func ValidateStatusChange(current *task.Task, to task.Status) error {
	if !to.Valid() {
		err := invalid("status", "Valid status is required")
		err.Details["validStatuses"] = task.Statuses
		return err
	}
	if current != nil && current.Status == to {
		err := invalid("status", "Task already has this status")
		err.Details["status"] = to
		return err
	}
	return nil
}

// StatusChange is the effect of a permitted transition.
type StatusChange struct {
	Status     task.Status
	LastUpdate task.StatusUpdate
	Entry      task.ActivityEntry
	UpdatedAt  time.Time
}

// ApplyStatusChange computes the new status record and its single activity entry.
// It does not mutate t; the caller persists the result.
func ApplyStatusChange(t *task.Task, to task.Status, actor *user.Caller, now time.Time) (StatusChange, error) {
	if err := ValidateStatusChange(t, to); err != nil {
		return StatusChange{}, err
	}
	now = monotonic(t.UpdatedAt, now)

	upd := task.StatusUpdate{
		From:          t.Status,
		To:            to,
		UpdatedBy:     actor.ID,
		UpdatedByName: actor.DisplayName(),
		UpdatedAt:     now,
	}
	entry := NewEntry(task.ActionStatusChanged, actor, now, map[string]any{
		"from": t.Status,
		"to":   to,
	})

	return StatusChange{Status: to, LastUpdate: upd, Entry: entry, UpdatedAt: now}, nil
}

// NewEntry builds an activity log entry stamped at now.
func NewEntry(action task.Action, actor *user.Caller, now time.Time, details map[string]any) task.ActivityEntry {
	return task.ActivityEntry{
		ID:        uuid.NewString(),
		Timestamp: now,
		Action:    action,
		UserID:    actor.ID,
		UserName:  actor.DisplayName(),
		Details:   details,
	}
}

// monotonic keeps updatedAt from moving backwards under clock skew.
func monotonic(prev, now time.Time) time.Time {
	if now.Before(prev) {
		return prev
	}
	return now
}
