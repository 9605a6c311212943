package task

import (
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID               uuid.UUID       `json:"taskId" db:"task_id"`
	Title            string          `json:"title" db:"title"`
	Description      string          `json:"description" db:"description"`
	Status           Status          `json:"status" db:"status"`
	Priority         Priority        `json:"priority" db:"priority"`
	CreatedBy        string          `json:"createdBy" db:"created_by"`
	CreatedByName    string          `json:"createdByName,omitempty" db:"created_by_name"`
	CreatedByEmail   string          `json:"createdByEmail,omitempty" db:"created_by_email"`
	DueDate          *time.Time      `json:"dueDate,omitempty" db:"due_date"`
	AssignedMembers  []string        `json:"assignedMembers" db:"assigned_members"`
	Tags             []string        `json:"tags" db:"tags"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time       `json:"updatedAt" db:"updated_at"`
	LastStatusUpdate *StatusUpdate   `json:"lastStatusUpdate,omitempty" db:"last_status_update"`
	ActivityLog      []ActivityEntry `json:"activityLog,omitempty" db:"activity_log"`
}

type Status string
type Priority string
type Action string

const StatusOpen Status = "OPEN"
const StatusInProgress Status = "IN_PROGRESS"
const StatusCompleted Status = "COMPLETED"
const StatusClosed Status = "CLOSED"

const PriorityLow Priority = "LOW"
const PriorityMedium Priority = "MEDIUM"
const PriorityHigh Priority = "HIGH"
const PriorityUrgent Priority = "URGENT"

const ActionStatusChanged Action = "STATUS_CHANGED"
const ActionTaskUpdated Action = "TASK_UPDATED"
const ActionMembersAssigned Action = "MEMBERS_ASSIGNED"

var Statuses = []Status{StatusOpen, StatusInProgress, StatusCompleted, StatusClosed}
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

func (p Priority) Valid() bool {
	return slices.Contains(Priorities, p)
}

// StatusUpdate records the most recent status transition of a task.
type StatusUpdate struct {
	From          Status    `json:"from"`
	To            Status    `json:"to"`
	UpdatedBy     string    `json:"updatedBy"`
	UpdatedByName string    `json:"updatedByName"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ActivityEntry is one element of the append-only audit trail of a task.
type ActivityEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    Action         `json:"action"`
	UserID    string         `json:"userId"`
	UserName  string         `json:"userName"`
	Details   map[string]any `json:"details,omitempty"`
}

// FieldChange is the before/after value of one updated field.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

func (t *Task) IsAssigned(userID string) bool {
	return slices.Contains(t.AssignedMembers, userID)
}

// Clone returns a deep copy so callers can mutate it without touching store state.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.AssignedMembers = slices.Clone(t.AssignedMembers)
	c.Tags = slices.Clone(t.Tags)
	c.ActivityLog = slices.Clone(t.ActivityLog)
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.LastStatusUpdate != nil {
		u := *t.LastStatusUpdate
		c.LastStatusUpdate = &u
	}
	return &c
}

// SortByRecent orders tasks by UpdatedAt, newest first.
func SortByRecent(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt)
	})
}
