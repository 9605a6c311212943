package policy

import (
	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
)

type Operation int

const (
	OpCreate Operation = iota
	OpRead
	OpList
	OpUpdate
	OpAssign
	OpChangeStatus
	OpDelete
	OpListUsers
)

func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpRead:
		return "read"
	case OpList:
		return "list"
	case OpUpdate:
		return "update"
	case OpAssign:
		return "assign"
	case OpChangeStatus:
		return "changeStatus"
	case OpDelete:
		return "delete"
	case OpListUsers:
		return "listUsers"
	default:
		return "unknown"
	}
}

// Reason explains a rejected decision.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonUnauthorized
	ReasonForbidden
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonUnauthorized:
		return "unauthorized"
	case ReasonForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
}

func allow() Decision {
	return Decision{Allowed: true, Reason: ReasonNone}
}

func forbid(message string) Decision {
	return Decision{Reason: ReasonForbidden, Message: message}
}

type Request struct {
	Caller *user.Caller
	Op     Operation
	// Task is the current state of the target; nil for create and list.
	Task *task.Task
	// NewStatus is only read for OpChangeStatus.
	NewStatus task.Status
}

// Authorize evaluates the rules in order; the first matching rule decides.
// A denial is an ordinary outcome, never an error.
func Authorize(req Request) Decision {
	if req.Caller == nil || req.Caller.ID == "" {
		return Decision{Reason: ReasonUnauthorized, Message: "Unauthorized"}
	}
	admin := req.Caller.IsAdmin()

	switch req.Op {
	case OpCreate, OpDelete, OpUpdate, OpAssign, OpListUsers:
		if !admin {
			return forbid(adminOnlyMessage(req.Op))
		}
		return allow()

	case OpRead:
		if admin {
			return allow()
		}
		if req.Task != nil && req.Task.IsAssigned(req.Caller.ID) {
			return allow()
		}
		return forbid("You do not have access to this task")

	case OpList:
		// members are restricted through ListScopeFor, not rejected
		return allow()

	case OpChangeStatus:
		if req.Task == nil {
			return forbid("You are not assigned to this task")
		}
		if req.Task.Status == task.StatusClosed && !admin {
			return forbid("Closed tasks can only be changed by admins")
		}
		if !admin && !req.Task.IsAssigned(req.Caller.ID) {
			return forbid("You are not assigned to this task")
		}
		if req.NewStatus == task.StatusClosed && !admin {
			return forbid("Only admins can close tasks")
		}
		return allow()
	}

	return forbid("Operation not permitted")
}

func adminOnlyMessage(op Operation) string {
	switch op {
	case OpCreate:
		return "Only admins can create tasks"
	case OpDelete:
		return "Only admins can delete tasks"
	case OpUpdate:
		return "Only admins can update task details"
	case OpAssign:
		return "Only admins can assign tasks"
	case OpListUsers:
		return "Only admins can list users"
	default:
		return "Only admins can perform this operation"
	}
}

// ListScope describes which tasks a caller may list.
type ListScope struct {
	All bool
	// Assignee restricts the fetch to tasks assigned to this user when All is false.
	Assignee string
}

func ListScopeFor(caller *user.Caller) ListScope {
	if caller.IsAdmin() {
		return ListScope{All: true}
	}
	return ListScope{Assignee: caller.ID}
}

// FilterByStatus keeps tasks with the given status; an empty status keeps all.
func FilterByStatus(tasks []*task.Task, status task.Status) []*task.Task {
	if status == "" {
		return tasks
	}
	res := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == status {
			res = append(res, t)
		}
	}
	return res
}

// Admit evaluates the rules that need no task state: authentication and the
// admin-only operations. Rules that depend on the target task are left to
// Authorize once the task is loaded.
func Admit(caller *user.Caller, op Operation) Decision {
	switch op {
	case OpRead, OpChangeStatus:
		if caller == nil || caller.ID == "" {
			return Decision{Reason: ReasonUnauthorized, Message: "Unauthorized"}
		}
		return allow()
	}
	return Authorize(Request{Caller: caller, Op: op})
}
