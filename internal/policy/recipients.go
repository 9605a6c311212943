package policy

import (
	"slices"

	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
)

// AssignmentRecipients returns the requested ids that are not yet assigned,
// in request order and without duplicates. An empty result is a validation
// error: re-assigning an already assigned set is not a silent no-op.
func AssignmentRecipients(existing, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return nil, invalid("memberIds", "memberIds array is required")
	}

	added := make([]string, 0, len(requested))
	for _, id := range requested {
		if id == "" {
			return nil, invalid("memberIds", "member id cannot be empty")
		}
		if slices.Contains(existing, id) || slices.Contains(added, id) {
			continue
		}
		added = append(added, id)
	}

	if len(added) == 0 {
		err := invalid("memberIds", "All members are already assigned to this task")
		err.Details["assignedMembers"] = existing
		return nil, err
	}
	return added, nil
}

// MergeMembers appends added ids to the existing set, keeping it duplicate free.
func MergeMembers(existing, added []string) []string {
	merged := slices.Clone(existing)
	for _, id := range added {
		if !slices.Contains(merged, id) {
			merged = append(merged, id)
		}
	}
	return merged
}

// StatusChangeRecipients returns admins ∪ assignees ∪ creator, minus the actor.
func StatusChangeRecipients(t *task.Task, admins []user.User, actorID string) []string {
	seen := make(map[string]struct{})
	res := []string{}
	add := func(id string) {
		if id == "" || id == actorID {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}

	for _, a := range admins {
		add(a.ID)
	}
	for _, id := range t.AssignedMembers {
		add(id)
	}
	add(t.CreatedBy)
	return res
}
