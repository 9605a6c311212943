package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"taskManager/internal/models/task"
)

type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	DueDate     *string  `json:"dueDate"`
	Tags        []string `json:"tags"`
}

type ChangeStatusRequest struct {
	Status string `json:"status"`
}

type AssignRequest struct {
	MemberIDs []string `json:"memberIds"`
}

// ParseDate accepts a calendar date or a full RFC 3339 timestamp.
func ParseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if d, err := time.Parse(time.DateOnly, value); err == nil {
		return &d, nil
	}
	d, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("dueDate must be YYYY-MM-DD or RFC 3339: %q", value)
	}
	d = d.UTC()
	return &d, nil
}

// DecodePatch reads an update body. Only whitelisted fields are kept and
// anything else is dropped; an explicit null dueDate clears the date.
func DecodePatch(body []byte) (task.Patch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return task.Patch{}, fmt.Errorf("invalid request body: %w", err)
	}

	var p task.Patch
	if v, ok := raw["title"]; ok {
		var title string
		if err := json.Unmarshal(v, &title); err != nil {
			return task.Patch{}, fmt.Errorf("title must be a string")
		}
		p.Title = &title
	}
	if v, ok := raw["description"]; ok {
		var description string
		if err := json.Unmarshal(v, &description); err != nil {
			return task.Patch{}, fmt.Errorf("description must be a string")
		}
		p.Description = &description
	}
	if v, ok := raw["priority"]; ok {
		var priority task.Priority
		if err := json.Unmarshal(v, &priority); err != nil {
			return task.Patch{}, fmt.Errorf("priority must be a string")
		}
		p.Priority = &priority
	}
	if v, ok := raw["dueDate"]; ok {
		p.DueDateSet = true
		var due *string
		if err := json.Unmarshal(v, &due); err != nil {
			return task.Patch{}, fmt.Errorf("dueDate must be a string or null")
		}
		if due != nil {
			d, err := ParseDate(*due)
			if err != nil {
				return task.Patch{}, err
			}
			p.DueDate = d
		}
	}
	if v, ok := raw["tags"]; ok {
		tags := []string{}
		if err := json.Unmarshal(v, &tags); err != nil {
			return task.Patch{}, fmt.Errorf("tags must be an array of strings")
		}
		if tags == nil {
			tags = []string{}
		}
		p.Tags = &tags
	}
	return p, nil
}
