package task

import "time"

// Patch holds the whitelisted fields of an update request. A nil pointer
// means the field was not submitted.
type Patch struct {
	Title       *string
	Description *string
	Priority    *Priority
	// DueDateSet distinguishes an explicit null (clear the date) from absence.
	DueDateSet bool
	DueDate    *time.Time
	Tags       *[]string
}

func (p Patch) Empty() bool {
	return p.Title == nil &&
		p.Description == nil &&
		p.Priority == nil &&
		!p.DueDateSet &&
		p.Tags == nil
}

// Fields renders the submitted values keyed by their wire names, for stores
// that merge-update by field.
func (p Patch) Fields() map[string]any {
	fields := make(map[string]any)
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Priority != nil {
		fields["priority"] = *p.Priority
	}
	if p.DueDateSet {
		fields["dueDate"] = p.DueDate
	}
	if p.Tags != nil {
		fields["tags"] = *p.Tags
	}
	return fields
}
