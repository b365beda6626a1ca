package assignment

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/jkamau/darasa/core"
)

// Lifecycle statuses. Transitions are monotonic:
// DRAFT -> PUBLISHED -> COMPLETED; COMPLETED is terminal.
const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
	StatusCompleted = "COMPLETED"
)

var AllStatuses = []string{StatusDraft, StatusPublished, StatusCompleted}

// Assignment is a task authored by a teacher. Only DRAFT assignments are
// mutable and deletable; after publication only the status may change.
// JSON field names follow the public API contract (camelCase).
type Assignment struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"ownerTeacherId"`
	Title       string      `json:"title"`
	Description null.String `json:"description"`
	DueDate     time.Time   `json:"dueDate"` // UTC
	Status      string      `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"` // UTC
	UpdatedAt   time.Time   `json:"updatedAt"` // UTC
}

func (a *Assignment) IsDraft() bool     { return a.Status == StatusDraft }
func (a *Assignment) IsPublished() bool { return a.Status == StatusPublished }
func (a *Assignment) IsCompleted() bool { return a.Status == StatusCompleted }

// IsOpen reports whether the assignment is visible to students.
func (a *Assignment) IsOpen() bool { return a.IsPublished() || a.IsCompleted() }

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate" validate:"required"`
}

func (na *NewAssignment) Validate() error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return core.Validate.Struct(na)
}

// UpdateAssignment defines what may be modified on a DRAFT Assignment.
// Zero values leave the original field untouched; Description distinguishes
// "absent" (nil) from "cleared" (empty string).
type UpdateAssignment struct {
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	DueDate     time.Time `json:"dueDate"`
}

func (ua *UpdateAssignment) Validate(orig Assignment) error {
	if title := core.CleanString(ua.Title); title != "" {
		ua.Title = title
	} else {
		ua.Title = orig.Title
	}
	if ua.Description != nil {
		desc := core.CleanString(*ua.Description)
		ua.Description = &desc
	}
	if ua.DueDate.IsZero() {
		ua.DueDate = orig.DueDate
	}
	return core.Validate.Struct(ua)
}

// QueryFilter narrows a teacher's assignment listing.
type QueryFilter struct {
	Status string `query:"status" validate:"omitempty,assignmentstatus"`
	core.Pagination
}

func (qf *QueryFilter) Clean() error {
	qf.Status = strings.ToUpper(core.CleanString(qf.Status))
	qf.Pagination.Clean()
	if qf.Status != "" {
		if err := core.Validate.Var(qf.Status, "assignmentstatus"); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "unknown status"})
		}
	}
	return nil
}
