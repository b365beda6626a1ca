package submission

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/jkamau/darasa/core"
	"github.com/jkamau/darasa/core/assignment"
	"github.com/jkamau/darasa/core/user"
)

// Submission is a student's answer to a published assignment. Identity is the
// (assignmentId, studentId) pair: at most one submission exists per pair.
// Once created it is immutable except for the one-shot review transition.
type Submission struct {
	AssignmentID string      `json:"assignmentId"`
	StudentID    string      `json:"studentId"`
	Answer       string      `json:"answer"`
	SubmittedAt  time.Time   `json:"submittedAt"` // UTC
	Reviewed     bool        `json:"reviewed"`
	ReviewNote   null.String `json:"reviewNote,omitempty"`
	ReviewedAt   null.Time   `json:"reviewedAt,omitempty"`

	// Student is a read-only identity snapshot attached to teacher listings.
	Student *user.User `json:"student,omitempty"`
}

// ReviewedSubmission pairs a reviewed submission with its parent assignment
// snapshot, for the student's reviewed listing.
type ReviewedSubmission struct {
	Submission
	Assignment assignment.Assignment `json:"assignment"`
}

// NewSubmission contains information needed to create a new Submission.
type NewSubmission struct {
	Answer string `json:"answer" validate:"required"`
}

func (ns *NewSubmission) Validate() error {
	ns.Answer = core.CleanString(ns.Answer)
	return core.Validate.Struct(ns)
}

// ReviewSubmission carries the optional teacher note; an empty note is a
// valid review.
type ReviewSubmission struct {
	ReviewNote string `json:"reviewNote"`
}

func (rs *ReviewSubmission) Validate() error {
	rs.ReviewNote = core.CleanString(rs.ReviewNote)
	return core.Validate.Struct(rs)
}
