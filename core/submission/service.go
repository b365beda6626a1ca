package submission

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jkamau/darasa/core"
	"github.com/jkamau/darasa/core/access"
	"github.com/jkamau/darasa/core/assignment"
	"github.com/jkamau/darasa/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("submission not found")
	ErrDuplicate       = errors.New("an answer has already been submitted for this assignment")
	ErrAlreadyReviewed = errors.New("submission has already been reviewed")
	// ErrAssignmentNotOpen flags a submit attempt against an assignment that
	// is not accepting answers (DRAFT or COMPLETED).
	ErrAssignmentNotOpen = errors.New("assignment is not accepting submissions")
)

type (
	Repository interface {
		// CreateSubmission inserts atomically with respect to concurrent
		// submissions for the same (assignment, student) pair: first writer
		// wins, the second fails with ErrDuplicate. The insert also
		// re-checks the parent assignment's PUBLISHED status so no
		// submission is accepted against a concurrently-closed assignment
		// (ErrAssignmentNotOpen).
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		// GetSubmission returns ErrNotFound when the pair has no submission.
		GetSubmission(ctx context.Context, assignmentID, studentID string) (Submission, error)
		// QueryAssignmentSubmissions lists an assignment's submissions
		// ordered by submittedAt ascending, with student snapshots attached.
		QueryAssignmentSubmissions(ctx context.Context, assignmentID string) ([]Submission, error)
		// QueryReviewedSubmissions lists a student's reviewed submissions,
		// each paired with its assignment snapshot.
		QueryReviewedSubmissions(ctx context.Context, studentID string) ([]ReviewedSubmission, error)
		// ReviewSubmission atomically flips reviewed false->true and sets
		// the note. Concurrent double reviews resolve to exactly one success
		// and one ErrAlreadyReviewed; the first note is preserved.
		ReviewSubmission(ctx context.Context, s Submission) (Submission, error)
	}

	Service struct {
		repo    Repository
		assRepo assignment.Repository
		usrRepo user.Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(repo Repository, assRepo assignment.Repository, usrRepo user.Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		assRepo: assRepo,
		usrRepo: usrRepo,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Submit records the acting student's answer to a published assignment and
// notifies the assignment's owner.
func (svc *Service) Submit(ctx context.Context, actor user.User, assignmentID string, ns NewSubmission) (Submission, error) {
	if err := access.CanSubmit(actor); err != nil {
		return Submission{}, err
	}
	if err := ns.Validate(); err != nil {
		return Submission{}, err
	}

	a, err := svc.assRepo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Submission{}, err
	}
	if !a.IsPublished() {
		return Submission{}, ErrAssignmentNotOpen
	}

	s := Submission{
		AssignmentID: a.ID,
		StudentID:    actor.ID,
		Answer:       ns.Answer,
		SubmittedAt:  time.Now().UTC(),
	}
	s, err = svc.repo.CreateSubmission(ctx, s)
	if err != nil {
		return Submission{}, err
	}

	svc.notifySubmitted(ctx, a, actor)
	return s, nil
}

// GetMine returns the caller's own submission for the assignment, or nil when
// the student has not submitted yet. Absence is not an error.
func (svc *Service) GetMine(ctx context.Context, actor user.User, assignmentID string) (*Submission, error) {
	if err := access.CanSubmit(actor); err != nil {
		return nil, err
	}
	s, err := svc.repo.GetSubmission(ctx, assignmentID, actor.ID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// QueryForAssignment lists all submissions under the acting teacher's
// assignment, submittedAt ascending.
func (svc *Service) QueryForAssignment(ctx context.Context, actor user.User, assignmentID string) ([]Submission, error) {
	a, err := svc.assRepo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := access.CanViewSubmissions(actor, a.OwnerID); err != nil {
		return nil, err
	}
	return svc.repo.QueryAssignmentSubmissions(ctx, a.ID)
}

// QueryReviewed lists the acting student's reviewed submissions, each paired
// with its parent assignment snapshot.
func (svc *Service) QueryReviewed(ctx context.Context, actor user.User) ([]ReviewedSubmission, error) {
	if err := access.CanSubmit(actor); err != nil {
		return nil, err
	}
	return svc.repo.QueryReviewedSubmissions(ctx, actor.ID)
}

// Review marks a submission evaluated, exactly once. A second review attempt
// fails with ErrAlreadyReviewed and the first note is preserved. The reviewed
// student is notified.
func (svc *Service) Review(ctx context.Context, actor user.User, assignmentID, studentID string, rs ReviewSubmission) (Submission, error) {
	a, err := svc.assRepo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Submission{}, err
	}
	if err := access.CanReview(actor, a.OwnerID); err != nil {
		return Submission{}, err
	}
	if err := rs.Validate(); err != nil {
		return Submission{}, err
	}

	s := Submission{
		AssignmentID: a.ID,
		StudentID:    studentID,
		Reviewed:     true,
		ReviewNote:   null.StringFrom(rs.ReviewNote),
		ReviewedAt:   null.TimeFrom(time.Now().UTC()),
	}
	s, err = svc.repo.ReviewSubmission(ctx, s)
	if err != nil {
		return Submission{}, err
	}

	svc.notifyReviewed(ctx, a, s)
	return s, nil
}

func (svc *Service) notifySubmitted(ctx context.Context, a assignment.Assignment, student user.User) {
	owner, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: a.OwnerID})
	if err != nil {
		svc.logger.Warn("skipping submission notification", errors.Wrap(err, "finding assignment owner"))
		return
	}
	if owner.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: owner.Name, Address: owner.Email}},
		Subject:      fmt.Sprintf("New submission for %q", a.Title),
		TemplateName: "submission-received",
		TemplateData: struct {
			Assignment  assignment.Assignment
			StudentName string
		}{a, student.Name},
	})
}

func (svc *Service) notifyReviewed(ctx context.Context, a assignment.Assignment, s Submission) {
	student, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: s.StudentID})
	if err != nil {
		svc.logger.Warn("skipping review notification", errors.Wrap(err, "finding student"))
		return
	}
	if student.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      fmt.Sprintf("Your submission for %q was reviewed", a.Title),
		TemplateName: "submission-reviewed",
		TemplateData: struct {
			Assignment assignment.Assignment
			ReviewNote string
		}{a, s.ReviewNote.String},
	})
}
