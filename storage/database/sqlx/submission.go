package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jkamau/darasa/core/assignment"
	"github.com/jkamau/darasa/core/submission"
)

const pqUniqueViolation = "23505"

// validSubmissionKey rejects malformed ids before they reach the UUID columns.
func validSubmissionKey(assignmentID, studentID string) bool {
	if _, err := uuid.Parse(assignmentID); err != nil {
		return false
	}
	if _, err := uuid.Parse(studentID); err != nil {
		return false
	}
	return true
}

type submissionRow struct {
	AssignmentID string      `db:"assignment_id"`
	StudentID    string      `db:"student_id"`
	Answer       string      `db:"answer"`
	SubmittedAt  time.Time   `db:"submitted_at"`
	Reviewed     bool        `db:"reviewed"`
	ReviewNote   null.String `db:"review_note"`
	ReviewedAt   null.Time   `db:"reviewed_at"`
}

func (r submissionRow) domain() submission.Submission {
	return submission.Submission{
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		Answer:       r.Answer,
		SubmittedAt:  r.SubmittedAt,
		Reviewed:     r.Reviewed,
		ReviewNote:   r.ReviewNote,
		ReviewedAt:   r.ReviewedAt,
	}
}

type submissionRepository struct {
	db *sqlx.DB
}

var _ submission.Repository = (*submissionRepository)(nil)

func NewSubmissionRepository(db *sqlx.DB) *submissionRepository {
	return &submissionRepository{db: db}
}

// CreateSubmission re-checks the parent assignment's status in the INSERT
// itself; together with the (assignment_id, student_id) primary key this
// makes the duplicate check and the insert one atomic statement.
func (repo *submissionRepository) CreateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	const q = `
		INSERT INTO submission (assignment_id, student_id, answer, submitted_at)
		SELECT $1, $2, $3, $4
		WHERE EXISTS (SELECT 1 FROM assignment WHERE id = $1 AND status = 'PUBLISHED')`
	res, err := repo.db.ExecContext(ctx, q, s.AssignmentID, s.StudentID, s.Answer, s.SubmittedAt)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && string(pqErr.Code) == pqUniqueViolation {
			return submission.Submission{}, submission.ErrDuplicate
		}
		return submission.Submission{}, errors.Wrap(err, "inserting submission")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// assignment missing or no longer accepting submissions
		var exists bool
		if err := repo.db.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM assignment WHERE id = $1)`, s.AssignmentID); err != nil {
			return submission.Submission{}, errors.Wrap(err, "checking assignment")
		}
		if !exists {
			return submission.Submission{}, assignment.ErrNotFound
		}
		return submission.Submission{}, submission.ErrAssignmentNotOpen
	}
	return s, nil
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, assignmentID, studentID string) (submission.Submission, error) {
	if !validSubmissionKey(assignmentID, studentID) {
		return submission.Submission{}, submission.ErrNotFound
	}
	var row submissionRow
	const q = `SELECT * FROM submission WHERE assignment_id = $1 AND student_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, assignmentID, studentID); err != nil {
		return submission.Submission{}, trapNoRowsErr(err, submission.ErrNotFound, "finding submission")
	}
	return row.domain(), nil
}

func (repo *submissionRepository) QueryAssignmentSubmissions(ctx context.Context, assignmentID string) ([]submission.Submission, error) {
	type joinedRow struct {
		submissionRow
		userRow `db:"student"`
	}
	const q = `
		SELECT s.*,
		       u.id AS "student.id", u.name AS "student.name", u.username AS "student.username",
		       u.email AS "student.email", u.role AS "student.role", u.is_active AS "student.is_active",
		       u.password_hash AS "student.password_hash", u.created_at AS "student.created_at",
		       u.updated_at AS "student.updated_at", u.last_login AS "student.last_login"
		FROM submission s
		JOIN "user" u ON u.id = s.student_id
		WHERE s.assignment_id = $1
		ORDER BY s.submitted_at, s.student_id`
	var rows []joinedRow
	if err := repo.db.SelectContext(ctx, &rows, q, assignmentID); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	subs := make([]submission.Submission, 0, len(rows))
	for _, r := range rows {
		sub := r.submissionRow.domain()
		student := r.userRow.domain()
		student.PasswordHash = nil
		sub.Student = &student
		subs = append(subs, sub)
	}
	return subs, nil
}

func (repo *submissionRepository) QueryReviewedSubmissions(ctx context.Context, studentID string) ([]submission.ReviewedSubmission, error) {
	type joinedRow struct {
		submissionRow
		assignmentRow `db:"assignment"`
	}
	const q = `
		SELECT s.*,
		       a.id AS "assignment.id", a.owner_id AS "assignment.owner_id", a.title AS "assignment.title",
		       a.description AS "assignment.description", a.due_date AS "assignment.due_date",
		       a.status AS "assignment.status", a.created_at AS "assignment.created_at",
		       a.updated_at AS "assignment.updated_at"
		FROM submission s
		JOIN assignment a ON a.id = s.assignment_id
		WHERE s.student_id = $1 AND s.reviewed
		ORDER BY s.submitted_at, s.assignment_id`
	var rows []joinedRow
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying reviewed submissions")
	}

	reviewed := make([]submission.ReviewedSubmission, 0, len(rows))
	for _, r := range rows {
		reviewed = append(reviewed, submission.ReviewedSubmission{
			Submission: r.submissionRow.domain(),
			Assignment: r.assignmentRow.domain(),
		})
	}
	return reviewed, nil
}

// ReviewSubmission is guarded on reviewed = FALSE: of two concurrent review
// attempts exactly one row-updates, the other resolves to ErrAlreadyReviewed
// with the first note left intact.
func (repo *submissionRepository) ReviewSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	if !validSubmissionKey(s.AssignmentID, s.StudentID) {
		return submission.Submission{}, submission.ErrNotFound
	}
	const q = `
		UPDATE submission
		SET reviewed = TRUE, review_note = $3, reviewed_at = $4
		WHERE assignment_id = $1 AND student_id = $2 AND reviewed = FALSE
		RETURNING *`
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, q, s.AssignmentID, s.StudentID, s.ReviewNote, s.ReviewedAt)
	if err != nil {
		if errNoRows(err) {
			if _, gerr := repo.GetSubmission(ctx, s.AssignmentID, s.StudentID); gerr != nil {
				return submission.Submission{}, gerr
			}
			return submission.Submission{}, submission.ErrAlreadyReviewed
		}
		return submission.Submission{}, errors.Wrap(err, "reviewing submission")
	}
	return row.domain(), nil
}
