package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jkamau/darasa/core"
	"github.com/jkamau/darasa/core/assignment"
)

type assignmentRow struct {
	ID          string      `db:"id"`
	OwnerID     string      `db:"owner_id"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	DueDate     time.Time   `db:"due_date"`
	Status      string      `db:"status"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (r assignmentRow) domain() assignment.Assignment {
	return assignment.Assignment{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func domainAssignments(rows []assignmentRow) []assignment.Assignment {
	out := make([]assignment.Assignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out
}

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *sqlx.DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	const q = `
		INSERT INTO assignment (id, owner_id, title, description, due_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.db.ExecContext(ctx, q,
		a.ID, a.OwnerID, a.Title, a.Description, a.DueDate, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	// a malformed id cannot match any UUID row
	if _, err := uuid.Parse(id); err != nil {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM assignment WHERE id = $1`, id); err != nil {
		return assignment.Assignment{}, trapNoRowsErr(err, assignment.ErrNotFound, "finding assignment")
	}
	return row.domain(), nil
}

// UpdateAssignment only writes while the row is still DRAFT; the guard and
// the write are a single statement so no concurrent publish can slip in
// between.
func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	const q = `
		UPDATE assignment
		SET title = $2, description = $3, due_date = $4, updated_at = $5
		WHERE id = $1 AND status = 'DRAFT'
		RETURNING *`
	var row assignmentRow
	err := repo.db.GetContext(ctx, &row, q, a.ID, a.Title, a.Description, a.DueDate, a.UpdatedAt)
	if err != nil {
		return assignment.Assignment{}, repo.disambiguate(ctx, err, a.ID, assignment.ErrNotDraft, "updating assignment")
	}
	return row.domain(), nil
}

func (repo *assignmentRepository) TransitionAssignment(ctx context.Context, id, from, to string, stateErr error) (assignment.Assignment, error) {
	const q = `
		UPDATE assignment
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING *`
	var row assignmentRow
	err := repo.db.GetContext(ctx, &row, q, id, from, to, time.Now().UTC())
	if err != nil {
		return assignment.Assignment{}, repo.disambiguate(ctx, err, id, stateErr, "transitioning assignment")
	}
	return row.domain(), nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM assignment WHERE id = $1 AND status = 'DRAFT'`, id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := repo.GetAssignment(ctx, id); err != nil {
			return err
		}
		return assignment.ErrNotDraft
	}
	return nil
}

func (repo *assignmentRepository) QueryOwnerAssignments(ctx context.Context, ownerID, status string, p core.Pagination) ([]assignment.Assignment, int, error) {
	where := `WHERE owner_id = $1 AND ($2 = '' OR status = $2)`

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM assignment `+where, ownerID, status); err != nil {
		return nil, 0, errors.Wrap(err, "counting assignments")
	}

	var rows []assignmentRow
	q := `SELECT * FROM assignment ` + where + ` ORDER BY created_at, id LIMIT $3 OFFSET $4`
	if err := repo.db.SelectContext(ctx, &rows, q, ownerID, status, p.Limit, p.Offset()); err != nil {
		return nil, 0, errors.Wrap(err, "querying assignments")
	}
	return domainAssignments(rows), total, nil
}

func (repo *assignmentRepository) QueryPublishedAssignments(ctx context.Context, p core.Pagination) ([]assignment.Assignment, int, error) {
	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM assignment WHERE status = 'PUBLISHED'`); err != nil {
		return nil, 0, errors.Wrap(err, "counting published assignments")
	}

	var rows []assignmentRow
	const q = `SELECT * FROM assignment WHERE status = 'PUBLISHED' ORDER BY due_date, id LIMIT $1 OFFSET $2`
	if err := repo.db.SelectContext(ctx, &rows, q, p.Limit, p.Offset()); err != nil {
		return nil, 0, errors.Wrap(err, "querying published assignments")
	}
	return domainAssignments(rows), total, nil
}

// disambiguate resolves a zero-row guarded write into ErrNotFound (row gone)
// or the transition's state error (row present but in another status).
func (repo *assignmentRepository) disambiguate(ctx context.Context, err error, id string, stateErr error, msg string) error {
	if errNoRows(err) {
		if _, gerr := repo.GetAssignment(ctx, id); gerr != nil {
			return gerr
		}
		return stateErr
	}
	return errors.Wrap(err, msg)
}
