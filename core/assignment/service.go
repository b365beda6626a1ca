package assignment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jkamau/darasa/core"
	"github.com/jkamau/darasa/core/access"
	"github.com/jkamau/darasa/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("assignment not found")

	// lifecycle errors; a failed transition leaves the assignment unchanged
	ErrNotDraft     = errors.New("assignment is not a draft")
	ErrNotPublished = errors.New("assignment is not published")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		// UpdateAssignment persists title/description/dueDate changes.
		// The update is guarded on DRAFT status; ErrNotDraft otherwise.
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		// TransitionAssignment atomically moves id from one status to
		// another. Fails with ErrNotFound for an unknown id and with the
		// given stateErr when the row is not in the `from` status.
		TransitionAssignment(ctx context.Context, id, from, to string, stateErr error) (Assignment, error)
		// DeleteAssignment removes a DRAFT assignment; ErrNotDraft otherwise.
		DeleteAssignment(ctx context.Context, id string) error
		// QueryOwnerAssignments lists a teacher's assignments in creation
		// order, optionally filtered by status.
		QueryOwnerAssignments(ctx context.Context, ownerID, status string, p core.Pagination) ([]Assignment, int, error)
		// QueryPublishedAssignments lists PUBLISHED assignments ordered by
		// due date ascending.
		QueryPublishedAssignments(ctx context.Context, p core.Pagination) ([]Assignment, int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, actor user.User, na NewAssignment) (Assignment, error) {
	if err := access.CanAuthorAssignments(actor); err != nil {
		return Assignment{}, err
	}
	if err := na.Validate(); err != nil {
		return Assignment{}, err
	}

	now := time.Now().UTC()
	a := Assignment{
		ID:          uuid.New().String(),
		OwnerID:     actor.ID,
		Title:       na.Title,
		Description: null.NewString(na.Description, na.Description != ""),
		DueDate:     na.DueDate.UTC(),
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateAssignment(ctx, a)
}

func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Assignment, error) {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if err := access.CanViewAssignment(actor, a.OwnerID, a.IsOpen()); err != nil {
		return Assignment{}, err
	}
	return a, nil
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, ua UpdateAssignment) (Assignment, error) {
	orig, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if err := access.CanMutateAssignment(actor, orig.OwnerID); err != nil {
		return Assignment{}, err
	}
	if !orig.IsDraft() {
		return Assignment{}, ErrNotDraft
	}
	if err := ua.Validate(orig); err != nil {
		return Assignment{}, err
	}

	a := orig
	a.Title = ua.Title
	if ua.Description != nil {
		a.Description = null.NewString(*ua.Description, *ua.Description != "")
	}
	a.DueDate = ua.DueDate.UTC()
	a.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAssignment(ctx, a)
}

// Publish moves a DRAFT assignment to PUBLISHED. Not idempotent: publishing
// an already published or completed assignment fails with ErrNotDraft.
func (svc *Service) Publish(ctx context.Context, actor user.User, id string) (Assignment, error) {
	return svc.transition(ctx, actor, id, StatusDraft, StatusPublished, ErrNotDraft)
}

// Complete moves a PUBLISHED assignment to COMPLETED, its terminal state.
func (svc *Service) Complete(ctx context.Context, actor user.User, id string) (Assignment, error) {
	return svc.transition(ctx, actor, id, StatusPublished, StatusCompleted, ErrNotPublished)
}

func (svc *Service) transition(ctx context.Context, actor user.User, id, from, to string, stateErr error) (Assignment, error) {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if err := access.CanMutateAssignment(actor, a.OwnerID); err != nil {
		return Assignment{}, err
	}
	return svc.repo.TransitionAssignment(ctx, id, from, to, stateErr)
}

// Delete removes an assignment; only DRAFT assignments may be deleted, and no
// submissions can exist pre-publication, so nothing cascades.
func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return err
	}
	if err := access.CanMutateAssignment(actor, a.OwnerID); err != nil {
		return err
	}
	if !a.IsDraft() {
		return ErrNotDraft
	}
	return svc.repo.DeleteAssignment(ctx, id)
}

// Query lists the acting teacher's own assignments.
func (svc *Service) Query(ctx context.Context, actor user.User, qf QueryFilter) ([]Assignment, int, error) {
	if err := access.CanAuthorAssignments(actor); err != nil {
		return nil, 0, err
	}
	if err := qf.Clean(); err != nil {
		return nil, 0, err
	}
	return svc.repo.QueryOwnerAssignments(ctx, actor.ID, qf.Status, qf.Pagination)
}

// QueryPublished lists the assignments students may currently act on.
// COMPLETED assignments are excluded; students reach those through their own
// submissions.
func (svc *Service) QueryPublished(ctx context.Context, actor user.User, p core.Pagination) ([]Assignment, int, error) {
	if err := access.CanSubmit(actor); err != nil {
		return nil, 0, err
	}
	p.Clean()
	return svc.repo.QueryPublishedAssignments(ctx, p)
}
