package inmemdb

import (
	"context"
	"sort"

	"github.com/jkamau/darasa/core"
	"github.com/jkamau/darasa/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.seq++
	repo.db.order[a.ID] = repo.db.seq
	repo.db.assignment[a.ID] = &a
	return a, nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.assignment[id]; ok {
		return *a, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.assignment[a.ID]
	if !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	if !orig.IsDraft() {
		return assignment.Assignment{}, assignment.ErrNotDraft
	}
	orig.Title = a.Title
	orig.Description = a.Description
	orig.DueDate = a.DueDate
	orig.UpdatedAt = a.UpdatedAt
	return *orig, nil
}

func (repo *assignmentRepository) TransitionAssignment(ctx context.Context, id, from, to string, stateErr error) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.assignment[id]
	if !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	if orig.Status != from {
		return assignment.Assignment{}, stateErr
	}
	orig.Status = to
	return *orig, nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.assignment[id]
	if !ok {
		return assignment.ErrNotFound
	}
	if !orig.IsDraft() {
		return assignment.ErrNotDraft
	}
	delete(repo.db.assignment, id)
	delete(repo.db.order, id)
	return nil
}

func (repo *assignmentRepository) QueryOwnerAssignments(ctx context.Context, ownerID, status string, p core.Pagination) ([]assignment.Assignment, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matches := make([]assignment.Assignment, 0)
	for _, a := range repo.db.assignment {
		if a.OwnerID != ownerID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		matches = append(matches, *a)
	}
	sort.Slice(matches, func(i, j int) bool {
		return repo.db.order[matches[i].ID] < repo.db.order[matches[j].ID]
	})
	return paginate(matches, p)
}

func (repo *assignmentRepository) QueryPublishedAssignments(ctx context.Context, p core.Pagination) ([]assignment.Assignment, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matches := make([]assignment.Assignment, 0)
	for _, a := range repo.db.assignment {
		if a.IsPublished() {
			matches = append(matches, *a)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].DueDate.Equal(matches[j].DueDate) {
			return repo.db.order[matches[i].ID] < repo.db.order[matches[j].ID]
		}
		return matches[i].DueDate.Before(matches[j].DueDate)
	})
	return paginate(matches, p)
}

func paginate(all []assignment.Assignment, p core.Pagination) ([]assignment.Assignment, int, error) {
	total := len(all)
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}
