package inmemdb

import (
	"context"
	"sort"

	"github.com/jkamau/darasa/core/assignment"
	"github.com/jkamau/darasa/core/submission"
)

type submissionRepository struct {
	db *DB
}

var _ submission.Repository = (*submissionRepository)(nil)

func NewSubmissionRepository(db *DB) *submissionRepository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// re-check the parent status under the same lock as the insert
	a, ok := repo.db.assignment[s.AssignmentID]
	if !ok {
		return submission.Submission{}, assignment.ErrNotFound
	}
	if !a.IsPublished() {
		return submission.Submission{}, submission.ErrAssignmentNotOpen
	}

	byStudent, ok := repo.db.submission[s.AssignmentID]
	if !ok {
		byStudent = make(map[string]*submission.Submission)
		repo.db.submission[s.AssignmentID] = byStudent
	}
	if _, exists := byStudent[s.StudentID]; exists {
		return submission.Submission{}, submission.ErrDuplicate
	}
	byStudent[s.StudentID] = &s
	return s, nil
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, assignmentID, studentID string) (submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.submission[assignmentID][studentID]; ok {
		return *s, nil
	}
	return submission.Submission{}, submission.ErrNotFound
}

func (repo *submissionRepository) QueryAssignmentSubmissions(ctx context.Context, assignmentID string) ([]submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]submission.Submission, 0, len(repo.db.submission[assignmentID]))
	for _, s := range repo.db.submission[assignmentID] {
		sub := *s
		if usr, ok := repo.db.user[sub.StudentID]; ok {
			snapshot := *usr
			sub.Student = &snapshot
		}
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *submissionRepository) QueryReviewedSubmissions(ctx context.Context, studentID string) ([]submission.ReviewedSubmission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reviewed := make([]submission.ReviewedSubmission, 0)
	for assignmentID, byStudent := range repo.db.submission {
		s, ok := byStudent[studentID]
		if !ok || !s.Reviewed {
			continue
		}
		a, ok := repo.db.assignment[assignmentID]
		if !ok {
			continue
		}
		reviewed = append(reviewed, submission.ReviewedSubmission{Submission: *s, Assignment: *a})
	}
	sort.Slice(reviewed, func(i, j int) bool {
		return reviewed[i].SubmittedAt.Before(reviewed[j].SubmittedAt)
	})
	return reviewed, nil
}

func (repo *submissionRepository) ReviewSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.submission[s.AssignmentID][s.StudentID]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	if orig.Reviewed {
		return submission.Submission{}, submission.ErrAlreadyReviewed
	}
	orig.Reviewed = true
	orig.ReviewNote = s.ReviewNote
	orig.ReviewedAt = s.ReviewedAt
	return *orig, nil
}
