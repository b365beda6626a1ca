// Package access is the authorization guard gating every store mutation.
// Predicates are pure: they are given the acting identity and the target
// entity's attributes explicitly and never consult ambient state. The HTTP
// layer may hide buttons per role, but this package is the security boundary.
package access

import (
	"github.com/pkg/errors"

	"github.com/jkamau/darasa/core/user"
)

var (
	// ErrNotAuthenticated flags a missing, unknown or deactivated identity.
	ErrNotAuthenticated = errors.New("user not authenticated")
	// ErrPermissionDenied flags a valid identity lacking the role or
	// ownership required by the operation.
	ErrPermissionDenied = errors.New("permission denied")
)

// authenticated rejects zero-value and deactivated actors.
func authenticated(actor user.User) error {
	if actor.ID == "" || !actor.Active() {
		return ErrNotAuthenticated
	}
	return nil
}

// CanAuthorAssignments allows teachers to create assignments.
func CanAuthorAssignments(actor user.User) error {
	if err := authenticated(actor); err != nil {
		return err
	}
	if !actor.IsTeacher() {
		return ErrPermissionDenied
	}
	return nil
}

// CanMutateAssignment allows only the owning teacher to update, delete or
// transition an assignment.
func CanMutateAssignment(actor user.User, ownerID string) error {
	if err := authenticated(actor); err != nil {
		return err
	}
	if !actor.IsTeacher() || ownerID != actor.ID {
		return ErrPermissionDenied
	}
	return nil
}

// CanViewAssignment allows the owning teacher always, and students once the
// assignment has left DRAFT (open = published or completed). Teachers never
// see another teacher's assignments.
func CanViewAssignment(actor user.User, ownerID string, open bool) error {
	if err := authenticated(actor); err != nil {
		return err
	}
	if actor.IsTeacher() && ownerID == actor.ID {
		return nil
	}
	if actor.IsStudent() && open {
		return nil
	}
	return ErrPermissionDenied
}

// CanViewSubmissions allows only the owning teacher to list an assignment's
// submissions.
func CanViewSubmissions(actor user.User, ownerID string) error {
	return CanMutateAssignment(actor, ownerID)
}

// CanSubmit allows students to submit answers. Assignment state is the
// store's concern, not the guard's.
func CanSubmit(actor user.User) error {
	if err := authenticated(actor); err != nil {
		return err
	}
	if !actor.IsStudent() {
		return ErrPermissionDenied
	}
	return nil
}

// CanReview allows the teacher owning the parent assignment to review a
// submission under it.
func CanReview(actor user.User, assignmentOwnerID string) error {
	return CanMutateAssignment(actor, assignmentOwnerID)
}
