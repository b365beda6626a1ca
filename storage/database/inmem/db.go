// Package inmemdb provides in-memory repositories backing tests and local
// development. A single lock per table keeps check-then-write sequences
// atomic, mirroring the guarantees of the SQL repositories.
package inmemdb

import (
	"sync"

	"github.com/jkamau/darasa/core/assignment"
	"github.com/jkamau/darasa/core/submission"
	"github.com/jkamau/darasa/core/user"
)

type (
	DB struct {
		mutex      sync.RWMutex // guards all tables; submit spans two of them
		user       map[string]*user.User
		assignment map[string]*assignment.Assignment
		// submission is keyed by assignmentID, then studentID
		submission map[string]map[string]*submission.Submission

		// seq preserves assignment creation order
		seq   int
		order map[string]int
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       make(map[string]*user.User),
		assignment: make(map[string]*assignment.Assignment),
		submission: make(map[string]map[string]*submission.Submission),
		order:      make(map[string]int),
	}
	return db, nil
}
