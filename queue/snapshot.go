package queue

import (
	"fmt"
)

// AdmissionViolationError is returned by Restore when a snapshot holds a line that could never
// have been built by Add
type AdmissionViolationError struct {
	Position int
	User     UserID
}

func (e *AdmissionViolationError) Error() string {
	return fmt.Sprintf("snapshot entry [%d] for user [%s] violates the admission rule", e.Position, e.User)
}

// Restore rebuilds a Queue from snapshot entries (head first). Entries are replayed without
// saving anything and each one must satisfy the admission rule. The options (such as the
// Snapshotter to use from then on) apply once the replay is done
func Restore(entries []UserID, options ...Option) (q *Queue, err error) {
	q = New(options...)
	s := q.snapshotter
	q.snapshotter = nil

	for i, u := range entries {
		if !q.admit(u) {
			return nil, &AdmissionViolationError{Position: i, User: u}
		}
	}

	q.snapshotter = s
	return q, nil
}
