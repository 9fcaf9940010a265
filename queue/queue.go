// Package queue implements the waiting line of slack users for a shared resource along
// with its admission rule and the replay of persisted snapshots.
//
// A Queue isn't safe for concurrent use. Its owner is expected to serialize calls to it.
package queue

import (
	"fmt"
	"strings"
)

const (
	// DefaultShortLineLength is the line length under which a user may get in line right
	// behind themselves
	DefaultShortLineLength = 3
)

// AddStatus is the result of an attempt to get in line
type AddStatus int

// AddStatus values
const (
	Added AddStatus = iota
	AddedButPersistFailed
	NotAdmitted
)

// RemoveStatus is the result of an attempt to leave the line
type RemoveStatus int

// RemoveStatus values
const (
	Removed RemoveStatus = iota
	RemovedButPersistFailed
	NotFound
)

// AddOutcome holds the result of Add. Position is the 0-based index of the new entry and Err
// is only set when the status is AddedButPersistFailed
type AddOutcome struct {
	Status   AddStatus
	Position int
	Err      error
}

// RemoveOutcome holds the result of Remove. PreviousIndex is the 0-based index the removed
// entry had and Err is only set when the status is RemovedButPersistFailed
type RemoveOutcome struct {
	Status        RemoveStatus
	PreviousIndex int
	Err           error
}

// Snapshotter is implemented by any value that can durably save the full content of a queue
type Snapshotter interface {
	Save(entries []UserID) (err error)
}

// Queue is a first-in-first-out line of users. The head (index 0) is the next one to be served
type Queue struct {
	entries         []UserID
	snapshotter     Snapshotter
	shortLineLength int
}

// Option defines an option for a Queue
type Option func(q *Queue)

// OptionSnapshotter sets the Snapshotter every mutation is written through to
func OptionSnapshotter(s Snapshotter) Option {
	return func(q *Queue) {
		q.snapshotter = s
	}
}

// OptionShortLineLength overrides the line length under which a user may get in line
// right behind themselves. Values lower than 0 are ignored
func OptionShortLineLength(length int) Option {
	return func(q *Queue) {
		if length >= 0 {
			q.shortLineLength = length
		}
	}
}

// New returns a new empty Queue
func New(options ...Option) (q *Queue) {
	q = new(Queue)
	q.entries = make([]UserID, 0)
	q.shortLineLength = DefaultShortLineLength

	for _, opt := range options {
		opt(q)
	}

	return q
}

// Len returns the number of entries in line
func (q *Queue) Len() int {
	return len(q.entries)
}

// Entries returns a copy of the line, head first
func (q *Queue) Entries() (entries []UserID) {
	entries = make([]UserID, len(q.entries))
	copy(entries, q.entries)

	return entries
}

// CanAdmit returns true if the user may get in line. This is always the case when the line is
// short. Otherwise, a user can't get in line right behind their own most recent entry
func (q *Queue) CanAdmit(u UserID) bool {
	if len(q.entries) < q.shortLineLength {
		return true
	}

	back, _ := q.Back()
	return back != u
}

// Add appends the user at the back of the line if the admission rule allows it. The new
// content is then saved with the Snapshotter, if any. A failure to save doesn't undo the
// addition
func (q *Queue) Add(u UserID) (outcome AddOutcome) {
	if !q.admit(u) {
		return AddOutcome{Status: NotAdmitted, Position: -1}
	}

	outcome = AddOutcome{Status: Added, Position: len(q.entries) - 1}
	if err := q.save(); err != nil {
		outcome.Status = AddedButPersistFailed
		outcome.Err = err
	}

	return outcome
}

// admit appends the user if the admission rule allows it without touching the Snapshotter
func (q *Queue) admit(u UserID) bool {
	if !q.CanAdmit(u) {
		return false
	}

	q.entries = append(q.entries, u)
	return true
}

// PeekFirst returns the user at the head of the line without removing it
func (q *Queue) PeekFirst() (u UserID, ok bool) {
	if len(q.entries) == 0 {
		return "", false
	}

	return q.entries[0], true
}

// Back returns the most recently admitted user
func (q *Queue) Back() (u UserID, ok bool) {
	if len(q.entries) == 0 {
		return "", false
	}

	return q.entries[len(q.entries)-1], true
}

// RemoveFirst removes and returns the head of the line. If the line is empty, ok is false and
// nothing is saved. A non-nil err means the removal happened but saving the new content failed
func (q *Queue) RemoveFirst() (u UserID, ok bool, err error) {
	if len(q.entries) == 0 {
		return "", false, nil
	}

	u = q.entries[0]
	q.entries = q.entries[1:]

	return u, true, q.save()
}

// Position returns the index of the first (closest to the head) entry of the user
func (q *Queue) Position(u UserID) (index int, ok bool) {
	for i, e := range q.entries {
		if e == u {
			return i, true
		}
	}

	return -1, false
}

// Remove removes the first (closest to the head) entry of the user, wherever it is in line.
// Later entries each move up by one. A user holding many entries only gives up their
// earliest one
func (q *Queue) Remove(u UserID) (outcome RemoveOutcome) {
	i, ok := q.Position(u)
	if !ok {
		return RemoveOutcome{Status: NotFound, PreviousIndex: -1}
	}

	q.entries = append(q.entries[:i], q.entries[i+1:]...)

	outcome = RemoveOutcome{Status: Removed, PreviousIndex: i}
	if err := q.save(); err != nil {
		outcome.Status = RemovedButPersistFailed
		outcome.Err = err
	}

	return outcome
}

// Render returns the numbered line, head first, one entry per line. Names are resolved with
// the directory and fall back to the raw user id
func (q *Queue) Render(dir Directory) string {
	lines := make([]string, len(q.entries))

	for i, u := range q.entries {
		var info DisplayInfo
		if dir != nil {
			info, _ = dir.Lookup(u)
		}

		if info.Handle != "" {
			lines[i] = fmt.Sprintf("%d. %s (%s)", i, info.Name(u), info.Handle)
		} else {
			lines[i] = fmt.Sprintf("%d. %s", i, info.Name(u))
		}
	}

	return strings.Join(lines, "\n")
}

func (q *Queue) save() (err error) {
	if q.snapshotter == nil {
		return nil
	}

	return q.snapshotter.Save(q.Entries())
}
