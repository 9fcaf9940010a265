package printqueue

import (
	"github.com/alexandre-normand/printqueue/queue"
)

// Answer holds data of a command's Answer: namely, its text and the outcome of the command
// to report in metrics
type Answer struct {
	Text    string
	Outcome string
}

// Answerer is what gets executed when a command is triggered by a user
type Answerer func(u queue.UserID) *Answer

// withPersistFailure appends the warning about the saved copy of the queue being out of sync
func (a *Answer) withPersistFailure(err error) *Answer {
	a.Text = a.Text + "\n" + persistFailureMessage(err)
	a.Outcome = outcomePersistFailed

	return a
}
