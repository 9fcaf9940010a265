package printqueue

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/alexandre-normand/printqueue/queue"
)

// Commands
const (
	addCommand    = "add"
	cancelCommand = "cancel"
	doneCommand   = "done"
	helpCommand   = "help"
	showCommand   = "show"

	unrecognizedCommand = "unrecognized"
)

const (
	emptyQueueMessage = "The queue is empty."
	nobodyNextMessage = "Nobody is next in line."
	notAtFrontMessage = "You cannot be done; you are not at the front of the line"
	notInQueueMessage = "You weren't in the queue to begin with"
	notAdmittedFormat = "Sorry <@%s>, you are already last in line. Wait for someone else to get in line before adding yourself again"
)

// ActionDefinition represents a command: the word that triggers it, how it's described in the
// help message and what it does
type ActionDefinition struct {
	// Command word, matched exactly (after lowercasing) against what follows the mention
	Command string

	// Usage example
	Usage string

	// Help description for the action
	Description string

	// Function to execute when the command is triggered
	Answer Answerer
}

// String returns a friendly description of an ActionDefinition
func (a ActionDefinition) String() string {
	return fmt.Sprintf("`%s` - %s", a.Usage, a.Description)
}

// Interpreter turns the text of mentions into queue operations and the replies describing them.
// An Interpreter isn't safe for concurrent use
type Interpreter struct {
	queue     *queue.Queue
	directory queue.Directory
	mention   string
	commands  []ActionDefinition
	metrics   *Metrics
	logger    SLogger
}

// InterpreterOption defines an option for an Interpreter
type InterpreterOption func(in *Interpreter)

// OptionMention sets the mention literal that must prefix commands (i.e. <@U0PRINTQ>)
func OptionMention(mention string) InterpreterOption {
	return func(in *Interpreter) {
		in.mention = mention
	}
}

// OptionMetrics sets the metrics commands are counted in
func OptionMetrics(m *Metrics) InterpreterOption {
	return func(in *Interpreter) {
		in.metrics = m
	}
}

// OptionLogger sets the logger of the Interpreter
func OptionLogger(logger SLogger) InterpreterOption {
	return func(in *Interpreter) {
		in.logger = logger
	}
}

// NewInterpreter creates a new Interpreter for the queue. Names are resolved with the directory
// when rendering the queue
func NewInterpreter(q *queue.Queue, dir queue.Directory, options ...InterpreterOption) (in *Interpreter) {
	in = new(Interpreter)
	in.queue = q
	in.directory = dir
	in.metrics = NewMetrics()
	in.logger = NewSLogger(log.New(os.Stdout, "", log.LstdFlags), false)

	for _, opt := range options {
		opt(in)
	}

	in.commands = []ActionDefinition{
		{Command: addCommand, Usage: addCommand, Description: "Get in line for the printer", Answer: in.add},
		{Command: cancelCommand, Usage: cancelCommand, Description: "Give up your earliest spot in line", Answer: in.cancel},
		{Command: doneCommand, Usage: doneCommand, Description: "Leave the front of the line when you're done printing", Answer: in.done},
		{Command: helpCommand, Usage: helpCommand, Description: "Reply with usage instructions", Answer: in.help},
		{Command: showCommand, Usage: showCommand, Description: "Show who's in line", Answer: in.show},
	}

	in.metrics.setQueueLength(q.Len())

	return in
}

// Commands returns the definitions of all supported commands
func (in *Interpreter) Commands() []ActionDefinition {
	return in.commands
}

// Handle interprets the text sent by the user. If the text doesn't start with the mention, it
// isn't a command and ok is false. Otherwise, the reply to post back is returned
func (in *Interpreter) Handle(u queue.UserID, text string) (reply string, ok bool) {
	command, ok := in.stripMention(text)
	if !ok {
		return "", false
	}

	in.logger.Debugf("Handling command [%s] from [%s]\n", command, u)

	answer, name := in.dispatch(command, u)
	in.metrics.countCommand(name, answer.Outcome)
	in.metrics.setQueueLength(in.queue.Len())

	return answer.Text, true
}

// stripMention removes the mention literal (matched regardless of case) from the start of the
// text along with an optional colon and returns the lowercased rest
func (in *Interpreter) stripMention(text string) (command string, ok bool) {
	t := strings.TrimSpace(text)
	if len(t) < len(in.mention) || !strings.EqualFold(t[:len(in.mention)], in.mention) {
		return "", false
	}

	rest := strings.TrimSpace(t[len(in.mention):])
	rest = strings.TrimPrefix(rest, ":")

	return strings.ToLower(strings.TrimSpace(rest)), true
}

func (in *Interpreter) dispatch(command string, u queue.UserID) (answer *Answer, name string) {
	for _, c := range in.commands {
		if c.Command == command {
			return c.Answer(u), c.Command
		}
	}

	return &Answer{Text: in.unrecognizedMessage(), Outcome: outcomeUnrecognized}, unrecognizedCommand
}

func (in *Interpreter) add(u queue.UserID) *Answer {
	outcome := in.queue.Add(u)

	switch outcome.Status {
	case queue.NotAdmitted:
		return &Answer{Text: fmt.Sprintf(notAdmittedFormat, u), Outcome: outcomeNotAdmitted}
	case queue.AddedButPersistFailed:
		in.reportPersistFailure(outcome.Err)
		return in.addedAnswer(u, outcome.Position).withPersistFailure(outcome.Err)
	default:
		return in.addedAnswer(u, outcome.Position)
	}
}

func (in *Interpreter) addedAnswer(u queue.UserID, position int) *Answer {
	return &Answer{Text: fmt.Sprintf("Okay <@%s>, I have added you to the queue at position %d", u, position), Outcome: outcomeAdded}
}

func (in *Interpreter) done(u queue.UserID) *Answer {
	if head, ok := in.queue.PeekFirst(); !ok || head != u {
		return &Answer{Text: notAtFrontMessage, Outcome: outcomeNotAtFront}
	}

	_, _, err := in.queue.RemoveFirst()

	answer := &Answer{Text: fmt.Sprintf("Okay <@%s>, you have been removed from the front of the queue\n%s", u, in.nextUpMessage()), Outcome: outcomeRemoved}
	if err != nil {
		in.reportPersistFailure(err)
		return answer.withPersistFailure(err)
	}

	return answer
}

func (in *Interpreter) cancel(u queue.UserID) *Answer {
	outcome := in.queue.Remove(u)
	if outcome.Status == queue.NotFound {
		return &Answer{Text: notInQueueMessage, Outcome: outcomeNotFound}
	}

	answer := &Answer{Text: fmt.Sprintf("Okay <@%s>, I have removed you from position %d of the queue", u, outcome.PreviousIndex), Outcome: outcomeRemoved}
	if outcome.PreviousIndex == 0 {
		answer.Text = answer.Text + "\n" + in.nextUpMessage()
	}

	if outcome.Status == queue.RemovedButPersistFailed {
		in.reportPersistFailure(outcome.Err)
		return answer.withPersistFailure(outcome.Err)
	}

	return answer
}

func (in *Interpreter) show(u queue.UserID) *Answer {
	if in.queue.Len() == 0 {
		return &Answer{Text: emptyQueueMessage, Outcome: outcomeEmpty}
	}

	return &Answer{Text: in.queue.Render(in.directory), Outcome: outcomeShown}
}

func (in *Interpreter) nextUpMessage() string {
	if next, ok := in.queue.PeekFirst(); ok {
		return fmt.Sprintf("<@%s>, you're up next!", next)
	}

	return nobodyNextMessage
}

func (in *Interpreter) reportPersistFailure(err error) {
	in.logger.Printf("Error saving queue snapshot: %v\n", err)
	in.metrics.countSnapshotFailure()
}

func persistFailureMessage(err error) string {
	return fmt.Sprintf("Sorry, I couldn't back up the queue so my saved copy is now out of sync: %v", err)
}
