package printqueue

import (
	"fmt"
	"io"
	"strings"

	"github.com/alexandre-normand/printqueue/queue"
)

// help generates a message listing all commands along with their description
func (in *Interpreter) help(u queue.UserID) *Answer {
	var b strings.Builder

	fmt.Fprintf(&b, "I keep the line for the 3D printer. Mention me followed by one of these commands:\n")
	appendActions(&b, in.commands)

	return &Answer{Text: strings.TrimSuffix(b.String(), "\n"), Outcome: outcomeHelp}
}

// unrecognizedMessage lists the valid command words
func (in *Interpreter) unrecognizedMessage() string {
	names := make([]string, len(in.commands))
	for i, c := range in.commands {
		names[i] = c.Command
	}

	return fmt.Sprintf("Unrecognized command. Your options are: %s", enumerate(names))
}

func appendActions(w io.Writer, actions []ActionDefinition) {
	for _, value := range actions {
		if value.Usage != "" {
			fmt.Fprintf(w, "\t• %s\n", value)
		}
	}
}

// enumerate joins the words with commas except for the last two which are joined with "and"
func enumerate(words []string) string {
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	default:
		return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
	}
}
