// Package capture provides test doubles that record what the bot sends to slack
package capture

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/slack-go/slack"
)

// MessagePosterCaptor holds messages posted to it keyed by channel ID. It's safe for concurrent
// use so tests can inspect messages posted from other goroutines
type MessagePosterCaptor struct {
	mu           sync.Mutex
	sentMessages map[string][]string
	currentID    int

	// Err, when set, is returned by PostMessageContext and the message isn't recorded
	Err error
}

// NewMessagePoster returns a new initialized MessagePosterCaptor instance
func NewMessagePoster() (mpc *MessagePosterCaptor) {
	mpc = new(MessagePosterCaptor)
	mpc.sentMessages = make(map[string][]string)

	return mpc
}

// PostMessageContext captures the text of a posted message along with the channel it's posted to
func (mpc *MessagePosterCaptor) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (respChannel string, respTimestamp string, err error) {
	mpc.mu.Lock()
	defer mpc.mu.Unlock()

	if mpc.Err != nil {
		return "", "", mpc.Err
	}

	_, values, err := slack.UnsafeApplyMsgOptions("", channelID, "", options...)
	if err != nil {
		return "", "", err
	}

	mpc.sentMessages[channelID] = append(mpc.sentMessages[channelID], values.Get("text"))
	mpc.currentID = mpc.currentID + 1

	return channelID, fmt.Sprintf("1546833210.%s", strconv.Itoa(mpc.currentID)), nil
}

// Messages returns a copy of the messages posted to the channel
func (mpc *MessagePosterCaptor) Messages(channelID string) (messages []string) {
	mpc.mu.Lock()
	defer mpc.mu.Unlock()

	messages = make([]string, len(mpc.sentMessages[channelID]))
	copy(messages, mpc.sentMessages[channelID])

	return messages
}

// Count returns the number of messages posted across all channels
func (mpc *MessagePosterCaptor) Count() (count int) {
	mpc.mu.Lock()
	defer mpc.mu.Unlock()

	for _, m := range mpc.sentMessages {
		count = count + len(m)
	}

	return count
}
