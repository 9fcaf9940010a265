package printqueue

import (
	"context"

	"github.com/slack-go/slack"
)

// MessagePoster is implemented by any value that has the PostMessageContext method. The
// slack.Client implements it and the main purpose is to decouple the transport from slack in tests
type MessagePoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (respChannel string, respTimestamp string, err error)
}

// Say posts a plain text message to the channel
func Say(ctx context.Context, poster MessagePoster, channelID string, text string) (err error) {
	_, _, err = poster.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))

	return err
}
