package printqueue

import (
	"fmt"
	"io"
	"sync"

	"github.com/alexandre-normand/printqueue/queue"
	"github.com/alexandre-normand/printqueue/snapshot"
	"github.com/spf13/viper"
)

// AppMentionEvent is the type of the events sent by slack when the bot is mentioned
const AppMentionEvent = "app_mention"

const (
	announcement   = "I'm baaack!"
	reminderHeader = "Here's who's waiting for the printer:"
)

// Event holds what the bot needs to know about a slack event
type Event struct {
	Type      string
	User      string
	Text      string
	Channel   string
	BotID     string
	TimeStamp string
}

// Bot owns the queue and answers mentions from the channel it lives in. A Bot is safe for
// concurrent use
type Bot struct {
	name      string
	config    *viper.Viper
	selfID    string
	channelID string

	store     snapshot.Store
	directory queue.Directory

	mu          sync.Mutex
	queue       *queue.Queue
	interpreter *Interpreter

	metrics *Metrics
	logger  SLogger
	closers []io.Closer
}

// Handle answers the event if it's a mention of the bot from a user in the bot's channel. Events
// from bots (including this one) are ignored
func (b *Bot) Handle(e Event) (reply string, ok bool) {
	if e.Type != AppMentionEvent {
		b.logger.Debugf("Ignoring event of type [%s]\n", e.Type)
		return "", false
	}

	if e.BotID != "" || e.User == "" || (b.selfID != "" && e.User == b.selfID) {
		b.logger.Debugf("Ignoring event from bot [%s] with user [%s]\n", e.BotID, e.User)
		return "", false
	}

	if b.channelID != "" && e.Channel != b.channelID {
		b.logger.Debugf("Ignoring mention from channel [%s], only listening to [%s]\n", e.Channel, b.channelID)
		return "", false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.interpreter.Handle(queue.UserID(e.User), e.Text)
}

// Reminder returns the message reminding the channel of who's in line. If nobody is in line,
// ok is false and nothing should be posted
func (b *Bot) Reminder() (message string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queue.Len() == 0 {
		return "", false
	}

	return fmt.Sprintf("%s\n%s", reminderHeader, b.queue.Render(b.directory)), true
}

// Announcement returns the message posted to the channel when the bot starts
func (b *Bot) Announcement() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queue.Len() == 0 {
		return fmt.Sprintf("%s\n%s", announcement, emptyQueueMessage)
	}

	return fmt.Sprintf("%s\n%s", announcement, b.queue.Render(b.directory))
}

// Entries returns a copy of the queue, head first
func (b *Bot) Entries() []queue.UserID {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.queue.Entries()
}

// Name returns the name of the bot
func (b *Bot) Name() string {
	return b.name
}

// ChannelID returns the id of the channel the bot lives in
func (b *Bot) ChannelID() string {
	return b.channelID
}

// Metrics returns the metrics of the bot
func (b *Bot) Metrics() *Metrics {
	return b.metrics
}

// Logger returns the logger of the bot
func (b *Bot) Logger() SLogger {
	return b.logger
}

// Close closes the snapshot store and any other resource held by the bot
func (b *Bot) Close() (err error) {
	for _, c := range b.closers {
		if cerr := c.Close(); cerr != nil {
			b.logger.Printf("Error closing [%v]: %v\n", c, cerr)
			err = cerr
		}
	}

	return err
}
