package printqueue

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/alexandre-normand/printqueue/config"
	"github.com/alexandre-normand/printqueue/queue"
	"github.com/alexandre-normand/printqueue/snapshot"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	defaultLogPrefix = "printqueue: "
	defaultLogFlag   = log.Lshortfile | log.LstdFlags | log.Lmicroseconds
)

// Option defines an option for a Bot
type Option func(b *Bot)

// OptionLog sets a logger for the bot
func OptionLog(logger *log.Logger) Option {
	return func(b *Bot) {
		b.logger = NewSLogger(logger, b.config.GetBool(config.DebugKey))
	}
}

// OptionLogfile sets a logfile for the bot
func OptionLogfile(logfile *os.File) Option {
	return func(b *Bot) {
		b.logger = NewSLogger(log.New(logfile, defaultLogPrefix, defaultLogFlag), b.config.GetBool(config.DebugKey))
	}
}

// Builder holds a bot instance to build
type Builder struct {
	bot *Bot
	err error
}

// NewBot returns a new Builder used to set up a new bot
func NewBot(name string, v *viper.Viper, options ...Option) (sb *Builder) {
	sb = new(Builder)

	b := new(Bot)
	b.name = name
	b.config = v
	b.channelID = v.GetString(config.ChannelIDKey)
	b.store = snapshot.Discard
	b.metrics = NewMetrics()
	b.logger = NewSLogger(log.New(os.Stdout, defaultLogPrefix, defaultLogFlag), v.GetBool(config.DebugKey))
	b.closers = make([]io.Closer, 0)

	for _, opt := range options {
		opt(b)
	}

	sb.bot = b

	return sb
}

// WithSnapshotStore sets the store the queue is restored from and saved to. The store gets closed
// along with the bot
func (sb *Builder) WithSnapshotStore(store snapshot.Store, err error) *Builder {
	if sb.err == nil && err != nil {
		sb.err = err
	}

	if sb.err != nil {
		return sb
	}

	sb.bot.store = store
	sb.bot.closers = append(sb.bot.closers, store)

	return sb
}

// WithDirectory sets the directory used to render names of users in line
func (sb *Builder) WithDirectory(dir queue.Directory, err error) *Builder {
	if sb.err == nil && err != nil {
		sb.err = err
	}

	if sb.err != nil {
		return sb
	}

	sb.bot.directory = dir

	return sb
}

// WithSelfID sets the user id of the bot. It's used to ignore the bot's own messages and, unless
// config.MentionKey is set, to build the mention literal
func (sb *Builder) WithSelfID(selfID string) *Builder {
	if sb.err != nil {
		return sb
	}

	sb.bot.selfID = selfID

	return sb
}

// Build restores the queue from the snapshot store and returns the built bot. If there was an
// error during setup or if the snapshot is invalid, the error is returned along with a nil bot
func (sb *Builder) Build() (b *Bot, err error) {
	if sb.err != nil {
		return nil, sb.err
	}

	b = sb.bot

	mention := b.config.GetString(config.MentionKey)
	if mention == "" {
		if b.selfID == "" {
			return nil, fmt.Errorf("Either a self id or a value for [%s] is required", config.MentionKey)
		}

		mention = fmt.Sprintf("<@%s>", b.selfID)
	}

	entries, err := b.store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load queue snapshot")
	}

	b.queue, err = queue.Restore(entries, queue.OptionSnapshotter(b.store), queue.OptionShortLineLength(b.config.GetInt(config.ShortLineLengthKey)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to restore queue snapshot")
	}

	b.logger.Printf("Restored queue of [%d] entries\n", b.queue.Len())

	b.interpreter = NewInterpreter(b.queue, b.directory, OptionMention(mention), OptionMetrics(b.metrics), OptionLogger(b.logger))

	return b, nil
}
