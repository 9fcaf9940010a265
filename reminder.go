package printqueue

import (
	"context"
	"fmt"

	"github.com/alexandre-normand/printqueue/config"
	"github.com/alexandre-normand/printqueue/schedule"
	"github.com/marcsantiago/gocron"
)

// StartReminder schedules the posting of the queue to the bot's channel as defined by the reminder
// configuration. The returned function stops the scheduler
func (b *Bot) StartReminder(ctx context.Context, poster MessagePoster) (stop func(), err error) {
	if b.channelID == "" {
		return nil, fmt.Errorf("A value for [%s] is required to post reminders", config.ChannelIDKey)
	}

	timeLoc, err := config.GetTimeLocation(b.config)
	if err != nil {
		return nil, err
	}

	gocron.ChangeLoc(timeLoc)
	sc := gocron.NewScheduler()

	d := schedule.ReminderDefinition(b.config)
	j, err := schedule.NewJob(sc, d)
	if err != nil {
		return nil, err
	}

	j.Do(b.remind, ctx, poster)

	_, t := sc.NextRun()
	b.logger.Printf("Starting reminder [%s] (%s) with first run scheduled at [%s]\n", d, timeLoc, t)

	stopped := sc.Start()

	return func() {
		stopped <- true
	}, nil
}

// remind posts the queue to the channel unless nobody is in line
func (b *Bot) remind(ctx context.Context, poster MessagePoster) {
	message, ok := b.Reminder()
	if !ok {
		b.logger.Debugf("Nobody in line, skipping reminder\n")
		return
	}

	if err := Say(ctx, poster, b.channelID, message); err != nil {
		b.logger.Printf("Error posting reminder to [%s]: %v\n", b.channelID, err)
	}
}

// Announce posts the startup announcement along with the queue to the bot's channel
func (b *Bot) Announce(ctx context.Context, poster MessagePoster) (err error) {
	if b.channelID == "" {
		return fmt.Errorf("A value for [%s] is required to announce startup", config.ChannelIDKey)
	}

	return Say(ctx, poster, b.channelID, b.Announcement())
}
