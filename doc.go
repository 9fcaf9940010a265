/*
Package printqueue provides a slack bot keeping the line of people waiting for a shared 3D printer.

People mention the bot in its channel followed by a command:
  - add: Get in line
  - done: Leave the front of the line once done printing
  - cancel: Give up your earliest spot in line
  - show: Show who's in line
  - help: Reply with usage instructions

The line is saved to a snapshot store on every change and restored when the bot starts.

Example code (from cmd/printqueue):

	package main

	import (
		"github.com/alexandre-normand/printqueue"
		"github.com/alexandre-normand/printqueue/config"
		"github.com/alexandre-normand/printqueue/snapshot"
		"github.com/slack-go/slack"
		"log"
	)

	func main() {
		v := config.BindEnv(config.NewViperWithDefaults())
		api := slack.New(v.GetString(config.TokenKey))

		bot, err := printqueue.NewBot("printqueue", v).
			WithSnapshotStore(snapshot.Open(v)).
			WithSelfID(selfID).
			Build()
		if err != nil {
			log.Fatal(err)
		}
		defer bot.Close()

		reply, ok := bot.Handle(printqueue.Event{Type: printqueue.AppMentionEvent, User: "U0ADA", Text: "<@U0PRINTQ> add"})
		if ok {
			printqueue.Say(ctx, api, bot.ChannelID(), reply)
		}
	}
*/
package printqueue
