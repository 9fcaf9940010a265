// printqueue is the command running the bot along with tools to inspect and reset its snapshot file
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexandre-normand/printqueue"
	"github.com/alexandre-normand/printqueue/config"
	"github.com/alexandre-normand/printqueue/queue"
	"github.com/alexandre-normand/printqueue/snapshot"
	"github.com/alexandre-normand/printqueue/webhook"
	"github.com/slack-go/slack"
	"github.com/spf13/viper"
	"gopkg.in/alecthomas/kingpin.v2"
)

const (
	name     = "printqueue"
	logFlags = log.Lshortfile | log.LstdFlags | log.Lmicroseconds
)

var (
	app        = kingpin.New(name, "A slack bot keeping the line for the 3D printer")
	configFile = app.Flag("config", "Path to a configuration file (json, yaml or toml)").Short('c').String()
	debug      = app.Flag("debug", "Enable debug logging").Bool()

	serveCmd      = app.Command("serve", "Serve slack events and answer mentions")
	listenAddress = serveCmd.Flag("listen", "Address to listen on for slack events").String()

	snapshotCmd = app.Command("snapshot", "Inspect or reset a snapshot file")
	checkCmd    = snapshotCmd.Command("check", "Validate a snapshot file and show the queue it holds")
	checkPath   = checkCmd.Arg("path", "Path of the snapshot file").Required().String()
	clearCmd    = snapshotCmd.Command("clear", "Reset a snapshot file to an empty queue")
	clearPath   = clearCmd.Arg("path", "Path of the snapshot file").Required().String()
)

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	v, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	switch cmd {
	case serveCmd.FullCommand():
		err = serve(v)
	case checkCmd.FullCommand():
		err = checkSnapshot(v, *checkPath)
	case clearCmd.FullCommand():
		err = clearSnapshot(*clearPath)
	}

	if err != nil {
		log.Fatal(err)
	}
}

// loadConfig layers flags over the environment over the config file over defaults
func loadConfig() (v *viper.Viper, err error) {
	v = config.NewViperWithDefaults()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err = v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("Error loading configuration file [%s]: %v", *configFile, err)
		}
	}

	config.BindEnv(v)

	if *debug {
		v.Set(config.DebugKey, true)
	}

	if *listenAddress != "" {
		v.Set(config.ListenAddressKey, *listenAddress)
	}

	return v, nil
}

func serve(v *viper.Viper) (err error) {
	token := v.GetString(config.TokenKey)
	if token == "" {
		return fmt.Errorf("A value for [%s] is required", config.TokenKey)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debugEnabled := v.GetBool(config.DebugKey)
	logger := log.New(os.Stdout, name+": ", logFlags)
	slogger := printqueue.NewSLogger(logger, debugEnabled)

	api := slack.New(token, slack.OptionDebug(debugEnabled), slack.OptionLog(log.New(os.Stdout, "slack: ", logFlags)))

	auth, err := api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("Error authenticating with slack: %v", err)
	}
	slogger.Printf("Authenticated as [%s] with id [%s] on team [%s]\n", auth.User, auth.UserID, auth.Team)

	known, err := printqueue.LoadUserDirectory(ctx, api)
	if err != nil {
		slogger.Printf("Rendering raw user ids for users missing from the directory: %v\n", err)
	} else {
		slogger.Printf("Loaded directory of [%d] users\n", known.Len())
	}

	bot, err := printqueue.NewBot(name, v, printqueue.OptionLog(logger)).
		WithSnapshotStore(snapshot.Open(v)).
		WithDirectory(printqueue.NewDirectory(v, known, api, slogger)).
		WithSelfID(auth.UserID).
		Build()
	if err != nil {
		return err
	}
	defer bot.Close()

	if v.GetBool(config.AnnounceOnStartupKey) {
		if err := bot.Announce(ctx, api); err != nil {
			slogger.Printf("Error announcing startup: %v\n", err)
		}
	}

	if v.GetBool(config.ReminderEnabledKey) {
		stopReminder, err := bot.StartReminder(ctx, api)
		if err != nil {
			return err
		}
		defer stopReminder()
	}

	srv, err := webhook.New(v, bot, api, bot.Metrics(), slogger)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}

func checkSnapshot(v *viper.Viper, path string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := snapshot.Parse(f)
	if err != nil {
		return fmt.Errorf("Invalid snapshot [%s]: %v", path, err)
	}

	q, err := queue.Restore(entries, queue.OptionShortLineLength(v.GetInt(config.ShortLineLengthKey)))
	if err != nil {
		return fmt.Errorf("Invalid snapshot [%s]: %v", path, err)
	}

	fmt.Printf("Snapshot [%s] holds a valid queue of [%d] entries\n", path, q.Len())
	if q.Len() > 0 {
		fmt.Println(q.Render(nil))
	}

	return nil
}

func clearSnapshot(path string) (err error) {
	fs, err := snapshot.NewFileStore(path)
	if err != nil {
		return err
	}
	defer fs.Close()

	if err = fs.Save(nil); err != nil {
		return err
	}

	fmt.Printf("Snapshot [%s] cleared\n", path)

	return nil
}
