// Package config provides the configuration keys and defaults of a printqueue bot. Configuration
// is held by a viper.Viper instance so it can come from a file, the environment or flags
package config

import (
	"fmt"
	"github.com/spf13/viper"
	"strings"
	"time"
)

const (
	// TokenKey is the slack bot token (xoxb-*), string value
	TokenKey = "token"
	// SigningSecretKey is the slack app signing secret used to verify incoming requests, string value. Verification is disabled when empty
	SigningSecretKey = "signingSecret"
	// DebugKey enables debug logging, bool value
	DebugKey = "debug"
	// ListenAddressKey is the address the events endpoint listens on, string value
	ListenAddressKey = "listenAddress"
	// EventsPathKey is the path slack delivers events to, string value
	EventsPathKey = "eventsPath"
	// ChannelIDKey is the id of the one channel the queue lives in, string value. Mentions from any channel are handled when empty
	ChannelIDKey = "channelID"
	// MentionKey overrides the mention literal that must prefix commands, string value. Defaults to <@botUserID>
	MentionKey = "mention"
	// ShortLineLengthKey is the line length under which users may get in line right behind themselves, int value
	ShortLineLengthKey = "queue.shortLineLength"
	// SnapshotBackendKey selects where the queue is backed up, one of file, leveldb, datastore or none
	SnapshotBackendKey = "snapshot.backend"
	// SnapshotPathKey is the path of the snapshot file for the file backend, string value
	SnapshotPathKey = "snapshot.path"
	// SnapshotStoragePathKey is the directory of the leveldb backend, string value. ~ is expanded
	SnapshotStoragePathKey = "snapshot.storagePath"
	// SnapshotGCloudProjectIDKey is the google cloud project of the datastore backend, string value
	SnapshotGCloudProjectIDKey = "snapshot.gcloudProjectID"
	// SnapshotGCloudCredentialsFileKey is the credentials file of the datastore backend, string value
	SnapshotGCloudCredentialsFileKey = "snapshot.gcloudCredentialsFile"
	// UserInfoCacheSizeKey is the number of user infos looked up after startup to keep in cache, int value. 0 disables caching
	UserInfoCacheSizeKey = "userInfoCacheSize"
	// EventDedupCacheSizeKey is the number of event ids remembered to drop slack retries, int value
	EventDedupCacheSizeKey = "eventDedupCacheSize"
	// DispatchBufferSizeKey is the number of events buffered for processing, int value
	DispatchBufferSizeKey = "dispatchBufferSize"
	// TimeLocationKey is the time location of scheduled reminders, string value. See https://golang.org/pkg/time/#LoadLocation
	TimeLocationKey = "timeLocation"
	// AnnounceOnStartupKey makes the bot post to the channel when it starts, bool value
	AnnounceOnStartupKey = "announceOnStartup"
	// ReminderEnabledKey enables the periodic posting of the queue to the channel, bool value
	ReminderEnabledKey = "reminder.enabled"
	// ReminderIntervalKey is the interval of the reminder, int value
	ReminderIntervalKey = "reminder.interval"
	// ReminderUnitKey is the unit of the reminder interval, one of weeks, days, hours, minutes or seconds
	ReminderUnitKey = "reminder.unit"
	// ReminderWeekdayKey is the optional day of the week of the reminder (i.e. Monday), string value
	ReminderWeekdayKey = "reminder.weekday"
	// ReminderAtTimeKey is the optional time of day of the reminder (i.e. 09:00), string value
	ReminderAtTimeKey = "reminder.atTime"
)

// Snapshot backends
const (
	FileBackend      = "file"
	LevelDBBackend   = "leveldb"
	DatastoreBackend = "datastore"
	NoBackend        = "none"
)

const (
	defaultListenAddress       = ":3152"
	defaultEventsPath          = "/slack/events"
	defaultShortLineLength     = 3
	defaultSnapshotPath        = "queue.tsv"
	defaultSnapshotStoragePath = "~/.printqueue"
	defaultUserInfoCacheSize   = 256
	defaultEventDedupCacheSize = 1024
	defaultDispatchBufferSize  = 64
	defaultTimeLocation        = "Local"
	defaultReminderInterval    = 1
	defaultReminderUnit        = "days"
	defaultReminderAtTime      = "09:00"
	envPrefix                  = "PRINTQUEUE"
)

// NewViperWithDefaults creates a new viper instance with all default values set
func NewViperWithDefaults() (v *viper.Viper) {
	v = viper.New()

	return LayerConfigWithDefaults(v)
}

// LayerConfigWithDefaults sets the default values on an existing viper instance. Values already set
// on v take precedence over defaults
func LayerConfigWithDefaults(v *viper.Viper) *viper.Viper {
	v.SetDefault(DebugKey, false)
	v.SetDefault(ListenAddressKey, defaultListenAddress)
	v.SetDefault(EventsPathKey, defaultEventsPath)
	v.SetDefault(ShortLineLengthKey, defaultShortLineLength)
	v.SetDefault(SnapshotBackendKey, FileBackend)
	v.SetDefault(SnapshotPathKey, defaultSnapshotPath)
	v.SetDefault(SnapshotStoragePathKey, defaultSnapshotStoragePath)
	v.SetDefault(UserInfoCacheSizeKey, defaultUserInfoCacheSize)
	v.SetDefault(EventDedupCacheSizeKey, defaultEventDedupCacheSize)
	v.SetDefault(DispatchBufferSizeKey, defaultDispatchBufferSize)
	v.SetDefault(TimeLocationKey, defaultTimeLocation)
	v.SetDefault(AnnounceOnStartupKey, false)
	v.SetDefault(ReminderEnabledKey, false)
	v.SetDefault(ReminderIntervalKey, defaultReminderInterval)
	v.SetDefault(ReminderUnitKey, defaultReminderUnit)
	v.SetDefault(ReminderAtTimeKey, defaultReminderAtTime)

	return v
}

// BindEnv makes every key overridable by an environment variable prefixed with PRINTQUEUE_ and
// with dots replaced by underscores (i.e. PRINTQUEUE_SNAPSHOT_BACKEND)
func BindEnv(v *viper.Viper) *viper.Viper {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// GetTimeLocation returns the time location configured or an error if it's invalid
func GetTimeLocation(v *viper.Viper) (timeLoc *time.Location, err error) {
	timeLoc, err = time.LoadLocation(v.GetString(TimeLocationKey))
	if err != nil {
		return nil, fmt.Errorf("Unable to load time location for key [%s] with value [%s]: %v", TimeLocationKey, v.GetString(TimeLocationKey), err)
	}

	return timeLoc, nil
}
