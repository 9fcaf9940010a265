package config_test

import (
	"github.com/alexandre-normand/printqueue/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestNewWithDefault(t *testing.T) {
	v := config.NewViperWithDefaults()

	assert.Equal(t, false, v.GetBool(config.DebugKey), "%s should be %t", config.DebugKey, false)
	assert.Equal(t, ":3152", v.GetString(config.ListenAddressKey), "%s should be %s", config.ListenAddressKey, ":3152")
	assert.Equal(t, "/slack/events", v.GetString(config.EventsPathKey), "%s should be %s", config.EventsPathKey, "/slack/events")
	assert.Equal(t, 3, v.GetInt(config.ShortLineLengthKey), "%s should be %d", config.ShortLineLengthKey, 3)
	assert.Equal(t, config.FileBackend, v.GetString(config.SnapshotBackendKey), "%s should be %s", config.SnapshotBackendKey, config.FileBackend)
	assert.Equal(t, "queue.tsv", v.GetString(config.SnapshotPathKey), "%s should be %s", config.SnapshotPathKey, "queue.tsv")
	assert.Equal(t, "~/.printqueue", v.GetString(config.SnapshotStoragePathKey), "%s should be %s", config.SnapshotStoragePathKey, "~/.printqueue")
	assert.Equal(t, 256, v.GetInt(config.UserInfoCacheSizeKey), "%s should be %d", config.UserInfoCacheSizeKey, 256)
	assert.Equal(t, 1024, v.GetInt(config.EventDedupCacheSizeKey), "%s should be %d", config.EventDedupCacheSizeKey, 1024)
	assert.Equal(t, 64, v.GetInt(config.DispatchBufferSizeKey), "%s should be %d", config.DispatchBufferSizeKey, 64)
	assert.Equal(t, "Local", v.GetString(config.TimeLocationKey), "%s should be %s", config.TimeLocationKey, "Local")
	assert.Equal(t, false, v.GetBool(config.AnnounceOnStartupKey), "%s should be %t", config.AnnounceOnStartupKey, false)
	assert.Equal(t, false, v.GetBool(config.ReminderEnabledKey), "%s should be %t", config.ReminderEnabledKey, false)
	assert.Equal(t, 1, v.GetInt(config.ReminderIntervalKey), "%s should be %d", config.ReminderIntervalKey, 1)
	assert.Equal(t, "days", v.GetString(config.ReminderUnitKey), "%s should be %s", config.ReminderUnitKey, "days")
	assert.Equal(t, "09:00", v.GetString(config.ReminderAtTimeKey), "%s should be %s", config.ReminderAtTimeKey, "09:00")
	assert.Equal(t, "", v.GetString(config.TokenKey))
	assert.Equal(t, "", v.GetString(config.ChannelIDKey))
}

func TestLayeredConfigWithDefaultsAndOverrides(t *testing.T) {
	v := viper.New()
	v.Set(config.ShortLineLengthKey, 5)
	v.Set(config.SnapshotBackendKey, config.LevelDBBackend)

	v = config.LayerConfigWithDefaults(v)

	assert.Equal(t, 5, v.GetInt(config.ShortLineLengthKey))
	assert.Equal(t, config.LevelDBBackend, v.GetString(config.SnapshotBackendKey))
	assert.Equal(t, "queue.tsv", v.GetString(config.SnapshotPathKey))
}

func TestBindEnv(t *testing.T) {
	t.Setenv("PRINTQUEUE_SNAPSHOT_BACKEND", config.NoBackend)
	t.Setenv("PRINTQUEUE_CHANNELID", "C0PRINTERS")

	v := config.BindEnv(config.NewViperWithDefaults())

	assert.Equal(t, config.NoBackend, v.GetString(config.SnapshotBackendKey))
	assert.Equal(t, "C0PRINTERS", v.GetString(config.ChannelIDKey))
}

func TestGetTimeLocationWithDefault(t *testing.T) {
	v := viper.New()
	v.Set(config.TimeLocationKey, "Local")

	timeLoc, err := config.GetTimeLocation(v)

	assert.Nil(t, err)
	if assert.NotNil(t, timeLoc) {
		assert.Conditionf(t, func() bool { return timeLoc.String() == "Local" || timeLoc.String() == "UTC" }, "timeLoc should be either Local or UTC but was %s", timeLoc.String())
	}
}

func TestGetTimeLocationWithTimezoneId(t *testing.T) {
	v := viper.New()
	v.Set(config.TimeLocationKey, "America/Los_Angeles")

	timeLoc, err := config.GetTimeLocation(v)

	assert.Nil(t, err)
	if assert.NotNil(t, timeLoc) {
		assert.Equal(t, "America/Los_Angeles", timeLoc.String())
	}
}

func TestGetTimeLocationWithInvalidValue(t *testing.T) {
	v := viper.New()
	v.Set(config.TimeLocationKey, "invalid")

	_, err := config.GetTimeLocation(v)

	if assert.NotNil(t, err) {
		assert.Contains(t, err.Error(), "invalid")
	}
}
