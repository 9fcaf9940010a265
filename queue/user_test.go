package queue_test

import (
	"testing"

	"github.com/alexandre-normand/printqueue/queue"
	"github.com/stretchr/testify/assert"
)

func TestUserDirectoryLookup(t *testing.T) {
	dir := queue.NewUserDirectory(
		queue.DirectoryRecord{ID: ada, RealName: "Ada Lovelace", Handle: "ada"},
		queue.DirectoryRecord{ID: brian, Handle: "bwk"},
	)

	info, ok := dir.Lookup(ada)
	assert.True(t, ok)
	assert.Equal(t, queue.DisplayInfo{RealName: "Ada Lovelace", Handle: "ada"}, info)

	info, ok = dir.Lookup(brian)
	assert.True(t, ok)
	assert.Equal(t, "UNB2LMZRP", info.Name(brian))

	_, ok = dir.Lookup(claire)
	assert.False(t, ok)

	assert.Equal(t, 2, dir.Len())
}

func TestUserDirectoryLastRecordWins(t *testing.T) {
	dir := queue.NewUserDirectory(
		queue.DirectoryRecord{ID: ada, RealName: "Ada Byron"},
		queue.DirectoryRecord{ID: ada, RealName: "Ada Lovelace"},
	)

	info, _ := dir.Lookup(ada)
	assert.Equal(t, "Ada Lovelace", info.RealName)
	assert.Equal(t, 1, dir.Len())
}

func TestNilUserDirectory(t *testing.T) {
	var dir *queue.UserDirectory

	_, ok := dir.Lookup(ada)
	assert.False(t, ok)
	assert.Equal(t, 0, dir.Len())
}
