package printqueue

import (
	"context"
	"fmt"

	"github.com/alexandre-normand/printqueue/config"
	"github.com/alexandre-normand/printqueue/queue"
	"github.com/hashicorp/golang-lru"
	"github.com/slack-go/slack"
	"github.com/spf13/viper"
)

const (
	userInfoCacheSizeDisabledValue = 0
)

// UserLister defines the interface for listing all members of a slack workspace
type UserLister interface {
	GetUsersContext(ctx context.Context, options ...slack.GetUsersOption) (users []slack.User, err error)
}

// UserInfoFinder defines the interface for finding a slack user's info
type UserInfoFinder interface {
	GetUserInfo(userID string) (user *slack.User, err error)
}

// LoadUserDirectory lists all members of the workspace once and keeps their names. Deleted
// users are skipped
func LoadUserDirectory(ctx context.Context, lister UserLister) (dir *queue.UserDirectory, err error) {
	users, err := lister.GetUsersContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("Error listing slack users: %v", err)
	}

	records := make([]queue.DirectoryRecord, 0, len(users))
	for _, u := range users {
		if u.Deleted {
			continue
		}

		records = append(records, queue.DirectoryRecord{ID: queue.UserID(u.ID), RealName: realName(u), Handle: u.Name})
	}

	return queue.NewUserDirectory(records...), nil
}

func realName(u slack.User) string {
	if u.Profile.RealName != "" {
		return u.Profile.RealName
	}

	return u.RealName
}

// fallbackDirectory looks users up in the directory loaded at startup first and then asks the
// UserInfoFinder about users who joined later. Answers from the finder are cached if enabled
type fallbackDirectory struct {
	known            *queue.UserDirectory
	finder           UserInfoFinder
	logger           SLogger
	userProfileCache *lru.ARCCache
}

// NewDirectory creates a new directory over the one loaded at startup. If finder is nil, only
// known users are found. The fallback cache is sized by config.UserInfoCacheSizeKey
func NewDirectory(v *viper.Viper, known *queue.UserDirectory, finder UserInfoFinder, logger SLogger) (dir queue.Directory, err error) {
	fd := new(fallbackDirectory)

	cs := v.GetInt(config.UserInfoCacheSizeKey)
	if cs > userInfoCacheSizeDisabledValue {
		fd.userProfileCache, err = lru.NewARC(cs)
		if err != nil {
			return nil, err
		}
	}

	fd.known = known
	fd.finder = finder
	fd.logger = logger

	return fd, nil
}

// Lookup returns the display info of the user. A failure to find a user is logged and
// reported as a miss
func (fd *fallbackDirectory) Lookup(id queue.UserID) (info queue.DisplayInfo, ok bool) {
	if info, ok = fd.known.Lookup(id); ok {
		return info, true
	}

	if fd.finder == nil {
		return queue.DisplayInfo{}, false
	}

	if fd.userProfileCache != nil {
		if cached, exists := fd.userProfileCache.Get(id); exists {
			fd.logger.Debugf("User info in cache [%s] so using that\n", id)

			info, ok = cached.(queue.DisplayInfo)
			return info, ok
		}
	}

	fd.logger.Debugf("User info for [%s] not known, retrieving from slack\n", id)
	u, err := fd.finder.GetUserInfo(string(id))
	if err != nil {
		fd.logger.Printf("Error getting user info for [%s], rendering the raw id instead: %v\n", id, err)
		return queue.DisplayInfo{}, false
	}

	info = queue.DisplayInfo{RealName: realName(*u), Handle: u.Name}
	if fd.userProfileCache != nil {
		fd.userProfileCache.Add(id, info)
	}

	return info, true
}
