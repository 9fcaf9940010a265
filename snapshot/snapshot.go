// Package snapshot provides the backends a printqueue queue is backed up to and restored from.
//
// All backends hold the same thing: one user id per position, positions being contiguous and
// starting at 0. Loading a snapshot that breaks this is an error rather than something to repair.
package snapshot

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alexandre-normand/printqueue/config"
	"github.com/alexandre-normand/printqueue/queue"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"google.golang.org/api/option"
)

// Store is implemented by any value that can save the full content of a queue and load it back
type Store interface {
	queue.Snapshotter
	io.Closer

	// Load returns the saved entries, head first
	Load() (entries []queue.UserID, err error)
}

const (
	levelDBName   = "queue"
	datastoreKind = "QueueSlot"
)

var (
	// ErrMalformedLine is the cause of errors for slots that aren't a position and a user id
	ErrMalformedLine = errors.New("malformed snapshot entry")
	// ErrDuplicatePosition is the cause of errors for positions appearing more than once
	ErrDuplicatePosition = errors.New("duplicate snapshot position")
	// ErrMissingPosition is the cause of errors for snapshots with a gap in their positions
	ErrMissingPosition = errors.New("missing snapshot position")
)

// Open returns the Store selected by the configuration
func Open(v *viper.Viper) (s Store, err error) {
	switch backend := v.GetString(config.SnapshotBackendKey); backend {
	case config.FileBackend:
		fs, err := NewFileStore(v.GetString(config.SnapshotPathKey))
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.LevelDBBackend:
		ldb, err := NewLevelDB(levelDBName, v.GetString(config.SnapshotStoragePathKey))
		if err != nil {
			return nil, err
		}
		return ldb, nil
	case config.DatastoreBackend:
		opts := make([]option.ClientOption, 0)
		if credsFile := v.GetString(config.SnapshotGCloudCredentialsFileKey); credsFile != "" {
			opts = append(opts, option.WithCredentialsFile(credsFile))
		}

		dsdb, err := NewDatastore(datastoreKind, v.GetString(config.SnapshotGCloudProjectIDKey), opts...)
		if err != nil {
			return nil, err
		}
		return dsdb, nil
	case config.NoBackend:
		return Discard, nil
	default:
		return nil, fmt.Errorf("Unknown snapshot backend [%s] for key [%s]", backend, config.SnapshotBackendKey)
	}
}

// Discard is a Store that saves nothing and always loads an empty queue
var Discard Store = discard{}

type discard struct{}

func (discard) Save(entries []queue.UserID) (err error) {
	return nil
}

func (discard) Load() (entries []queue.UserID, err error) {
	return []queue.UserID{}, nil
}

func (discard) Close() (err error) {
	return nil
}

// slots collects user ids by position and validates that positions are unique and contiguous
type slots map[int]queue.UserID

// put records the user id at the position given in its textual form
func (s slots) put(rawPosition string, u queue.UserID) (err error) {
	position, err := strconv.ParseUint(rawPosition, 10, 31)
	if err != nil {
		return errors.Wrapf(ErrMalformedLine, "position [%s] isn't a non-negative integer", rawPosition)
	}

	if u == "" {
		return errors.Wrapf(ErrMalformedLine, "no user id at position [%d]", position)
	}

	if existing, ok := s[int(position)]; ok {
		return errors.Wrapf(ErrDuplicatePosition, "position [%d] holds both [%s] and [%s]", position, existing, u)
	}

	s[int(position)] = u
	return nil
}

// ordered returns the user ids in position order or an error if a position is missing
func (s slots) ordered() (entries []queue.UserID, err error) {
	entries = make([]queue.UserID, len(s))

	for i := range entries {
		u, ok := s[i]
		if !ok {
			return nil, errors.Wrapf(ErrMissingPosition, "position [%d] missing from snapshot of [%d] entries", i, len(s))
		}

		entries[i] = u
	}

	return entries, nil
}
