package snapshot

import (
	"fmt"
	"path/filepath"

	"github.com/alexandre-normand/printqueue/queue"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	leveldberrors "github.com/syndtr/goleveldb/leveldb/errors"
)

// LevelDB holds a queue in a leveldb database with one key per position. Keys are zero-padded
// so the database iterates them in queue order
type LevelDB struct {
	Name     string
	database *leveldb.DB
}

// NewLevelDB instantiates and open a new LevelDB instance backed by a leveldb database. If the
// leveldb database doesn't exist, one is created
func NewLevelDB(name string, storagePath string) (ldb *LevelDB, err error) {
	path, err := homedir.Expand(storagePath)
	if err != nil {
		return nil, err
	}

	fullPath := filepath.Join(path, name)
	db, err := leveldb.OpenFile(fullPath, nil)

	if _, ok := err.(*leveldberrors.ErrCorrupted); ok {
		return nil, errors.Wrap(err, fmt.Sprintf("leveldb corrupted. Consider deleting [%s] and restarting if you don't mind losing the queue", fullPath))
	} else if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to open file with path [%s]", fullPath))
	}

	return &LevelDB{name, db}, nil
}

// Close closes the LevelDB
func (ldb *LevelDB) Close() (err error) {
	return ldb.database.Close()
}

// Save replaces all positions with the entries in a single atomic batch
func (ldb *LevelDB) Save(entries []queue.UserID) (err error) {
	batch := new(leveldb.Batch)

	iter := ldb.database.NewIterator(nil, nil)
	for iter.Next() {
		batch.Delete(iter.Key())
	}

	iter.Release()
	if err = iter.Error(); err != nil {
		return errors.Wrapf(err, "failed to scan leveldb [%s]", ldb.Name)
	}

	for i, u := range entries {
		batch.Put([]byte(positionKey(i)), []byte(u))
	}

	return ldb.database.Write(batch, nil)
}

// Load returns the entries ordered by position
func (ldb *LevelDB) Load() (entries []queue.UserID, err error) {
	s := make(slots)

	iter := ldb.database.NewIterator(nil, nil)
	for iter.Next() {
		if err = s.put(string(iter.Key()), queue.UserID(iter.Value())); err != nil {
			iter.Release()
			return nil, errors.Wrapf(err, "invalid leveldb snapshot [%s]", ldb.Name)
		}
	}

	iter.Release()
	if err = iter.Error(); err != nil {
		return nil, errors.Wrapf(err, "failed to scan leveldb [%s]", ldb.Name)
	}

	entries, err = s.ordered()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid leveldb snapshot [%s]", ldb.Name)
	}

	return entries, nil
}

func positionKey(position int) string {
	return fmt.Sprintf("%010d", position)
}
