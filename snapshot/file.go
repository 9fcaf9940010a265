package snapshot

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alexandre-normand/printqueue/queue"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// FileStore saves a queue as a plain text file with one "{position}\t{userID}" line per entry.
// The file is never truncated: a save first blanks the previous content with newlines and then
// writes the new lines from the start of the file. Blank lines are ignored on load
type FileStore struct {
	Path string
	file *os.File
}

// NewFileStore opens (or creates) the snapshot file at path. '~' is expanded to the home directory
func NewFileStore(path string) (fs *FileStore, err error) {
	fullPath, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(fullPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open snapshot file with path [%s]", fullPath)
	}

	return &FileStore{Path: fullPath, file: f}, nil
}

// Save replaces the content of the snapshot file with the entries and syncs it to disk
func (fs *FileStore) Save(entries []queue.UserID) (err error) {
	fi, err := fs.file.Stat()
	if err != nil {
		return errors.Wrapf(err, "failed to stat snapshot file [%s]", fs.Path)
	}

	if _, err = fs.file.Seek(0, io.SeekStart); err != nil {
		return errors.Wrapf(err, "failed to seek snapshot file [%s]", fs.Path)
	}

	if _, err = fs.file.Write(bytes.Repeat([]byte{'\n'}, int(fi.Size()))); err != nil {
		return errors.Wrapf(err, "failed to blank snapshot file [%s]", fs.Path)
	}

	if _, err = fs.file.Seek(0, io.SeekStart); err != nil {
		return errors.Wrapf(err, "failed to seek snapshot file [%s]", fs.Path)
	}

	w := bufio.NewWriter(fs.file)
	if err = Format(w, entries); err != nil {
		return errors.Wrapf(err, "failed to write snapshot file [%s]", fs.Path)
	}

	if err = w.Flush(); err != nil {
		return errors.Wrapf(err, "failed to write snapshot file [%s]", fs.Path)
	}

	return fs.file.Sync()
}

// Load reads the entries from the snapshot file. An empty file is an empty queue
func (fs *FileStore) Load() (entries []queue.UserID, err error) {
	if _, err = fs.file.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "failed to seek snapshot file [%s]", fs.Path)
	}

	entries, err = Parse(fs.file)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid snapshot file [%s]", fs.Path)
	}

	return entries, nil
}

// Close closes the snapshot file
func (fs *FileStore) Close() (err error) {
	return fs.file.Close()
}

// Format writes the entries in the snapshot line format
func Format(w io.Writer, entries []queue.UserID) (err error) {
	for i, u := range entries {
		if _, err = fmt.Fprintf(w, "%d\t%s\n", i, u); err != nil {
			return err
		}
	}

	return nil
}

// Parse reads entries in the snapshot line format. Blank lines are skipped. Lines that aren't a
// non-negative position followed by a tab and a user id, positions seen more than once and gaps
// in positions are all errors whose cause is one of ErrMalformedLine, ErrDuplicatePosition or
// ErrMissingPosition
func Parse(r io.Reader) (entries []queue.UserID, err error) {
	s := make(slots)
	scanner := bufio.NewScanner(r)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			return nil, errors.Wrapf(ErrMalformedLine, "line %d [%s] has no tab separator", lineNumber, line)
		}

		if err = s.put(fields[0], queue.UserID(strings.TrimSpace(fields[1]))); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNumber)
		}
	}

	if err = scanner.Err(); err != nil {
		return nil, err
	}

	return s.ordered()
}
