package ddltrack

import (
	"bufio"
	"os"
)

// Store persists the definitive list of CREATE TABLE statements to
// table-ddl.list: newline-separated, verbatim, most-recent-wins on
// reload (§6).
type Store struct {
	path string
	file *os.File
}

// OpenStore opens (creating if necessary) the sidecar file at path for
// appending.
func OpenStore(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, file: f}, nil
}

// Append writes one verbatim CREATE TABLE statement, followed by a
// newline, flushing immediately so the sidecar is always crash-safe to
// the granularity of one statement.
func (s *Store) Append(ddl string) error {
	if _, err := s.file.WriteString(ddl + "\n"); err != nil {
		return err
	}
	return s.file.Sync()
}

// Close closes the underlying file handle.
func (s *Store) Close() error {
	return s.file.Close()
}

// Load replays every CREATE TABLE statement in path through fn, in file
// order, so a caller rebuilding a Tracker on startup naturally ends up
// with the most-recent-wins shape for every table.
func Load(path string, fn func(ddl string) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return sc.Err()
}
