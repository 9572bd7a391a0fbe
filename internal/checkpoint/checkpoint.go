// Package checkpoint persists the conversion driver's resumable
// position — binlog filename, byte offset, and last-emitted GTID — to
// avro-conversion.ini (§6), so the driver can restart from the last
// known commit instead of re-scanning from the start of the stream.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ghc888/MaxScale/internal/gtid"
	"gopkg.in/ini.v1"
)

const (
	sectionName = "avro-conversion"
	keyPosition = "position"
	keyGTID     = "gtid"
	keyFile     = "file"
)

// State is the (binlog_filename, byte_offset, gtid) triple tracked by
// the conversion driver. The zero value means "no checkpoint yet" —
// start from the beginning of the first binlog file.
type State struct {
	File     string
	Position int64
	GTID     gtid.GTID
}

// Store wraps the on-disk avro-conversion.ini file, exposing atomic
// write-temp-then-rename updates (§5 "Checkpoint file: written via
// write-temp-then-rename for atomicity").
type Store struct {
	path string
}

// Open returns a Store bound to path. It does not require the file to
// exist yet; Load on a missing file returns the zero State.
func Open(path string) *Store {
	return &Store{path: path}
}

// Load reads the checkpoint file, returning the zero State and a nil
// error if it doesn't exist yet (first run).
func (s *Store) Load() (State, error) {
	var st State
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return st, nil
	}
	cfg, err := ini.Load(s.path)
	if err != nil {
		return st, fmt.Errorf("checkpoint: load %s: %w", s.path, err)
	}
	sec := cfg.Section(sectionName)
	st.File = sec.Key(keyFile).String()
	st.Position, err = sec.Key(keyPosition).Int64()
	if err != nil {
		return st, fmt.Errorf("checkpoint: %s: invalid position: %w", s.path, err)
	}
	if g := sec.Key(keyGTID).String(); g != "" {
		st.GTID, err = gtid.Parse(g)
		if err != nil {
			return st, fmt.Errorf("checkpoint: %s: invalid gtid: %w", s.path, err)
		}
	}
	return st, nil
}

// Save writes st to the checkpoint file by rendering into a temporary
// file in the same directory, then renaming it over the destination —
// the rename is atomic on the same filesystem, so a reader never
// observes a partially-written checkpoint (§8 "the checkpoint file on
// disk always points to a position at the start of an event header or
// at end-of-file").
func (s *Store) Save(st State) error {
	cfg := ini.Empty()
	sec, err := cfg.NewSection(sectionName)
	if err != nil {
		return fmt.Errorf("checkpoint: build section: %w", err)
	}
	if _, err := sec.NewKey(keyPosition, fmt.Sprintf("%d", st.Position)); err != nil {
		return err
	}
	if _, err := sec.NewKey(keyGTID, st.GTID.String()); err != nil {
		return err
	}
	if _, err := sec.NewKey(keyFile, st.File); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".avro-conversion-*.ini.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := cfg.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("checkpoint: rename: %w", err)
	}
	return nil
}
