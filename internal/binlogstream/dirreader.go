package binlogstream

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// seqSuffix matches the {fileroot}.{seq:06d} naming §4.8 step 6 relies
// on for sequential rotation when no ROTATE_EVENT is present.
var seqSuffix = regexp.MustCompile(`^(.*)\.(\d{6,})$`)

// Dir represents the directory a housekeeper (out of scope, per §1)
// continuously appends binlog files to.
type Dir struct {
	path string
}

// NewDir returns a Dir rooted at path.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// ListFiles returns the binlog files present in the directory, sorted
// lexically by file name; this equals sequence order only while all
// files share one base name and suffix width.
func (d *Dir) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if seqSuffix.MatchString(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// NextSequential returns the file that should follow name under the
// {fileroot}.{seq:06d} naming convention, without checking whether it
// exists yet.
func NextSequential(name string) (string, error) {
	m := seqSuffix.FindStringSubmatch(name)
	if m == nil {
		return "", fmt.Errorf("binlogstream: %q does not match fileroot.NNNNNN naming", name)
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return "", err
	}
	width := len(m[2])
	return fmt.Sprintf("%s.%0*d", m[1], width, seq+1), nil
}

// Exists reports whether name is present in the directory.
func (d *Dir) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(d.path, name))
	return err == nil
}

// Path joins name onto the directory root.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.path, name)
}
