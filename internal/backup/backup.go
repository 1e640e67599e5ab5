// Package backup manages the recovery files an external interruption handler
// leaves behind when a work session is cut short. The reconciliation engine
// only detects them at session start and deletes them at session end.
package backup

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/robby/ghsync/internal/debug"
)

// Suffix identifies backup files. Full filenames look like
// {YYYY-MM-DD-HHMMSS}-{label}-precompact-backup.md; the timestamp prefix is
// load-bearing, since a lexical sort of filenames is a chronological sort.
const Suffix = "-precompact-backup.md"

// timestampPrefix extracts the YYYY-MM-DD-HHMMSS portion of a backup filename.
var timestampPrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}-\d{6})-`)

// Backup is one recovery file, read in full.
type Backup struct {
	Filename  string
	Timestamp string // timestamp portion of the filename, "" if malformed
	Content   string
}

// Manager lists and removes session backups in Dir.
type Manager struct {
	Dir string
}

// List returns all backup files sorted newest first. A missing directory is
// an empty list, not an error.
func (m Manager) List() ([]Backup, error) {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []Backup
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Suffix) {
			continue
		}

		content, err := os.ReadFile(filepath.Join(m.Dir, entry.Name()))
		if err != nil {
			debug.Logf("backup: unreadable file %s: %v", entry.Name(), err)
			continue
		}

		b := Backup{Filename: entry.Name(), Content: string(content)}
		if match := timestampPrefix.FindStringSubmatch(entry.Name()); match != nil {
			b.Timestamp = match[1]
		}
		backups = append(backups, b)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Filename > backups[j].Filename
	})

	return backups, nil
}

// Count returns the number of backup files without reading their contents.
func (m Manager) Count() int {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), Suffix) {
			n++
		}
	}
	return n
}

// Cleanup deletes every backup file and returns the count actually removed.
// Deletion is best-effort: a file that fails to delete is skipped and the
// rest are still attempted. A missing directory yields zero.
func (m Manager) Cleanup() (int, error) {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Suffix) {
			continue
		}
		if err := os.Remove(filepath.Join(m.Dir, entry.Name())); err != nil {
			debug.Logf("backup: failed to remove %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}

	return removed, nil
}
