// Package witness holds the editable list of witness texts that becomes the
// input of a collation run.
package witness

import (
	"fmt"
	"strings"
)

// MinEntries is the number of editable entries the list never drops below.
const MinEntries = 2

// Store owns the ordered witness buffers for one session. Entries may be
// empty while the user edits them; only trimmed, non-empty entries are
// submitted.
type Store struct {
	entries []string
}

// NewStore returns a store holding two empty entries.
func NewStore() *Store {
	s := &Store{}
	s.ReplaceAll(nil)
	return s
}

// Add appends one empty entry.
func (s *Store) Add() {
	s.entries = append(s.entries, "")
}

// Len reports the number of editable entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Entry returns the raw content of the entry at index.
func (s *Store) Entry(index int) string {
	if index < 0 || index >= len(s.entries) {
		return ""
	}
	return s.entries[index]
}

// Entries returns a copy of the editable list, empty entries included.
func (s *Store) Entries() []string {
	out := make([]string, len(s.entries))
	copy(out, s.entries)
	return out
}

// Set replaces the raw content of one entry.
func (s *Store) Set(index int, content string) error {
	if index < 0 || index >= len(s.entries) {
		return fmt.Errorf("witness: index %d out of range [0,%d)", index, len(s.entries))
	}
	s.entries[index] = content
	return nil
}

// Snapshot returns the submission view of the list: every entry trimmed of
// surrounding whitespace, with entries that end up empty left out. The
// editable list itself is not modified.
func (s *Store) Snapshot() []string {
	contents := make([]string, 0, len(s.entries))
	for _, entry := range s.entries {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" {
			continue
		}
		contents = append(contents, trimmed)
	}
	return contents
}

// ReplaceAll swaps the editable list for contents, padding with empty
// entries until the list holds at least MinEntries.
func (s *Store) ReplaceAll(contents []string) {
	size := max(len(contents), MinEntries)
	entries := make([]string, size)
	copy(entries, contents)
	s.entries = entries
}

// Reset restores the list to two empty entries.
func (s *Store) Reset() {
	s.ReplaceAll(nil)
}

// FirstEmptyIndex returns the index of the first entry with no content, or
// -1 when every entry has content. Hosts use it to decide where input focus
// goes after ReplaceAll.
func FirstEmptyIndex(entries []string) int {
	for i, entry := range entries {
		if len(entry) == 0 {
			return i
		}
	}
	return -1
}
