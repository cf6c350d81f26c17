// Package keyfile persists extracted credential strings to append-only
// output files shared by many concurrent workers.
package keyfile

import (
	"fmt"
	"os"
	"sync"
)

// Store appends each recorded value to two files: one value per line in the
// plain file, and the same values joined by a separator on a single logical
// line in the joined file. Both files are truncated once when the store is
// opened and only appended to afterwards.
//
// Append is safe for concurrent use. Values appear in completion order, not
// submission order; the only guarantee is that no two appends interleave.
type Store struct {
	mu     sync.Mutex
	plain  *os.File
	joined *os.File
	sep    string
	count  int
}

// Open truncates (or creates) both files and returns a store ready for
// appends.
func Open(plainPath, joinedPath, sep string) (*Store, error) {
	plain, err := os.Create(plainPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open keys file: %w", err)
	}
	joined, err := os.Create(joinedPath)
	if err != nil {
		plain.Close()
		return nil, fmt.Errorf("failed to open joined keys file: %w", err)
	}
	return &Store{plain: plain, joined: joined, sep: sep}, nil
}

// Append writes value to both files. The separator is written before every
// value except the first, so the joined file never ends with a trailing
// separator.
func (s *Store) Append(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintln(s.plain, value); err != nil {
		return fmt.Errorf("failed to append to keys file: %w", err)
	}
	joined := value
	if s.count > 0 {
		joined = s.sep + value
	}
	if _, err := s.joined.WriteString(joined); err != nil {
		return fmt.Errorf("failed to append to joined keys file: %w", err)
	}
	s.count++
	return nil
}

// Count returns how many values have been appended.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Close flushes and closes both files. Safe to call on any exit path.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.plain.Close(); err != nil {
		s.joined.Close()
		return fmt.Errorf("failed to close keys file: %w", err)
	}
	if err := s.joined.Close(); err != nil {
		return fmt.Errorf("failed to close joined keys file: %w", err)
	}
	return nil
}
