// Package chatlog persists the conversation transcript as a single JSON
// array, rewritten whole on every mutation. The recovery policy for a
// corrupt or unreadable log is reset-to-empty: availability over
// durability.
package chatlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"voxbot/internal/domain"
)

// ErrLogReset is returned by Load when the log was corrupt and has been
// reset to an empty array. The caller retries the operation once; the reset
// guarantees the retry's load succeeds.
var ErrLogReset = errors.New("chat log was corrupt and has been reset")

// Store owns ChatLog.json. A single mutex serializes access; the turn loop
// is the only writer, but the retention purger and manual purge share the
// file.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the log file location.
func (s *Store) Path() string { return s.path }

// Load reads the full transcript. A missing file is created empty. A file
// that fails to parse is backed up to <path>.bak, reset to an empty array,
// and ErrLogReset is returned.
func (s *Store) Load() ([]domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() ([]domain.Turn, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := s.saveLocked(nil); err != nil {
			return nil, fmt.Errorf("create empty chat log: %w", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chat log: %w", err)
	}
	if len(bytes.TrimSpace(data)) < 5 {
		// Too short to hold a turn. Treat as a fresh log, not corruption.
		if err := s.saveLocked(nil); err != nil {
			return nil, fmt.Errorf("seed empty chat log: %w", err)
		}
		return nil, nil
	}

	var turns []domain.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		s.logger.Warn("chat log is corrupt, resetting", "path", s.path, "error", err)
		if bakErr := os.WriteFile(s.path+".bak", data, 0o644); bakErr != nil {
			s.logger.Warn("could not write backup of corrupt log", "error", bakErr)
		}
		if resetErr := s.saveLocked(nil); resetErr != nil {
			return nil, fmt.Errorf("reset corrupt chat log: %w", resetErr)
		}
		return nil, ErrLogReset
	}
	return turns, nil
}

// Save rewrites the whole transcript.
func (s *Store) Save(turns []domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(turns)
}

func (s *Store) saveLocked(turns []domain.Turn) error {
	if turns == nil {
		turns = []domain.Turn{}
	}
	data, err := json.MarshalIndent(turns, "", "    ")
	if err != nil {
		return fmt.Errorf("encode chat log: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write chat log: %w", err)
	}
	return nil
}

// Update applies apply to the current transcript and rewrites it, all
// under the store mutex. Writers that read-modify-write must go through
// here: a Load/Save pair would let an interleaved Append be overwritten
// by the stale snapshot.
func (s *Store) Update(apply func(turns []domain.Turn) []domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, err := s.loadLocked()
	if err != nil && !errors.Is(err, ErrLogReset) {
		return err
	}
	return s.saveLocked(apply(turns))
}

// Append loads, appends, and rewrites in one critical section.
func (s *Store) Append(turns ...domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.loadLocked()
	if err != nil && !errors.Is(err, ErrLogReset) {
		return err
	}
	return s.saveLocked(append(existing, turns...))
}

// Clear truncates the transcript to an empty array (manual purge).
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(nil)
}

// History converts the stored transcript to wire messages, stripping
// timestamps. The completion API rejects unknown fields.
func History(turns []domain.Turn) []domain.Message {
	msgs := make([]domain.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, domain.Message{Role: string(t.Role), Content: t.Content})
	}
	return msgs
}

// Recent returns the last n turns, for display seeding.
func Recent(turns []domain.Turn, n int) []domain.Turn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
