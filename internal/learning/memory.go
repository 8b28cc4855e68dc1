// Package learning maintains the derived fact store: deduplicated
// statements about the user distilled from past turns, ranked by how often
// they recur.
package learning

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// capacity caps the store; lowest-ranked facts are evicted past it.
	capacity = 100
	// contextFacts is how many top facts go into the responder context.
	contextFacts = 10
)

// Fact is one learned statement. RelevanceCount increments every time the
// same fact (case-insensitive) is extracted again.
type Fact struct {
	Fact           string `json:"fact"`
	Timestamp      string `json:"timestamp"`
	RelevanceCount int    `json:"relevance_count"`
}

// Store owns LearningMemory.json. Same whole-file-rewrite, reset-on-corrupt
// policy as the chat log.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
	now    func() time.Time
}

func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger, now: time.Now}
}

// Load reads all facts. Missing file is created empty; corrupt content is
// reset to an empty array.
func (s *Store) Load() ([]Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() ([]Fact, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		if err := s.saveLocked(nil); err != nil {
			return nil, fmt.Errorf("create learning memory: %w", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read learning memory: %w", err)
	}

	var facts []Fact
	if err := json.Unmarshal(data, &facts); err != nil {
		s.logger.Warn("learning memory is corrupt, resetting", "error", err)
		if err := s.saveLocked(nil); err != nil {
			return nil, fmt.Errorf("reset learning memory: %w", err)
		}
		return nil, nil
	}
	return facts, nil
}

func (s *Store) saveLocked(facts []Fact) error {
	if facts == nil {
		facts = []Fact{}
	}
	data, err := json.MarshalIndent(facts, "", "    ")
	if err != nil {
		return fmt.Errorf("encode learning memory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write learning memory: %w", err)
	}
	return nil
}

// Add inserts a fact, or bumps the relevance count and refreshes the
// timestamp of an existing case-insensitive duplicate. Past capacity the
// lowest-ranked entries are evicted.
func (s *Store) Add(fact string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	facts, err := s.loadLocked()
	if err != nil {
		return err
	}

	lower := strings.ToLower(fact)
	for i := range facts {
		if strings.ToLower(facts[i].Fact) == lower {
			facts[i].RelevanceCount++
			facts[i].Timestamp = s.now().Format(time.RFC3339Nano)
			return s.saveLocked(facts)
		}
	}

	facts = append(facts, Fact{
		Fact:           fact,
		Timestamp:      s.now().Format(time.RFC3339Nano),
		RelevanceCount: 1,
	})

	if len(facts) > capacity {
		sortByRank(facts)
		facts = facts[:capacity]
	}

	return s.saveLocked(facts)
}

// Clear empties the store.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(nil)
}

// ContextBlock formats the top facts for the responder's system context.
// Returns "" when nothing has been learned yet.
func (s *Store) ContextBlock() string {
	facts, err := s.Load()
	if err != nil {
		s.logger.Warn("could not load learning memory for context", "error", err)
		return ""
	}
	if len(facts) == 0 {
		return ""
	}

	sortByRank(facts)
	if len(facts) > contextFacts {
		facts = facts[:contextFacts]
	}

	var b strings.Builder
	b.WriteString("\n*** What I've learned about you from our conversations: ***\n")
	for _, f := range facts {
		b.WriteString("- ")
		b.WriteString(f.Fact)
		b.WriteByte('\n')
	}
	return b.String()
}

// sortByRank orders facts descending by (relevance_count, timestamp).
func sortByRank(facts []Fact) {
	sort.SliceStable(facts, func(i, j int) bool {
		if facts[i].RelevanceCount != facts[j].RelevanceCount {
			return facts[i].RelevanceCount > facts[j].RelevanceCount
		}
		return laterTimestamp(facts[i].Timestamp, facts[j].Timestamp)
	})
}

// laterTimestamp reports whether a sorts after b in time. Unparseable
// timestamps fall back to string comparison, which is order-correct for
// uniform RFC 3339 stamps.
func laterTimestamp(a, b string) bool {
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA == nil && errB == nil {
		return ta.After(tb)
	}
	return a > b
}
