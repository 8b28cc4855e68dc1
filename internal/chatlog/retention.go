package chatlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"voxbot/internal/domain"
)

const (
	// retentionWindow is how long dated turns are kept by the age purge.
	retentionWindow = 7 * 24 * time.Hour
	// cleanupInterval gates the purge to at most once per day.
	cleanupInterval = 24 * time.Hour
	// undatedKeep is the positional fallback when no turn in the whole log
	// carries a timestamp.
	undatedKeep = 50
)

// Purger runs the daily age-based purge over the chat log, gated by a
// last-run timestamp file and the auto_delete_chat preference.
type Purger struct {
	store       *Store
	lastRunPath string
	enabled     func() bool
	logger      *slog.Logger
	now         func() time.Time
}

func NewPurger(store *Store, lastRunPath string, enabled func() bool, logger *slog.Logger) *Purger {
	return &Purger{
		store:       store,
		lastRunPath: lastRunPath,
		enabled:     enabled,
		logger:      logger,
		now:         time.Now,
	}
}

type lastCleanup struct {
	LastCleanup string `json:"last_cleanup"`
}

// Run executes the purge if it is enabled and due. It never fails the
// caller: all errors become log lines.
func (p *Purger) Run() {
	if p.enabled != nil && !p.enabled() {
		return
	}
	if !p.due() {
		return
	}

	cutoff := p.now().Add(-retentionWindow)
	var removed, kept int
	err := p.store.Update(func(turns []domain.Turn) []domain.Turn {
		after := ApplyAge(turns, cutoff)
		removed, kept = len(turns)-len(after), len(after)
		return after
	})
	if err != nil {
		p.logger.Warn("age purge could not rewrite chat log", "error", err)
		return
	}
	if removed > 0 {
		p.logger.Info("removed old messages from chat history",
			"removed", removed, "kept", kept)
	}

	p.stamp()
}

// due reports whether at least a day has passed since the last purge. A
// missing or unreadable last-run file means the purge is due.
func (p *Purger) due() bool {
	data, err := os.ReadFile(p.lastRunPath)
	if err != nil {
		return true
	}
	var lc lastCleanup
	if err := json.Unmarshal(data, &lc); err != nil {
		return true
	}
	last, err := time.Parse(time.RFC3339Nano, lc.LastCleanup)
	if err != nil {
		return true
	}
	return p.now().Sub(last) >= cleanupInterval
}

func (p *Purger) stamp() {
	data, err := json.Marshal(lastCleanup{LastCleanup: p.now().Format(time.RFC3339Nano)})
	if err == nil {
		err = os.WriteFile(p.lastRunPath, data, 0o644)
	}
	if err != nil {
		p.logger.Warn("could not record cleanup timestamp", "error", err)
	}
}

// ApplyAge drops turns older than the cutoff. Undated turns are kept
// unconditionally as long as any turn in the log is dated; when no turn at
// all carries a timestamp, the log is instead truncated to the most recent
// turns positionally. A turn with an unparseable timestamp counts as dated
// and is kept.
func ApplyAge(turns []domain.Turn, cutoff time.Time) []domain.Turn {
	hasTimestamps := false
	kept := make([]domain.Turn, 0, len(turns))

	for _, turn := range turns {
		if turn.Timestamp == "" {
			kept = append(kept, turn)
			continue
		}
		hasTimestamps = true
		ts, ok := turn.Time()
		if !ok {
			// Invalid timestamp, keep the turn.
			kept = append(kept, turn)
			continue
		}
		if !ts.Before(cutoff) {
			kept = append(kept, turn)
		}
	}

	if !hasTimestamps && len(turns) > undatedKeep {
		return turns[len(turns)-undatedKeep:]
	}
	return kept
}

// RunDaily re-checks the purge gate on a ticker until ctx is done. The
// daemon calls this once at startup.
func (p *Purger) RunDaily(stop <-chan struct{}) {
	p.Run()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.Run()
		}
	}
}

// Describe returns a short human summary for doctor output.
func (p *Purger) Describe() string {
	return fmt.Sprintf("age purge: window %s, gate %s, fallback keep %d", retentionWindow, cleanupInterval, undatedKeep)
}
