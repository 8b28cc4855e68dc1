package skill

import (
	"log/slog"
	"sync"

	"voxbot/internal/domain"
)

// Registry maps intent kinds to the skill that handles them.
type Registry struct {
	skills map[domain.IntentKind]domain.Skill
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		skills: make(map[domain.IntentKind]domain.Skill),
		logger: logger,
	}
}

// Register adds a skill, replacing any prior handler for the same kind.
func (r *Registry) Register(s domain.Skill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.skills[s.Kind()]; exists {
		r.logger.Info("skill replaced", "kind", s.Kind(), "name", s.Name())
	} else {
		r.logger.Debug("skill registered", "kind", s.Kind(), "name", s.Name())
	}
	r.skills[s.Kind()] = s
}

// Lookup returns the skill for an intent kind, or nil when none handles it.
func (r *Registry) Lookup(kind domain.IntentKind) domain.Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.skills[kind]
}

// List returns all registered skills.
func (r *Registry) List() []domain.Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Skill, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s)
	}
	return out
}
