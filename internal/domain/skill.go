package domain

import "context"

// Skill is a concrete automation action (open app, system control, etc).
// Run failures are logged and audited but never surfaced to the user; the
// turn completes with a generic acknowledgment either way.
type Skill interface {
	Name() string
	Kind() IntentKind
	// Ack returns the spoken acknowledgment for the given argument,
	// delivered before the skill runs.
	Ack(arg string) string
	Run(ctx context.Context, arg string) error
}
