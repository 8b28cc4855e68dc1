// Package turn runs the assistant's foreground loop: listen, classify,
// act, answer, speak. A single shared state object replaces ad hoc global
// flags so the wake-word monitor and the speaker observe the same truth.
package turn

import "sync/atomic"

// Phase is what the assistant is doing right now.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseListening
	PhaseThinking
	PhaseSpeaking
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseListening:
		return "listening"
	case PhaseThinking:
		return "thinking"
	case PhaseSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// State is the shared turn state. All methods are safe for concurrent use.
type State struct {
	phase       atomic.Int32
	interrupted atomic.Bool
}

func NewState() *State {
	return &State{}
}

func (s *State) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *State) Set(p Phase) {
	s.phase.Store(int32(p))
}

// Transition moves from one phase to another only if the current phase
// matches, and reports whether it did.
func (s *State) Transition(from, to Phase) bool {
	return s.phase.CompareAndSwap(int32(from), int32(to))
}

// Interrupt requests that the current answer stop. It only sticks while the
// assistant is speaking; stray wake words at other times are ignored.
func (s *State) Interrupt() bool {
	if s.Phase() != PhaseSpeaking {
		return false
	}
	s.interrupted.Store(true)
	return true
}

func (s *State) Interrupted() bool {
	return s.interrupted.Load()
}

func (s *State) ClearInterrupt() {
	s.interrupted.Store(false)
}
