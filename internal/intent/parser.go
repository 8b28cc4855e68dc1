// Package intent turns classifier output into structured decisions: which
// automation skill to run, which conversational route to take, and what the
// merged query text is.
package intent

import (
	"strings"

	"voxbot/internal/domain"
)

// kindPrefixes is ordered so that multi-word verbs match before their
// single-word prefixes.
var kindPrefixes = []domain.IntentKind{
	domain.IntentGoogleSearch,
	domain.IntentYouTubeSearch,
	domain.IntentSkipAds,
	domain.IntentGeneral,
	domain.IntentRealtime,
	domain.IntentOpen,
	domain.IntentClose,
	domain.IntentPlay,
	domain.IntentContent,
	domain.IntentSystem,
	domain.IntentExit,
}

// ParseTag converts one raw classifier tag into a structured intent. Tags
// with no recognized verb come back as IntentUnknown with the full text as
// argument.
func ParseTag(tag string) domain.Intent {
	trimmed := strings.TrimSpace(tag)
	lower := strings.ToLower(trimmed)

	for _, kind := range kindPrefixes {
		verb := string(kind)
		if lower == verb {
			return domain.Intent{Kind: kind, Raw: trimmed}
		}
		if strings.HasPrefix(lower, verb+" ") {
			return domain.Intent{
				Kind:     kind,
				Argument: strings.TrimSpace(trimmed[len(verb):]),
				Raw:      trimmed,
			}
		}
	}
	return domain.Intent{Kind: domain.IntentUnknown, Argument: trimmed, Raw: trimmed}
}

// Decision is the ordered intent list for one utterance.
type Decision struct {
	Utterance string
	Intents   []domain.Intent
}

// Parse builds a Decision from the classifier's ordered tag list. Empty tags
// are dropped; order is preserved and determines automation precedence.
func Parse(utterance string, tags []string) Decision {
	d := Decision{Utterance: utterance}
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		d.Intents = append(d.Intents, ParseTag(tag))
	}
	return d
}

// HasConversational reports whether any general or realtime intent is
// present.
func (d Decision) HasConversational() bool {
	for _, in := range d.Intents {
		if in.Kind == domain.IntentGeneral || in.Kind == domain.IntentRealtime {
			return true
		}
	}
	return false
}

// HasRealtime reports whether any realtime intent is present. Realtime
// routes the whole turn to the live-search responder, even when general
// intents are also present.
func (d Decision) HasRealtime() bool {
	for _, in := range d.Intents {
		if in.Kind == domain.IntentRealtime {
			return true
		}
	}
	return false
}

// MergedQuery joins the argument text of every general and realtime intent
// with " and ", in sequence order.
func (d Decision) MergedQuery() string {
	var parts []string
	for _, in := range d.Intents {
		if in.Kind == domain.IntentGeneral || in.Kind == domain.IntentRealtime {
			parts = append(parts, in.Argument)
		}
	}
	return strings.Join(parts, " and ")
}

// Automation returns the first intent whose kind maps to an automation
// skill. At most one automation skill runs per decision.
func (d Decision) Automation() (domain.Intent, bool) {
	for _, in := range d.Intents {
		if in.Kind.Automation() {
			return in, true
		}
	}
	return domain.Intent{}, false
}

// ImagePrompt returns the prompt of a content intent that asks to generate
// an image, if one is present.
func (d Decision) ImagePrompt() (string, bool) {
	for _, in := range d.Intents {
		if in.Kind == domain.IntentContent && strings.Contains(strings.ToLower(in.Argument), "generate") {
			return in.Argument, true
		}
	}
	return "", false
}

// WantsExit reports whether an exit intent is present.
func (d Decision) WantsExit() bool {
	for _, in := range d.Intents {
		if in.Kind == domain.IntentExit {
			return true
		}
	}
	return false
}
