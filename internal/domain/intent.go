package domain

// IntentKind is the recognized verb of a classified intent tag.
type IntentKind string

const (
	IntentGeneral       IntentKind = "general"
	IntentRealtime      IntentKind = "realtime"
	IntentOpen          IntentKind = "open"
	IntentClose         IntentKind = "close"
	IntentPlay          IntentKind = "play"
	IntentContent       IntentKind = "content"
	IntentGoogleSearch  IntentKind = "google search"
	IntentYouTubeSearch IntentKind = "youtube search"
	IntentSystem        IntentKind = "system"
	IntentSkipAds       IntentKind = "skip ads"
	IntentExit          IntentKind = "exit"
	IntentUnknown       IntentKind = "unknown"
)

// Automation reports whether the kind maps to an automation skill rather
// than a conversational response.
func (k IntentKind) Automation() bool {
	switch k {
	case IntentOpen, IntentClose, IntentPlay, IntentContent,
		IntentGoogleSearch, IntentYouTubeSearch, IntentSystem, IntentSkipAds:
		return true
	}
	return false
}

// Intent is one structured intent parsed from a classifier tag. Argument is
// the free text after the verb; Raw keeps the original tag for logging.
type Intent struct {
	Kind     IntentKind
	Argument string
	Raw      string
}
