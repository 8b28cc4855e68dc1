package turn

import (
	"fmt"
	"math/rand/v2"
	"time"
)

var greetingTemplates = map[string][]string{
	"morning": {
		"Good morning %s! How can I help you?",
		"Good morning %s! What can I do for you today?",
	},
	"afternoon": {
		"Good afternoon %s! How can I help you?",
		"Good afternoon %s! What do you need?",
	},
	"evening": {
		"Good evening %s! How can I help you?",
		"Good evening %s! What can I do for you?",
	},
}

// Greeting picks a time-of-day appropriate salutation for startup.
func Greeting(username string, now time.Time) string {
	var slot string
	switch hour := now.Hour(); {
	case hour < 12:
		slot = "morning"
	case hour < 18:
		slot = "afternoon"
	default:
		slot = "evening"
	}
	options := greetingTemplates[slot]
	return fmt.Sprintf(options[rand.IntN(len(options))], username)
}
