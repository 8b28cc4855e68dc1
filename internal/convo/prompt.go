// Package convo turns a spoken utterance into a spoken answer. It owns the
// persona prompt, the conversational and realtime responders, and the small
// text modifiers applied on the way in and out.
package convo

import (
	"fmt"
	"strings"
	"time"

	"voxbot/internal/config"
	"voxbot/internal/learning"
)

// PromptBuilder assembles the system prompt: persona, the live clock block,
// the user profile, and learned facts.
type PromptBuilder struct {
	assistantName string
	username      string
	profile       config.Profile
	memory        *learning.Store
	languages     string
	now           func() time.Time
}

func NewPromptBuilder(assistantName, username string, profile config.Profile, memory *learning.Store) *PromptBuilder {
	return &PromptBuilder{
		assistantName: assistantName,
		username:      username,
		profile:       profile,
		memory:        memory,
		now:           time.Now,
	}
}

// WithLanguages sets the reply-language preference included in the persona.
func (b *PromptBuilder) WithLanguages(languages []string) *PromptBuilder {
	b.languages = strings.Join(languages, ", ")
	return b
}

// Persona is the system prompt for conversational answers: the base persona
// plus the user profile and learned facts.
func (b *PromptBuilder) Persona() string {
	return b.persona(true)
}

// SearchPersona is the system prompt for search-grounded answers. The profile
// block stays out: the model should answer from the snippets, not personalize
// around who is asking.
func (b *PromptBuilder) SearchPersona() string {
	return b.persona(false)
}

func (b *PromptBuilder) persona(withProfile bool) string {
	languages := b.languages
	if languages == "" || strings.EqualFold(languages, "en") {
		languages = "English"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hello, I am %s. You are a very accurate and advanced AI voice assistant named %s which has real-time up-to-date information from the internet.\n", b.username, b.assistantName)
	sb.WriteString("*** Do not tell time until I ask, do not talk too much, just answer the question. ***\n")
	fmt.Fprintf(&sb, "*** Reply in only %s, no matter the language of the question. ***\n", languages)
	sb.WriteString("*** Do not provide notes in the output, just answer the question and never mention your training data. ***")

	if withProfile {
		if block := b.profileBlock(); block != "" {
			sb.WriteString("\n\n")
			sb.WriteString(block)
		}
	}
	if b.memory != nil {
		if block := b.memory.ContextBlock(); block != "" {
			sb.WriteString("\n\n")
			sb.WriteString(block)
		}
	}
	return sb.String()
}

func (b *PromptBuilder) profileBlock() string {
	p := b.profile
	var lines []string
	if p.Name != "" {
		lines = append(lines, "Name: "+p.Name)
	}
	if p.Email != "" {
		lines = append(lines, "Email: "+p.Email)
	}
	if p.Age > 0 {
		lines = append(lines, fmt.Sprintf("Age: %d", p.Age))
	}
	if p.Gender != "" {
		lines = append(lines, "Gender: "+p.Gender)
	}
	if p.Location != "" {
		lines = append(lines, "Location: "+p.Location)
	}
	if p.Occupation != "" {
		lines = append(lines, "Occupation: "+p.Occupation)
	}
	if len(p.Hobbies) > 0 {
		lines = append(lines, "Hobbies: "+strings.Join(p.Hobbies, ", "))
	}
	if len(lines) == 0 {
		return ""
	}
	return "*** About the user: ***\n" + strings.Join(lines, "\n")
}

// RealtimeInformation renders the live clock block injected before every
// completion so the model can answer date and time questions.
func (b *PromptBuilder) RealtimeInformation() string {
	now := b.now()
	var sb strings.Builder
	sb.WriteString("Please use this real-time information if needed,\n")
	fmt.Fprintf(&sb, "Day: %s\n", now.Format("Monday"))
	fmt.Fprintf(&sb, "Date: %s\n", now.Format("02"))
	fmt.Fprintf(&sb, "Month: %s\n", now.Format("January"))
	fmt.Fprintf(&sb, "Year: %s\n", now.Format("2006"))
	fmt.Fprintf(&sb, "Time: %s hours :%s minutes :%s seconds.\n", now.Format("15"), now.Format("04"), now.Format("05"))
	return sb.String()
}
