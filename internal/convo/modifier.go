package convo

import "strings"

var questionWords = []string{
	"how", "what", "who", "where", "when", "why", "which",
	"whose", "whom", "can you", "what's", "where's", "how's",
}

// QueryModifier normalizes a transcribed utterance: trims it, ends question
// phrases with "?" and statements with ".", and capitalizes the first rune.
func QueryModifier(query string) string {
	q := strings.TrimSpace(query)
	if q == "" {
		return q
	}
	q = strings.TrimRight(q, ".?!")
	lower := strings.ToLower(q)

	question := false
	for _, w := range questionWords {
		if strings.HasPrefix(lower, w+" ") || lower == w {
			question = true
			break
		}
	}
	if question {
		q += "?"
	} else {
		q += "."
	}
	return strings.ToUpper(q[:1]) + q[1:]
}

// AnswerModifier strips blank lines from a model answer before it is spoken
// or stored.
func AnswerModifier(answer string) string {
	lines := strings.Split(answer, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
