package domain

import "time"

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in the conversation log. Timestamp is an RFC 3339 string
// and is absent on entries written before the field existed; readers must
// tolerate that, and the store never synthesizes it retroactively.
type Turn struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// NewTurn creates a turn stamped with the current time.
func NewTurn(role Role, content string) Turn {
	return Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().Format(time.RFC3339Nano),
	}
}

// Time parses the turn's timestamp. The second return is false when the
// timestamp is missing or unparseable.
func (t Turn) Time() (time.Time, bool) {
	if t.Timestamp == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, t.Timestamp)
	if err != nil {
		ts, err = time.Parse(time.RFC3339, t.Timestamp)
	}
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
