package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Profile describes the user. The persona prompt embeds every non-empty
// field so answers can reference who it is talking to.
type Profile struct {
	Name       string   `json:"name"`
	Email      string   `json:"email,omitempty"`
	Age        int      `json:"age,omitempty"`
	Gender     string   `json:"gender,omitempty"`
	Location   string   `json:"location,omitempty"`
	Occupation string   `json:"occupation,omitempty"`
	Hobbies    []string `json:"hobbies,omitempty"`
}

// Preferences are runtime toggles the assistant may rewrite while running,
// kept apart from the static config.
type Preferences struct {
	AutoDeleteChat bool     `json:"auto_delete_chat"`
	Languages      []string `json:"languages,omitempty"`
}

func defaultPreferences() Preferences {
	return Preferences{
		AutoDeleteChat: true,
		Languages:      []string{"en"},
	}
}

// LoadProfile reads Profile.json from the data directory. A missing or
// unreadable file yields an empty profile, never an error; the assistant
// works without one.
func LoadProfile(dataDir string) Profile {
	var p Profile
	data, err := os.ReadFile(filepath.Join(dataDir, "Profile.json"))
	if err != nil {
		return p
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}
	}
	return p
}

func SaveProfile(dataDir string, p Profile) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("cannot create data directory: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dataDir, "Profile.json"), data, 0o644)
}

// LoadPreferences reads Preferences.json. Missing or corrupt files fall
// back to defaults so a bad edit never stops the assistant.
func LoadPreferences(dataDir string) Preferences {
	data, err := os.ReadFile(filepath.Join(dataDir, "Preferences.json"))
	if err != nil {
		return defaultPreferences()
	}
	var p Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		return defaultPreferences()
	}
	return p
}

func SavePreferences(dataDir string, p Preferences) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("cannot create data directory: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dataDir, "Preferences.json"), data, 0o644)
}
