package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Session is what projectctl remembers between runs.
type Session struct {
	Server string `json:"server,omitempty"`
	Token  string `json:"token,omitempty"`
	Email  string `json:"email,omitempty"`
}

// DefaultSessionPath returns ~/.tch/projectctl.json.
func DefaultSessionPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tch", "projectctl.json")
}

// LoadSession reads the session file; a missing file is an empty session.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Session{}, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes the session readable by the owner only.
func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
