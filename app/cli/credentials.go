package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const credFileName = "credentials.json"

// Credentials is the saved session of the terminal client.
type Credentials struct {
	Token     string     `json:"token"`
	Email     string     `json:"email,omitempty"`
	Source    string     `json:"source"`     // "env" | "file"
	CreatedAt time.Time  `json:"created_at"` // when we saved to file
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CredentialStore keeps the session token in Dir, with an environment
// override.
type CredentialStore struct {
	Dir    string
	Getenv func(string) string
	now    func() time.Time
}

// DefaultCredentialStore uses ~/.nestodo and NESTODO_TOKEN.
func DefaultCredentialStore() (*CredentialStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("home: %w", err)
	}
	return &CredentialStore{Dir: filepath.Join(home, ".nestodo"), Getenv: os.Getenv}, nil
}

func (s *CredentialStore) path() string {
	return filepath.Join(s.Dir, credFileName)
}

func (s *CredentialStore) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Load returns the saved session, or nil when not logged in. Expired file
// sessions count as logged out.
func (s *CredentialStore) Load() (*Credentials, error) {
	if s.Getenv != nil {
		if env := strings.TrimSpace(s.Getenv("NESTODO_TOKEN")); env != "" {
			return &Credentials{Token: stripBearer(env), Source: "env"}, nil
		}
	}

	b, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	c.Token = stripBearer(c.Token)
	if c.Token == "" || (c.ExpiresAt != nil && s.clock().After(*c.ExpiresAt)) {
		return nil, nil
	}
	return &c, nil
}

// Save writes the session with owner-only permissions.
func (s *CredentialStore) Save(token, email string, expires time.Time) error {
	token = stripBearer(strings.TrimSpace(token))
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	c := Credentials{
		Token:     token,
		Email:     email,
		Source:    "file",
		CreatedAt: s.clock(),
	}
	if !expires.IsZero() {
		c.ExpiresAt = &expires
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(s.path(), b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Delete forgets the saved session.
func (s *CredentialStore) Delete() error {
	if err := os.Remove(s.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
