// Package adminsession guards the admin console's locally persisted login
// session, which is deliberately independent of the user-facing OAuth
// mechanism: one operator record with a 24-hour lifetime, checked on every
// access.
package adminsession

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Session is the persisted admin login record. LoginTime is epoch
// milliseconds, matching the JSON shape the console has always stored.
type Session struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	LoginTime int64  `json:"loginTime"`
}

// Store is the key-value persisted cache holding at most one Session.
// Read returns (nil, nil) when nothing is stored. Clear is idempotent.
type Store interface {
	Read() (*Session, error)
	Write(s *Session) error
	Clear() error
}

// FileStore persists the session as a single JSON file, surviving process
// restarts the way browser local storage survives reloads. Writes go
// through a temp file and rename so a crash mid-write can never leave a
// torn record behind.
type FileStore struct {
	path string
}

// NewFileStore creates a store at path, creating parent directories as
// needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("adminsession: creating session directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) Read() (*Session, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("adminsession: reading session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		// A corrupt record is as good as no record. Clear it so the next
		// read is cleanly empty.
		_ = f.Clear()
		return nil, nil
	}
	return &s, nil
}

func (f *FileStore) Write(s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("adminsession: encoding session: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("adminsession: writing session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("adminsession: replacing session file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("adminsession: clearing session file: %w", err)
	}
	return nil
}
