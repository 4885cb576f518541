package settings

import (
	"fmt"
	"os"
	"path/filepath"
)

// ProfileStore is the authenticated persistence backend for settings blobs,
// keyed by user ID.
type ProfileStore interface {
	ProfileSettings(userID string) (string, error)
	SaveProfileSettings(userID, blob string) error
}

// profilePersister persists settings in the user's profile record.
type profilePersister struct {
	store  ProfileStore
	userID string
}

// NewProfilePersister returns a Persister backed by a user profile.
func NewProfilePersister(store ProfileStore, userID string) Persister {
	return &profilePersister{store: store, userID: userID}
}

func (p *profilePersister) Load() ([]byte, error) {
	blob, err := p.store.ProfileSettings(p.userID)
	if err != nil {
		return nil, fmt.Errorf("load profile settings: %w", err)
	}
	if blob == "" {
		return nil, nil
	}
	return []byte(blob), nil
}

func (p *profilePersister) Save(blob []byte) error {
	if err := p.store.SaveProfileSettings(p.userID, string(blob)); err != nil {
		return fmt.Errorf("save profile settings: %w", err)
	}
	return nil
}

// FilePersister persists settings to a local JSON file. It is the guest
// fallback when no authenticated profile is available.
type FilePersister struct {
	path string
}

// NewFilePersister returns a Persister writing to the given path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (p *FilePersister) Load() ([]byte, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	return data, nil
}

func (p *FilePersister) Save(blob []byte) error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := os.WriteFile(p.path, blob, 0600); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}
