package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// TokenStore persists a session token across process restarts.
type TokenStore interface {
	// Load returns the cached token, or ErrNoToken when none is stored.
	Load() (string, error)

	// Save replaces the cached token. It is called only after the host
	// has accepted the token, so a crash mid-session never caches an
	// unproven value.
	Save(token string) error

	// Clear removes the cached token. Clearing an empty store is a no-op.
	Clear() error
}

const tokenFileName = "session-token"

// FileStore keeps the token in a mode-0600 file under the cache directory,
// serialising access across processes with a file lock so concurrent CLI
// invocations do not interleave reads and writes.
type FileStore struct {
	path string
	lock *flock.Flock
}

func NewFileStore(dir string) *FileStore {
	path := filepath.Join(dir, tokenFileName)
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the token file's location, for display to the user.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load() (string, error) {
	if err := s.lock.RLock(); err != nil {
		return "", fmt.Errorf("locking token cache: %w", err)
	}
	defer s.lock.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("reading token cache: %w", err)
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (s *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("locking token cache: %w", err)
	}
	defer s.lock.Unlock()

	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing token cache: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("locking token cache: %w", err)
	}
	defer s.lock.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token cache: %w", err)
	}
	return nil
}

// MemoryStore is a TokenStore for tests.
type MemoryStore struct {
	token string
}

func (s *MemoryStore) Load() (string, error) {
	if s.token == "" {
		return "", ErrNoToken
	}
	return s.token, nil
}

func (s *MemoryStore) Save(token string) error {
	s.token = token
	return nil
}

func (s *MemoryStore) Clear() error {
	s.token = ""
	return nil
}
