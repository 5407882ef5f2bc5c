package client

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/sharetube/watchparty/internal/domain"
)

const (
	identityUserIDKey   = "user_id"
	identityUsernameKey = "username"
	anonymousIDLength   = 8
)

// IdentityStore persists the anonymous user id that keys membership across
// reconnects and restarts.
type IdentityStore struct {
	mu   sync.Mutex
	path string
	k    *koanf.Koanf
}

func NewIdentityStore(path string) (*IdentityStore, error) {
	k, err := loadIdentity(path)
	if err != nil {
		return nil, err
	}
	return &IdentityStore{path: path, k: k}, nil
}

func loadIdentity(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load identity file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat identity file: %w", err)
	}
	return k, nil
}

// DefaultIdentityPath is the identity file under the user config directory.
func DefaultIdentityPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watchparty", "identity.yaml"), nil
}

// UserID returns the stored id, generating and saving one on first use. Two
// processes starting together agree on the same id.
func (s *IdentityStore) UserID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id := s.k.String(identityUserIDKey); id != "" {
		return id, nil
	}

	err := s.withFileLock(func() error {
		k, err := loadIdentity(s.path)
		if err != nil {
			return err
		}
		s.k = k
		if k.String(identityUserIDKey) != "" {
			return nil
		}

		id := domain.AnonymousIDPrefix + uuid.NewString()[:anonymousIDLength]
		if err := k.Set(identityUserIDKey, id); err != nil {
			return err
		}
		return s.save()
	})
	if err != nil {
		return "", err
	}

	return s.k.String(identityUserIDKey), nil
}

func (s *IdentityStore) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.k.String(identityUsernameKey)
}

func (s *IdentityStore) SetUsername(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.k.Set(identityUsernameKey, username); err != nil {
		return err
	}
	return s.withFileLock(s.save)
}

func (s *IdentityStore) withFileLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create identity dir: %w", err)
	}

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock identity file: %w", err)
	}
	defer lock.Unlock()

	return fn()
}

func (s *IdentityStore) save() error {
	data, err := s.k.Marshal(yaml.Parser())
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write identity file: %w", err)
	}
	return nil
}
