package mail

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

const (
	envUsername = "MAIL_USERNAME"
	envPassword = "MAIL_PASSWORD"
)

// CredentialStore holds the current mailbox login and persists changes to a
// dotenv file so they survive a restart.
type CredentialStore struct {
	mu    sync.RWMutex
	path  string
	creds Credentials
}

func NewCredentialStore(path string, initial Credentials) *CredentialStore {
	return &CredentialStore{path: path, creds: initial}
}

func (s *CredentialStore) Get() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// Update writes creds to the dotenv file, keeping any other keys in it, and
// then makes them current.
func (s *CredentialStore) Update(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env := map[string]string{}
	if s.path != "" {
		existing, err := godotenv.Read(s.path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read %s: %w", s.path, err)
		}
		for k, v := range existing {
			env[k] = v
		}
		env[envUsername] = creds.Username
		env[envPassword] = creds.Password
		if err := godotenv.Write(env, s.path); err != nil {
			return fmt.Errorf("write %s: %w", s.path, err)
		}
	}

	s.creds = creds
	return nil
}
