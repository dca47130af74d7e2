//go:build linux

package credstore

import (
	"fmt"

	"github.com/jsipprell/keyctl"
)

// sessionStore keeps secrets in the kernel session keyring; they vanish with
// the login session and never touch disk.
type sessionStore struct {
	keyring keyctl.Keyring
}

func newSessionStore() (Store, error) {
	kr, err := keyctl.SessionKeyring()
	if err != nil {
		return nil, fmt.Errorf("failed to access kernel keyring: %w", err)
	}
	kr.SetDefaultTimeout(0)
	return &sessionStore{keyring: kr}, nil
}

func keyName(appID string) string {
	return serviceName() + ":sp:" + appID
}

func (s *sessionStore) Get(appID string) ([]byte, error) {
	key, err := s.keyring.Search(keyName(appID))
	if err != nil {
		return nil, ErrNotFound
	}
	v, err := key.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to read kernel key: %w", err)
	}
	return v, nil
}

func (s *sessionStore) Set(appID string, secret []byte) error {
	if _, err := s.keyring.Add(keyName(appID), secret); err != nil {
		return fmt.Errorf("failed to store kernel key: %w", err)
	}
	return nil
}

func (s *sessionStore) Delete(appID string) error {
	key, err := s.keyring.Search(keyName(appID))
	if err != nil {
		return nil
	}
	return key.Unlink()
}
