package credstore

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/zalando/go-keyring"
)

// systemStore uses the OS keyring (Secret Service, Keychain, Credential Manager).
type systemStore struct {
	service string
}

func newSystemStore() *systemStore {
	return &systemStore{service: serviceName()}
}

func (s *systemStore) Get(appID string) ([]byte, error) {
	v, err := keyring.Get(s.service, appID)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, formatKeyringError(err)
	}
	return []byte(v), nil
}

func (s *systemStore) Set(appID string, secret []byte) error {
	if err := keyring.Set(s.service, appID, string(secret)); err != nil {
		return formatKeyringError(err)
	}
	return nil
}

func (s *systemStore) Delete(appID string) error {
	err := keyring.Delete(s.service, appID)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return formatKeyringError(err)
	}
	return nil
}

func formatKeyringError(err error) error {
	if runtime.GOOS == "linux" && strings.Contains(err.Error(), "failed to unlock correct collection") {
		return fmt.Errorf("keyring error: %w\n\nlinux troubleshooting:\n  1. ensure you're logged into a desktop session\n  2. install and unlock gnome-keyring\n  3. on headless hosts use credential_store: session instead", err)
	}
	return fmt.Errorf("keyring error: %w", err)
}
