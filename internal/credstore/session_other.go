//go:build !linux

package credstore

// Without a kernel keyring the session store falls back to the OS keyring.
func newSessionStore() (Store, error) {
	return newSystemStore(), nil
}
