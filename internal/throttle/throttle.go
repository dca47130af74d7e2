// Package throttle locks out an identity after repeated failed logins so
// password tests cannot trip the directory's own account lockout.
package throttle

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var ErrLocked = errors.New("identity locked")

type RateLimit struct {
	FailedAttempts int       `json:"failed_attempts"`
	LockedUntil    time.Time `json:"locked_until"`
}

// Limiter persists per-identity failure counts in a JSON file.
// A zero MaxFailures disables locking.
type Limiter struct {
	Path        string
	MaxFailures int
	Lockout     time.Duration

	now func() time.Time
}

func New(stateDir string, maxFailures int, lockout time.Duration) *Limiter {
	return &Limiter{
		Path:        filepath.Join(stateDir, "throttle.json"),
		MaxFailures: maxFailures,
		Lockout:     lockout,
		now:         time.Now,
	}
}

func (l *Limiter) load() (map[string]*RateLimit, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*RateLimit{}, nil
		}
		return nil, fmt.Errorf("failed to read throttle state: %w", err)
	}

	limits := map[string]*RateLimit{}
	if err := json.Unmarshal(data, &limits); err != nil {
		return nil, fmt.Errorf("failed to parse throttle state: %w", err)
	}
	return limits, nil
}

func (l *Limiter) save(limits map[string]*RateLimit) error {
	if err := os.MkdirAll(filepath.Dir(l.Path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	data, err := json.MarshalIndent(limits, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.Path, data, 0600)
}

// Check returns ErrLocked while identity is locked out.
func (l *Limiter) Check(identity string) error {
	if l == nil || l.MaxFailures == 0 {
		return nil
	}
	limits, err := l.load()
	if err != nil {
		return err
	}

	rl, ok := limits[identity]
	if !ok {
		return nil
	}
	now := l.now()
	if !rl.LockedUntil.IsZero() && now.Before(rl.LockedUntil) {
		remaining := rl.LockedUntil.Sub(now).Round(time.Second)
		return fmt.Errorf("%w: %s has %d failed logins, try again in %v", ErrLocked, identity, rl.FailedAttempts, remaining)
	}
	if !rl.LockedUntil.IsZero() {
		delete(limits, identity)
		return l.save(limits)
	}
	return nil
}

// RecordFailure counts a failed login and locks identity once the limit is hit.
func (l *Limiter) RecordFailure(identity string) error {
	if l == nil || l.MaxFailures == 0 {
		return nil
	}
	limits, err := l.load()
	if err != nil {
		return err
	}

	rl, ok := limits[identity]
	if !ok {
		rl = &RateLimit{}
		limits[identity] = rl
	}
	rl.FailedAttempts++
	if rl.FailedAttempts >= l.MaxFailures {
		rl.LockedUntil = l.now().Add(l.Lockout)
	}
	return l.save(limits)
}

// Reset forgets identity's failures after a successful login.
func (l *Limiter) Reset(identity string) error {
	if l == nil || l.MaxFailures == 0 {
		return nil
	}
	limits, err := l.load()
	if err != nil {
		return err
	}
	if _, ok := limits[identity]; !ok {
		return nil
	}
	delete(limits, identity)
	return l.save(limits)
}
