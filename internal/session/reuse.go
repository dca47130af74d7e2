package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/carved4/kvwalk/internal/audit"
	"github.com/carved4/kvwalk/internal/cloud"
	"github.com/carved4/kvwalk/internal/config"
	"github.com/carved4/kvwalk/internal/secmem"
	"github.com/carved4/kvwalk/internal/throttle"
)

type Outcome int

const (
	Failed Outcome = iota
	LoggedIn
	// Reused means an equivalent session existed and no login was performed.
	Reused
)

func (o Outcome) String() string {
	switch o {
	case LoggedIn:
		return "logged in"
	case Reused:
		return "reused"
	default:
		return "failed"
	}
}

// Manager performs logins through the reuse decision and keeps Current in step.
type Manager struct {
	IdP     cloud.Identity
	Current *Current
	Audit   *audit.Logger
	Limiter *throttle.Limiter
	// Policy is config.PolicyReuse or config.PolicyLogoutFirst.
	Policy string
	// Tenant is used for user logins and as the default for service principals.
	Tenant string
}

// Sync reads the identity provider's current session into Current.
func (m *Manager) Sync(ctx context.Context) error {
	s, err := m.IdP.CurrentSession(ctx)
	if err != nil {
		if errors.Is(err, audit.ErrWrite) {
			return err
		}
		return m.Audit.RecordErrorf("failed to read current session: %v", err)
	}
	if s == nil {
		m.Current.Clear()
		return m.Audit.Record("no active session")
	}
	m.Current.Set(*s)
	return m.Audit.Recordf("active session: %s (%s)", s.Name, s.Kind)
}

// Decide reports whether a login as name can be skipped: the current
// identity is already name, or an active session for name exists. A failing
// session probe means "log in"; only audit failures are returned.
func (m *Manager) Decide(ctx context.Context, name string) (*cloud.Session, bool, error) {
	if cur := m.Current.Get(); cur != nil && cur.Name == name {
		return cur, true, nil
	}
	sessions, err := m.IdP.ListSessions(ctx)
	if err != nil {
		if errors.Is(err, audit.ErrWrite) {
			return nil, false, err
		}
		return nil, false, m.Audit.RecordErrorf("session probe for %s failed, attempting a fresh login: %v", name, err)
	}
	for _, s := range sessions {
		if s.Name == name {
			return &s, true, nil
		}
	}
	return nil, false, nil
}

// LoginServicePrincipal logs in as appID unless the session can be reused.
// A secret that is used is wiped before returning.
func (m *Manager) LoginServicePrincipal(ctx context.Context, appID string, secret []byte, tenant string) (Outcome, error) {
	return m.LoginServicePrincipalWith(ctx, appID, tenant, func() ([]byte, error) { return secret, nil }, nil)
}

// LoginUser logs in as username with password unless a session for username
// already exists, in which case the password is not tried.
func (m *Manager) LoginUser(ctx context.Context, username string, password []byte) (Outcome, error) {
	return m.login(ctx, username, cloud.KindUser, m.Tenant, func() error {
		return m.IdP.LoginUser(ctx, username, password, m.Tenant)
	})
}

func (m *Manager) login(ctx context.Context, name string, kind cloud.LoginKind, tenant string, do func() error) (Outcome, error) {
	if m.Policy == config.PolicyLogoutFirst {
		if err := m.logoutAll(ctx); err != nil {
			return Failed, err
		}
	} else {
		match, ok, err := m.Decide(ctx, name)
		if err != nil {
			return Failed, err
		}
		if ok {
			reused, err := m.reuse(ctx, *match)
			if err != nil || reused {
				return Reused, err
			}
		}
	}

	if err := m.Limiter.Check(name); err != nil {
		if aerr := m.Audit.RecordErrorf("login as %s refused: %v", name, err); aerr != nil {
			return Failed, aerr
		}
		return Failed, err
	}

	if err := m.Audit.Recordf("login attempt as %s (%s)", name, kind); err != nil {
		return Failed, err
	}
	if err := do(); err != nil {
		var re *readError
		if errors.As(err, &re) {
			if aerr := m.Audit.Recordf("login as %s abandoned: %v", name, re.err); aerr != nil {
				return Failed, aerr
			}
			return Failed, re.err
		}
		if errors.Is(err, audit.ErrWrite) {
			return Failed, err
		}
		// A timeout says nothing about the credential.
		if !TimedOut(err) {
			if lerr := m.Limiter.RecordFailure(name); lerr != nil {
				err = errors.Join(err, lerr)
			}
		}
		if aerr := m.Audit.RecordErrorf("login as %s failed: %v", name, err); aerr != nil {
			return Failed, aerr
		}
		return Failed, fmt.Errorf("login as %s failed: %w", name, err)
	}
	if err := m.Limiter.Reset(name); err != nil {
		if aerr := m.Audit.RecordErrorf("failed to reset login throttle for %s: %v", name, err); aerr != nil {
			return LoggedIn, aerr
		}
	}

	s := cloud.Session{Name: name, Kind: kind, Tenant: tenant}
	if cur, err := m.IdP.CurrentSession(ctx); err == nil && cur != nil && cur.Name == name {
		s = *cur
	}
	m.Current.Set(s)
	return LoggedIn, m.Audit.Recordf("login succeeded as %s (%s)", name, kind)
}

// reuse switches to match when it is not already current. An activation
// failure falls back to a fresh login.
func (m *Manager) reuse(ctx context.Context, match cloud.Session) (bool, error) {
	if !m.Current.Is(match.Name) {
		if err := m.IdP.Activate(ctx, match); err != nil {
			if errors.Is(err, audit.ErrWrite) {
				return false, err
			}
			return false, m.Audit.RecordErrorf("failed to activate existing session for %s, attempting a fresh login: %v", match.Name, err)
		}
		m.Current.Set(match)
	}
	return true, m.Audit.Recordf("reusing existing session for %s, login skipped", match.Name)
}

func (m *Manager) logoutAll(ctx context.Context) error {
	if m.Current.Get() == nil {
		return nil
	}
	if err := m.IdP.Logout(ctx, ""); err != nil {
		if errors.Is(err, audit.ErrWrite) {
			return err
		}
		return m.Audit.RecordErrorf("logout before login failed: %v", err)
	}
	m.Current.Clear()
	return m.Audit.Record("logged out all sessions before login")
}

// ReadSecret supplies a credential once a login is actually needed.
type ReadSecret func() ([]byte, error)

// readError marks a failure to obtain the credential; it is not a failed login.
type readError struct {
	err error
}

func (e *readError) Error() string { return e.err.Error() }
func (e *readError) Unwrap() error { return e.err }

// LoginServicePrincipalWith is LoginServicePrincipal with the secret read
// only when no session can be reused. accepted, when set, sees the secret
// after it authenticated. The secret is wiped before returning.
func (m *Manager) LoginServicePrincipalWith(ctx context.Context, appID, tenant string, read ReadSecret, accepted func([]byte) error) (Outcome, error) {
	if tenant == "" {
		tenant = m.Tenant
	}
	if tenant == "" {
		return Failed, fmt.Errorf("a tenant is required for service principal login")
	}
	var acceptErr error
	outcome, err := m.login(ctx, appID, cloud.KindServicePrincipal, tenant, func() error {
		secret, err := read()
		if err != nil {
			return &readError{err}
		}
		return secmem.Use(secret, func(v []byte) error {
			if err := m.IdP.LoginServicePrincipal(ctx, appID, v, tenant); err != nil {
				return err
			}
			if accepted != nil {
				acceptErr = accepted(v)
			}
			return nil
		})
	})
	if err == nil {
		err = acceptErr
	}
	return outcome, err
}

// TimedOut reports whether err came from a login that ran out of time.
func TimedOut(err error) bool {
	return errors.Is(err, cloud.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
