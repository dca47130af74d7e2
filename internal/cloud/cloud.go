// Package cloud defines the identity and directory collaborators kvwalk drives.
package cloud

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks a call that ran out of time before the backend answered.
	ErrTimeout = errors.New("timed out")
)

type LoginKind string

const (
	KindServicePrincipal LoginKind = "servicePrincipal"
	KindUser             LoginKind = "user"
)

// Session is one authenticated principal known to the identity provider.
type Session struct {
	Name         string    `json:"name"`
	Kind         LoginKind `json:"kind"`
	Tenant       string    `json:"tenant"`
	Subscription string    `json:"subscription,omitempty"`
}

type Vault struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type Subscription struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// Identity performs logins and session bookkeeping.
type Identity interface {
	LoginServicePrincipal(ctx context.Context, appID string, secret []byte, tenant string) error
	LoginUser(ctx context.Context, username string, password []byte, tenant string) error
	// CurrentSession returns nil, nil when nobody is logged in.
	CurrentSession(ctx context.Context) (*Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
	// Activate makes an already authenticated session the default one.
	Activate(ctx context.Context, s Session) error
	// Logout logs out name, or every account when name is empty.
	Logout(ctx context.Context, name string) error
}

// Directory lists vaults and secrets. Secret values are returned as byte
// slices so callers can wipe them.
type Directory interface {
	ListVaults(ctx context.Context) ([]Vault, error)
	ListSecretNames(ctx context.Context, vault string) ([]string, error)
	GetSecretValue(ctx context.Context, vault, name string) ([]byte, error)
}

type Subscriptions interface {
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	SetSubscription(id string)
}
