package cloud

import (
	"context"
	"fmt"
	"sort"
)

// Fake provides an in-memory Identity, Directory and Subscriptions for testing.
type Fake struct {
	// Tally is the number of times a method has been called.
	LoginSPTally, LoginUserTally, ListSessionsTally, ActivateTally, LogoutTally int
	ListVaultsTally, ListSecretNamesTally, GetSecretValueTally                 int

	// Vaults maps vault name to secret name to value.
	Vaults map[string]map[string]string
	// Order fixes the secret name order per vault; sorted names are used when absent.
	Order map[string][]string

	// Credentials maps principal name to the password or secret that logs it in.
	Credentials map[string]string
	Sessions    []Session
	Current     *Session

	// LoginErr maps principal name to the error its login returns.
	LoginErr        map[string]error
	ListSessionsErr error
	// LogoutErr maps principal name to the error its logout returns.
	LogoutErr map[string]error
	GetErr    map[string]error

	Subs         []Subscription
	Subscription string

	// Returned hands out every secret value returned so tests can check it was wiped.
	Returned [][]byte
}

var (
	_ Identity      = &Fake{}
	_ Directory     = &Fake{}
	_ Subscriptions = &Fake{}
)

func (f *Fake) LoginServicePrincipal(ctx context.Context, appID string, secret []byte, tenant string) error {
	f.LoginSPTally++
	return f.login(appID, secret, tenant, KindServicePrincipal)
}

func (f *Fake) LoginUser(ctx context.Context, username string, password []byte, tenant string) error {
	f.LoginUserTally++
	return f.login(username, password, tenant, KindUser)
}

func (f *Fake) login(name string, secret []byte, tenant string, kind LoginKind) error {
	if err := f.LoginErr[name]; err != nil {
		return err
	}
	want, ok := f.Credentials[name]
	if !ok || want != string(secret) {
		return fmt.Errorf("az login: invalid credentials for %s", name)
	}
	s := Session{Name: name, Kind: kind, Tenant: tenant}
	f.Sessions = append(f.Sessions, s)
	f.Current = &s
	return nil
}

func (f *Fake) CurrentSession(ctx context.Context) (*Session, error) {
	if f.Current == nil {
		return nil, nil
	}
	s := *f.Current
	return &s, nil
}

func (f *Fake) ListSessions(ctx context.Context) ([]Session, error) {
	f.ListSessionsTally++
	if f.ListSessionsErr != nil {
		return nil, f.ListSessionsErr
	}
	return append([]Session(nil), f.Sessions...), nil
}

func (f *Fake) Activate(ctx context.Context, s Session) error {
	f.ActivateTally++
	f.Current = &s
	return nil
}

func (f *Fake) Logout(ctx context.Context, name string) error {
	f.LogoutTally++
	if err := f.LogoutErr[name]; err != nil {
		return err
	}
	if name == "" {
		f.Sessions = nil
		f.Current = nil
		return nil
	}
	kept := f.Sessions[:0]
	for _, s := range f.Sessions {
		if s.Name != name {
			kept = append(kept, s)
		}
	}
	f.Sessions = kept
	if f.Current != nil && f.Current.Name == name {
		f.Current = nil
	}
	return nil
}

func (f *Fake) ListVaults(ctx context.Context) ([]Vault, error) {
	f.ListVaultsTally++
	names := make([]string, 0, len(f.Vaults))
	for name := range f.Vaults {
		names = append(names, name)
	}
	sort.Strings(names)
	vaults := make([]Vault, 0, len(names))
	for _, name := range names {
		vaults = append(vaults, Vault{Name: name, URI: fmt.Sprintf("https://%s.vault.azure.net/", name)})
	}
	return vaults, nil
}

func (f *Fake) ListSecretNames(ctx context.Context, vault string) ([]string, error) {
	f.ListSecretNamesTally++
	secrets, ok := f.Vaults[vault]
	if !ok {
		return nil, fmt.Errorf("vault %s: %w", vault, ErrNotFound)
	}
	if order, ok := f.Order[vault]; ok {
		return append([]string(nil), order...), nil
	}
	names := make([]string, 0, len(secrets))
	for name := range secrets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *Fake) GetSecretValue(ctx context.Context, vault, name string) ([]byte, error) {
	f.GetSecretValueTally++
	if err := f.GetErr[name]; err != nil {
		return nil, err
	}
	v, ok := f.Vaults[vault][name]
	if !ok {
		return nil, fmt.Errorf("secret %s/%s: %w", vault, name, ErrNotFound)
	}
	b := []byte(v)
	f.Returned = append(f.Returned, b)
	return b, nil
}

func (f *Fake) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	return append([]Subscription(nil), f.Subs...), nil
}

func (f *Fake) SetSubscription(id string) {
	f.Subscription = id
}
