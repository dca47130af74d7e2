// Package azcli implements the cloud collaborators on top of the Azure CLI.
package azcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/carved4/kvwalk/internal/cloud"
	"github.com/carved4/kvwalk/internal/secmem"
)

// CLI performs az cli commands.
type CLI struct {
	// Subscription is the Name or ID of the Azure subscription vault listing runs against.
	Subscription string

	Runner *Runner
}

var (
	_ cloud.Identity      = &CLI{}
	_ cloud.Directory     = &CLI{}
	_ cloud.Subscriptions = &CLI{}
)

func New(r *Runner) *CLI {
	return &CLI{Runner: r}
}

// SetSubscription sets the Name or ID of the Azure subscription to use.
func (c *CLI) SetSubscription(sub string) {
	c.Subscription = sub
}

func (c *CLI) subscriptionArgs(args []string) []string {
	if c.Subscription != "" {
		args = append(args, "--subscription", c.Subscription)
	}
	return args
}

func (c *CLI) runJSON(ctx context.Context, v any, args ...string) error {
	stdout, stderr, err := c.Runner.Run(ctx, nil, append(args, "-o", "json")...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(stdout, v); err != nil {
		// az reports some failures on stderr with a zero exit status.
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			return fmt.Errorf("az %s: %s", args[0], msg)
		}
		return fmt.Errorf("failed to parse az %s output: %w", args[0], err)
	}
	return nil
}

// LoginServicePrincipal performs an 'az login' by service principal.
func (c *CLI) LoginServicePrincipal(ctx context.Context, appID string, secret []byte, tenant string) error {
	args := []string{"login", "--service-principal", "-u", appID, "-p", string(secret), "--tenant", tenant,
		"--allow-no-subscriptions", "-o", "none"}
	_, _, err := c.Runner.Run(ctx, &Opt{Sensitive: true}, args...)
	return err
}

// LoginUser performs an 'az login' with username and password.
func (c *CLI) LoginUser(ctx context.Context, username string, password []byte, tenant string) error {
	args := []string{"login", "-u", username, "-p", string(password), "--allow-no-subscriptions", "-o", "none"}
	if tenant != "" {
		args = append(args, "--tenant", tenant)
	}
	_, _, err := c.Runner.Run(ctx, &Opt{Sensitive: true}, args...)
	return err
}

// Logout performs an 'az logout', for one account when name is set.
func (c *CLI) Logout(ctx context.Context, name string) error {
	args := []string{"logout"}
	if name != "" {
		args = append(args, "--username", name)
	}
	_, _, err := c.Runner.Run(ctx, nil, args...)
	return err
}

// CurrentSession returns the principal of the default account.
func (c *CLI) CurrentSession(ctx context.Context) (*cloud.Session, error) {
	var a Account
	err := c.runJSON(ctx, &a, "account", "show")
	if err != nil {
		if notLoggedIn(err) {
			return nil, nil
		}
		return nil, err
	}
	s := a.session()
	return &s, nil
}

// ListSessions returns one entry per account known to az, so a principal
// with several subscriptions appears several times.
func (c *CLI) ListSessions(ctx context.Context) ([]cloud.Session, error) {
	var accounts []Account
	if err := c.runJSON(ctx, &accounts, "account", "list", "--all"); err != nil {
		if notLoggedIn(err) {
			return nil, nil
		}
		return nil, err
	}
	return sessions(accounts), nil
}

// Activate makes s the default account.
func (c *CLI) Activate(ctx context.Context, s cloud.Session) error {
	if s.Subscription == "" {
		return fmt.Errorf("session %s has no subscription to activate", s.Name)
	}
	_, _, err := c.Runner.Run(ctx, nil, "account", "set", "--subscription", s.Subscription)
	return err
}

func (c *CLI) ListSubscriptions(ctx context.Context) ([]cloud.Subscription, error) {
	var accounts []Account
	if err := c.runJSON(ctx, &accounts, "account", "list"); err != nil {
		return nil, err
	}
	subs := make([]cloud.Subscription, 0, len(accounts))
	for _, a := range accounts {
		subs = append(subs, cloud.Subscription{ID: a.ID, Name: a.Name, IsDefault: a.IsDefault})
	}
	return subs, nil
}

// ListVaults returns the Key Vaults of the selected subscription.
func (c *CLI) ListVaults(ctx context.Context) ([]cloud.Vault, error) {
	var vaults []cloud.Vault
	args := c.subscriptionArgs([]string{"keyvault", "list", "--query", "[].{name:name, uri:properties.vaultUri}"})
	if err := c.runJSON(ctx, &vaults, args...); err != nil {
		return nil, err
	}
	return vaults, nil
}

// ListSecretNames returns the secret names of vault in service order.
func (c *CLI) ListSecretNames(ctx context.Context, vault string) ([]string, error) {
	var names []string
	args := c.subscriptionArgs([]string{"keyvault", "secret", "list", "--vault-name", vault, "--query", "[].name"})
	if err := c.runJSON(ctx, &names, args...); err != nil {
		return nil, err
	}
	return names, nil
}

// GetSecretValue returns the value of name secret in vault.
func (c *CLI) GetSecretValue(ctx context.Context, vault, name string) ([]byte, error) {
	args := c.subscriptionArgs([]string{"keyvault", "secret", "show", "--vault-name", vault, "--name", name,
		"--query", "value", "-o", "tsv"})
	stdout, _, err := c.Runner.Run(ctx, &Opt{Sensitive: true}, args...)
	if err != nil {
		if strings.Contains(err.Error(), "SecretNotFound") {
			return nil, fmt.Errorf("secret %s/%s: %w", vault, name, cloud.ErrNotFound)
		}
		return nil, err
	}
	n := len(stdout)
	for n > 0 && (stdout[n-1] == '\n' || stdout[n-1] == '\r') {
		n--
	}
	value := make([]byte, n)
	copy(value, stdout)
	secmem.Wipe(stdout)
	return value, nil
}

func notLoggedIn(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrNotInstalled) {
		return false
	}
	return strings.Contains(err.Error(), "az login")
}
