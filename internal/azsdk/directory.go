// Package azsdk reads Key Vault secrets through the Azure SDK data plane,
// authenticating with the session of the az CLI.
package azsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/carved4/kvwalk/internal/cloud"
)

// VaultLister enumerates vaults; the data plane SDK cannot.
type VaultLister interface {
	ListVaults(ctx context.Context) ([]cloud.Vault, error)
}

// Directory implements cloud.Directory with azsecrets clients, one per vault.
type Directory struct {
	lister  VaultLister
	cred    azcore.TokenCredential
	timeout time.Duration
	opts    *azsecrets.ClientOptions
	clients map[string]*azsecrets.Client
	uris    map[string]string
}

var _ cloud.Directory = &Directory{}

// New returns a Directory that authenticates as the current az CLI account.
func New(lister VaultLister, tenant string, timeout time.Duration) (*Directory, error) {
	cred, err := azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{TenantID: tenant})
	if err != nil {
		return nil, fmt.Errorf("failed to create az cli credential: %w", err)
	}
	return NewWithCredential(lister, cred, timeout, nil), nil
}

// NewWithCredential is New with an explicit credential; opts, when set, is
// handed to every secrets client and is where tests plug in a transport.
func NewWithCredential(lister VaultLister, cred azcore.TokenCredential, timeout time.Duration, opts *azsecrets.ClientOptions) *Directory {
	return &Directory{
		lister:  lister,
		cred:    cred,
		timeout: timeout,
		opts:    opts,
		clients: map[string]*azsecrets.Client{},
		uris:    map[string]string{},
	}
}

func (d *Directory) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}

// wrap maps a failed data plane call onto the cloud errors.
func (d *Directory) wrap(ctx context.Context, err error, format string, args ...any) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf(format+": %w after %v", append(args, cloud.ErrTimeout, d.timeout)...)
	}
	var re *azcore.ResponseError
	if errors.As(err, &re) && (re.ErrorCode == "SecretNotFound" || re.StatusCode == http.StatusNotFound) {
		return fmt.Errorf(format+": %w", append(args, cloud.ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func (d *Directory) ListVaults(ctx context.Context) ([]cloud.Vault, error) {
	vaults, err := d.lister.ListVaults(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range vaults {
		if v.URI != "" {
			d.uris[v.Name] = v.URI
		}
	}
	return vaults, nil
}

// VaultURI returns the data plane endpoint of vault.
func (d *Directory) VaultURI(vault string) string {
	if uri, ok := d.uris[vault]; ok {
		return uri
	}
	return fmt.Sprintf("https://%s.vault.azure.net/", vault)
}

func (d *Directory) client(vault string) (*azsecrets.Client, error) {
	if c, ok := d.clients[vault]; ok {
		return c, nil
	}
	c, err := azsecrets.NewClient(d.VaultURI(vault), d.cred, d.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create secrets client for %s: %w", vault, err)
	}
	d.clients[vault] = c
	return c, nil
}

// ListSecretNames pages through the secret properties of vault.
func (d *Directory) ListSecretNames(ctx context.Context, vault string) ([]string, error) {
	c, err := d.client(vault)
	if err != nil {
		return nil, err
	}
	ctx, cancel := d.bounded(ctx)
	defer cancel()

	var names []string
	pager := c.NewListSecretPropertiesPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, d.wrap(ctx, err, "failed to list secrets of %s", vault)
		}
		for _, p := range page.Value {
			if p == nil || p.ID == nil {
				continue
			}
			names = append(names, p.ID.Name())
		}
	}
	return names, nil
}

// GetSecretValue returns the latest version of name in vault.
func (d *Directory) GetSecretValue(ctx context.Context, vault, name string) ([]byte, error) {
	c, err := d.client(vault)
	if err != nil {
		return nil, err
	}
	ctx, cancel := d.bounded(ctx)
	defer cancel()

	resp, err := c.GetSecret(ctx, name, "", nil)
	if err != nil {
		return nil, d.wrap(ctx, err, "failed to get secret %s/%s", vault, name)
	}
	if resp.Value == nil {
		return nil, fmt.Errorf("secret %s/%s has no value", vault, name)
	}
	return []byte(*resp.Value), nil
}
