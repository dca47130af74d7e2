package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/carved4/kvwalk/internal/audit"
	"github.com/carved4/kvwalk/internal/credstore"
	"github.com/carved4/kvwalk/internal/secmem"
	"github.com/carved4/kvwalk/internal/session"
	"github.com/carved4/kvwalk/internal/throttle"
	"github.com/carved4/kvwalk/internal/ui"
)

var errCancelled = errors.New("login cancelled")

func (a *app) login(ctx context.Context) error {
	con := a.con
	con.Title("service principal login")

	appID, err := con.Ask("app id (enter to cancel): ")
	if err != nil || appID == "" {
		return err
	}
	tenant, err := con.AskDefault("tenant: ", a.cfg.Tenant)
	if err != nil {
		return err
	}
	if tenant == "" {
		con.Error("x", "a tenant is required")
		return nil
	}

	var typed, stored bool
	read := func() ([]byte, error) {
		cached, err := a.store.Get(appID)
		switch {
		case err == nil:
			use, err := con.Confirm(fmt.Sprintf("use the stored secret for %s?", appID))
			if err != nil || !use {
				secmem.Wipe(cached)
				if err != nil {
					return nil, err
				}
				break
			}
			stored = true
			return cached, nil
		case !errors.Is(err, credstore.ErrNotFound):
			con.Warning("!", fmt.Sprintf("could not read the stored secret: %v", err))
		}

		secret, err := con.AskSecret("client secret: ")
		if err != nil {
			return nil, err
		}
		if len(secret) == 0 {
			return nil, errCancelled
		}
		typed = true
		return secret, nil
	}
	accepted := func(secret []byte) error {
		if !typed || !credstore.Enabled(a.store) {
			return nil
		}
		save, err := con.Confirm(fmt.Sprintf("store this secret in the %s credential store?", a.cfg.CredentialStore))
		if err != nil || !save {
			return err
		}
		if err := a.store.Set(appID, secret); err != nil {
			con.Warning("!", fmt.Sprintf("could not store the secret: %v", err))
			return nil
		}
		con.Success("+", "secret stored")
		return a.audit.Recordf("stored secret for %s in the %s credential store", appID, a.cfg.CredentialStore)
	}

	outcome, err := a.manager.LoginServicePrincipalWith(ctx, appID, tenant, read, accepted)
	if err != nil {
		switch {
		case errors.Is(err, errCancelled):
			con.Muted("login cancelled")
			return nil
		case errors.Is(err, audit.ErrWrite), errors.Is(err, ui.ErrInputClosed):
			return err
		case errors.Is(err, throttle.ErrLocked):
			con.Error("x", err.Error())
			return nil
		}
		if session.TimedOut(err) {
			con.Error("x", fmt.Sprintf("login as %s timed out (see %s)", appID, a.logPath()))
			return nil
		}
		con.Error("x", fmt.Sprintf("login as %s failed (see %s)", appID, a.logPath()))
		if stored {
			if derr := a.store.Delete(appID); derr == nil {
				con.Warning("!", "removed the stored secret, it no longer works")
			}
		}
		return nil
	}

	switch outcome {
	case session.Reused:
		con.Success("+", fmt.Sprintf("already signed in as %s, login skipped", appID))
	case session.LoggedIn:
		con.Success("+", fmt.Sprintf("signed in as %s", appID))
	}
	return nil
}
