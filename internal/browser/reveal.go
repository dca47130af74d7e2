package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/carved4/kvwalk/internal/audit"
	"github.com/carved4/kvwalk/internal/secmem"
	"github.com/carved4/kvwalk/internal/session"
)

type target int

const (
	toTerminal target = iota
	toClipboard
)

func (t target) String() string {
	if t == toClipboard {
		return "copied to clipboard"
	}
	return "displayed"
}

// reveal fetches one value and hands it to the operator. The value is wiped
// before reveal returns. It reports whether the value was revealed.
func (b *Browser) reveal(ctx context.Context, vault, name string, to target) (bool, error) {
	value, err := b.Dir.GetSecretValue(ctx, vault, name)
	if err != nil {
		return false, b.fail(fmt.Sprintf("failed to fetch %s from %s", name, vault), err)
	}

	revealed := false
	err = secmem.Use(value, func(v []byte) error {
		if err := b.Audit.RecordValue(fmt.Sprintf("value of secret '%s' from vault '%s' %s", name, vault, to), v); err != nil {
			return err
		}
		switch to {
		case toClipboard:
			if err := b.Clipboard.WriteAll(string(v)); err != nil {
				return b.fail("failed to copy value to clipboard", err)
			}
			revealed = true
			b.Console.Success("+", fmt.Sprintf("copied %s to clipboard", name))
			_, err := b.Console.Ask("press enter once pasted to clear the clipboard: ")
			if cerr := b.Clipboard.WriteAll(""); cerr != nil {
				b.Console.Warning("!", "could not clear the clipboard, clear it manually")
			} else {
				b.Console.Muted("clipboard cleared")
			}
			if err != nil {
				return err
			}
		default:
			revealed = true
			b.Console.Secret(v)
		}
		return b.tag(vault, name)
	})
	return revealed, err
}

// tag asks who a revealed value belongs to and records the exposure.
func (b *Browser) tag(vault, name string) error {
	username, err := b.Console.Ask("username this value is a credential for (enter to skip): ")
	if err != nil {
		return err
	}
	if username == "" {
		return nil
	}
	if err := b.Audit.RecordExposure(username, audit.ReasonExtracted, name, vault); err != nil {
		return err
	}
	b.Console.Success("+", fmt.Sprintf("recorded %s as exposed for %s", name, username))
	return nil
}

// fetchAll reveals every secret in the view, continuing past failures.
func (b *Browser) fetchAll(ctx context.Context, view *View) error {
	names := append([]string(nil), view.Names()...)
	if len(names) == 0 {
		b.Console.Warning("!", "nothing to fetch")
		return nil
	}
	ok, err := b.Console.Confirm(fmt.Sprintf("reveal all %d values in %s?", len(names), view.Vault))
	if err != nil || !ok {
		return err
	}

	fetched := 0
	for _, name := range names {
		b.Console.ListItem(">", name)
		revealed, err := b.reveal(ctx, view.Vault, name, toTerminal)
		if err != nil {
			return err
		}
		if revealed {
			fetched++
		}
	}
	b.Console.Divider()
	failed := len(names) - fetched
	summary := fmt.Sprintf("fetched %d/%d, %d failed", fetched, len(names), failed)
	if failed > 0 {
		b.Console.Warning("!", summary)
	} else {
		b.Console.Success("+", summary)
	}
	return b.Audit.Recordf("bulk fetch in vault '%s': %s", view.Vault, summary)
}

// testPassword tries a value as the password of a username without showing it.
func (b *Browser) testPassword(ctx context.Context, vault, name string) error {
	con := b.Console
	if b.Login == nil {
		con.Error("x", "password testing is not available")
		return nil
	}
	username, err := con.Ask("username to try this value for (enter to cancel): ")
	if err != nil || username == "" {
		return err
	}

	value, err := b.Dir.GetSecretValue(ctx, vault, name)
	if err != nil {
		return b.fail(fmt.Sprintf("failed to fetch %s from %s", name, vault), err)
	}
	return secmem.Use(value, func(v []byte) error {
		if err := b.Audit.RecordValue(fmt.Sprintf("value of secret '%s' from vault '%s' tried as password for %s", name, vault, username), v); err != nil {
			return err
		}
		outcome, err := b.Login.LoginUser(ctx, username, v)
		if err != nil {
			if errors.Is(err, audit.ErrWrite) {
				return err
			}
			con.Error("x", fmt.Sprintf("%s did not authenticate as %s (see %s)", name, username, b.logPath()))
			return nil
		}
		switch outcome {
		case session.Reused:
			con.Warning("!", fmt.Sprintf("already signed in as %s, value was not tried", username))
			return nil
		case session.LoggedIn:
			con.Success("+", fmt.Sprintf("%s authenticated as %s, now signed in as %s", name, username, username))
			return b.Audit.RecordExposure(username, audit.ReasonLoginSuccess, name, vault)
		}
		return nil
	})
}
