// Package browser walks vaults and secret names and reveals values on request.
//
// Each menu is a loop that returns a Signal to its caller. Back and home
// unwind through the loops without redrawing the menus they pass.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/carved4/kvwalk/internal/audit"
	"github.com/carved4/kvwalk/internal/cloud"
	"github.com/carved4/kvwalk/internal/session"
	"github.com/carved4/kvwalk/internal/ui"
)

// Signal tells the enclosing menu how far to unwind.
type Signal int

const (
	// None resumes the caller's own menu.
	None Signal = iota
	ReturnToVaults
	ReturnToMain
)

func (s Signal) String() string {
	switch s {
	case ReturnToVaults:
		return "return to vaults"
	case ReturnToMain:
		return "return to main"
	default:
		return "none"
	}
}

// UserLogin attempts a login as username, honoring session reuse.
type UserLogin interface {
	LoginUser(ctx context.Context, username string, password []byte) (session.Outcome, error)
}

type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the desktop clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// ClipboardAvailable reports whether the platform has a usable clipboard.
func ClipboardAvailable() bool {
	return !clipboard.Unsupported
}

type Browser struct {
	Dir     cloud.Directory
	Console *ui.Console
	Audit   *audit.Logger
	// Login enables testing a value as a password. Nil disables it.
	Login UserLogin
	// Clipboard enables copying values. Nil disables it.
	Clipboard Clipboard

	vaults []cloud.Vault
	names  map[string][]string
}

func New(dir cloud.Directory, con *ui.Console, log *audit.Logger) *Browser {
	return &Browser{Dir: dir, Console: con, Audit: log}
}

// Browse runs the vault list until the operator goes home. Only fatal
// errors are returned: audit failures and closed input.
func (b *Browser) Browse(ctx context.Context) error {
	b.reset()
	if ok, err := b.loadVaults(ctx); err != nil || !ok {
		return err
	}
	return b.vaultList(ctx)
}

// Search starts from the search prompt, as the main menu does.
func (b *Browser) Search(ctx context.Context) error {
	b.reset()
	if ok, err := b.loadVaults(ctx); err != nil || !ok {
		return err
	}
	sig, err := b.search(ctx)
	if err != nil || sig != ReturnToVaults {
		return err
	}
	return b.vaultList(ctx)
}

func (b *Browser) reset() {
	b.vaults = nil
	b.names = make(map[string][]string)
}

func (b *Browser) loadVaults(ctx context.Context) (bool, error) {
	vaults, err := b.Dir.ListVaults(ctx)
	if err != nil {
		return false, b.fail("failed to list key vaults", err)
	}
	b.vaults = vaults
	return true, b.Audit.Recordf("listed %d key vaults", len(vaults))
}

// secretNames returns the cached names of vault, fetching them once per browse.
func (b *Browser) secretNames(ctx context.Context, vault string) ([]string, bool, error) {
	if names, ok := b.names[vault]; ok {
		return names, true, nil
	}
	names, err := b.Dir.ListSecretNames(ctx, vault)
	if err != nil {
		return nil, false, b.fail(fmt.Sprintf("failed to list secrets in %s", vault), err)
	}
	b.names[vault] = names
	return names, true, b.Audit.Recordf("listed %d secrets in vault '%s'", len(names), vault)
}

func (b *Browser) vaultList(ctx context.Context) error {
	con := b.Console
	for {
		con.Title("key vaults")
		if len(b.vaults) == 0 {
			con.Warning("!", "no key vaults visible to the current session")
		} else {
			rows := make([][]string, len(b.vaults))
			for i, v := range b.vaults {
				rows[i] = []string{strconv.Itoa(i + 1), v.Name, v.URI}
			}
			con.Table([]string{"#", "NAME", "URI"}, rows)
		}

		choice, err := con.Ask("vault [number, s search, r refresh, q back]: ")
		if err != nil {
			return err
		}
		switch strings.ToLower(choice) {
		case "q", "b", "h":
			return nil
		case "s":
			sig, err := b.search(ctx)
			if err != nil {
				return err
			}
			if sig == ReturnToMain {
				return nil
			}
		case "r":
			b.reset()
			if ok, err := b.loadVaults(ctx); err != nil || !ok {
				return err
			}
		default:
			i, ok := b.pick(choice, len(b.vaults))
			if !ok {
				continue
			}
			sig, err := b.secretList(ctx, b.vaults[i].Name)
			if err != nil {
				return err
			}
			if sig == ReturnToMain {
				return nil
			}
		}
	}
}

func (b *Browser) secretList(ctx context.Context, vault string) (Signal, error) {
	names, ok, err := b.secretNames(ctx, vault)
	if err != nil || !ok {
		return ReturnToVaults, err
	}
	return b.listLoop(ctx, NewView(vault, names))
}

func (b *Browser) listLoop(ctx context.Context, view *View) (Signal, error) {
	con := b.Console
	for {
		b.showList(view)
		choice, err := con.Ask("secret [number, f filter, c clear, a fetch all, b vaults, h home]: ")
		if err != nil {
			return None, err
		}
		cmd, arg := splitCommand(choice)
		switch cmd {
		case "b":
			return ReturnToVaults, nil
		case "h", "q":
			return ReturnToMain, nil
		case "f":
			if arg == "" {
				if arg, err = con.Ask("filter: "); err != nil {
					return None, err
				}
			}
			view.SetFilter(arg)
		case "c":
			view.SetFilter("")
		case "a":
			if err := b.fetchAll(ctx, view); err != nil {
				return None, err
			}
		default:
			i, ok := b.pick(choice, view.Len())
			if !ok {
				continue
			}
			sig, err := b.detail(ctx, view, i)
			if err != nil || sig != None {
				return sig, err
			}
		}
	}
}

func (b *Browser) showList(view *View) {
	con := b.Console
	con.Title("secrets in " + view.Vault)
	if view.Filter() != "" {
		con.Muted(fmt.Sprintf("filter: %q (%d of %d)", view.Filter(), view.Len(), view.Total()))
	}
	if view.Len() == 0 {
		if view.Filter() != "" {
			con.Warning("!", "no secrets match the filter")
			con.Tip("c clears the filter")
		} else {
			con.Warning("!", "vault has no secrets")
		}
		return
	}
	rows := make([][]string, view.Len())
	for i, name := range view.Names() {
		rows[i] = []string{strconv.Itoa(i + 1), name}
	}
	con.Table([]string{"#", "SECRET"}, rows)
}

func (b *Browser) detail(ctx context.Context, view *View, index int) (Signal, error) {
	con := b.Console
	cur := &Cursor{view: view, index: index}
	for {
		con.Title("secret")
		con.ListItem(">", fmt.Sprintf("%s (%d/%d) in %s", cur.Name(), cur.Index()+1, view.Len(), view.Vault))

		choice, err := con.Ask("action [v view, c copy, t test as password, n next, p previous, l list, b vaults, h home]: ")
		if err != nil {
			return None, err
		}
		switch strings.ToLower(choice) {
		case "v":
			if _, err := b.reveal(ctx, view.Vault, cur.Name(), toTerminal); err != nil {
				return None, err
			}
		case "c":
			if b.Clipboard == nil {
				con.Error("x", "no clipboard available on this system")
				continue
			}
			if _, err := b.reveal(ctx, view.Vault, cur.Name(), toClipboard); err != nil {
				return None, err
			}
		case "t":
			if err := b.testPassword(ctx, view.Vault, cur.Name()); err != nil {
				return None, err
			}
		case "n":
			if !cur.Next() {
				con.Info("*", "already at the last secret")
			}
		case "p":
			if !cur.Prev() {
				con.Info("*", "already at the first secret")
			}
		case "l":
			return None, nil
		case "b":
			return ReturnToVaults, nil
		case "h", "q":
			return ReturnToMain, nil
		default:
			con.Error("x", "invalid choice")
		}
	}
}

// fail reports a collaborator failure and records it. Fatal errors pass
// through unchanged; otherwise only an audit failure is returned.
func (b *Browser) fail(msg string, err error) error {
	if fatal(err) {
		return err
	}
	b.Console.Error("x", fmt.Sprintf("%s (see %s)", msg, b.logPath()))
	return b.Audit.RecordErrorf("%s: %v", msg, err)
}

func (b *Browser) logPath() string {
	if p := b.Audit.Path(); p != "" {
		return p
	}
	return "the operational log"
}

func fatal(err error) bool {
	return errors.Is(err, audit.ErrWrite) || errors.Is(err, ui.ErrInputClosed)
}

// pick parses a one-based menu choice.
func (b *Browser) pick(choice string, n int) (int, bool) {
	i, err := strconv.Atoi(choice)
	if err != nil || i < 1 || i > n {
		b.Console.Error("x", fmt.Sprintf("invalid selection: %q", choice))
		return 0, false
	}
	return i - 1, true
}

func splitCommand(choice string) (string, string) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(choice), " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}
