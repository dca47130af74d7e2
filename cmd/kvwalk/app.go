package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/carved4/kvwalk/internal/audit"
	"github.com/carved4/kvwalk/internal/azcli"
	"github.com/carved4/kvwalk/internal/azsdk"
	"github.com/carved4/kvwalk/internal/browser"
	"github.com/carved4/kvwalk/internal/cloud"
	"github.com/carved4/kvwalk/internal/config"
	"github.com/carved4/kvwalk/internal/credstore"
	"github.com/carved4/kvwalk/internal/session"
	"github.com/carved4/kvwalk/internal/throttle"
	"github.com/carved4/kvwalk/internal/ui"
)

type app struct {
	cfg     *config.Config
	con     *ui.Console
	audit   *audit.Logger
	current *session.Current
	idp     cloud.Identity
	subs    cloud.Subscriptions
	manager *session.Manager
	browser *browser.Browser
	store   credstore.Store
}

// run wires the collaborators for cfg and runs the main menu.
func run(ctx context.Context, cfg *config.Config, log logr.Logger) error {
	runner := &azcli.Runner{Path: cfg.AZPath, Timeout: cfg.TimeoutDuration(), Log: log.WithName("az")}
	if _, err := runner.LookPath(); err != nil {
		return err
	}

	current := &session.Current{}
	auditLog, err := audit.Open(cfg.LogDir, current, audit.WithVerbose(cfg.Verbose))
	if err != nil {
		return fmt.Errorf("%w: %v", audit.ErrWrite, err)
	}
	defer auditLog.Close()
	runner.Audit = auditLog

	az := azcli.New(runner)
	az.SetSubscription(cfg.Subscription)

	var dir cloud.Directory = az
	if cfg.Backend == config.BackendSDK {
		d, err := azsdk.New(az, cfg.Tenant, cfg.TimeoutDuration())
		if err != nil {
			return err
		}
		dir = d
	}

	con := ui.Stdio()
	store, err := credstore.New(cfg.CredentialStore)
	if err != nil {
		con.Warning("!", fmt.Sprintf("credential store unavailable, secrets will not be cached: %v", err))
		store, _ = credstore.New(config.StoreNone)
	}

	a := newApp(cfg, con, auditLog, current, az, az, dir, store)
	if browser.ClipboardAvailable() {
		a.browser.Clipboard = browser.SystemClipboard{}
	}
	return a.run(ctx)
}

func newApp(cfg *config.Config, con *ui.Console, log *audit.Logger, current *session.Current,
	idp cloud.Identity, subs cloud.Subscriptions, dir cloud.Directory, store credstore.Store) *app {
	manager := &session.Manager{
		IdP:     idp,
		Current: current,
		Audit:   log,
		Limiter: throttle.New(cfg.StateDir, cfg.MaxFailedLogins, cfg.LockoutDuration()),
		Policy:  cfg.LoginPolicy,
		Tenant:  cfg.Tenant,
	}
	b := browser.New(dir, con, log)
	b.Login = manager
	return &app{
		cfg:     cfg,
		con:     con,
		audit:   log,
		current: current,
		idp:     idp,
		subs:    subs,
		manager: manager,
		browser: b,
		store:   store,
	}
}

func (a *app) run(ctx context.Context) error {
	if err := a.audit.Recordf("kvwalk %s started", version); err != nil {
		return err
	}
	if a.audit.Verbose() {
		a.con.Warning("!", fmt.Sprintf("verbose mode: revealed values are written to %s", a.logPath()))
	}
	if err := a.manager.Sync(ctx); err != nil {
		return err
	}
	err := a.mainMenu(ctx)
	if errors.Is(err, ui.ErrInputClosed) {
		err = nil
	}
	if err != nil {
		return err
	}
	return a.audit.Record("kvwalk exited")
}

func (a *app) mainMenu(ctx context.Context) error {
	con := a.con
	for {
		con.Title("kvwalk")
		if s := a.current.Get(); s != nil {
			con.Muted(fmt.Sprintf("signed in as %s (%s)", s.Name, s.Kind))
		} else {
			con.Muted("not signed in")
		}
		con.ListItem("1", "service principal login")
		con.ListItem("2", "browse key vaults")
		con.ListItem("3", "search secrets")
		con.ListItem("4", "current session")
		con.ListItem("5", "manage sessions")
		con.ListItem("6", "select subscription")
		con.ListItem("q", "quit")

		choice, err := con.Ask("> ")
		if err != nil {
			return err
		}
		switch choice {
		case "1":
			err = a.login(ctx)
		case "2", "3":
			if a.current.Get() == nil {
				con.Warning("!", "not signed in, log in first")
				continue
			}
			if choice == "2" {
				err = a.browser.Browse(ctx)
			} else {
				err = a.browser.Search(ctx)
			}
		case "4":
			err = a.showSession(ctx)
		case "5":
			err = a.manageSessions(ctx)
		case "6":
			err = a.selectSubscription(ctx)
		case "q", "quit", "exit":
			con.Muted("goodbye!")
			return nil
		default:
			con.Error("x", "invalid choice")
		}
		if err != nil {
			return err
		}
	}
}

// fail reports a collaborator failure the way the browser does.
func (a *app) fail(msg string, err error) error {
	if errors.Is(err, audit.ErrWrite) || errors.Is(err, ui.ErrInputClosed) {
		return err
	}
	a.con.Error("x", fmt.Sprintf("%s (see %s)", msg, a.logPath()))
	return a.audit.RecordErrorf("%s: %v", msg, err)
}

func (a *app) logPath() string {
	if p := a.audit.Path(); p != "" {
		return p
	}
	return "the operational log"
}
