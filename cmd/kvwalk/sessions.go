package main

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/carved4/kvwalk/internal/session"
)

func (a *app) showSession(ctx context.Context) error {
	con := a.con
	con.Title("current session")
	s, err := a.idp.CurrentSession(ctx)
	if err != nil {
		return a.fail("failed to read the current session", err)
	}
	if s == nil {
		a.current.Clear()
		con.Muted("not signed in")
		return a.audit.Record("checked current session: none")
	}
	a.current.Set(*s)
	con.Table([]string{"FIELD", "VALUE"}, [][]string{
		{"name", s.Name},
		{"kind", string(s.Kind)},
		{"tenant", s.Tenant},
		{"subscription", s.Subscription},
	})
	return a.audit.Recordf("checked current session: %s", s.Name)
}

func (a *app) manageSessions(ctx context.Context) error {
	con := a.con
	con.Title("manage sessions")
	sessions, err := a.idp.ListSessions(ctx)
	if err != nil {
		return a.fail("failed to list sessions", err)
	}
	entries := session.Dedupe(sessions)
	if len(entries) == 0 {
		con.Muted("no active sessions")
		return nil
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		name := e.Name
		if a.current.Is(e.Name) {
			name += " (current)"
		}
		rows[i] = []string{strconv.Itoa(i + 1), name, string(e.Kind), strings.Join(e.Tenants, ", "), strconv.Itoa(e.Sessions)}
	}
	con.Table([]string{"#", "NAME", "KIND", "TENANTS", "SESSIONS"}, rows)

	var sel []int
	for {
		input, err := con.Ask("log out [numbers, all, enter to cancel]: ")
		if err != nil {
			return err
		}
		sel, err = session.ParseSelection(input, len(entries))
		if err == nil {
			break
		}
		con.Error("x", err.Error())
	}
	if len(sel) == 0 {
		con.Muted("cancelled")
		return nil
	}

	picked := make([]session.Entry, len(sel))
	for i, idx := range sel {
		picked[i] = entries[idx]
	}
	sum, err := a.manager.Logout(ctx, picked)
	if err != nil {
		return err
	}
	for _, name := range sum.LoggedOut {
		con.Success("+", "logged out "+name)
	}
	for _, name := range slices.Sorted(maps.Keys(sum.Failed)) {
		con.Error("x", fmt.Sprintf("failed to log out %s (see %s)", name, a.logPath()))
	}
	if len(sum.Failed) > 0 {
		con.Warning("!", sum.String())
	} else {
		con.Success("+", sum.String())
	}
	if a.current.Get() == nil {
		con.Warning("!", "no current session, log in again to browse")
	}
	return nil
}

func (a *app) selectSubscription(ctx context.Context) error {
	con := a.con
	con.Title("select subscription")
	subs, err := a.subs.ListSubscriptions(ctx)
	if err != nil {
		return a.fail("failed to list subscriptions", err)
	}
	if len(subs) == 0 {
		con.Muted("no subscriptions for the current session")
		return nil
	}

	rows := make([][]string, len(subs))
	for i, s := range subs {
		def := ""
		if s.IsDefault {
			def = "*"
		}
		rows[i] = []string{strconv.Itoa(i + 1), s.Name, s.ID, def}
	}
	con.Table([]string{"#", "NAME", "ID", "DEFAULT"}, rows)

	for {
		choice, err := con.Ask("subscription [number, enter to keep]: ")
		if err != nil || choice == "" {
			return err
		}
		i, err := strconv.Atoi(choice)
		if err != nil || i < 1 || i > len(subs) {
			con.Error("x", fmt.Sprintf("invalid selection: %q", choice))
			continue
		}
		sub := subs[i-1]
		a.subs.SetSubscription(sub.ID)
		con.Success("+", fmt.Sprintf("vaults will be listed from %s", sub.Name))
		return a.audit.Recordf("selected subscription %s (%s)", sub.Name, sub.ID)
	}
}
