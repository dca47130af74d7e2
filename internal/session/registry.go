package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/carved4/kvwalk/internal/audit"
	"github.com/carved4/kvwalk/internal/cloud"
)

// Entry is one logged-in identity as shown in the logout menu. Sessions
// counts how many raw sessions (tenants or subscriptions) collapsed into it.
type Entry struct {
	Name     string
	Kind     cloud.LoginKind
	Tenants  []string
	Sessions int
}

// Dedupe collapses sessions by (name, kind), keeping first-seen order.
func Dedupe(sessions []cloud.Session) []Entry {
	type key struct {
		name string
		kind cloud.LoginKind
	}
	index := make(map[key]int)
	var entries []Entry
	for _, s := range sessions {
		k := key{s.Name, s.Kind}
		i, ok := index[k]
		if !ok {
			index[k] = len(entries)
			entries = append(entries, Entry{Name: s.Name, Kind: s.Kind})
			i = len(entries) - 1
		}
		e := &entries[i]
		e.Sessions++
		if s.Tenant != "" && !slices.Contains(e.Tenants, s.Tenant) {
			e.Tenants = append(e.Tenants, s.Tenant)
		}
	}
	return entries
}

// ParseSelection turns operator input into zero-based indices into a list
// of n entries. "all" selects everything; "", "q" and "cancel" return nil
// without error. Anything else must be space- or comma-separated numbers.
func ParseSelection(input string, n int) ([]int, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	switch input {
	case "", "q", "cancel":
		return nil, nil
	case "all", "a":
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	fields := strings.FieldsFunc(input, func(r rune) bool { return r == ' ' || r == ',' })
	var sel []int
	for _, f := range fields {
		i, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q", f)
		}
		if i < 1 || i > n {
			return nil, fmt.Errorf("selection %d out of range 1-%d", i, n)
		}
		if !slices.Contains(sel, i-1) {
			sel = append(sel, i-1)
		}
	}
	return sel, nil
}

type LogoutSummary struct {
	LoggedOut []string
	Failed    map[string]error
}

// String reports the outcome over the distinct names attempted.
func (s LogoutSummary) String() string {
	total := len(s.LoggedOut) + len(s.Failed)
	return fmt.Sprintf("logged out %d/%d, %d failed", len(s.LoggedOut), total, len(s.Failed))
}

// Logout logs out each selected entry, continuing past failures. The
// current identity is cleared when it was one of the logged out names.
// The summary is recorded once all entries are done. Only audit failures are
// returned as errors.
func (m *Manager) Logout(ctx context.Context, entries []Entry) (LogoutSummary, error) {
	sum := LogoutSummary{Failed: make(map[string]error)}
	for _, e := range entries {
		if _, failed := sum.Failed[e.Name]; failed || slices.Contains(sum.LoggedOut, e.Name) {
			continue
		}
		if err := m.IdP.Logout(ctx, e.Name); err != nil {
			if errors.Is(err, audit.ErrWrite) {
				return sum, err
			}
			sum.Failed[e.Name] = err
			if aerr := m.Audit.RecordErrorf("logout of %s failed: %v", e.Name, err); aerr != nil {
				return sum, aerr
			}
			continue
		}
		sum.LoggedOut = append(sum.LoggedOut, e.Name)
		if err := m.Audit.Recordf("logged out %s (%s)", e.Name, e.Kind); err != nil {
			return sum, err
		}
		if m.Current.Is(e.Name) {
			m.Current.Clear()
			if err := m.Audit.Record("current session cleared"); err != nil {
				return sum, err
			}
		}
	}
	return sum, m.Audit.Recordf("selective logout: %s", sum)
}
