package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carved4/kvwalk/internal/cloud"
)

func TestDedupe(t *testing.T) {
	sessions := []cloud.Session{
		{Name: "sp-123", Kind: cloud.KindServicePrincipal, Tenant: "contoso", Subscription: "a"},
		{Name: "alice@contoso.com", Kind: cloud.KindUser, Tenant: "contoso"},
		{Name: "sp-123", Kind: cloud.KindServicePrincipal, Tenant: "contoso", Subscription: "b"},
		{Name: "sp-123", Kind: cloud.KindServicePrincipal, Tenant: "fabrikam"},
		{Name: "sp-123", Kind: cloud.KindUser, Tenant: "contoso"},
	}
	got := Dedupe(sessions)
	assert.Equal(t, []Entry{
		{Name: "sp-123", Kind: cloud.KindServicePrincipal, Tenants: []string{"contoso", "fabrikam"}, Sessions: 3},
		{Name: "alice@contoso.com", Kind: cloud.KindUser, Tenants: []string{"contoso"}, Sessions: 1},
		{Name: "sp-123", Kind: cloud.KindUser, Tenants: []string{"contoso"}, Sessions: 1},
	}, got)
	assert.Empty(t, Dedupe(nil))
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		it      string
		input   string
		want    []int
		wantErr bool
	}{
		{it: "should cancel on empty input", input: ""},
		{it: "should cancel on q", input: "q"},
		{it: "should select all", input: "all", want: []int{0, 1, 2}},
		{it: "should accept ALL in any case", input: " ALL ", want: []int{0, 1, 2}},
		{it: "should parse spaced indices", input: "1 3", want: []int{0, 2}},
		{it: "should parse comma separated indices", input: "3,1", want: []int{2, 0}},
		{it: "should drop repeated indices", input: "2 2", want: []int{1}},
		{it: "should reject zero", input: "0", wantErr: true},
		{it: "should reject out of range", input: "4", wantErr: true},
		{it: "should reject words", input: "one", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.it, func(t *testing.T) {
			got, err := ParseSelection(tc.input, 3)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLogoutAllClearsCurrent(t *testing.T) {
	fake := &cloud.Fake{Sessions: []cloud.Session{
		{Name: "sp-123", Kind: cloud.KindServicePrincipal},
		{Name: "sp-123", Kind: cloud.KindUser},
	}}
	m, ops := newManager(t, fake)
	m.Current.Set(fake.Sessions[0])

	entries := Dedupe(fake.Sessions)
	require.Len(t, entries, 2)
	sel, err := ParseSelection("all", len(entries))
	require.NoError(t, err)

	var picked []Entry
	for _, i := range sel {
		picked = append(picked, entries[i])
	}
	sum, err := m.Logout(context.Background(), picked)
	require.NoError(t, err)
	assert.Equal(t, []string{"sp-123"}, sum.LoggedOut)
	assert.Empty(t, sum.Failed)
	assert.Empty(t, fake.Sessions)
	assert.Equal(t, "", m.Current.Principal())
	assert.Contains(t, ops.String(), "user:unset - current session cleared")
}

func TestLogoutPartialFailure(t *testing.T) {
	fake := &cloud.Fake{
		Sessions: []cloud.Session{
			{Name: "sp-123", Kind: cloud.KindServicePrincipal},
			{Name: "alice@contoso.com", Kind: cloud.KindUser},
			{Name: "bob@contoso.com", Kind: cloud.KindUser},
		},
		LogoutErr: map[string]error{"alice@contoso.com": errors.New("az logout: no account")},
	}
	m, ops := newManager(t, fake)
	m.Current.Set(fake.Sessions[0])

	sum, err := m.Logout(context.Background(), Dedupe(fake.Sessions)[1:])
	require.NoError(t, err)
	assert.Equal(t, []string{"bob@contoso.com"}, sum.LoggedOut)
	assert.Contains(t, sum.Failed, "alice@contoso.com")
	assert.Equal(t, 2, fake.LogoutTally)
	assert.Equal(t, "sp-123", m.Current.Principal())
	assert.Contains(t, ops.String(), "ERROR - logout of alice@contoso.com failed")
	assert.Equal(t, "logged out 1/2, 1 failed", sum.String())
	assert.Contains(t, ops.String(), "selective logout: logged out 1/2, 1 failed")
}

func TestLogoutFailedNameIsNotRetried(t *testing.T) {
	fake := &cloud.Fake{
		Sessions: []cloud.Session{
			{Name: "sp-123", Kind: cloud.KindServicePrincipal},
			{Name: "sp-123", Kind: cloud.KindUser},
		},
		LogoutErr: map[string]error{"sp-123": errors.New("az logout: no account")},
	}
	m, _ := newManager(t, fake)

	sum, err := m.Logout(context.Background(), Dedupe(fake.Sessions))
	require.NoError(t, err)
	assert.Equal(t, 1, fake.LogoutTally)
	assert.Equal(t, "logged out 0/1, 1 failed", sum.String())
}
