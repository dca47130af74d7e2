package browser

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carved4/kvwalk/internal/audit"
	"github.com/carved4/kvwalk/internal/cloud"
	"github.com/carved4/kvwalk/internal/config"
	"github.com/carved4/kvwalk/internal/secmem"
	"github.com/carved4/kvwalk/internal/session"
	"github.com/carved4/kvwalk/internal/throttle"
	"github.com/carved4/kvwalk/internal/ui"
)

type harness struct {
	browser  *Browser
	fake     *cloud.Fake
	current  *session.Current
	out      *bytes.Buffer
	ops      *bytes.Buffer
	exposure *bytes.Buffer
}

func newHarness(t *testing.T, input string) *harness {
	t.Helper()
	fake := &cloud.Fake{
		Vaults: map[string]map[string]string{
			"kv-prod": {"db-pass": "s3cret", "api-key": "k3y", "db-user": "dbadmin"},
			"kv-dev":  {"db-pass": "devpass", "feature-flag": "on"},
		},
		Order: map[string][]string{
			"kv-prod": {"db-pass", "api-key", "db-user"},
		},
		Credentials: map[string]string{"alice@contoso.com": "s3cret"},
		Current:     &cloud.Session{Name: "sp-123", Kind: cloud.KindServicePrincipal},
	}
	h := &harness{
		fake:     fake,
		current:  &session.Current{},
		out:      &bytes.Buffer{},
		ops:      &bytes.Buffer{},
		exposure: &bytes.Buffer{},
	}
	h.current.Set(*fake.Current)
	log := audit.New(h.ops, h.exposure, h.current, audit.WithStderr(&bytes.Buffer{}))
	h.browser = New(fake, ui.NewConsole(strings.NewReader(input), h.out), log)
	h.browser.Login = &session.Manager{
		IdP:     fake,
		Current: h.current,
		Audit:   log,
		Limiter: throttle.New(t.TempDir(), 5, time.Minute),
		Policy:  config.PolicyReuse,
		Tenant:  "contoso",
	}
	return h
}

func (h *harness) assertWiped(t *testing.T) {
	t.Helper()
	for _, v := range h.fake.Returned {
		assert.True(t, secmem.Wiped(v), "value %q left in memory", v)
	}
}

// script joins menu answers into operator input.
func script(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestFilterAndNavigate(t *testing.T) {
	// vaults are listed sorted: 1 kv-dev, 2 kv-prod
	h := newHarness(t, script("2", "f db", "1", "n", "n", "h"))
	require.NoError(t, h.browser.Browse(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, `filter: "db" (2 of 3)`)
	assert.Contains(t, out, "db-pass (1/2) in kv-prod")
	assert.Contains(t, out, "db-user (2/2) in kv-prod")
	assert.Contains(t, out, "already at the last secret")
	assert.NotContains(t, out, "api-key (")
	assert.Equal(t, 1, h.fake.ListSecretNamesTally)
	assert.Equal(t, 0, h.fake.GetSecretValueTally)
}

func TestClearFilterDoesNotRefetch(t *testing.T) {
	h := newHarness(t, script("2", "f", "db", "c", "f zzz", "c", "b", "q"))
	require.NoError(t, h.browser.Browse(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "no secrets match the filter")
	assert.Contains(t, out, "c clears the filter")
	assert.Equal(t, 1, h.fake.ListSecretNamesTally)
	assert.Equal(t, 1, h.fake.ListVaultsTally)
}

func TestHomeFromDetailSkipsOuterMenus(t *testing.T) {
	h := newHarness(t, script("2", "1", "h"))
	require.NoError(t, h.browser.Browse(context.Background()))

	out := h.out.String()
	assert.Equal(t, 1, strings.Count(out, "key vaults"))
	assert.Equal(t, 1, strings.Count(out, "secrets in kv-prod"))
}

func TestBackFromDetail(t *testing.T) {
	tests := []struct {
		it     string
		input  string
		vaults int
		lists  int
	}{
		{it: "should return to the list", input: script("2", "1", "l", "h"), vaults: 1, lists: 2},
		{it: "should return to the vaults", input: script("2", "1", "b", "q"), vaults: 2, lists: 1},
		{it: "should return to the vaults from the list", input: script("2", "b", "q"), vaults: 2, lists: 1},
		{it: "should go home from the list", input: script("2", "h"), vaults: 1, lists: 1},
	}
	for _, tc := range tests {
		t.Run(tc.it, func(t *testing.T) {
			h := newHarness(t, tc.input)
			require.NoError(t, h.browser.Browse(context.Background()))
			out := h.out.String()
			assert.Equal(t, tc.vaults, strings.Count(out, "key vaults"))
			assert.Equal(t, tc.lists, strings.Count(out, "secrets in kv-prod"))
		})
	}
}

func TestInvalidSelectionReprompts(t *testing.T) {
	h := newHarness(t, script("9", "x", "q"))
	require.NoError(t, h.browser.Browse(context.Background()))
	assert.Equal(t, 2, strings.Count(h.out.String(), "invalid selection"))
}

func TestSearchOpensHitInFilteredView(t *testing.T) {
	// hits: 1 kv-dev/db-pass, 2 kv-prod/db-pass, 3 kv-prod/db-user
	h := newHarness(t, script("db", "3", "p", "p", "l", "h"))
	require.NoError(t, h.browser.Search(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, `search results for "db"`)
	assert.Contains(t, out, "db-user (2/2) in kv-prod")
	assert.Contains(t, out, "db-pass (1/2) in kv-prod")
	assert.Contains(t, out, "already at the first secret")
	assert.Contains(t, out, `filter: "db" (2 of 3)`)
	assert.Contains(t, h.ops.String(), "searched secret names for 'db': 3 hits")
}

func TestSearchBackToVaults(t *testing.T) {
	h := newHarness(t, script("feature", "1", "b", "q"))
	require.NoError(t, h.browser.Search(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "feature-flag (1/1) in kv-dev")
	assert.Equal(t, 1, strings.Count(out, "key vaults"))
}

func TestSearchFromVaultsNewSearchAndBack(t *testing.T) {
	h := newHarness(t, script("s", "nothing", "n", "api", "b", "q"))
	require.NoError(t, h.browser.Browse(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "no secrets match")
	assert.Contains(t, out, `search results for "api"`)
	assert.Equal(t, 2, strings.Count(out, "key vaults"))
}

func TestOpenHit(t *testing.T) {
	h := newHarness(t, "")
	h.browser.reset()
	h.browser.names["kv-prod"] = []string{"db-pass", "api-key", "db-user"}

	view, pos := h.browser.openHit(Hit{Vault: "kv-prod", Secret: "db-user"}, "db")
	assert.Equal(t, "db", view.Filter())
	assert.Equal(t, []string{"db-pass", "db-user"}, view.Names())
	assert.Equal(t, 1, pos)
}

func TestRevealWithTag(t *testing.T) {
	h := newHarness(t, script("2", "1", "v", "alice@contoso.com", "h"))
	require.NoError(t, h.browser.Browse(context.Background()))

	assert.Contains(t, h.out.String(), "s3cret")
	assert.Regexp(t, `^\d{4}-\d\d-\d\d \d\d:\d\d:\d\d - alice@contoso.com - extracted:db-pass - vault:kv-prod\n$`, h.exposure.String())
	assert.Contains(t, h.ops.String(), "user:sp-123 - value of secret 'db-pass' from vault 'kv-prod' displayed")
	assert.NotContains(t, h.ops.String(), "s3cret")
	assert.NotContains(t, h.exposure.String(), "s3cret")
	h.assertWiped(t)
}

func TestRevealWithoutTagWritesNoExposure(t *testing.T) {
	h := newHarness(t, script("2", "1", "v", "", "h"))
	require.NoError(t, h.browser.Browse(context.Background()))

	assert.Empty(t, h.exposure.String())
	assert.Equal(t, 1, h.fake.GetSecretValueTally)
	h.assertWiped(t)
}

func TestVerboseLogsValue(t *testing.T) {
	h := newHarness(t, script("2", "1", "v", "", "h"))
	h.browser.Audit = audit.New(h.ops, h.exposure, h.current, audit.WithVerbose(true))
	require.NoError(t, h.browser.Browse(context.Background()))
	assert.Contains(t, h.ops.String(), "(value: s3cret)")
}

func TestRevealFailureReturnsToDetail(t *testing.T) {
	h := newHarness(t, script("2", "1", "v", "n", "h"))
	h.fake.GetErr = map[string]error{"db-pass": errors.New("forbidden")}
	require.NoError(t, h.browser.Browse(context.Background()))

	assert.Contains(t, h.out.String(), "failed to fetch db-pass from kv-prod (see the operational log)")
	assert.Contains(t, h.ops.String(), "ERROR - failed to fetch db-pass from kv-prod: forbidden")
	assert.Contains(t, h.out.String(), "api-key (2/3) in kv-prod")
	assert.Empty(t, h.exposure.String())
}

func TestTestPasswordSuccess(t *testing.T) {
	h := newHarness(t, script("2", "1", "t", "alice@contoso.com", "h"))
	require.NoError(t, h.browser.Browse(context.Background()))

	assert.NotContains(t, h.out.String(), "s3cret")
	assert.Contains(t, h.exposure.String(), " - alice@contoso.com - login-success:db-pass - vault:kv-prod\n")
	assert.Equal(t, "alice@contoso.com", h.current.Principal())
	assert.Equal(t, 1, h.fake.LoginUserTally)
	h.assertWiped(t)
}

func TestTestPasswordFailure(t *testing.T) {
	h := newHarness(t, script("2", "2", "t", "alice@contoso.com", "h"))
	require.NoError(t, h.browser.Browse(context.Background()))

	assert.Contains(t, h.out.String(), "api-key did not authenticate as alice@contoso.com")
	assert.Empty(t, h.exposure.String())
	assert.Equal(t, "sp-123", h.current.Principal())
	h.assertWiped(t)
}

func TestTestPasswordSkippedForExistingSession(t *testing.T) {
	h := newHarness(t, script("2", "1", "t", "alice@contoso.com", "h"))
	h.fake.Sessions = []cloud.Session{{Name: "alice@contoso.com", Kind: cloud.KindUser}}
	require.NoError(t, h.browser.Browse(context.Background()))

	assert.Contains(t, h.out.String(), "already signed in as alice@contoso.com")
	assert.Equal(t, 0, h.fake.LoginUserTally)
	assert.Empty(t, h.exposure.String())
	h.assertWiped(t)
}

func TestFetchAll(t *testing.T) {
	h := newHarness(t, script("2", "a", "y", "", "bob", "h"))
	h.fake.GetErr = map[string]error{"api-key": errors.New("forbidden")}
	require.NoError(t, h.browser.Browse(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "─────")
	assert.Contains(t, out, "fetched 2/3, 1 failed")
	assert.Contains(t, h.ops.String(), "bulk fetch in vault 'kv-prod': fetched 2/3, 1 failed")
	assert.Contains(t, h.exposure.String(), " - bob - extracted:db-user - vault:kv-prod\n")
	assert.NotContains(t, h.exposure.String(), "db-pass")
	h.assertWiped(t)
}

type fakeClipboard struct {
	writes []string
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.writes = append(c.writes, text)
	return nil
}

func TestCopyClearsClipboard(t *testing.T) {
	h := newHarness(t, script("2", "1", "c", "", "", "h"))
	cb := &fakeClipboard{}
	h.browser.Clipboard = cb
	require.NoError(t, h.browser.Browse(context.Background()))

	assert.Equal(t, []string{"s3cret", ""}, cb.writes)
	assert.NotContains(t, h.out.String(), "s3cret")
	assert.Contains(t, h.out.String(), "clipboard cleared")
	h.assertWiped(t)
}

func TestCopyWithoutClipboard(t *testing.T) {
	h := newHarness(t, script("2", "1", "c", "h"))
	require.NoError(t, h.browser.Browse(context.Background()))
	assert.Contains(t, h.out.String(), "no clipboard available")
	assert.Equal(t, 0, h.fake.GetSecretValueTally)
}

func TestAuditFailureIsFatal(t *testing.T) {
	h := newHarness(t, script("2", "1", "v", "", "h"))
	h.browser.Audit = audit.New(failingWriter{}, h.exposure, h.current)
	err := h.browser.Browse(context.Background())
	assert.ErrorIs(t, err, audit.ErrWrite)
	assert.Equal(t, 0, h.fake.ListSecretNamesTally)
}

func TestInputClosed(t *testing.T) {
	h := newHarness(t, script("2", "1"))
	err := h.browser.Browse(context.Background())
	assert.ErrorIs(t, err, ui.ErrInputClosed)
}

func TestListFailureReturnsToVaults(t *testing.T) {
	h := newHarness(t, script("1", "q"))
	h.browser.Dir = &missingVault{Fake: h.fake}
	require.NoError(t, h.browser.Browse(context.Background()))

	assert.Contains(t, h.out.String(), "failed to list secrets in kv-gone")
	assert.Contains(t, h.ops.String(), "ERROR - failed to list secrets in kv-gone")
	assert.Equal(t, 2, strings.Count(h.out.String(), "key vaults"))
}

// missingVault lists a vault the fake has no secrets for.
type missingVault struct {
	*cloud.Fake
}

func (m *missingVault) ListVaults(ctx context.Context) ([]cloud.Vault, error) {
	vaults, err := m.Fake.ListVaults(ctx)
	return append([]cloud.Vault{{Name: "kv-gone"}}, vaults...), err
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }
