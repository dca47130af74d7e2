package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(EnvTenant, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.TimeoutDuration())
	assert.Equal(t, BackendCLI, cfg.Backend)
	assert.Equal(t, PolicyReuse, cfg.LoginPolicy)
	assert.Equal(t, StoreNone, cfg.CredentialStore)
	assert.False(t, cfg.Verbose)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(EnvTenant, "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
tenant: contoso.onmicrosoft.com
timeout: 10s
verbose: true
log_dir: /tmp/kvwalk-logs
login_policy: logout-first
credential_store: session
max_failed_logins: 3
lockout: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "contoso.onmicrosoft.com", cfg.Tenant)
	assert.Equal(t, 10*time.Second, cfg.TimeoutDuration())
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "/tmp/kvwalk-logs", cfg.LogDir)
	assert.Equal(t, PolicyLogoutFirst, cfg.LoginPolicy)
	assert.Equal(t, StoreSession, cfg.CredentialStore)
	assert.Equal(t, 3, cfg.MaxFailedLogins)
	assert.Equal(t, time.Minute, cfg.LockoutDuration())
	assert.Equal(t, "az", cfg.AZPath)
}

func TestLoadTenantFromEnv(t *testing.T) {
	t.Setenv(EnvTenant, "from-env")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Tenant)
}

func TestLoadInvalid(t *testing.T) {
	var tests = []struct {
		it      string
		data    string
		wantErr string
	}{
		{
			it:      "should_reject_bad_duration",
			data:    "timeout: soon\n",
			wantErr: "invalid duration",
		}, {
			it:      "should_reject_unknown_backend",
			data:    "backend: rest\n",
			wantErr: "unknown backend",
		}, {
			it:      "should_reject_unknown_policy",
			data:    "login_policy: always\n",
			wantErr: "unknown login_policy",
		}, {
			it:      "should_reject_zero_timeout",
			data:    "timeout: 0s\n",
			wantErr: "timeout must be positive",
		},
	}
	for _, tst := range tests {
		t.Run(tst.it, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tst.data), 0600))
			_, err := Load(path)
			assert.ErrorContains(t, err, tst.wantErr)
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/kvwalk.yaml")
	assert.Equal(t, "/x.yaml", Path("/x.yaml"))
	assert.Equal(t, "/etc/kvwalk.yaml", Path(""))
}
