package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atinyakov/DexWatch/internal/client/share"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs_Defaults(t *testing.T) {
	t.Setenv("DEXCOM_ACCOUNT_NAME", "alice")
	t.Setenv("DEXCOM_PASSWORD", "secret")

	opts, err := ParseArgs(nil)
	require.NoError(t, err)

	assert.Equal(t, "alice", opts.AccountName)
	assert.Equal(t, share.DefaultApplicationID, opts.ApplicationID)
	assert.Equal(t, share.DefaultBaseURL, opts.ShareURL)
	assert.Equal(t, "localhost:8080", opts.Port)

	cfg := opts.Controller()
	assert.Equal(t, share.SingleShot, cfg.Mode)
	assert.Equal(t, 2, cfg.AuthBackoffBase)
	assert.Equal(t, 3, cfg.MaxAuthFailures)
	assert.Equal(t, 10, cfg.MaxFetchFailures)
	assert.Equal(t, time.Second, cfg.BackoffUnit)
	assert.Equal(t, 15*time.Minute, cfg.StaleAfter)
}

func TestParseArgs_FlagsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"account_name": "from-file",
		"password": "file-pass",
		"max_fetch_failures": 4,
		"backoff_unit": "250ms",
		"mode": "continuous"
	}`), 0o600))
	t.Setenv("DEXCOM_ACCOUNT_NAME", "from-env")
	t.Setenv("SERVER_ADDRESS", "0.0.0.0:9000")

	opts, err := ParseArgs([]string{"-c", path, "-auth-max", "1", "-password", "flag-pass"})
	require.NoError(t, err)

	assert.Equal(t, "from-env", opts.AccountName)
	assert.Equal(t, "file-pass", opts.Password)
	assert.Equal(t, 1, opts.MaxAuthFailures)
	assert.Equal(t, 4, opts.MaxFetchFailures)
	assert.Equal(t, 250*time.Millisecond, opts.BackoffUnit.Std())
	assert.Equal(t, share.Continuous, opts.Controller().Mode)
	assert.Equal(t, "0.0.0.0:9000", opts.Port)
	assert.Equal(t, "from-env", opts.Credentials().AccountName)
}

func TestParseArgs_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing credentials", args: nil},
		{name: "zero ceiling", args: []string{"-account", "a", "-password", "p", "-fetch-max", "0"}},
		{name: "zero base", args: []string{"-account", "a", "-password", "p", "-auth-base", "0"}},
		{name: "unknown mode", args: []string{"-account", "a", "-password", "p", "-mode", "sometimes"}},
		{name: "unknown flag", args: []string{"-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestParseArgs_BadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"stale_after": 900}`), 0o600))

	_, err := ParseArgs([]string{"-config", path, "-account", "a", "-password", "p"})
	assert.Error(t, err)
}
