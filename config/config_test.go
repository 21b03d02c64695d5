package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 24, cfg.Payment.MaxPolls)
	assert.Equal(t, 5*time.Second, cfg.Payment.PollInterval)
	assert.False(t, cfg.IsProduction())
}

func TestLoadMergesFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hubadmin.yaml")
	yml := "upstream:\n  base_url: https://api.example.test\npayment:\n  max_polls: 10\n  provider: stub\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("HUBADMIN_CONFIG", path)
	t.Setenv("PAYMENT_MAX_POLLS", "12")
	t.Setenv("PAYMENT_POLL_INTERVAL", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.test", cfg.Upstream.BaseURL)
	assert.Equal(t, "stub", cfg.Payment.Provider)
	assert.Equal(t, 12, cfg.Payment.MaxPolls)
	assert.Equal(t, 2*time.Second, cfg.Payment.PollInterval)
	// untouched keys keep their defaults
	assert.Equal(t, int64(1000), cfg.Payment.FixedAmount)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Upstream.BaseURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Payment.Provider = "paypal"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Server.Env = "production"
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("HUBADMIN_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
