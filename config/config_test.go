package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfile := filepath.Join(dir, "storefront.yml")
	content := `
system:
  workdir: ` + dir + `
web:
  port: 9090
database:
  type: sqlite
  name: store.db
payment:
  key_id: rzp_test_file
`
	require.NoError(t, os.WriteFile(cfile, []byte(content), 0o644))

	t.Setenv("STOREFRONT_RAZORPAY_KEY_SECRET", "env-secret")
	t.Setenv("STOREFRONT_WEB_PORT", "9191")
	t.Setenv("STOREFRONT_DB_DEBUG", "true")

	cfg := LoadConfig(cfile)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "store.db", cfg.Database.Name)
	assert.True(t, cfg.Database.Debug)
	assert.Equal(t, 9191, cfg.Web.Port)
	assert.Equal(t, "rzp_test_file", cfg.Payment.KeyId)
	assert.Equal(t, "env-secret", cfg.Payment.KeySecret)
	// untouched sections keep defaults
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.DirExists(t, cfg.GetLogDir())
}

func TestApplyEnvIgnoresBadInt(t *testing.T) {
	cfg := *DefaultAppConfig
	t.Setenv("STOREFRONT_WEB_PORT", "not-a-port")
	ApplyEnv(&cfg)
	assert.Equal(t, DefaultAppConfig.Web.Port, cfg.Web.Port)
}
