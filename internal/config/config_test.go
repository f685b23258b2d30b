package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chyiyaqing/pushnotify/internal/notify"
)

var managedEnv = []string{
	"PUSHPLUS_TOKEN", "PUSHPLUS_ENDPOINT", "PUSHPLUS_TIMEOUT",
	"NOTIFY_TITLE", "NOTIFY_CONTENT", "NOTIFY_TEMPLATE", "NOTIFY_SCHEDULE", "NOTIFY_TIMEZONE",
	"LOG_LEVEL", "LOG_FORMAT",
}

// isolate runs the test in an empty directory with every managed variable
// unset; the originals are restored on cleanup.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range managedEnv {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaultsWhenNothingConfigured(t *testing.T) {
	isolate(t)

	cfg, err := Load(DefaultPath)
	require.NoError(t, err)

	assert.Equal(t, "", cfg.PushPlus.Token)
	assert.Equal(t, "http://www.pushplus.plus/send", cfg.PushPlus.Endpoint)
	assert.Equal(t, 10*time.Second, cfg.PushPlus.Timeout)
	assert.Equal(t, "markdown", cfg.Notify.Template)
	assert.Equal(t, "auto", cfg.Log.Format)
}

func TestLoadYAMLThenEnvOverrides(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "pushnotify.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pushplus:
  token: from-yaml
  timeout: 3s
notify:
  template: html
  schedule: "0 0 * * *"
log:
  level: debug
`), 0o644))

	t.Setenv("PUSHPLUS_TOKEN", "from-env")
	t.Setenv("NOTIFY_TITLE", "标题")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.PushPlus.Token)
	assert.Equal(t, 3*time.Second, cfg.PushPlus.Timeout)
	assert.Equal(t, "html", cfg.Notify.Template)
	assert.Equal(t, "0 0 * * *", cfg.Notify.Schedule)
	assert.Equal(t, "标题", cfg.Notify.Title)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadReadsDotEnvWithoutOverridingEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(
		"PUSHPLUS_TOKEN=dotenv-token\nNOTIFY_CONTENT=\"来自 .env\"\n",
	), 0o644))
	t.Setenv("NOTIFY_CONTENT", "from-env")

	cfg, err := Load(DefaultPath)
	require.NoError(t, err)

	assert.Equal(t, "dotenv-token", cfg.PushPlus.Token)
	assert.Equal(t, "from-env", cfg.Notify.Content)
}

func TestLoadRejectsUnparseableInput(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		isolate(t)
		t.Setenv("PUSHPLUS_TIMEOUT", "soon")
		_, err := Load(DefaultPath)
		assert.ErrorContains(t, err, "PUSHPLUS_TIMEOUT")
	})
	t.Run("yaml", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pushplus: [unterminated"), 0o644))
		_, err := Load(path)
		assert.ErrorContains(t, err, "parse config")
	})
}

func TestLoadLeavesValidationToCaller(t *testing.T) {
	isolate(t)
	t.Setenv("NOTIFY_TEMPLATE", "pdf")

	cfg, err := Load(DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, "pdf", cfg.Notify.Template)
	assert.ErrorIs(t, cfg.Validate(), notify.ErrInvalidTemplate)

	cfg.Notify.Template = "html"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "xml"
	assert.ErrorContains(t, cfg.Validate(), "log format")

	cfg = Default()
	cfg.PushPlus.Timeout = -time.Second
	assert.ErrorContains(t, cfg.Validate(), "negative")

	assert.NoError(t, Default().Validate())
}

func TestLocationFallsBackToFixedZone(t *testing.T) {
	cfg := Default()
	cfg.Notify.Timezone = "Nowhere/Invalid"
	_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, cfg.Location()).Zone()
	assert.Equal(t, 8*3600, offset)

	cfg.Notify.Timezone = "UTC"
	assert.Equal(t, time.UTC, cfg.Location())
}
