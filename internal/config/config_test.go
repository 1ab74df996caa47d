package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scienceol/screenwake/pkg/wakelock"
)

// isolate points HOME at an empty directory and clears SCREENWAKE_* vars.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, k := range []string{
		"SCREENWAKE_CONFIG", "SCREENWAKE_REASON", "SCREENWAKE_SECONDS",
		"SCREENWAKE_APP_ID", "SCREENWAKE_INHIBIT_SUSPEND",
		"SCREENWAKE_LOG_LEVEL", "SCREENWAKE_LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, DefaultReason, cfg.Reason)
	assert.Equal(t, 10*time.Second, cfg.Duration())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, time.Duration(0), cfg.BusTimeout())
	assert.Equal(t, wakelock.LinuxOptions{}, cfg.LinuxOptions())
}

func TestLoadYAMLFromHome(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, ".screenwake", "config.yaml")
	writeFile(t, path, `
reason: Watching a film
seconds: 0
application_id: org.example.Player
inhibit_suspend: true
bus_timeout_seconds: 5
`)

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "Watching a film", cfg.Reason)
	assert.Equal(t, time.Duration(0), cfg.Duration())
	assert.Equal(t, 5*time.Second, cfg.BusTimeout())
	assert.Equal(t, wakelock.LinuxOptions{
		ApplicationID: "org.example.Player",
		Inhibit:       wakelock.InhibitIdle | wakelock.InhibitSuspend,
	}, cfg.LinuxOptions())
}

func TestLoadTOML(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "screenwake.toml")
	writeFile(t, path, `
reason = "Rendering"
seconds = 120
log_format = "json"
`)

	cfg, err := Load(Overrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "Rendering", cfg.Reason)
	assert.Equal(t, 120, cfg.Seconds)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadPrecedence(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".screenwake", "config.yaml"), `
reason: from file
seconds: 30
application_id: file.app
`)
	t.Setenv("SCREENWAKE_REASON", "from env")
	t.Setenv("SCREENWAKE_SECONDS", "45")

	seconds := 0
	cfg, err := Load(Overrides{Seconds: &seconds})
	require.NoError(t, err)
	assert.Equal(t, "from env", cfg.Reason)
	assert.Equal(t, 0, cfg.Seconds)
	assert.Equal(t, "file.app", cfg.ApplicationID)

	cfg, err = Load(Overrides{Reason: "from flag"})
	require.NoError(t, err)
	assert.Equal(t, "from flag", cfg.Reason)
	assert.Equal(t, 45, cfg.Seconds)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	isolate(t)

	_, err := Load(Overrides{ConfigPath: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestLoadEnvConfigPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yml")
	writeFile(t, path, "reason: via env path\n")
	t.Setenv("SCREENWAKE_CONFIG", path)

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "via env path", cfg.Reason)
	assert.Equal(t, path, cfg.Path)
}

func TestLoadValidation(t *testing.T) {
	isolate(t)

	negative := -1
	_, err := Load(Overrides{Seconds: &negative})
	assert.ErrorContains(t, err, "seconds")

	_, err = Load(Overrides{LogFormat: "xml"})
	assert.ErrorContains(t, err, "log_format")

	t.Setenv("SCREENWAKE_SECONDS", "ten")
	_, err = Load(Overrides{})
	assert.ErrorContains(t, err, "SCREENWAKE_SECONDS")
}

func TestLoadMalformedFile(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".screenwake", "config.yaml"), "seconds: [1, 2\n")

	_, err := Load(Overrides{})
	assert.ErrorContains(t, err, "config.yaml")
}
