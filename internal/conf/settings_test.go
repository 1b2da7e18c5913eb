package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "finder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", s.Log.Level)
	assert.Equal(t, DriverSQLite, s.Database.Driver)
	assert.Equal(t, int64(60), s.Alerts.PeriodTicks)
	assert.Equal(t, PausePolicyFreeze, s.Alerts.PausePolicy)
	assert.Equal(t, 16, s.Alerts.MaxCulprits)
	assert.Equal(t, int64(1), s.Server.TickInterval.Ticks())
	assert.False(t, s.GodMode)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
alerts:
  period_ticks: 120
  pause_policy: continue
  targets:
    - "generic://example.invalid/hook"
server:
  listen: ":9000"
  tick_interval: 100ms
god_mode: true
`)

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, int64(120), s.Alerts.PeriodTicks)
	assert.Equal(t, PausePolicyContinue, s.Alerts.PausePolicy)
	assert.Equal(t, []string{"generic://example.invalid/hook"}, s.Alerts.Targets)
	assert.Equal(t, ":9000", s.Server.Listen)
	assert.Equal(t, 100*time.Millisecond, s.Server.TickInterval.Std())
	assert.True(t, s.GodMode)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("FINDER_ALERTS_MAX_CULPRITS", "4")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Alerts.MaxCulprits)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad pause policy", "alerts:\n  pause_policy: sometimes\n"},
		{"bad driver", "database:\n  driver: postgres\n"},
		{"zero period", "alerts:\n  period_ticks: 0\n"},
		{"mqtt without broker", "alerts:\n  mqtt:\n    enabled: true\n"},
		{"negative tick interval", "server:\n  tick_interval: -1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
