package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDeviceConfig_JSON(t *testing.T) {
	path := writeFile(t, "device.json", `{
		"api_base_url": "http://localhost:8080",
		"platform": "ios",
		"notifications_allowed": true,
		"tap_retry_delay": "250ms",
		"dedup_window": "5s"
	}`)

	cfg, err := LoadDeviceConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, "ios", cfg.Platform)
	assert.True(t, cfg.NotificationsAllowed)
	assert.Equal(t, Duration(250*time.Millisecond), cfg.TapRetryDelay)
	assert.Equal(t, Duration(5*time.Second), cfg.DedupWindow)
}

func TestLoadDeviceConfig_YAML(t *testing.T) {
	path := writeFile(t, "device.yaml", `
state_path: /tmp/state.db
push_token: tok-123
install_referrer: utm_source=google&utm_medium=cpc
tap_retry_attempts: 3
tap_retry_delay: 1s
`)

	cfg, err := LoadDeviceConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/state.db", cfg.StatePath)
	assert.Equal(t, "tok-123", cfg.PushToken)
	assert.Equal(t, "utm_source=google&utm_medium=cpc", cfg.InstallReferrer)
	assert.Equal(t, 3, cfg.TapRetryAttempts)
	assert.Equal(t, Duration(time.Second), cfg.TapRetryDelay)
}

func TestLoadDeviceConfig_Errors(t *testing.T) {
	_, err := LoadDeviceConfig("")
	assert.Error(t, err)

	_, err = LoadDeviceConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadDeviceConfig(writeFile(t, "bad.json", `{ invalid json }`))
	assert.ErrorContains(t, err, "failed to parse config JSON")

	_, err = LoadDeviceConfig(writeFile(t, "bad.json", `{"tap_retry_delay": "soon"}`))
	assert.Error(t, err)
}

func TestDeviceConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DeviceConfig
		wantErr bool
	}{
		{name: "empty", cfg: DeviceConfig{}},
		{name: "both stores", cfg: DeviceConfig{StatePath: "a.db", StateRedisURL: "redis://x"}, wantErr: true},
		{name: "bad platform", cfg: DeviceConfig{Platform: "web"}, wantErr: true},
		{name: "negative attempts", cfg: DeviceConfig{TapRetryAttempts: -1}, wantErr: true},
		{name: "missing credentials", cfg: DeviceConfig{PushCredentialsFile: "/nope/creds.json"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeviceConfig_MergeWithDefaults(t *testing.T) {
	cfg := (&DeviceConfig{TapRetryAttempts: 4}).MergeWithDefaults()
	assert.Equal(t, DefaultStatePath, cfg.StatePath)
	assert.Equal(t, DefaultPlatform, cfg.Platform)
	assert.Equal(t, DefaultRefreshSpec, cfg.RefreshSpec)
	assert.Equal(t, 4, cfg.TapRetryAttempts)
	assert.Equal(t, Duration(DefaultTapRetryDelay), cfg.TapRetryDelay)
	assert.Equal(t, "govjob-alerts-android", cfg.MarketingAppID)

	redis := (&DeviceConfig{StateRedisURL: "redis://localhost:6379/0"}).MergeWithDefaults()
	assert.Empty(t, redis.StatePath)
}

func TestLoadServer(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := LoadServer()
	assert.ErrorContains(t, err, "DATABASE_URL is required")

	t.Setenv("DATABASE_URL", "postgres://localhost/govjobs")
	t.Setenv("PORT", "9000")
	t.Setenv("CATALOG_CACHE_TTL", "30s")
	t.Setenv("FCM_PROJECT_ID", "govjobs")
	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.CatalogCacheTTL)
	assert.Equal(t, "govjobs", cfg.FCMProjectID)

	t.Setenv("PORT", "abc")
	_, err = LoadServer()
	assert.Error(t, err)
}

func TestLoadFanout(t *testing.T) {
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("FCM_PROJECT_ID", "")
	_, err := LoadFanout()
	assert.ErrorContains(t, err, "FCM_PROJECT_ID is required")

	t.Setenv("FCM_PROJECT_ID", "govjobs")
	cfg, err := LoadFanout()
	require.NoError(t, err)
	assert.Equal(t, "fanout", cfg.QueueGroup)
}
