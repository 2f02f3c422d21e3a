package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8899", cfg.Addr())
	assert.Equal(t, "downloads", cfg.DownloadDir)
	assert.Equal(t, 10*time.Second, cfg.DownloadTimeout)
	assert.Equal(t, "recordings", cfg.Recorder.OutputDir)
	assert.Equal(t, 30*time.Second, cfg.Recorder.Duration)
	assert.Equal(t, 3, cfg.WeChat.FileRetries)
	assert.Equal(t, 3*time.Second, cfg.WeChat.RetryDelay)
	assert.Equal(t, "Microsoft Edge", cfg.WeChat.ReturnFocusWindow)
	assert.False(t, cfg.Notify)
	assert.Empty(t, cfg.DatabasePath)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("DOWNLOAD_TIMEOUT", "15s")
	t.Setenv("RECORD_DURATION", "45")
	t.Setenv("SEND_RETRIES", "5")
	t.Setenv("SEND_RETRY_DELAY", "500ms")
	t.Setenv("BROWSER_HEADLESS", "true")
	t.Setenv("NOTIFY", "1")
	t.Setenv("WECHAT_PATHS", `E:\WeChat\WeChat.exe; F:\WeChat.exe ;`)
	t.Setenv("RETURN_FOCUS_WINDOW", "")
	t.Setenv("DATABASE_PATH", "history.db")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, 15*time.Second, cfg.DownloadTimeout)
	assert.Equal(t, 45*time.Second, cfg.Recorder.Duration)
	assert.Equal(t, 5, cfg.WeChat.FileRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.WeChat.RetryDelay)
	assert.True(t, cfg.Recorder.Headless)
	assert.True(t, cfg.Notify)
	assert.Equal(t, []string{`E:\WeChat\WeChat.exe`, `F:\WeChat.exe`}, cfg.WeChat.InstallPaths)
	assert.Empty(t, cfg.WeChat.ReturnFocusWindow)
	assert.Equal(t, "history.db", cfg.DatabasePath)
}

func TestLoadInvalidEnv(t *testing.T) {
	t.Setenv("SEND_RETRIES", "many")
	t.Setenv("NOTIFY", "perhaps")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEND_RETRIES")
	assert.Contains(t, err.Error(), "NOTIFY")
}

func TestLoadDefersValidation(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	cfg, err := Load("")
	require.NoError(t, err, "a flag may still replace the env value")
	assert.Error(t, cfg.Validate())

	cfg.Port = "9000"
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wxsend.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "8000"
download_dir: /var/wxsend/audio
wechat:
  window_title: WeChat
  retry_delay: 2s
  delays:
    open_chat: 2s
recorder:
  duration: 10s
  headless: true
`), 0o644))

	t.Setenv("PORT", "8100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "8100", cfg.Port, "env wins over file")
	assert.Equal(t, "/var/wxsend/audio", cfg.DownloadDir)
	assert.Equal(t, "WeChat", cfg.WeChat.WindowTitle)
	assert.Equal(t, 2*time.Second, cfg.WeChat.RetryDelay)
	assert.Equal(t, 2*time.Second, cfg.WeChat.Delays.OpenChat)
	assert.Equal(t, 3, cfg.WeChat.FileRetries, "unset keys keep defaults")
	assert.Equal(t, 10*time.Second, cfg.Recorder.Duration)
	assert.True(t, cfg.Recorder.Headless)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port not numeric", func(c *Config) { c.Port = "http" }},
		{"port out of range", func(c *Config) { c.Port = "70000" }},
		{"zero retries", func(c *Config) { c.WeChat.FileRetries = 0 }},
		{"zero download timeout", func(c *Config) { c.DownloadTimeout = 0 }},
		{"zero record duration", func(c *Config) { c.Recorder.Duration = 0 }},
		{"empty download dir", func(c *Config) { c.DownloadDir = "" }},
		{"unknown gin mode", func(c *Config) { c.GinMode = "prod" }},
		{"zero play-control timeout", func(c *Config) { c.Recorder.ProbeTimeout = 0 }},
		{"zero first-frame timeout", func(c *Config) { c.Recorder.FrameTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
