package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"wxsend/internal/recorder"
	"wxsend/internal/wechat"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Host            string          `yaml:"host"`
	Port            string          `yaml:"port"`
	GinMode         string          `yaml:"gin_mode"`
	DownloadDir     string          `yaml:"download_dir"`
	DownloadTimeout time.Duration   `yaml:"download_timeout"`
	DatabasePath    string          `yaml:"database_path"`
	Notify          bool            `yaml:"notify"`
	LogLevel        string          `yaml:"log_level"`
	LogFormat       string          `yaml:"log_format"`
	WeChat          wechat.Config   `yaml:"wechat"`
	Recorder        recorder.Config `yaml:"recorder"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            "8899",
		GinMode:         "release",
		DownloadDir:     "downloads",
		DownloadTimeout: 10 * time.Second,
		LogLevel:        "info",
		LogFormat:       "json",
		WeChat:          wechat.DefaultConfig(),
		Recorder:        recorder.DefaultConfig(),
	}
}

// Load applies, in order: defaults, the YAML file at path (when non-empty)
// and environment variables. Callers apply their own overrides and then
// call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	c.Host = getEnv("HOST", c.Host)
	c.Port = getEnv("PORT", c.Port)
	c.GinMode = getEnv("GIN_MODE", c.GinMode)
	c.DownloadDir = getEnv("DOWNLOAD_DIR", c.DownloadDir)
	c.DatabasePath = getEnv("DATABASE_PATH", c.DatabasePath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.Recorder.OutputDir = getEnv("RECORDING_DIR", c.Recorder.OutputDir)
	c.Recorder.BrowserBin = getEnv("BROWSER_BIN", c.Recorder.BrowserBin)
	c.Recorder.FFmpegPath = getEnv("FFMPEG_PATH", c.Recorder.FFmpegPath)

	c.WeChat.AppName = getEnv("WECHAT_APP", c.WeChat.AppName)
	c.WeChat.ExeName = getEnv("WECHAT_EXE", c.WeChat.ExeName)
	c.WeChat.WindowTitle = getEnv("WECHAT_WINDOW", c.WeChat.WindowTitle)
	if v, ok := os.LookupEnv("RETURN_FOCUS_WINDOW"); ok {
		// Empty disables the focus return.
		c.WeChat.ReturnFocusWindow = v
	}
	if v := os.Getenv("WECHAT_PATHS"); v != "" {
		c.WeChat.InstallPaths = splitList(v)
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	collect(envDuration("DOWNLOAD_TIMEOUT", &c.DownloadTimeout))
	collect(envDuration("RECORD_DURATION", &c.Recorder.Duration))
	collect(envDuration("SEND_RETRY_DELAY", &c.WeChat.RetryDelay))
	collect(envInt("SEND_RETRIES", &c.WeChat.FileRetries))
	collect(envBool("BROWSER_HEADLESS", &c.Recorder.Headless))
	collect(envBool("NOTIFY", &c.Notify))
	return errors.Join(errs...)
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %q", c.Port))
	}
	if c.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.WeChat.FileRetries <= 0 {
		errs = append(errs, errors.New("send retries must be positive"))
	}
	if c.WeChat.RetryDelay < 0 {
		errs = append(errs, errors.New("send retry delay must not be negative"))
	}
	if c.Recorder.Duration <= 0 {
		errs = append(errs, errors.New("record duration must be positive"))
	}
	if c.Recorder.FrameRate <= 0 {
		errs = append(errs, errors.New("recorder frame rate must be positive"))
	}
	if c.Recorder.ProbeTimeout <= 0 || c.Recorder.FrameTimeout <= 0 {
		errs = append(errs, errors.New("recorder timeouts must be positive"))
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("invalid gin mode %q", c.GinMode))
	}
	if c.DownloadDir == "" || c.Recorder.OutputDir == "" {
		errs = append(errs, errors.New("download and recording directories are required"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envDuration accepts Go durations ("1500ms") or plain seconds ("30").
func envDuration(key string, dst *time.Duration) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = time.Duration(secs * float64(time.Second))
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", key, v)
	}
	*dst = d
	return nil
}

func envInt(key string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	*dst = b
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ";") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
