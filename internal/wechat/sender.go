// Package wechat drives the WeChat desktop client through OS-level UI
// automation: keyboard and clipboard injection on Windows, AppleScript and
// System Events on macOS.
package wechat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"wxsend/internal/platform"

	"go.uber.org/zap"
)

var (
	// ErrUnsupportedPlatform is returned by NewSender on hosts without an automation backend.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrChatNotRunning means WeChat was not running and could not be started.
	ErrChatNotRunning = errors.New("unable to start WeChat, please open it manually and retry")
	// ErrFileMissing means the file to send is not on disk.
	ErrFileMissing = errors.New("audio file does not exist")
)

// Message is one delivery to a conversation.
type Message struct {
	Group    string
	Text     string
	FilePath string
}

// Sender delivers messages through the desktop client.
type Sender interface {
	// Name returns the automation method, e.g. "AppleScript".
	Name() string
	// EnsureRunning starts the client when it is not already running.
	EnsureRunning(ctx context.Context) error
	// Send opens the conversation, sends the optional text, then the file.
	Send(ctx context.Context, msg Message) error
}

// Delays are the fixed waits between UI steps.
type Delays struct {
	Startup   time.Duration `yaml:"startup"`
	Keystroke time.Duration `yaml:"keystroke"`
	Search    time.Duration `yaml:"search"`
	OpenChat  time.Duration `yaml:"open_chat"`
	Message   time.Duration `yaml:"message"`
	File      time.Duration `yaml:"file"`
}

// Config controls how the client is located and driven.
type Config struct {
	AppName           string        `yaml:"app_name"`
	ExeName           string        `yaml:"exe_name"`
	InstallPaths      []string      `yaml:"install_paths"`
	WindowTitle       string        `yaml:"window_title"`
	ReturnFocusWindow string        `yaml:"return_focus_window"`
	FileRetries       int           `yaml:"file_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	ScriptTimeout     time.Duration `yaml:"script_timeout"`
	Delays            Delays        `yaml:"delays"`
}

// DefaultConfig returns the settings for a stock WeChat install.
func DefaultConfig() Config {
	startup := 5 * time.Second
	if runtime.GOOS == "darwin" {
		startup = 3 * time.Second
	}
	return Config{
		AppName: "WeChat",
		ExeName: "WeChat.exe",
		InstallPaths: []string{
			`C:\Program Files\Tencent\WeChat\WeChat.exe`,
			`C:\Program Files (x86)\Tencent\WeChat\WeChat.exe`,
			`D:\Program Files\Tencent\WeChat\WeChat.exe`,
			`D:\Program Files (x86)\Tencent\WeChat\WeChat.exe`,
		},
		WindowTitle:       "微信",
		ReturnFocusWindow: "Microsoft Edge",
		FileRetries:       3,
		RetryDelay:        3 * time.Second,
		ScriptTimeout:     30 * time.Second,
		Delays: Delays{
			Startup:   startup,
			Keystroke: 300 * time.Millisecond,
			Search:    1 * time.Second,
			OpenChat:  1500 * time.Millisecond,
			Message:   1 * time.Second,
			File:      2 * time.Second,
		},
	}
}

// NewSender returns the Sender for the named platform (see platform.Name).
func NewSender(name string, cfg Config, log *zap.Logger) (Sender, error) {
	switch name {
	case platform.Windows:
		keys, err := newKeyboard()
		if err != nil {
			return nil, fmt.Errorf("keyboard automation: %w", err)
		}
		return newUIAutomationSender(cfg, execRunner{}, keys, newSystemClipboard(execRunner{}), log), nil
	case platform.Darwin:
		return newAppleScriptSender(cfg, execRunner{}, log), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, name)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// pause waits for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
