package wechat

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"wxsend/internal/platform"

	"go.uber.org/zap"
)

type appleScriptSender struct {
	cfg    Config
	run    CommandRunner
	log    *zap.Logger
	exists func(string) bool
}

func newAppleScriptSender(cfg Config, run CommandRunner, log *zap.Logger) *appleScriptSender {
	return &appleScriptSender{
		cfg:    cfg,
		run:    run,
		log:    log.Named("applescript"),
		exists: fileExists,
	}
}

func (s *appleScriptSender) Name() string {
	return platform.MethodAppleScript
}

func (s *appleScriptSender) EnsureRunning(ctx context.Context) error {
	if _, err := s.run.Run(ctx, "pgrep", "-f", s.cfg.AppName); err == nil {
		s.log.Debug("WeChat already running")
		return nil
	}

	s.log.Info("WeChat not running, launching", zap.String("app", s.cfg.AppName))
	if _, err := s.run.Run(ctx, "open", "-a", s.cfg.AppName); err != nil {
		return fmt.Errorf("%w: %v", ErrChatNotRunning, err)
	}
	return pause(ctx, s.cfg.Delays.Startup)
}

func (s *appleScriptSender) Send(ctx context.Context, msg Message) error {
	var absPath string
	if msg.FilePath != "" {
		p, err := filepath.Abs(msg.FilePath)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", msg.FilePath, err)
		}
		if !s.exists(p) {
			return fmt.Errorf("%w: %s", ErrFileMissing, p)
		}
		absPath = p
	}

	s.log.Info("opening chat", zap.String("group", msg.Group))
	script := openChatScript(s.cfg.AppName, msg.Group)
	if msg.Text != "" {
		script += messageScript(s.cfg.AppName, msg.Text)
	}
	if err := s.osascript(ctx, script); err != nil {
		return fmt.Errorf("open chat %q: %w", msg.Group, err)
	}

	if absPath == "" {
		return nil
	}
	return retryFixed(ctx, s.cfg.FileRetries, s.cfg.RetryDelay, s.log, func() error {
		return s.osascript(ctx, fileScript(s.cfg.AppName, absPath))
	})
}

func (s *appleScriptSender) osascript(ctx context.Context, script string) error {
	if s.cfg.ScriptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ScriptTimeout)
		defer cancel()
	}
	if _, err := s.run.Run(ctx, "osascript", "-e", script); err != nil {
		return fmt.Errorf("AppleScript failed: %w", err)
	}
	return nil
}

// appleScriptString quotes s as an AppleScript string literal.
func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// openChatScript focuses the search field, pastes the group name and picks
// the first result.
func openChatScript(app, group string) string {
	return fmt.Sprintf(`
tell application %[1]s
	activate
	delay 1
end tell

tell application "System Events"
	tell process %[1]s
		click text field 1 of group 1 of group 1 of window 1
		delay 0.5
		set the clipboard to %[2]s
		key code 9 using command down
		delay 1
		key code 36
		delay 1
	end tell
end tell
`, appleScriptString(app), appleScriptString(group))
}

func messageScript(app, text string) string {
	return fmt.Sprintf(`
tell application "System Events"
	tell process %[1]s
		set the clipboard to %[2]s
		key code 9 using command down
		delay 0.5
		key code 36
		delay 1
	end tell
end tell
`, appleScriptString(app), appleScriptString(text))
}

// fileScript opens the attach dialog (cmd+O), jumps to the path with
// cmd+shift+G and confirms twice.
func fileScript(app, absPath string) string {
	return fmt.Sprintf(`
tell application "System Events"
	tell process %[1]s
		key code 31 using command down
		delay 1
		keystroke "g" using {command down, shift down}
		delay 0.5
		keystroke %[2]s
		delay 0.5
		key code 36
		delay 1
		key code 36
		delay 2
	end tell
end tell
`, appleScriptString(app), appleScriptString(filepath.ToSlash(absPath)))
}
