package wechat

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"wxsend/internal/platform"

	"go.uber.org/zap"
)

// Keyboard injects the few shortcuts the Windows client needs.
type Keyboard interface {
	Find() error  // Ctrl+F
	Paste() error // Ctrl+V
	Enter() error
}

// Clipboard places text or files on the system clipboard.
type Clipboard interface {
	WriteText(text string) error
	WriteFiles(ctx context.Context, paths ...string) error
}

type uiAutomationSender struct {
	cfg    Config
	run    CommandRunner
	keys   Keyboard
	clip   Clipboard
	log    *zap.Logger
	exists func(string) bool
}

func newUIAutomationSender(cfg Config, run CommandRunner, keys Keyboard, clip Clipboard, log *zap.Logger) *uiAutomationSender {
	return &uiAutomationSender{
		cfg:    cfg,
		run:    run,
		keys:   keys,
		clip:   clip,
		log:    log.Named("uiautomation"),
		exists: fileExists,
	}
}

func (s *uiAutomationSender) Name() string {
	return platform.MethodUIAutomation
}

func (s *uiAutomationSender) EnsureRunning(ctx context.Context) error {
	out, err := s.run.Run(ctx, "tasklist", "/FI", "IMAGENAME eq "+s.cfg.ExeName, "/NH")
	if err == nil && strings.Contains(strings.ToLower(string(out)), strings.ToLower(s.cfg.ExeName)) {
		s.log.Debug("WeChat already running")
		return nil
	}

	for _, path := range s.cfg.InstallPaths {
		if !s.exists(path) {
			continue
		}
		s.log.Info("WeChat not running, launching", zap.String("path", path))
		if err := s.run.Start(path); err != nil {
			return fmt.Errorf("%w: %v", ErrChatNotRunning, err)
		}
		return pause(ctx, s.cfg.Delays.Startup)
	}
	return fmt.Errorf("%w: no install found in %d known locations", ErrChatNotRunning, len(s.cfg.InstallPaths))
}

func (s *uiAutomationSender) Send(ctx context.Context, msg Message) error {
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

	if err := s.openChat(ctx, msg.Group); err != nil {
		return fmt.Errorf("open chat %q: %w", msg.Group, err)
	}

	if msg.Text != "" {
		s.log.Info("sending text", zap.Int("length", len(msg.Text)))
		if err := s.pasteAndSubmit(ctx, func() error { return s.clip.WriteText(msg.Text) }); err != nil {
			return fmt.Errorf("send text: %w", err)
		}
		if err := pause(ctx, s.cfg.Delays.Message); err != nil {
			return err
		}
	}

	if absPath != "" {
		err := retryFixed(ctx, s.cfg.FileRetries, s.cfg.RetryDelay, s.log, func() error {
			if err := s.pasteAndSubmit(ctx, func() error { return s.clip.WriteFiles(ctx, absPath) }); err != nil {
				return err
			}
			return pause(ctx, s.cfg.Delays.File)
		})
		if err != nil {
			return fmt.Errorf("send file: %w", err)
		}
	}

	if s.cfg.ReturnFocusWindow != "" {
		if err := s.activate(ctx, s.cfg.ReturnFocusWindow); err != nil {
			s.log.Warn("could not return focus", zap.String("window", s.cfg.ReturnFocusWindow), zap.Error(err))
		}
	}
	return nil
}

func (s *uiAutomationSender) openChat(ctx context.Context, group string) error {
	s.log.Info("opening chat", zap.String("group", group))
	if err := s.activate(ctx, s.cfg.WindowTitle); err != nil {
		return err
	}
	if err := pause(ctx, s.cfg.Delays.Keystroke); err != nil {
		return err
	}
	if err := s.keys.Find(); err != nil {
		return fmt.Errorf("focus search: %w", err)
	}
	if err := pause(ctx, s.cfg.Delays.Keystroke); err != nil {
		return err
	}
	if err := s.clip.WriteText(group); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	if err := s.keys.Paste(); err != nil {
		return fmt.Errorf("paste group name: %w", err)
	}
	if err := pause(ctx, s.cfg.Delays.Search); err != nil {
		return err
	}
	if err := s.keys.Enter(); err != nil {
		return fmt.Errorf("select search result: %w", err)
	}
	return pause(ctx, s.cfg.Delays.OpenChat)
}

// pasteAndSubmit loads the clipboard, pastes into the chat input and presses Enter.
func (s *uiAutomationSender) pasteAndSubmit(ctx context.Context, load func() error) error {
	if err := load(); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	if err := s.keys.Paste(); err != nil {
		return fmt.Errorf("paste: %w", err)
	}
	if err := pause(ctx, s.cfg.Delays.Keystroke); err != nil {
		return err
	}
	if err := s.keys.Enter(); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

// activate brings the window whose title matches to the foreground.
func (s *uiAutomationSender) activate(ctx context.Context, title string) error {
	script := "(New-Object -ComObject WScript.Shell).AppActivate(" + quotePowerShell(title) + ")"
	out, err := powershell(ctx, s.run, script)
	if err != nil {
		return fmt.Errorf("activate %q: %w", title, err)
	}
	if !strings.EqualFold(strings.TrimSpace(string(out)), "true") {
		return fmt.Errorf("window %q not found", title)
	}
	return nil
}
