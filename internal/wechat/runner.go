package wechat

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner runs external programs (osascript, tasklist, powershell).
type CommandRunner interface {
	// Run waits for the command and returns its stdout.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// Start launches a program without waiting for it to exit.
	Start(name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return out, fmt.Errorf("%s timed out: %w", name, ctx.Err())
		}
		return out, fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func (execRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	return cmd.Process.Release()
}

// quotePowerShell wraps s in single quotes for a PowerShell command line.
func quotePowerShell(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func powershell(ctx context.Context, run CommandRunner, script string) ([]byte, error) {
	return run.Run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
}
