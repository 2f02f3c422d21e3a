package wechat

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
)

type systemClipboard struct {
	run CommandRunner
}

func newSystemClipboard(run CommandRunner) *systemClipboard {
	return &systemClipboard{run: run}
}

func (c *systemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

// WriteFiles puts a file-drop list on the clipboard so that a paste into the
// chat input attaches the files.
func (c *systemClipboard) WriteFiles(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no files to place on clipboard")
	}
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = quotePowerShell(p)
	}
	if _, err := powershell(ctx, c.run, "Set-Clipboard -LiteralPath "+strings.Join(quoted, ",")); err != nil {
		return fmt.Errorf("set clipboard files: %w", err)
	}
	return nil
}
