// Package notify shows desktop notifications for finished jobs.
package notify

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Notifier reports job outcomes to the desktop user.
type Notifier interface {
	Notify(title, message string)
}

// New returns a desktop notifier, or a no-op one when disabled.
func New(enabled bool, log *zap.Logger) Notifier {
	if !enabled {
		return Nop{}
	}
	return &desktop{log: log.Named("notify"), show: func(title, message string) error {
		return beeep.Notify(title, message, "")
	}}
}

type desktop struct {
	log  *zap.Logger
	show func(title, message string) error
}

// Notify never fails the caller; delivery errors are logged.
func (d *desktop) Notify(title, message string) {
	if err := d.show(title, message); err != nil {
		d.log.Warn("desktop notification failed", zap.String("title", title), zap.Error(err))
	}
}

type Nop struct{}

func (Nop) Notify(string, string) {}
