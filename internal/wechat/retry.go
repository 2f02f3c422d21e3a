package wechat

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// retryFixed calls fn up to attempts times, waiting delay between failures.
// The error of the last attempt is returned.
func retryFixed(ctx context.Context, attempts int, delay time.Duration, log *zap.Logger, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		log.Debug("sending file", zap.Int("attempt", attempt))
		if err = fn(); err == nil {
			log.Info("file sent", zap.Int("attempt", attempt))
			return nil
		}
		log.Warn("file send failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt == attempts {
			break
		}
		if perr := pause(ctx, delay); perr != nil {
			return perr
		}
	}
	return err
}
