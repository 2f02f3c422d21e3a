package api

import (
	"context"

	"wxsend/internal/model"
	"wxsend/internal/repository"

	"go.uber.org/zap"
)

// history mirrors job progress into the delivery repository. Storage
// failures are logged and never reach the HTTP caller.
type history struct {
	repo repository.DeliveryRepository
	log  *zap.Logger
}

func newHistory(repo repository.DeliveryRepository, log *zap.Logger) *history {
	if repo == nil {
		log.Warn("no delivery repository configured, using in-memory history")
		repo = repository.NewMemoryRepository()
	}
	return &history{repo: repo, log: log}
}

func (h *history) start(ctx context.Context, d *model.Delivery) {
	if err := h.repo.Create(context.WithoutCancel(ctx), d); err != nil {
		h.log.Warn("failed to record delivery", zap.String("id", d.ID.String()), zap.Error(err))
	}
}

func (h *history) finish(ctx context.Context, d *model.Delivery, err error) {
	d.Finish(err)
	if uerr := h.repo.UpdateResult(context.WithoutCancel(ctx), d); uerr != nil {
		h.log.Warn("failed to update delivery",
			zap.String("id", d.ID.String()),
			zap.String("status", d.Status),
			zap.Error(uerr))
		return
	}
	h.log.Debug("delivery updated", zap.String("id", d.ID.String()), zap.String("status", d.Status))
}
