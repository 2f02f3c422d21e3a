package api

import (
	"errors"
	"net/http"
	"strconv"

	"wxsend/internal/repository"
	"wxsend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// listDeliveries handles GET /deliveries
func (h *Handler) listDeliveries(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100 // Max limit
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	items, err := h.history.repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error("failed to list deliveries", zap.Error(err))
		utils.Error(c, http.StatusInternalServerError, "failed to retrieve history")
		return
	}

	utils.Success(c, "ok", gin.H{
		"items":  items,
		"limit":  limit,
		"offset": offset,
		"count":  len(items),
	})
}

// getDelivery handles GET /deliveries/:id
func (h *Handler) getDelivery(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid id format")
		return
	}

	d, err := h.history.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		utils.Error(c, http.StatusNotFound, "delivery not found")
		return
	}
	if err != nil {
		h.log.Error("failed to get delivery", zap.String("id", id.String()), zap.Error(err))
		utils.Error(c, http.StatusInternalServerError, "failed to retrieve delivery")
		return
	}

	utils.Success(c, "ok", gin.H{"delivery": d})
}
