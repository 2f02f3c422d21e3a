package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"wxsend/internal/model"
	"wxsend/internal/recorder"
	"wxsend/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// record renders html_content, plays audio_url and records the page
func (h *Handler) record(c *gin.Context) {
	html := c.PostForm("html_content")
	audioURL := c.PostForm("audio_url")
	if strings.TrimSpace(html) == "" {
		utils.Error(c, http.StatusBadRequest, "missing parameter: html_content")
		return
	}
	if strings.TrimSpace(audioURL) == "" {
		utils.Error(c, http.StatusBadRequest, "missing parameter: audio_url")
		return
	}

	var duration time.Duration
	if v := c.PostForm("duration"); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil || secs <= 0 {
			utils.Error(c, http.StatusBadRequest, "invalid parameter: duration")
			return
		}
		duration = time.Duration(secs * float64(time.Second))
	}

	ctx := c.Request.Context()
	log := h.log.Named("record")
	log.Info("recording requested", zap.String("audio_url", audioURL))

	d := model.NewDelivery(model.KindRecord, h.platform.Platform, audioURL)
	h.history.start(ctx, d)

	path, err := h.recorder.Record(ctx, recorder.Request{
		HTML:     html,
		AudioURL: audioURL,
		Duration: duration,
	})
	if err != nil {
		log.Error("recording failed", zap.Error(err))
		h.history.finish(ctx, d, err)
		utils.Error(c, http.StatusInternalServerError, "recording failed: "+err.Error())
		return
	}

	d.LocalPath = path
	h.history.finish(ctx, d, nil)
	utils.Success(c, "recording finished", gin.H{"file_path": path})
}
