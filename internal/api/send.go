package api

import (
	"errors"
	"net/http"
	"strings"

	"wxsend/internal/model"
	"wxsend/internal/storage"
	"wxsend/internal/utils"
	"wxsend/internal/wechat"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SendRequest is the body of POST /send.
type SendRequest struct {
	GroupName string `json:"group_name"`
	AudioURL  string `json:"audio_url"`
	Message   string `json:"message"`
}

// send downloads the audio and delivers it, with the optional text, to a chat
func (h *Handler) send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.GroupName) == "" || strings.TrimSpace(req.AudioURL) == "" {
		utils.Error(c, http.StatusBadRequest, "missing parameter: group_name or audio_url")
		return
	}

	if !h.platform.Supported {
		utils.Error(c, http.StatusBadRequest, "unsupported platform: "+h.platform.Platform)
		return
	}

	ctx := c.Request.Context()
	log := h.log.Named("send").With(zap.String("group", req.GroupName))

	d := model.NewDelivery(model.KindSend, h.platform.Platform, req.AudioURL)
	d.GroupName = req.GroupName
	d.Message = req.Message
	h.history.start(ctx, d)

	name := storage.AudioFileName(h.now(), req.Message)
	log.Info("downloading audio", zap.String("url", req.AudioURL), zap.String("file", name))
	path, size, err := h.downloader.Download(ctx, req.AudioURL, h.downloadDir, name)
	if err != nil {
		log.Error("download failed", zap.Error(err))
		h.history.finish(ctx, d, err)
		utils.Error(c, http.StatusInternalServerError, "failed to download audio: "+err.Error())
		return
	}
	d.LocalPath = path
	log.Info("audio downloaded", zap.String("path", path), zap.Int64("bytes", size))

	if err := h.deliver(c, req, path); err != nil {
		log.Error("send failed", zap.Error(err))
		h.history.finish(ctx, d, err)
		h.notifier.Notify("WeChat send failed", req.GroupName+": "+err.Error())
		code := http.StatusInternalServerError
		if errors.Is(err, wechat.ErrUnsupportedPlatform) {
			code = http.StatusBadRequest
		}
		utils.Error(c, code, "failed to send WeChat message: "+err.Error())
		return
	}

	h.history.finish(ctx, d, nil)
	h.notifier.Notify("WeChat message sent", req.GroupName)
	log.Info("sent successfully")
	utils.Success(c, "sent successfully", nil)
}

func (h *Handler) deliver(c *gin.Context, req SendRequest, path string) error {
	sender, err := h.getSender()
	if err != nil {
		return err
	}
	ctx := c.Request.Context()
	if err := sender.EnsureRunning(ctx); err != nil {
		return err
	}
	return sender.Send(ctx, wechat.Message{
		Group:    req.GroupName,
		Text:     req.Message,
		FilePath: path,
	})
}
