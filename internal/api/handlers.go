package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"wxsend/internal/notify"
	"wxsend/internal/platform"
	"wxsend/internal/recorder"
	"wxsend/internal/repository"
	"wxsend/internal/wechat"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Downloader fetches a remote file into dir/name.
type Downloader interface {
	Download(ctx context.Context, url, dir, name string) (string, int64, error)
}

// Recorder records an HTML page while its audio plays.
type Recorder interface {
	Record(ctx context.Context, req recorder.Request) (string, error)
}

// Options wires a Handler.
type Options struct {
	Platform    platform.Info
	NewSender   func() (wechat.Sender, error)
	Downloader  Downloader
	DownloadDir string
	Recorder    Recorder
	Repository  repository.DeliveryRepository
	Notifier    notify.Notifier
	Logger      *zap.Logger
}

// Handler serves the HTTP endpoints.
type Handler struct {
	platform    platform.Info
	downloader  Downloader
	downloadDir string
	recorder    Recorder
	history     *history
	notifier    notify.Notifier
	log         *zap.Logger
	now         func() time.Time

	newSender  func() (wechat.Sender, error)
	senderOnce sync.Once
	sender     wechat.Sender
	senderErr  error
}

func NewHandler(opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	n := opts.Notifier
	if n == nil {
		n = notify.Nop{}
	}
	newSender := opts.NewSender
	if newSender == nil {
		newSender = func() (wechat.Sender, error) {
			return nil, fmt.Errorf("%w: %s", wechat.ErrUnsupportedPlatform, opts.Platform.Platform)
		}
	}
	return &Handler{
		platform:    opts.Platform,
		downloader:  opts.Downloader,
		downloadDir: opts.DownloadDir,
		recorder:    opts.Recorder,
		history:     newHistory(opts.Repository, log.Named("history")),
		notifier:    n,
		log:         log,
		now:         time.Now,
		newSender:   newSender,
	}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/health", h.healthCheck)
	r.GET("/platform", h.platformInfo)

	r.POST("/send", h.send)
	r.POST("/record", h.record)

	r.GET("/deliveries", h.listDeliveries)
	r.GET("/deliveries/:id", h.getDelivery)
}

// getSender returns the chat sender, created on first use.
func (h *Handler) getSender() (wechat.Sender, error) {
	h.senderOnce.Do(func() {
		h.sender, h.senderErr = h.newSender()
		if h.senderErr != nil {
			h.log.Error("failed to create WeChat sender", zap.Error(h.senderErr))
			return
		}
		h.log.Info("WeChat sender initialized", zap.String("method", h.sender.Name()))
	})
	return h.sender, h.senderErr
}

// healthCheck returns server health status
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "wxsend",
	})
}

// platformInfo reports the host OS and whether sending is supported there
func (h *Handler) platformInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.platform)
}
