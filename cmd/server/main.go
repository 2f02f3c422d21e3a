package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wxsend/internal/api"
	"wxsend/internal/config"
	"wxsend/internal/logging"
	"wxsend/internal/notify"
	"wxsend/internal/platform"
	"wxsend/internal/recorder"
	"wxsend/internal/repository"
	"wxsend/internal/storage"
	"wxsend/internal/wechat"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	port       string
	headless   bool
	verbose    bool
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "wxsend",
	Short: "Local HTTP service that sends audio into WeChat chats",
	Long: `wxsend downloads an audio file and posts it, with an optional text
message, into a WeChat group by driving the desktop client (keyboard and
clipboard automation on Windows, AppleScript on macOS).

It can also record an HTML page while it plays audio (POST /record).`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (overrides PORT)")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "Run the recording browser headless")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load .env file if it exists
	envErr := godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}
	if cmd.Flags().Changed("headless") {
		cfg.Recorder.Headless = headless
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if envErr != nil {
		logger.Debug("no .env file found, using environment variables")
	}

	gin.SetMode(cfg.GinMode)

	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	info := platform.Detect()
	logger.Info("platform detected",
		zap.String("platform", info.Platform),
		zap.String("release", info.Release),
		zap.Bool("supported", info.Supported),
		zap.String("method", info.Method))
	if !info.Supported {
		logger.Warn("WeChat automation is not available on this platform, /send will be rejected")
	}

	downloader := storage.NewDownloader(cfg.DownloadTimeout, logger.Named("download"))
	defer downloader.CloseIdleConnections()

	handler := api.NewHandler(api.Options{
		Platform: info,
		NewSender: func() (wechat.Sender, error) {
			return wechat.NewSender(info.Platform, cfg.WeChat, logger.Named("wechat"))
		},
		Downloader:  downloader,
		DownloadDir: cfg.DownloadDir,
		Recorder:    recorder.New(cfg.Recorder, logger),
		Repository:  repo,
		Notifier:    notify.New(cfg.Notify, logger),
		Logger:      logger,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(api.RequestLogger(logger.Named("http")))
	r.Use(api.CORSMiddleware())
	api.RegisterRoutes(r, handler)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("wxsend running",
			zap.String("addr", srv.Addr),
			zap.Strings("endpoints", []string{"POST /send", "POST /record", "GET /platform", "GET /health", "GET /deliveries"}))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openRepository picks SQLite when DATABASE_PATH is set, memory otherwise.
func openRepository(cfg *config.Config) (repository.DeliveryRepository, error) {
	if cfg.DatabasePath == "" {
		logger.Info("DATABASE_PATH not set, keeping delivery history in memory")
		return repository.NewMemoryRepository(), nil
	}
	repo, err := repository.NewSQLiteRepository(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open delivery history: %w", err)
	}
	logger.Info("delivery history stored in SQLite", zap.String("path", cfg.DatabasePath))
	return repo, nil
}
