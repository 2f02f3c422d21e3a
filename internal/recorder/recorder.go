// Package recorder renders an HTML page in Chromium, starts the audio it
// embeds and records the page to a WebM file.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"wxsend/internal/storage"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AudioPlaceholder is replaced with the audio URL before the page is opened.
const AudioPlaceholder = "{{AUDIO_URL}}"

var (
	ErrMissingHTML  = errors.New("missing parameter: html_content")
	ErrMissingAudio = errors.New("missing parameter: audio_url")
	ErrNoFrames     = errors.New("no video frames captured")
)

// Config controls the browser and the encoder.
type Config struct {
	BrowserBin   string        `yaml:"browser_bin"`
	Headless     bool          `yaml:"headless"`
	FFmpegPath   string        `yaml:"ffmpeg_path"`
	OutputDir    string        `yaml:"output_dir"`
	Duration     time.Duration `yaml:"duration"`
	Settle       time.Duration `yaml:"settle"`
	Width        int           `yaml:"width"`
	Height       int           `yaml:"height"`
	FrameRate    int           `yaml:"frame_rate"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"` // per play-control probe
	FrameTimeout time.Duration `yaml:"frame_timeout"` // wait for the first screencast frame
}

func DefaultConfig() Config {
	return Config{
		FFmpegPath:   "ffmpeg",
		OutputDir:    "recordings",
		Duration:     30 * time.Second,
		Settle:       2 * time.Second,
		Width:        1280,
		Height:       720,
		FrameRate:    25,
		ProbeTimeout: 5 * time.Second,
		FrameTimeout: 10 * time.Second,
	}
}

// Request is one recording job. A zero Duration uses the configured default.
type Request struct {
	HTML     string
	AudioURL string
	Duration time.Duration
}

type Recorder struct {
	cfg Config
	log *zap.Logger
	now func() time.Time
}

func New(cfg Config, log *zap.Logger) *Recorder {
	return &Recorder{cfg: cfg, log: log.Named("recorder"), now: time.Now}
}

// Record plays the page and returns the path of the written video. On
// failure no output file is left behind.
func (r *Recorder) Record(ctx context.Context, req Request) (path string, err error) {
	if strings.TrimSpace(req.HTML) == "" {
		return "", ErrMissingHTML
	}
	if strings.TrimSpace(req.AudioURL) == "" {
		return "", ErrMissingAudio
	}
	duration := req.Duration
	if duration <= 0 {
		duration = r.cfg.Duration
	}

	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create recording dir: %w", err)
	}
	out := uniquePath(r.cfg.OutputDir, storage.RecordingFileName(r.now()))

	htmlPath, err := writeTempHTML(renderHTML(req.HTML, req.AudioURL))
	if err != nil {
		return "", err
	}
	defer os.Remove(htmlPath)

	log := r.log.With(zap.String("output", out), zap.Duration("duration", duration))
	log.Info("recording started", zap.String("audio_url", req.AudioURL))

	defer func() {
		if err != nil {
			if rmErr := os.Remove(out); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				log.Warn("could not remove partial recording", zap.Error(rmErr))
			}
		}
	}()

	if err := r.capture(ctx, log, fileURL(htmlPath), out, duration); err != nil {
		return "", err
	}
	log.Info("recording finished")
	return out, nil
}

func (r *Recorder) capture(ctx context.Context, log *zap.Logger, pageURL, out string, duration time.Duration) error {
	l := launcher.New().
		Context(ctx).
		Headless(r.cfg.Headless).
		Set(flags.Flag("autoplay-policy"), "no-user-gesture-required")
	if r.cfg.BrowserBin != "" {
		l = l.Bin(r.cfg.BrowserBin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer l.Cleanup()
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             r.cfg.Width,
		Height:            r.cfg.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}
	if err := page.Navigate(pageURL); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for load: %w", err)
	}
	log.Debug("page loaded")
	if err := sleep(ctx, r.cfg.Settle); err != nil {
		return err
	}

	frames := &latestFrame{}
	streamCtx, stopStream := context.WithCancel(ctx)
	wait := page.Context(streamCtx).EachEvent(func(e *proto.PageScreencastFrame) {
		frames.set(e.Data)
		_ = proto.PageScreencastFrameAck{SessionID: e.SessionID}.Call(page)
	})
	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		wait()
	}()
	defer func() {
		stopStream()
		<-streamDone
	}()

	width, height := r.cfg.Width, r.cfg.Height
	if err := (proto.PageStartScreencast{
		Format:    proto.PageStartScreencastFormatJpeg,
		MaxWidth:  &width,
		MaxHeight: &height,
	}).Call(page); err != nil {
		return fmt.Errorf("start screencast: %w", err)
	}
	defer func() { _ = proto.PageStopScreencast{}.Call(page) }()

	enc, err := startEncoder(ctx, r.cfg.FFmpegPath, r.cfg.FrameRate, out)
	if err != nil {
		return err
	}

	if matched := play(page, r.cfg.ProbeTimeout, log); matched != "" {
		log.Info("playback started", zap.String("selector", matched))
	} else {
		log.Info("no play control found, started media via script")
	}

	written, err := pumpFrames(ctx, frames, enc, r.cfg.FrameRate, duration, r.cfg.FrameTimeout)
	if err != nil {
		enc.Abort()
		return fmt.Errorf("write frames: %w", err)
	}
	if written == 0 {
		enc.Abort()
		return ErrNoFrames
	}
	if err := enc.Finish(); err != nil {
		return err
	}
	log.Debug("encoder finished", zap.Int("frames", written))
	return nil
}

// renderHTML substitutes every audio placeholder.
func renderHTML(html, audioURL string) string {
	return strings.ReplaceAll(html, AudioPlaceholder, audioURL)
}

func writeTempHTML(content string) (string, error) {
	f, err := os.CreateTemp("", "wxsend-*.html")
	if err != nil {
		return "", fmt.Errorf("create temp page: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp page: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp page: %w", err)
	}
	return f.Name(), nil
}

// fileURL converts a local path to a file:// URL, including Windows drive paths.
func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// uniquePath returns dir/name, or a suffixed variant when that file exists.
func uniquePath(dir, name string) string {
	p := filepath.Join(dir, name)
	if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
		return p
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return filepath.Join(dir, base+"_"+uuid.NewString()[:8]+ext)
}

// latestFrame keeps the most recent screencast frame.
type latestFrame struct {
	mu   sync.Mutex
	data []byte
}

func (f *latestFrame) set(b []byte) {
	f.mu.Lock()
	f.data = b
	f.mu.Unlock()
}

func (f *latestFrame) get() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
