package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Downloader fetches remote audio into a local directory
type Downloader struct {
	client *http.Client
	log    *zap.Logger
}

// NewDownloader creates a downloader whose requests time out after timeout
func NewDownloader(timeout time.Duration, log *zap.Logger) *Downloader {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		log.Warn("http2 not enabled for downloads", zap.Error(err))
	}
	return &Downloader{
		client: &http.Client{Transport: tr, Timeout: timeout},
		log:    log,
	}
}

// Download saves the body of url as dir/name and returns the local path and size
func (d *Downloader) Download(ctx context.Context, url, dir, name string) (string, int64, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create %s directory: %w", dir, err)
	}
	dst := filepath.Join(dir, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", 0, fmt.Errorf("failed to save file: %w", err)
	}

	d.log.Info("audio downloaded",
		zap.String("url", url),
		zap.String("path", dst),
		zap.Int64("bytes", n),
		zap.Duration("elapsed", time.Since(start)))
	return dst, n, nil
}

// CloseIdleConnections drops pooled connections held by the download client
func (d *Downloader) CloseIdleConnections() {
	d.client.CloseIdleConnections()
}
