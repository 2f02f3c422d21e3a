package recorder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// encoder feeds JPEG frames to ffmpeg on stdin and writes VP8 WebM.
type encoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
}

func ffmpegArgs(fps int, out string) []string {
	return []string{
		"-y", "-loglevel", "error",
		"-f", "image2pipe", "-framerate", strconv.Itoa(fps), "-c:v", "mjpeg", "-i", "-",
		"-c:v", "libvpx", "-b:v", "1M", "-pix_fmt", "yuv420p",
		"-an", out,
	}
}

func startEncoder(ctx context.Context, ffmpeg string, fps int, out string) (*encoder, error) {
	e := &encoder{cmd: exec.CommandContext(ctx, ffmpeg, ffmpegArgs(fps, out)...)}
	e.cmd.Stderr = &e.stderr
	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	e.stdin = stdin
	if err := e.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	return e, nil
}

func (e *encoder) Write(frame []byte) (int, error) {
	return e.stdin.Write(frame)
}

// Finish closes the input and waits for ffmpeg to flush the file.
func (e *encoder) Finish() error {
	e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(e.stderr.String()))
	}
	return nil
}

func (e *encoder) Abort() {
	e.stdin.Close()
	if e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	_ = e.cmd.Wait()
}

// pumpFrames writes the latest frame fps times per second so the output keeps
// wall-clock timing even when the page is static. The duration is counted
// from the first written frame; when no frame arrives within firstFrame it
// returns zero frames.
func pumpFrames(ctx context.Context, src *latestFrame, w io.Writer, fps int, duration, firstFrame time.Duration) (int, error) {
	if fps <= 0 {
		fps = 25
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	startup := time.NewTimer(firstFrame)
	defer startup.Stop()

	var (
		deadline <-chan time.Time
		written  int
	)
	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		case <-startup.C:
			if written == 0 {
				return 0, nil
			}
		case <-deadline:
			return written, nil
		case <-ticker.C:
			frame := src.get()
			if frame == nil {
				continue
			}
			if _, err := w.Write(frame); err != nil {
				return written, err
			}
			if written == 0 {
				stop := time.NewTimer(duration)
				defer stop.Stop()
				deadline = stop.C
			}
			written++
		}
	}
}
