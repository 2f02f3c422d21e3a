package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"wxsend/internal/model"
	"wxsend/internal/platform"
	"wxsend/internal/recorder"
	"wxsend/internal/repository"
	"wxsend/internal/wechat"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDownloader struct {
	err   error
	calls []string
}

func (f *fakeDownloader) Download(_ context.Context, url, dir, name string) (string, int64, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return "", 0, f.err
	}
	return dir + "/" + name, 1024, nil
}

type fakeSender struct {
	ensureErr error
	sendErr   error
	sent      []wechat.Message
}

func (s *fakeSender) Name() string                        { return "fake" }
func (s *fakeSender) EnsureRunning(context.Context) error { return s.ensureErr }
func (s *fakeSender) Send(_ context.Context, msg wechat.Message) error {
	s.sent = append(s.sent, msg)
	return s.sendErr
}

type fakeRecorder struct {
	path string
	err  error
	got  []recorder.Request
}

func (r *fakeRecorder) Record(_ context.Context, req recorder.Request) (string, error) {
	r.got = append(r.got, req)
	return r.path, r.err
}

type fakeNotifier struct{ titles []string }

func (n *fakeNotifier) Notify(title, _ string) { n.titles = append(n.titles, title) }

type fixture struct {
	router     *gin.Engine
	downloader *fakeDownloader
	sender     *fakeSender
	recorder   *fakeRecorder
	repo       repository.DeliveryRepository
	notifier   *fakeNotifier
}

func newFixture(t *testing.T, info platform.Info) *fixture {
	t.Helper()
	f := &fixture{
		downloader: &fakeDownloader{},
		sender:     &fakeSender{},
		recorder:   &fakeRecorder{path: "recordings/recording_20240105_093000.webm"},
		repo:       repository.NewMemoryRepository(),
		notifier:   &fakeNotifier{},
	}
	h := NewHandler(Options{
		Platform:    info,
		NewSender:   func() (wechat.Sender, error) { return f.sender, nil },
		Downloader:  f.downloader,
		DownloadDir: "downloads",
		Recorder:    f.recorder,
		Repository:  f.repo,
		Notifier:    f.notifier,
		Logger:      zap.NewNop(),
	})
	h.now = func() time.Time { return time.Date(2024, 10, 5, 9, 0, 0, 0, time.Local) }

	f.router = gin.New()
	RegisterRoutes(f.router, h)
	return f
}

func (f *fixture) do(req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func jsonRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/send", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/record", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

var windows = platform.New(platform.Windows, "10", "10.0.19045")

func TestHealth(t *testing.T) {
	f := newFixture(t, windows)
	w, body := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "wxsend", body["service"])
}

func TestPlatform(t *testing.T) {
	f := newFixture(t, platform.New(platform.Darwin, "23.4.0", "Darwin Kernel Version 23.4.0"))
	w, body := f.do(httptest.NewRequest(http.MethodGet, "/platform", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Darwin", body["platform"])
	assert.Equal(t, "23.4.0", body["platform_release"])
	assert.Equal(t, "Darwin Kernel Version 23.4.0", body["platform_version"])
	assert.Equal(t, true, body["supported"])
	assert.Equal(t, "AppleScript", body["wechat_method"])
}

func TestSendMissingParameters(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no group", `{"audio_url":"http://x/a.mp3"}`},
		{"no url", `{"group_name":"Team"}`},
		{"blank group", `{"group_name":"  ","audio_url":"http://x/a.mp3"}`},
		{"empty object", `{}`},
		{"not json", `group_name=Team`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, windows)
			w, body := f.do(jsonRequest(tt.body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, "missing parameter: group_name or audio_url", body["msg"])
			assert.Empty(t, f.downloader.calls)
		})
	}
}

func TestSendUnsupportedPlatform(t *testing.T) {
	f := newFixture(t, platform.New(platform.Linux, "6.1.0", "#1 SMP"))
	w, body := f.do(jsonRequest(`{"group_name":"Team","audio_url":"http://x/a.mp3"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unsupported platform: Linux", body["msg"])
	assert.Empty(t, f.downloader.calls, "nothing is downloaded on unsupported hosts")
}

func TestSendSuccess(t *testing.T) {
	f := newFixture(t, windows)
	w, body := f.do(jsonRequest(`{"group_name":"Team","audio_url":"http://x/a.mp3","message":"早安:news?"}`))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "sent successfully", body["msg"])

	assert.Equal(t, []string{"10月5日早安_news_.mp3"}, f.downloader.calls)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, wechat.Message{
		Group:    "Team",
		Text:     "早安:news?",
		FilePath: "downloads/10月5日早安_news_.mp3",
	}, f.sender.sent[0])
	assert.Equal(t, []string{"WeChat message sent"}, f.notifier.titles)

	items, err := f.repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.StatusSuccess, items[0].Status)
	assert.Equal(t, model.KindSend, items[0].Kind)
	assert.Equal(t, "downloads/10月5日早安_news_.mp3", items[0].LocalPath)
}

func TestSendDownloadFailure(t *testing.T) {
	f := newFixture(t, windows)
	f.downloader.err = errors.New("unexpected status 404")

	w, body := f.do(jsonRequest(`{"group_name":"Team","audio_url":"http://x/a.mp3"}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to download audio: unexpected status 404", body["msg"])
	assert.Empty(t, f.sender.sent)

	items, err := f.repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.StatusFailed, items[0].Status)
}

func TestSendAutomationFailure(t *testing.T) {
	t.Run("client not running", func(t *testing.T) {
		f := newFixture(t, windows)
		f.sender.ensureErr = wechat.ErrChatNotRunning
		w, body := f.do(jsonRequest(`{"group_name":"Team","audio_url":"http://x/a.mp3"}`))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "failed to send WeChat message: "+wechat.ErrChatNotRunning.Error(), body["msg"])
		assert.Empty(t, f.sender.sent)
		assert.Equal(t, []string{"WeChat send failed"}, f.notifier.titles)
	})

	t.Run("send error", func(t *testing.T) {
		f := newFixture(t, windows)
		f.sender.sendErr = errors.New("send file: clipboard busy")
		w, body := f.do(jsonRequest(`{"group_name":"Team","audio_url":"http://x/a.mp3"}`))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "failed to send WeChat message: send file: clipboard busy", body["msg"])
	})
}

func TestSendSenderUnavailable(t *testing.T) {
	h := NewHandler(Options{
		Platform:   windows,
		Downloader: &fakeDownloader{},
		NewSender: func() (wechat.Sender, error) {
			return nil, errors.New("keyboard automation: input unavailable")
		},
	})
	r := gin.New()
	RegisterRoutes(r, h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(`{"group_name":"Team","audio_url":"http://x/a.mp3"}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "keyboard automation")
}

func TestRecord(t *testing.T) {
	t.Run("missing html", func(t *testing.T) {
		f := newFixture(t, windows)
		w, body := f.do(formRequest(url.Values{"audio_url": {"http://x/a.mp3"}}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "missing parameter: html_content", body["msg"])
	})

	t.Run("blank html", func(t *testing.T) {
		f := newFixture(t, windows)
		w, body := f.do(formRequest(url.Values{"html_content": {" \n\t "}, "audio_url": {"http://x/a.mp3"}}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "missing parameter: html_content", body["msg"])
		assert.Empty(t, f.recorder.got)
	})

	t.Run("missing audio", func(t *testing.T) {
		f := newFixture(t, windows)
		w, body := f.do(formRequest(url.Values{"html_content": {"<p></p>"}}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "missing parameter: audio_url", body["msg"])
	})

	t.Run("invalid duration", func(t *testing.T) {
		f := newFixture(t, windows)
		w, _ := f.do(formRequest(url.Values{"html_content": {"<p></p>"}, "audio_url": {"a"}, "duration": {"-3"}}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, f.recorder.got)
	})

	t.Run("success", func(t *testing.T) {
		f := newFixture(t, platform.New(platform.Linux, "", ""))
		w, body := f.do(formRequest(url.Values{
			"html_content": {"<audio src='{{AUDIO_URL}}'></audio>"},
			"audio_url":    {"http://x/a.mp3"},
			"duration":     {"12.5"},
		}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "success", body["status"])
		assert.Equal(t, "recording finished", body["msg"])
		assert.Equal(t, "recordings/recording_20240105_093000.webm", body["file_path"])

		require.Len(t, f.recorder.got, 1)
		assert.Equal(t, 12500*time.Millisecond, f.recorder.got[0].Duration)
		assert.Equal(t, "http://x/a.mp3", f.recorder.got[0].AudioURL)
	})

	t.Run("failure", func(t *testing.T) {
		f := newFixture(t, windows)
		f.recorder.err = errors.New("launch browser: not found")
		w, body := f.do(formRequest(url.Values{"html_content": {"<p></p>"}, "audio_url": {"a"}}))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "recording failed: launch browser: not found", body["msg"])
	})
}

func TestDeliveries(t *testing.T) {
	f := newFixture(t, windows)
	for i := 0; i < 3; i++ {
		w, _ := f.do(jsonRequest(`{"group_name":"Team","audio_url":"http://x/a.mp3"}`))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, body := f.do(httptest.NewRequest(http.MethodGet, "/deliveries?limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["count"])
	assert.EqualValues(t, 2, body["limit"])
	items := body["items"].([]any)
	require.Len(t, items, 2)

	id := items[0].(map[string]any)["id"].(string)
	w, body = f.do(httptest.NewRequest(http.MethodGet, "/deliveries/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	delivery := body["delivery"].(map[string]any)
	assert.Equal(t, id, delivery["id"])
	assert.Equal(t, "success", delivery["status"])

	w, _ = f.do(httptest.NewRequest(http.MethodGet, "/deliveries?limit=500&offset=-1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(httptest.NewRequest(http.MethodGet, "/deliveries/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(httptest.NewRequest(http.MethodGet, "/deliveries/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/health", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
