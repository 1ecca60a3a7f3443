package ntfy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipsync/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Sender: config.SenderConfig{
			Enabled:               true,
			PollIntervalSeconds:   1,
			RequestTimeoutSeconds: 5,
			FilenamePrefix:        "clipboard_",
		},
		Receiver: config.ReceiverConfig{
			Enabled:               true,
			Server:                "example.com",
			Topic:                 "t",
			ReconnectDelaySeconds: 5,
			RequestTimeoutSeconds: 5,
		},
		MacOS: config.MacOSConfig{
			ImageUTIMap: map[string]string{".png": "public.png", ".jpg": "public.jpeg"},
		},
	}
}

func TestPublishText(t *testing.T) {
	var got *http.Request
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Sender.TopicURL = srv.URL + "/mytopic"
	c := New(cfg, srv.Client())
	c.now = func() time.Time { return time.Date(2024, 1, 2, 13, 4, 5, 0, time.Local) }

	require.True(t, c.PublishText(context.Background(), "hello 世界"))
	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/mytopic", got.URL.Path)
	assert.Equal(t, "hello 世界", body)
	assert.Equal(t, "text/plain; charset=utf-8", got.Header.Get("Content-Type"))
	assert.Equal(t, "Clipboard Text (13:04:05)", got.Header.Get("Title"))
	assert.Regexp(t, regexp.MustCompile(`^clipboard_[0-9a-f]{8}\.txt$`), got.Header.Get("Filename"))
}

func TestPublishTextRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("x", 2000), http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Sender.TopicURL = srv.URL
	assert.False(t, New(cfg, srv.Client()).PublishText(context.Background(), "hi"))
}

func TestPublishTextNoRequest(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Sender.TopicURL = srv.URL
	c := New(cfg, srv.Client())
	assert.False(t, c.PublishText(context.Background(), ""))

	cfg.Sender.TopicURL = ""
	assert.False(t, New(cfg, srv.Client()).PublishText(context.Background(), "hi"))
	assert.Zero(t, calls)
}

func TestPublishTextTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig()
	cfg.Sender.TopicURL = srv.URL
	cfg.Sender.RequestTimeoutSeconds = 0.1
	start := time.Now()
	assert.False(t, New(cfg, srv.Client()).PublishText(context.Background(), "hi"))
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestPublishTextNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := testConfig()
	cfg.Sender.TopicURL = url
	assert.False(t, New(cfg, http.DefaultClient).PublishText(context.Background(), "hi"))
}

func TestFetchAttachment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/file/ok.txt":
			w.Header().Set("Content-Type", "Text/Plain; Charset=UTF-8")
			_, _ = w.Write([]byte("payload"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(testConfig(), srv.Client())

	body, ct, ok := c.FetchAttachment(context.Background(), srv.URL+"/file/ok.txt")
	require.True(t, ok)
	assert.Equal(t, "payload", string(body))
	assert.Equal(t, "text/plain; charset=utf-8", ct)

	_, _, ok = c.FetchAttachment(context.Background(), srv.URL+"/file/missing")
	assert.False(t, ok)
}

func TestFetchAttachmentRelative(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/file/abc" {
			_, _ = w.Write([]byte("rel"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Receiver.Server = srv.URL // http://127.0.0.1:port
	body, _, ok := New(cfg, srv.Client()).FetchAttachment(context.Background(), "/file/abc")
	require.True(t, ok)
	assert.Equal(t, "rel", string(body))
}

func TestFetchAttachmentUnresolvable(t *testing.T) {
	cfg := testConfig()
	cfg.Receiver.Server = ""
	_, _, ok := New(cfg, http.DefaultClient).FetchAttachment(context.Background(), "/file/abc")
	assert.False(t, ok)
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name   string
		server string
		raw    string
		want   string
		ok     bool
	}{
		{"absolute https", "example.com", "https://other.org/x", "https://other.org/x", true},
		{"absolute http", "", "http://other.org/x", "http://other.org/x", true},
		{"root relative", "example.com", "/file/abc", "https://example.com/file/abc", true},
		{"protocol relative", "example.com", "//cdn.example.com/f", "https://cdn.example.com/f", true},
		{"bare path", "example.com", "file/abc", "https://example.com/file/abc", true},
		{"http server", "http://example.com", "/f", "http://example.com/f", true},
		{"http server protocol relative", "http://example.com", "//h/f", "http://h/f", true},
		{"https server prefix stripped", "https://example.com/", "/f", "https://example.com/f", true},
		{"no server", "", "/file/abc", "", false},
		{"empty", "example.com", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Receiver.Server = tt.server
			got, ok := New(cfg, http.DefaultClient).ResolveURL(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
