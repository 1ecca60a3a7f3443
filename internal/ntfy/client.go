// Package ntfy talks HTTP to an ntfy server: publishing clipboard text as a
// file attachment and downloading attachments announced on a subscription.
package ntfy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"go.klb.dev/clipsync/internal/config"
)

// MaxAttachmentSize caps downloaded attachment bodies.
const MaxAttachmentSize = 32 << 20

// errorBodyLimit caps how much of a failed response is logged.
const errorBodyLimit = 500

// Client publishes to and downloads from an ntfy server. It is safe for
// concurrent use; both loops share one Client and one *http.Client.
type Client struct {
	hc *http.Client

	topicURL     string
	prefix       string
	sendTimeout  time.Duration
	fetchTimeout time.Duration

	receiver  config.ReceiverConfig
	imageExts map[string]string

	now func() time.Time
}

// New returns a Client for cfg. hc must not be nil.
func New(cfg *config.Config, hc *http.Client) *Client {
	return &Client{
		hc:           hc,
		topicURL:     strings.TrimSpace(cfg.Sender.TopicURL),
		prefix:       cfg.Sender.FilenamePrefix,
		sendTimeout:  cfg.Sender.RequestTimeout(),
		fetchTimeout: cfg.Receiver.RequestTimeout(),
		receiver:     cfg.Receiver,
		imageExts:    cfg.MacOS.ImageUTIMap,
		now:          time.Now,
	}
}

// PublishText posts text to the sender topic as a .txt attachment and
// reports whether the server answered 2xx. Failures are logged, never
// retried.
func (c *Client) PublishText(ctx context.Context, text string) bool {
	if c.topicURL == "" {
		slog.Error("sender topic URL not configured, cannot publish")
		return false
	}
	if text == "" {
		slog.Warn("refusing to publish empty text")
		return false
	}

	if c.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.sendTimeout)
		defer cancel()
	}

	filename := c.filename()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.topicURL, strings.NewReader(text))
	if err != nil {
		slog.Error("build publish request", "url", c.topicURL, "err", err)
		return false
	}
	req.Header.Set("Filename", filename)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", fmt.Sprintf("Clipboard Text (%s)", c.now().Format("15:04:05")))

	slog.Info("publishing clipboard text", "filename", filename, "bytes", len(text), "url", c.topicURL)
	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Error("publish timed out", "timeout", c.sendTimeout, "url", c.topicURL)
		} else {
			slog.Error("publish failed", "url", c.topicURL, "err", err)
		}
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("publish rejected",
			"status", resp.StatusCode, "response", readTruncated(resp.Body, errorBodyLimit))
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	slog.Info("published clipboard text", "status", resp.StatusCode)
	return true
}

// FetchAttachment downloads rawURL, resolving it against the receiver server
// when relative. contentType is the lower-cased Content-Type header.
func (c *Client) FetchAttachment(ctx context.Context, rawURL string) (body []byte, contentType string, ok bool) {
	full, ok := c.ResolveURL(rawURL)
	if !ok {
		slog.Error("could not resolve attachment URL", "url", rawURL)
		return nil, "", false
	}

	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		slog.Error("build attachment request", "url", full, "err", err)
		return nil, "", false
	}
	slog.Info("downloading attachment", "url", full)
	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Error("attachment download timed out", "timeout", c.fetchTimeout, "url", full)
		} else {
			slog.Error("attachment download failed", "url", full, "err", err)
		}
		return nil, "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("attachment download rejected", "status", resp.StatusCode, "url", full)
		return nil, "", false
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, MaxAttachmentSize+1))
	if err != nil {
		slog.Error("read attachment body", "url", full, "err", err)
		return nil, "", false
	}
	if len(body) > MaxAttachmentSize {
		slog.Error("attachment too large", "url", full, "limit", MaxAttachmentSize)
		return nil, "", false
	}

	contentType = strings.ToLower(resp.Header.Get("Content-Type"))
	slog.Info("downloaded attachment", "bytes", len(body), "type", contentType)
	return body, contentType, true
}

// filename returns <prefix><8 hex>.txt with non-ASCII bytes dropped from the
// prefix so the value is a legal header.
func (c *Client) filename() string {
	var b strings.Builder
	for _, r := range c.prefix {
		if r > 0x20 && r < 0x7f {
			b.WriteRune(r)
		}
	}
	b.WriteString(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	b.WriteString(".txt")
	return b.String()
}

func readTruncated(r io.Reader, n int) string {
	b, _ := io.ReadAll(io.LimitReader(r, int64(n)+1))
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
