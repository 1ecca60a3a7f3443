// Package wire handles the ntfy WebSocket subscription: dialling, reading one
// JSON event per frame and keeping the connection alive with pings.
//
// Wire format: each text frame is a single JSON object (see package message).
// The connection is closed when the caller's context is cancelled, which
// unblocks any pending ReadEvent.
package wire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"go.klb.dev/clipsync/internal/message"
)

const (
	// MaxFrameSize is the largest frame we will read (1 MiB). Attachments are
	// fetched separately, so frames only carry metadata and short bodies.
	MaxFrameSize = 1 << 20

	pingInterval  = 20 * time.Second
	pongWait      = 20 * time.Second
	writeDeadline = 5 * time.Second
)

var (
	// ErrBadURL means the subscription target can never be dialled.
	ErrBadURL = errors.New("invalid subscription URL")

	// ErrMalformed wraps a frame that could not be decoded. The connection
	// is still usable.
	ErrMalformed = errors.New("malformed frame")

	// ErrFrameTooLarge means a frame exceeded MaxFrameSize. The connection
	// has been closed and must be redialled.
	ErrFrameTooLarge = errors.New("frame too large")
)

// Conn wraps a WebSocket subscription.
type Conn struct {
	ws   *websocket.Conn
	done chan struct{}
	once sync.Once
}

// Dial connects to target (ws:// or wss://). timeout bounds the handshake.
// A target that cannot be parsed returns an error wrapping ErrBadURL.
func Dial(ctx context.Context, target string, timeout time.Duration) (*Conn, error) {
	if err := checkURL(target); err != nil {
		return nil, err
	}

	d := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ws, resp, err := d.DialContext(dctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", target, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	c := &Conn{ws: ws, done: make(chan struct{})}
	ws.SetReadLimit(MaxFrameSize)
	c.extendDeadline()
	ws.SetPongHandler(func(string) error {
		c.extendDeadline()
		return nil
	})

	go c.pingLoop()
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()
	return c, nil
}

func checkURL(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrBadURL, target, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: %q: scheme must be ws or wss", ErrBadURL, target)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q: missing host", ErrBadURL, target)
	}
	return nil
}

// ReadEvent blocks for the next frame and decodes it. Decode failures wrap
// ErrMalformed; any other error means the connection is gone.
func (c *Conn) ReadEvent() (*message.Event, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		if errors.Is(err, websocket.ErrReadLimit) {
			return nil, fmt.Errorf("%w: limit %d bytes", ErrFrameTooLarge, MaxFrameSize)
		}
		return nil, err
	}
	c.extendDeadline()

	ev, err := message.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return ev, nil
}

// Close sends a close frame (best effort) and closes the connection.
// Safe to call more than once and from any goroutine.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeDeadline),
		)
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) extendDeadline() {
	_ = c.ws.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
}

func (c *Conn) pingLoop() {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}
