// Package receiver implements the subscriber loop: it holds a WebSocket
// subscription to the receiver topic and writes what arrives to the local
// clipboard, reconnecting after any transient failure.
package receiver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.klb.dev/clipsync/internal/clip"
	"go.klb.dev/clipsync/internal/config"
	"go.klb.dev/clipsync/internal/logging"
	"go.klb.dev/clipsync/internal/message"
	"go.klb.dev/clipsync/internal/ntfy"
	"go.klb.dev/clipsync/internal/state"
	"go.klb.dev/clipsync/internal/wire"
)

const source = "receiver"

// Relay is the part of the ntfy client the receiver needs.
type Relay interface {
	FetchAttachment(ctx context.Context, rawURL string) ([]byte, string, bool)
	ResolveURL(raw string) (string, bool)
	Classify(filename, contentType string) ntfy.Kind
}

// EventStream is an open subscription.
type EventStream interface {
	ReadEvent() (*message.Event, error)
	Close() error
}

// DialFunc opens a subscription. timeout bounds the handshake.
type DialFunc func(ctx context.Context, url string, timeout time.Duration) (EventStream, error)

func dialWire(ctx context.Context, url string, timeout time.Duration) (EventStream, error) {
	c, err := wire.Dial(ctx, url, timeout)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Receiver is the subscriber loop.
type Receiver struct {
	clip   clip.Clipboard
	images clip.ImageWriter // nil when image writes are unavailable
	relay  Relay
	shared *state.Shared
	status *state.Status

	url     string
	timeout time.Duration
	delay   time.Duration
	dial    DialFunc
}

// New returns a Receiver subscribed to cfg.WebSocketURL(). Image writes are
// used when c implements clip.ImageWriter.
func New(cfg config.ReceiverConfig, c clip.Clipboard, relay Relay, shared *state.Shared, status *state.Status) *Receiver {
	r := &Receiver{
		clip:    c,
		relay:   relay,
		shared:  shared,
		status:  status,
		url:     cfg.WebSocketURL(),
		timeout: cfg.RequestTimeout(),
		delay:   cfg.ReconnectDelay(),
		dial:    dialWire,
	}
	if w, ok := c.(clip.ImageWriter); ok {
		r.images = w
	}
	return r
}

// WithDialer replaces the WebSocket dialer.
func (r *Receiver) WithDialer(d DialFunc) *Receiver {
	r.dial = d
	return r
}

// Run subscribes and reconnects until ctx is cancelled or the target URL is
// unusable. It always returns nil so a dead receiver never stops the
// publisher.
func (r *Receiver) Run(ctx context.Context) error {
	slog.Info("receiver started", "url", r.url, "images", r.images != nil)
	for {
		err := r.subscribe(ctx)
		r.status.SetConnected(false)
		if ctx.Err() != nil {
			slog.Info("receiver stopped")
			return nil
		}
		if errors.Is(err, wire.ErrBadURL) {
			logging.Critical("invalid subscription URL, receiver stopping", "url", r.url, "err", err)
			r.status.SetError(err)
			return nil
		}

		r.status.SetError(err)
		r.status.Reconnects.Add(1)
		slog.Warn("subscription lost, reconnecting", "err", err, "delay", r.delay)
		select {
		case <-ctx.Done():
			slog.Info("receiver stopped")
			return nil
		case <-time.After(r.delay):
		}
	}
}

// subscribe runs one connection until it fails.
func (r *Receiver) subscribe(ctx context.Context) error {
	slog.Info("connecting to topic", "url", r.url)
	conn, err := r.dial(ctx, r.url, r.timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	slog.Info("subscribed to topic")
	r.status.SetConnected(true)
	r.status.SetError(nil)

	for {
		ev, err := conn.ReadEvent()
		if err != nil {
			if errors.Is(err, wire.ErrMalformed) {
				slog.Warn("skipping undecodable frame", "err", err)
				continue
			}
			if errors.Is(err, wire.ErrFrameTooLarge) {
				slog.Warn("oversized frame dropped the subscription", "err", err)
			}
			return err
		}
		r.handle(ctx, ev)
	}
}

func (r *Receiver) handle(ctx context.Context, ev *message.Event) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("processing message panicked", "id", ev.ID, "panic", p)
		}
	}()

	switch ev.Event {
	case message.KindMessage:
		r.status.MarkReceived()
		r.process(ctx, ev)
	case message.KindOpen:
		slog.Info("subscription confirmed open")
	case message.KindKeepalive:
		slog.Debug("keepalive")
	case message.KindPollRequest:
		slog.Debug("poll request")
	default:
		slog.Warn("unknown event type", "event", ev.Event, "id", ev.ID)
	}
}
