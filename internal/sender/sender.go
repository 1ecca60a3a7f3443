// Package sender implements the publisher loop: it polls the local
// clipboard and publishes new text to the sender topic.
package sender

import (
	"context"
	"log/slog"
	"time"

	"go.klb.dev/clipsync/internal/clip"
	"go.klb.dev/clipsync/internal/config"
	"go.klb.dev/clipsync/internal/logging"
	"go.klb.dev/clipsync/internal/state"
)

// maxErrorBackoff caps the pause after a failed cycle.
const maxErrorBackoff = 10 * time.Second

// Publisher sends clipboard text to the relay.
type Publisher interface {
	PublishText(ctx context.Context, text string) bool
}

// Sender is the publisher loop. It is not safe for concurrent use; Run
// owns it.
type Sender struct {
	clip     clip.Clipboard
	pub      Publisher
	shared   *state.Shared
	status   *state.Status
	interval time.Duration

	lastSent    string
	hasLastSent bool
}

// New returns a Sender polling c every cfg.PollInterval().
func New(cfg config.SenderConfig, c clip.Clipboard, pub Publisher, shared *state.Shared, status *state.Status) *Sender {
	return &Sender{
		clip:     c,
		pub:      pub,
		shared:   shared,
		status:   status,
		interval: cfg.PollInterval(),
	}
}

// Run polls until ctx is cancelled. It always returns nil.
func (s *Sender) Run(ctx context.Context) error {
	slog.Info("sender started", "interval", s.interval, "backend", s.clip.Name())
	for {
		wait := s.interval
		if !s.checkAndSend(ctx) {
			wait = s.errorBackoff()
		}
		select {
		case <-ctx.Done():
			slog.Info("sender stopped")
			return nil
		case <-time.After(wait):
		}
	}
}

func (s *Sender) errorBackoff() time.Duration {
	return min(2*s.interval, maxErrorBackoff)
}

// checkAndSend runs one poll cycle. It returns false only when the cycle
// panicked.
func (s *Sender) checkAndSend(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("sender cycle panicked", "panic", r)
			ok = false
		}
	}()

	if !s.clip.HasChanged() {
		return true
	}
	text, _ := s.clip.ReadText()
	s.clip.UpdateChangeMarker()

	if text == "" {
		return true
	}
	if s.hasLastSent && text == s.lastSent {
		return true
	}
	if s.shared.IsEcho(text) {
		slog.Info("clipboard matches last received text, not sending it back")
		s.status.EchoesSkipped.Add(1)
		return true
	}

	slog.Info("new clipboard text detected", "len", len(text))
	slog.Debug("clipboard text", "preview", logging.Preview(text, 120))
	if !s.pub.PublishText(ctx, text) {
		slog.Warn("failed to send clipboard text")
		s.status.PublishFailed.Add(1)
		return true
	}

	s.lastSent, s.hasLastSent = text, true
	s.shared.ClearReceived()
	s.status.MarkPublished()
	return true
}
