// Package daemon wires the clipboard, the ntfy client and the two loops
// together and runs them until shutdown.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"go.klb.dev/clipsync/internal/clip"
	"go.klb.dev/clipsync/internal/config"
	"go.klb.dev/clipsync/internal/ntfy"
	"go.klb.dev/clipsync/internal/receiver"
	"go.klb.dev/clipsync/internal/sender"
	"go.klb.dev/clipsync/internal/state"
	"go.klb.dev/clipsync/internal/statusapi"
)

// GracePeriod is how long Run waits for the loops after cancellation.
const GracePeriod = 10 * time.Second

// Deps are the parts Run does not build itself.
type Deps struct {
	Clipboard clip.Clipboard
	Version   string

	// Listen opens the control socket for the status API. Nil disables it.
	Listen func() (net.Listener, error)
}

// Run starts every enabled loop and blocks until ctx is cancelled or all
// loops have finished. cfg must already be validated.
func Run(ctx context.Context, cfg *config.Config, d Deps) error {
	if d.Clipboard == nil {
		return errors.New("daemon: no clipboard backend")
	}
	roles := Roles(cfg)
	if len(roles) == 0 {
		slog.Warn("neither sender nor receiver is enabled, nothing to do")
		return nil
	}

	hc := newHTTPClient()
	defer hc.CloseIdleConnections()

	shared, status := state.New(), state.NewStatus()
	relay := ntfy.New(cfg, hc)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Sender.Enabled {
		s := sender.New(cfg.Sender, d.Clipboard, relay, shared, status)
		g.Go(func() error { return s.Run(gctx) })
	}
	if cfg.Receiver.Enabled {
		r := receiver.New(cfg.Receiver, d.Clipboard, relay, shared, status)
		g.Go(func() error { return r.Run(gctx) })
	}

	apiCtx, stopAPI := context.WithCancel(ctx)
	defer stopAPI()
	apiDone := serveStatus(apiCtx, d, statusapi.Info{
		Version: d.Version,
		Roles:   roles,
		Backend: d.Clipboard.Name(),
		Images:  clip.ImagesSupported(d.Clipboard),
	}, status)

	slog.Info("clipsync running",
		"roles", roles,
		"backend", d.Clipboard.Name(),
		"images", clip.ImagesSupported(d.Clipboard),
	)

	loops := make(chan error, 1)
	go func() { loops <- g.Wait() }()

	var err error
	select {
	case err = <-loops:
		if ctx.Err() == nil {
			slog.Warn("all loops have stopped")
		}
	case <-ctx.Done():
		slog.Info("shutting down", "grace", GracePeriod)
		select {
		case err = <-loops:
		case <-time.After(GracePeriod):
			slog.Warn("loops did not stop within the grace period")
		}
	}

	stopAPI()
	<-apiDone
	slog.Info("clipsync stopped")
	return err
}

// Roles lists the enabled loops in a stable order.
func Roles(cfg *config.Config) []string {
	var roles []string
	if cfg.Sender.Enabled {
		roles = append(roles, "sender")
	}
	if cfg.Receiver.Enabled {
		roles = append(roles, "receiver")
	}
	return roles
}

// serveStatus starts the status API if a listener can be opened. The
// returned channel is closed once the server has stopped.
func serveStatus(ctx context.Context, d Deps, info statusapi.Info, status *state.Status) <-chan struct{} {
	done := make(chan struct{})
	if d.Listen == nil {
		close(done)
		return done
	}
	ln, err := d.Listen()
	if err != nil {
		slog.Warn("control socket unavailable, status API disabled", "err", err)
		close(done)
		return done
	}
	go func() {
		defer close(done)
		if err := statusapi.Serve(ctx, ln, statusapi.NewHandler(info, status)); err != nil {
			slog.Warn("status API stopped", "err", err)
		}
	}()
	return done
}

// newHTTPClient returns the single client shared by publishing and
// attachment downloads. Per-request timeouts come from contexts.
func newHTTPClient() *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = 4
	t.IdleConnTimeout = 90 * time.Second
	return &http.Client{Transport: t}
}
