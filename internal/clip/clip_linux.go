//go:build linux && cgo

package clip

import (
	"log/slog"

	"golang.design/x/clipboard"
)

// New returns the Linux clipboard backend. X11 has no change counter, so
// HasChanged always reports true. Without a display the command-line
// backend (xclip, xsel, wl-copy) is tried before falling back to headless.
func New(opts Options) Clipboard {
	if opts.Headless {
		return NewHeadless()
	}
	if err := clipboard.Init(); err != nil {
		if c := newCommandBackend(); c != nil {
			slog.Warn("clipboard init failed, using command-line tools", "err", err)
			return c
		}
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return NewHeadless()
	}
	return newDesignBackend("Linux clipboard", nil)
}
