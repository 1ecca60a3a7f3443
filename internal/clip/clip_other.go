//go:build !windows && !(darwin && cgo) && !(linux && cgo)

package clip

import "log/slog"

// New returns the command-line tool backend, or the headless backend when no
// tool is installed.
func New(opts Options) Clipboard {
	if opts.Headless {
		return NewHeadless()
	}
	if c := newCommandBackend(); c != nil {
		return c
	}
	slog.Warn("no clipboard tool found, running headless")
	return NewHeadless()
}
