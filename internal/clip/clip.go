// Package clip provides a unified interface to the system clipboard across
// platforms. Build constraints select the appropriate implementation:
//
//	clip_darwin.go  : macOS via golang.design/x/clipboard + cgo changeCount, osascript images
//	clip_windows.go : Windows via golang.design/x/clipboard + GetClipboardSequenceNumber
//	clip_linux.go   : Linux via golang.design/x/clipboard, no change counter
//	clip_other.go   : everything else (and cgo-less builds) via command-line tools
//
// Change detection is only precise where the platform exposes a counter
// (macOS, Windows). Elsewhere HasChanged always reports true and callers
// must compare content themselves.
package clip

import (
	"context"
	"log/slog"
)

// Clipboard is the interface that all platform clipboard implementations satisfy.
// No method panics or returns an error; platform failures become false.
type Clipboard interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ReadText returns the current clipboard text. ok is false when the
	// clipboard is unavailable or holds no text.
	ReadText() (text string, ok bool)

	// WriteText replaces the clipboard with text and reports whether the
	// platform call succeeded. The empty string is a valid write. source is
	// only used for logging.
	WriteText(text, source string) bool

	// HasChanged reports whether the change token differs from the last
	// recorded one. Backends without a counter always return true.
	HasChanged() bool

	// UpdateChangeMarker records the current change token as seen.
	UpdateChangeMarker()

	// Close releases any resources held by the backend.
	Close()
}

// ImageWriter is implemented by backends that can place an image on the
// clipboard.
type ImageWriter interface {
	WriteImage(ctx context.Context, data []byte, filename, source string) bool
}

// Options configures New.
type Options struct {
	// ImageSupport enables ImageWriter where the platform has it.
	ImageSupport bool
	// Headless forces the no-op backend.
	Headless bool
}

// ImagesSupported reports whether c can write images.
func ImagesSupported(c Clipboard) bool {
	_, ok := c.(ImageWriter)
	return ok
}

// protect converts a panic in a platform call into a false result.
// Use as: defer protect("write text", &ok).
func protect(op string, ok *bool) {
	if r := recover(); r != nil {
		slog.Error("clipboard call panicked", "op", op, "panic", r)
		*ok = false
	}
}
