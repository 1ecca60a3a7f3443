//go:build (darwin && cgo) || (linux && cgo) || windows

package clip

import (
	"log/slog"
	"sync"

	"golang.design/x/clipboard"
)

// designBackend reads and writes text through golang.design/x/clipboard.
// counter, when set, supplies the platform change token.
type designBackend struct {
	name    string
	counter func() int64

	mu   sync.Mutex
	last int64
}

func newDesignBackend(name string, counter func() int64) *designBackend {
	b := &designBackend{name: name, counter: counter}
	b.UpdateChangeMarker()
	return b
}

func (b *designBackend) Name() string { return b.name }

func (b *designBackend) ReadText() (text string, ok bool) {
	defer protect("read text", &ok)
	data := clipboard.Read(clipboard.FmtText)
	if data == nil {
		return "", false
	}
	return string(data), true
}

func (b *designBackend) WriteText(text, source string) (ok bool) {
	defer protect("write text", &ok)
	// Write returns a nil channel when the platform call fails.
	if clipboard.Write(clipboard.FmtText, []byte(text)) == nil {
		slog.Error("clipboard write failed", "backend", b.name, "source", source)
		return false
	}
	b.UpdateChangeMarker()
	slog.Info("clipboard text set", "source", source, "len", len(text))
	return true
}

func (b *designBackend) HasChanged() bool {
	if b.counter == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counter() != b.last
}

func (b *designBackend) UpdateChangeMarker() {
	if b.counter == nil {
		return
	}
	b.mu.Lock()
	b.last = b.counter()
	b.mu.Unlock()
}

func (b *designBackend) Close() {}
