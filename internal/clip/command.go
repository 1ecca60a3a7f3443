package clip

import (
	"log/slog"

	atotto "github.com/atotto/clipboard"
)

// commandBackend shells out to pbcopy/pbpaste, xclip, xsel, wl-copy or the
// Windows API through github.com/atotto/clipboard. Used where cgo is not
// available or the display connection could not be opened. It has no change
// counter.
type commandBackend struct{}

// newCommandBackend returns nil when no clipboard tool is installed.
func newCommandBackend() Clipboard {
	if atotto.Unsupported {
		return nil
	}
	return commandBackend{}
}

func (commandBackend) Name() string { return "command-line clipboard tools" }

func (commandBackend) ReadText() (text string, ok bool) {
	defer protect("read text", &ok)
	s, err := atotto.ReadAll()
	if err != nil {
		slog.Debug("clipboard read failed", "err", err)
		return "", false
	}
	return s, true
}

func (commandBackend) WriteText(text, source string) (ok bool) {
	defer protect("write text", &ok)
	if err := atotto.WriteAll(text); err != nil {
		slog.Error("clipboard write failed", "source", source, "err", err)
		return false
	}
	slog.Info("clipboard text set", "source", source, "len", len(text))
	return true
}

func (commandBackend) HasChanged() bool { return true }
func (commandBackend) UpdateChangeMarker() {}
func (commandBackend) Close() {}
