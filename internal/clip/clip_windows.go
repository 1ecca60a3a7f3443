//go:build windows

package clip

import (
	"log/slog"

	"golang.design/x/clipboard"
	"golang.org/x/sys/windows"
)

var (
	user32                         = windows.NewLazySystemDLL("user32.dll")
	procGetClipboardSequenceNumber = user32.NewProc("GetClipboardSequenceNumber")
)

// sequenceNumber returns the clipboard sequence number, or 0 if the call is
// unavailable.
func sequenceNumber() int64 {
	if procGetClipboardSequenceNumber.Find() != nil {
		return 0
	}
	r, _, _ := procGetClipboardSequenceNumber.Call()
	return int64(uint32(r))
}

// New returns the Windows clipboard backend. Image writes are not supported.
func New(opts Options) Clipboard {
	if opts.Headless {
		return NewHeadless()
	}
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard init failed, using command-line tools", "err", err)
		if c := newCommandBackend(); c != nil {
			return c
		}
		return NewHeadless()
	}
	if opts.ImageSupport {
		slog.Info("image clipboard writes are not supported on windows")
	}
	return newDesignBackend("Windows Clipboard", sequenceNumber)
}
