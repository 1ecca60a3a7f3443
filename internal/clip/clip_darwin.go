//go:build darwin && cgo

package clip

// #cgo CFLAGS: -x objective-c
// #cgo LDFLAGS: -framework Cocoa
// #import <Cocoa/Cocoa.h>
//
// NSInteger clipsync_changeCount() {
//     return [[NSPasteboard generalPasteboard] changeCount];
// }
import "C"

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"golang.design/x/clipboard"
)

func changeCount() int64 { return int64(C.clipsync_changeCount()) }

// darwinImageBackend adds osascript-driven image writes to the text backend.
type darwinImageBackend struct {
	*designBackend
	images *commandImageWriter
}

func (b *darwinImageBackend) WriteImage(ctx context.Context, data []byte, filename, source string) bool {
	return b.images.WriteImage(ctx, data, filename, source)
}

// New returns the macOS clipboard backend.
// clipboard.Init is called here rather than in init() so that CLI sub-commands
// that never construct a backend don't log spurious warnings.
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
	b := newDesignBackend("macOS NSPasteboard", changeCount)
	if !opts.ImageSupport {
		return b
	}
	return &darwinImageBackend{
		designBackend: b,
		images: &commandImageWriter{
			timeout:   ImageWriteTimeout,
			command:   osascriptCommand,
			onSuccess: b.UpdateChangeMarker,
		},
	}
}

func osascriptCommand(ctx context.Context, path string) *exec.Cmd {
	script := fmt.Sprintf("set the clipboard to (read POSIX file %q as picture)", path)
	return exec.CommandContext(ctx, "osascript", "-e", script)
}
