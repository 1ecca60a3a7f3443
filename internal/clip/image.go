package clip

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ImageWriteTimeout bounds the external command that loads an image onto the
// clipboard.
const ImageWriteTimeout = 10 * time.Second

// commandImageWriter stages image bytes in a temporary file and runs an
// external command that loads the file onto the clipboard. The file is
// removed on every path.
type commandImageWriter struct {
	timeout time.Duration
	tempDir string // "" means os.TempDir
	command func(ctx context.Context, path string) *exec.Cmd

	// onSuccess runs after the command exits zero.
	onSuccess func()
}

func (w *commandImageWriter) WriteImage(ctx context.Context, data []byte, filename, source string) (ok bool) {
	defer protect("write image", &ok)

	if len(data) == 0 || filename == "" {
		slog.Warn("image write skipped: missing data or filename", "source", source)
		return false
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".png"
		slog.Warn("image filename has no extension, assuming png", "filename", filename)
	}

	f, err := os.CreateTemp(w.tempDir, "clipsync-*"+ext)
	if err != nil {
		slog.Error("create temporary image file", "err", err)
		return false
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Error("remove temporary image file", "path", path, "err", err)
			return
		}
		slog.Debug("temporary image file removed", "path", path)
	}()

	_, werr := f.Write(data)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		slog.Error("write temporary image file", "path", path, "err", werr)
		return false
	}

	timeout := w.timeout
	if timeout <= 0 {
		timeout = ImageWriteTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := w.command(ctx, path)
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		slog.Error("image clipboard command timed out", "timeout", timeout, "source", source)
		return false
	}
	if err != nil {
		slog.Error("image clipboard command failed",
			"err", err, "output", strings.TrimSpace(string(out)), "source", source)
		return false
	}

	if w.onSuccess != nil {
		w.onSuccess()
	}
	slog.Info("clipboard image set", "source", source, "filename", filename, "bytes", len(data))
	return true
}
