package clip

// headlessBackend is a no-op clipboard backend for environments without a
// display server (headless Linux servers, containers, etc.).
// Reads find nothing and writes report failure.
type headlessBackend struct{}

// NewHeadless returns the no-op backend.
func NewHeadless() Clipboard { return headlessBackend{} }

func (headlessBackend) Name() string { return "headless (no-op)" }
func (headlessBackend) ReadText() (string, bool) { return "", false }
func (headlessBackend) WriteText(_, _ string) bool { return false }
func (headlessBackend) HasChanged() bool { return true }
func (headlessBackend) UpdateChangeMarker() {}
func (headlessBackend) Close() {}
