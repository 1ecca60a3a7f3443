// Package cliptest provides an in-memory clip.Clipboard for tests.
package cliptest

import (
	"context"
	"sync"
)

// Fake is an in-memory clipboard with a change counter. The zero value is
// an empty clipboard that accepts writes.
type Fake struct {
	mu      sync.Mutex
	text    string
	hasText bool
	counter int64
	marker  int64

	// FailWrites makes WriteText report failure.
	FailWrites bool
	// PanicOnRead makes ReadText panic.
	PanicOnRead bool

	Writes []string
}

// Name implements clip.Clipboard.
func (f *Fake) Name() string { return "fake" }

// SetUserText simulates the user copying text.
func (f *Fake) SetUserText(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text, f.hasText = s, true
	f.counter++
}

// Text returns the current content.
func (f *Fake) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

// WriteCount returns how many successful writes happened.
func (f *Fake) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Writes)
}

func (f *Fake) ReadText() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PanicOnRead {
		panic("cliptest: read failed")
	}
	return f.text, f.hasText
}

func (f *Fake) WriteText(text, _ string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrites {
		return false
	}
	f.text, f.hasText = text, true
	f.counter++
	f.marker = f.counter
	f.Writes = append(f.Writes, text)
	return true
}

func (f *Fake) HasChanged() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counter != f.marker
}

func (f *Fake) UpdateChangeMarker() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marker = f.counter
}

func (f *Fake) Close() {}

// FakeImages is a Fake that also accepts image writes.
type FakeImages struct {
	Fake

	// FailImages makes WriteImage report failure.
	FailImages bool

	imgMu  sync.Mutex
	Images []string // filenames written
}

func (f *FakeImages) WriteImage(_ context.Context, data []byte, filename, _ string) bool {
	f.imgMu.Lock()
	defer f.imgMu.Unlock()
	if f.FailImages || len(data) == 0 {
		return false
	}
	f.Images = append(f.Images, filename)
	return true
}

// ImageCount returns how many images were written.
func (f *FakeImages) ImageCount() int {
	f.imgMu.Lock()
	defer f.imgMu.Unlock()
	return len(f.Images)
}
