package sender

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipsync/internal/clip/cliptest"
	"go.klb.dev/clipsync/internal/config"
	"go.klb.dev/clipsync/internal/state"
)

type fakePublisher struct {
	mu   sync.Mutex
	fail bool
	sent []string
}

func (p *fakePublisher) PublishText(_ context.Context, text string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return false
	}
	p.sent = append(p.sent, text)
	return true
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func newTestSender(c *cliptest.Fake, p *fakePublisher) (*Sender, *state.Shared, *state.Status) {
	shared, status := state.New(), state.NewStatus()
	s := New(config.SenderConfig{PollIntervalSeconds: 0.01}, c, p, shared, status)
	return s, shared, status
}

func TestSendsNewText(t *testing.T) {
	c, p := &cliptest.Fake{}, &fakePublisher{}
	s, _, status := newTestSender(c, p)

	c.SetUserText("hello")
	require.True(t, s.checkAndSend(context.Background()))
	assert.Equal(t, []string{"hello"}, p.sent)
	assert.Equal(t, int64(1), status.Snapshot().Published)
	assert.False(t, c.HasChanged(), "marker updated after read")
}

func TestSameTextSentOnce(t *testing.T) {
	c, p := &cliptest.Fake{}, &fakePublisher{}
	s, _, _ := newTestSender(c, p)

	c.SetUserText("hello")
	s.checkAndSend(context.Background())
	c.SetUserText("hello")
	s.checkAndSend(context.Background())
	s.checkAndSend(context.Background())
	assert.Equal(t, 1, p.count())
}

func TestUnchangedClipboardNotRead(t *testing.T) {
	c, p := &cliptest.Fake{}, &fakePublisher{}
	s, _, _ := newTestSender(c, p)

	s.checkAndSend(context.Background())
	assert.Zero(t, p.count())
}

func TestEmptyTextSkipped(t *testing.T) {
	c, p := &cliptest.Fake{}, &fakePublisher{}
	s, _, _ := newTestSender(c, p)

	c.SetUserText("")
	s.checkAndSend(context.Background())
	assert.Zero(t, p.count())
	assert.False(t, c.HasChanged())
}

func TestEchoSkipped(t *testing.T) {
	c, p := &cliptest.Fake{}, &fakePublisher{}
	s, shared, status := newTestSender(c, p)

	shared.SetReceived("from afar")
	c.SetUserText("from afar")
	s.checkAndSend(context.Background())

	assert.Zero(t, p.count())
	assert.Equal(t, int64(1), status.Snapshot().EchoesSkipped)
	assert.True(t, shared.IsEcho("from afar"), "skipping does not clear the guard")
}

func TestSuccessfulSendClearsGuard(t *testing.T) {
	c, p := &cliptest.Fake{}, &fakePublisher{}
	s, shared, _ := newTestSender(c, p)

	shared.SetReceived("old")
	c.SetUserText("new")
	s.checkAndSend(context.Background())

	assert.Equal(t, []string{"new"}, p.sent)
	_, ok := shared.LastReceived()
	assert.False(t, ok)
}

func TestFailedSendRetriedNextChange(t *testing.T) {
	c, p := &cliptest.Fake{}, &fakePublisher{fail: true}
	s, shared, status := newTestSender(c, p)
	shared.SetReceived("other")

	c.SetUserText("hello")
	require.True(t, s.checkAndSend(context.Background()))
	assert.Zero(t, p.count())
	assert.Equal(t, int64(1), status.Snapshot().PublishFailed)
	assert.True(t, shared.IsEcho("other"), "guard kept on failure")

	p.mu.Lock()
	p.fail = false
	p.mu.Unlock()
	c.SetUserText("hello")
	s.checkAndSend(context.Background())
	assert.Equal(t, []string{"hello"}, p.sent)
}

func TestPanicRecovered(t *testing.T) {
	c, p := &cliptest.Fake{PanicOnRead: true}, &fakePublisher{}
	s, _, _ := newTestSender(c, p)

	c.SetUserText("boom")
	assert.False(t, s.checkAndSend(context.Background()))
}

func TestErrorBackoff(t *testing.T) {
	s := &Sender{interval: time.Second}
	assert.Equal(t, 2*time.Second, s.errorBackoff())
	s.interval = 30 * time.Second
	assert.Equal(t, 10*time.Second, s.errorBackoff())
}

func TestRunStopsOnCancel(t *testing.T) {
	c, p := &cliptest.Fake{}, &fakePublisher{}
	s, _, _ := newTestSender(c, p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	c.SetUserText("live")
	assert.Eventually(t, func() bool { return p.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
