package daemon

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipsync/internal/clip/cliptest"
	"go.klb.dev/clipsync/internal/config"
	"go.klb.dev/clipsync/internal/statusapi"
)

// fakeNtfy accepts publishes on /out and pushes frames to subscribers of
// /in/ws.
type fakeNtfy struct {
	*httptest.Server
	mu     sync.Mutex
	posted []string
	frames chan string
}

func newFakeNtfy(t *testing.T) *fakeNtfy {
	t.Helper()
	f := &fakeNtfy{frames: make(chan string, 8)}
	stop := make(chan struct{})
	up := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/out", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.posted = append(f.posted, string(b))
		f.mu.Unlock()
	})
	mux.HandleFunc("/in/ws", func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			select {
			case fr := <-f.frames:
				if err := ws.WriteMessage(websocket.TextMessage, []byte(fr)); err != nil {
					return
				}
			case <-stop:
				return
			}
		}
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(func() {
		close(stop)
		f.Server.Close()
	})
	return f
}

func (f *fakeNtfy) postedTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.posted...)
}

func daemonConfig(f *fakeNtfy) *config.Config {
	return &config.Config{
		Sender: config.SenderConfig{
			Enabled:               true,
			TopicURL:              f.URL + "/out",
			PollIntervalSeconds:   0.01,
			RequestTimeoutSeconds: 2,
			FilenamePrefix:        "clipboard_",
		},
		Receiver: config.ReceiverConfig{
			Enabled:               true,
			Server:                f.URL,
			Topic:                 "in",
			ReconnectDelaySeconds: 0.05,
			RequestTimeoutSeconds: 2,
		},
		MacOS: config.MacOSConfig{ImageUTIMap: map[string]string{".png": "public.png"}},
	}
}

func TestRunNothingEnabled(t *testing.T) {
	err := Run(context.Background(), &config.Config{}, Deps{Clipboard: &cliptest.Fake{}})
	assert.NoError(t, err)
}

func TestRunRequiresClipboard(t *testing.T) {
	assert.Error(t, Run(context.Background(), &config.Config{}, Deps{}))
}

func TestRoles(t *testing.T) {
	cfg := &config.Config{}
	assert.Empty(t, Roles(cfg))
	cfg.Receiver.Enabled = true
	assert.Equal(t, []string{"receiver"}, Roles(cfg))
	cfg.Sender.Enabled = true
	assert.Equal(t, []string{"sender", "receiver"}, Roles(cfg))
}

func TestRunBothLoops(t *testing.T) {
	f := newFakeNtfy(t)
	c := &cliptest.Fake{}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, daemonConfig(f), Deps{
			Clipboard: c,
			Version:   "test",
			Listen:    func() (net.Listener, error) { return ln, nil },
		})
	}()

	c.SetUserText("outbound")
	require.Eventually(t, func() bool { return len(f.postedTexts()) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "outbound", f.postedTexts()[0])

	f.frames <- `{"event":"message","id":"1","message":"inbound"}`
	require.Eventually(t, func() bool { return c.Text() == "inbound" }, 3*time.Second, 10*time.Millisecond)

	// Received text copied again locally is not published back.
	c.SetUserText("inbound")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"outbound"}, f.postedTexts())

	client := statusapi.NewClient(func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	})
	r, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", r.Version)
	assert.Equal(t, []string{"sender", "receiver"}, r.Roles)
	assert.Equal(t, "fake", r.Backend)
	assert.Equal(t, int64(1), r.Published)
	assert.Equal(t, int64(1), r.Received)
	assert.GreaterOrEqual(t, r.EchoesSkipped, int64(1))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunReceiverFatalKeepsSender(t *testing.T) {
	f := newFakeNtfy(t)
	c := &cliptest.Fake{}
	cfg := daemonConfig(f)
	cfg.Receiver.Topic = "" // no subscription URL can be built

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, Deps{Clipboard: c}) }()

	time.Sleep(50 * time.Millisecond)
	c.SetUserText("still sending")
	require.Eventually(t, func() bool { return len(f.postedTexts()) == 1 }, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunReturnsWhenAllLoopsStop(t *testing.T) {
	f := newFakeNtfy(t)
	cfg := daemonConfig(f)
	cfg.Sender.Enabled = false
	cfg.Receiver.Topic = ""

	done := make(chan error, 1)
	go func() { done <- Run(context.Background(), cfg, Deps{Clipboard: &cliptest.Fake{}}) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run kept going with no live loops")
	}
}
