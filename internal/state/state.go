// Package state holds the only values the publisher and subscriber loops
// share: the echo guard and a set of runtime counters.
package state

import (
	"sync/atomic"
	"time"
)

// Shared is the echo guard. The subscriber records the last text it wrote
// to the clipboard; the publisher refuses to send that exact text and clears
// the record after any successful send.
//
// Each loop touches it at most once per cycle and the value is replaced
// whole, so an atomic pointer gives last-write-wins without a lock.
type Shared struct {
	lastReceived atomic.Pointer[string]
}

// New returns an empty Shared.
func New() *Shared { return &Shared{} }

// SetReceived records text as the last content applied from the network.
func (s *Shared) SetReceived(text string) {
	s.lastReceived.Store(&text)
}

// ClearReceived drops the record.
func (s *Shared) ClearReceived() {
	s.lastReceived.Store(nil)
}

// LastReceived returns the recorded text, if any.
func (s *Shared) LastReceived() (string, bool) {
	p := s.lastReceived.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}

// IsEcho reports whether text equals the recorded received text.
func (s *Shared) IsEcho(text string) bool {
	last, ok := s.LastReceived()
	return ok && last == text
}

// Status counts what the loops have done. Read by the status API.
type Status struct {
	StartedAt time.Time

	Published      atomic.Int64
	PublishFailed  atomic.Int64
	EchoesSkipped  atomic.Int64
	lastPublishAt  atomic.Int64 // UnixNano
	Received       atomic.Int64
	Applied        atomic.Int64
	ApplyFailed    atomic.Int64
	lastReceiveAt  atomic.Int64 // UnixNano
	Reconnects     atomic.Int64
	connected      atomic.Bool
	connectedSince atomic.Int64 // UnixNano
	lastError      atomic.Pointer[string]
}

// NewStatus returns a Status stamped with the current time.
func NewStatus() *Status {
	return &Status{StartedAt: time.Now()}
}

// MarkPublished records a successful send.
func (s *Status) MarkPublished() {
	s.Published.Add(1)
	s.lastPublishAt.Store(time.Now().UnixNano())
}

// MarkReceived records an inbound message event.
func (s *Status) MarkReceived() {
	s.Received.Add(1)
	s.lastReceiveAt.Store(time.Now().UnixNano())
}

// SetConnected flips the subscription state.
func (s *Status) SetConnected(up bool) {
	s.connected.Store(up)
	if up {
		s.connectedSince.Store(time.Now().UnixNano())
	} else {
		s.connectedSince.Store(0)
	}
}

// SetError records the most recent loop error.
func (s *Status) SetError(err error) {
	if err == nil {
		s.lastError.Store(nil)
		return
	}
	msg := err.Error()
	s.lastError.Store(&msg)
}

// Snapshot is a point-in-time copy of Status, shaped for JSON.
type Snapshot struct {
	StartedAt      time.Time  `json:"started_at"`
	Published      int64      `json:"published"`
	PublishFailed  int64      `json:"publish_failed"`
	EchoesSkipped  int64      `json:"echoes_skipped"`
	LastPublishAt  *time.Time `json:"last_publish_at,omitempty"`
	Received       int64      `json:"received"`
	Applied        int64      `json:"applied"`
	ApplyFailed    int64      `json:"apply_failed"`
	LastReceiveAt  *time.Time `json:"last_receive_at,omitempty"`
	Reconnects     int64      `json:"reconnects"`
	Connected      bool       `json:"connected"`
	ConnectedSince *time.Time `json:"connected_since,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
}

// Snapshot copies the counters.
func (s *Status) Snapshot() Snapshot {
	snap := Snapshot{
		StartedAt:      s.StartedAt,
		Published:      s.Published.Load(),
		PublishFailed:  s.PublishFailed.Load(),
		EchoesSkipped:  s.EchoesSkipped.Load(),
		LastPublishAt:  unixNano(s.lastPublishAt.Load()),
		Received:       s.Received.Load(),
		Applied:        s.Applied.Load(),
		ApplyFailed:    s.ApplyFailed.Load(),
		LastReceiveAt:  unixNano(s.lastReceiveAt.Load()),
		Reconnects:     s.Reconnects.Load(),
		Connected:      s.connected.Load(),
		ConnectedSince: unixNano(s.connectedSince.Load()),
	}
	if p := s.lastError.Load(); p != nil {
		snap.LastError = *p
	}
	return snap
}

func unixNano(n int64) *time.Time {
	if n == 0 {
		return nil
	}
	t := time.Unix(0, n)
	return &t
}
