// Package message defines the ntfy subscription event format.
//
// Every WebSocket frame carries one JSON object. Only "message" events carry
// clipboard content; the rest are connection bookkeeping:
//
//	{"id":"sPs71M8A2T","time":1643137016,"event":"message","topic":"clip",
//	 "message":"hello","title":"Clipboard Text (10:02:03)",
//	 "attachment":{"name":"clipboard_1a2b.txt","type":"text/plain; charset=utf-8",
//	               "size":5,"expires":1643147816,"url":"https://ntfy.sh/file/sPs71M8A2T.txt"}}
package message

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the event type.
type Kind string

const (
	KindOpen        Kind = "open"
	KindKeepalive   Kind = "keepalive"
	KindMessage     Kind = "message"
	KindPollRequest Kind = "poll_request"
)

// Attachment is a file referenced by URL within a message.
type Attachment struct {
	Name    string `json:"name,omitempty"`
	Type    string `json:"type,omitempty"`
	Size    int64  `json:"size,omitempty"`
	Expires int64  `json:"expires,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Complete reports whether the attachment has enough data to be downloaded.
func (a *Attachment) Complete() bool {
	return a != nil && a.URL != "" && a.Name != ""
}

// Event is one decoded subscription frame.
type Event struct {
	ID         string      `json:"id,omitempty"`
	Time       int64       `json:"time,omitempty"`
	Event      Kind        `json:"event"`
	Topic      string      `json:"topic,omitempty"`
	Message    string      `json:"message,omitempty"`
	Title      string      `json:"title,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Decode parses one frame. A frame without an event field is rejected.
func Decode(b []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	if e.Event == "" {
		return nil, fmt.Errorf("message decode: missing event field")
	}
	return &e, nil
}

// Timestamp returns the server timestamp, or the zero time if absent.
func (e *Event) Timestamp() time.Time {
	if e.Time == 0 {
		return time.Time{}
	}
	return time.Unix(e.Time, 0)
}
