package receiver

import (
	"context"
	"log/slog"
	"time"

	"go.klb.dev/clipsync/internal/logging"
	"go.klb.dev/clipsync/internal/message"
	"go.klb.dev/clipsync/internal/ntfy"
)

// action is what a message resolves to before the clipboard is touched.
type action struct {
	desc string

	image     []byte
	imageName string

	text    string
	hasText bool
}

func (a action) empty() bool { return a.image == nil && !a.hasText }

func (r *Receiver) process(ctx context.Context, ev *message.Event) {
	attrs := []any{"id", ev.ID, "title", logging.Preview(ev.Title, 30)}
	if ts := ev.Timestamp(); !ts.IsZero() {
		attrs = append(attrs, "age", time.Since(ts).Round(time.Millisecond))
	}
	slog.Info("message received", attrs...)
	a := r.plan(ctx, ev)
	if a.empty() {
		return
	}
	r.apply(ctx, a)
}

// plan decides what to copy. Attachments take priority over the message
// body; the body is the fallback whenever the attachment cannot be used.
func (r *Receiver) plan(ctx context.Context, ev *message.Event) action {
	att := ev.Attachment
	if att == nil {
		if ev.Message == "" {
			slog.Info("message has no attachment and no body, nothing to copy")
			return action{}
		}
		return bodyAction(ev, "message body")
	}

	if !att.Complete() {
		slog.Warn("message has incomplete attachment data")
		return bodyAction(ev, "message body (incomplete attachment)")
	}

	slog.Info("message has attachment", "name", att.Name, "type", att.Type, "size", att.Size)
	data, fetchedType, ok := r.relay.FetchAttachment(ctx, att.URL)
	if !ok {
		slog.Warn("attachment download failed, falling back to message body", "name", att.Name)
		return bodyAction(ev, "message body (download failed)")
	}

	contentType := att.Type
	if contentType == "" {
		contentType = fetchedType
	}
	kind := r.relay.Classify(att.Name, contentType)

	switch {
	case kind.Image && r.images != nil:
		slog.Info("image attachment, copying image", "name", att.Name)
		return action{desc: "image attachment " + att.Name, image: data, imageName: att.Name}
	case kind.Image:
		u, ok := r.relay.ResolveURL(att.URL)
		if !ok {
			u = att.URL
		}
		slog.Info("image attachment, copying URL", "name", att.Name)
		return action{desc: "image attachment URL " + att.Name, text: u, hasText: true}
	case kind.Text:
		return action{desc: "text attachment " + att.Name, text: ntfy.DecodeText(data), hasText: true}
	default:
		slog.Info("attachment is neither image nor text", "name", att.Name)
		return bodyAction(ev, "message body (unrecognised attachment)")
	}
}

func bodyAction(ev *message.Event, desc string) action {
	if ev.Message == "" {
		slog.Warn("no message body to fall back to, nothing to copy", "id", ev.ID)
		return action{}
	}
	return action{desc: desc, text: ev.Message, hasText: true}
}

// apply writes the planned content. The image goes first; text is written
// only if no image was planned or the image write failed. A successful text
// write becomes the echo guard value.
func (r *Receiver) apply(ctx context.Context, a action) {
	imageOK := false
	if a.image != nil && r.images != nil {
		imageOK = r.images.WriteImage(ctx, a.image, a.imageName, source)
		if imageOK {
			slog.Info("copied to clipboard", "what", a.desc)
			r.status.Applied.Add(1)
		} else {
			slog.Error("image copy failed", "what", a.desc)
			r.status.ApplyFailed.Add(1)
		}
	}
	if !a.hasText || imageOK {
		return
	}

	if !r.clip.WriteText(a.text, source) {
		slog.Error("text copy failed", "what", a.desc)
		r.status.ApplyFailed.Add(1)
		return
	}
	r.shared.SetReceived(a.text)
	r.status.Applied.Add(1)
	slog.Info("copied to clipboard", "what", a.desc)
	slog.Debug("received text", "preview", logging.Preview(a.text, 120))
}
