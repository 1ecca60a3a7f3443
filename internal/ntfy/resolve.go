package ntfy

import (
	"log/slog"
	"strings"
)

// ResolveURL turns an attachment URL into an absolute one.
//
//	http(s)://...  unchanged
//	//host/p       scheme of the server + ":" + raw
//	/p             server base + raw
//	anything else  server base + "/" + raw (logged as ambiguous)
//
// The server base is https://<host> unless the server is declared with
// http://. Without a configured server only absolute URLs resolve.
func (c *Client) ResolveURL(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw, true
	}

	host := c.receiver.Host()
	if host == "" {
		slog.Error("cannot resolve relative URL: receiver.ntfy_server not configured", "url", raw)
		return "", false
	}
	scheme := "https"
	if c.receiver.Insecure() {
		scheme = "http"
	}
	base := scheme + "://" + host

	switch {
	case strings.HasPrefix(raw, "//"):
		return scheme + ":" + raw, true
	case strings.HasPrefix(raw, "/"):
		return base + raw, true
	default:
		slog.Warn("ambiguous relative URL, assuming server root", "url", raw, "base", base)
		return base + "/" + raw, true
	}
}
