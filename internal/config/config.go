// Package config holds the clipsync configuration model.
//
// Values come from viper (defaults → config file → CLIPSYNC_* env vars) and
// are validated once before any loop starts. A validation failure is fatal.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"go.klb.dev/clipsync/internal/logging"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const (
	sendPlaceholder    = "YOUR_SEND_TOPIC_HERE"
	receivePlaceholder = "YOUR_RECEIVE_TOPIC_HERE"
)

// Config is the complete clipsync configuration.
type Config struct {
	Sender   SenderConfig   `mapstructure:"sender"`
	Receiver ReceiverConfig `mapstructure:"receiver"`
	MacOS    MacOSConfig    `mapstructure:"macos"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SenderConfig configures the publisher loop.
type SenderConfig struct {
	Enabled               bool    `mapstructure:"enabled"`
	TopicURL              string  `mapstructure:"ntfy_topic_url"`
	PollIntervalSeconds   float64 `mapstructure:"poll_interval_seconds"`
	RequestTimeoutSeconds float64 `mapstructure:"request_timeout_seconds"`
	FilenamePrefix        string  `mapstructure:"filename_prefix"`
}

// ReceiverConfig configures the subscriber loop.
type ReceiverConfig struct {
	Enabled               bool    `mapstructure:"enabled"`
	Server                string  `mapstructure:"ntfy_server"`
	Topic                 string  `mapstructure:"ntfy_topic"`
	ReconnectDelaySeconds float64 `mapstructure:"reconnect_delay_seconds"`
	RequestTimeoutSeconds float64 `mapstructure:"request_timeout_seconds"`
}

// MacOSConfig configures image clipboard support.
//
// ImageUTIMap keys are file extensions, written with or without the leading
// dot. viper splits keys on "." when unmarshalling, so the map is read raw in
// Load instead and every key is normalised to ".ext".
type MacOSConfig struct {
	ImageSupport bool              `mapstructure:"image_support"`
	ImageUTIMap  map[string]string `mapstructure:"-"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultImageUTIMap is used when the config file does not provide one.
var DefaultImageUTIMap = map[string]string{
	"png":  "public.png",
	"jpg":  "public.jpeg",
	"jpeg": "public.jpeg",
	"gif":  "com.compuserve.gif",
	"tiff": "public.tiff",
	"bmp":  "com.microsoft.bmp",
	"heic": "public.heic",
}

// SetDefaults registers every scalar key with viper. Registering the keys is
// also what lets AutomaticEnv resolve CLIPSYNC_* overrides during Unmarshal.
// The image map is defaulted in normalize instead: a map default would be
// merged key by key with the file's map rather than replaced by it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("sender.enabled", false)
	v.SetDefault("sender.ntfy_topic_url", "")
	v.SetDefault("sender.poll_interval_seconds", 1.0)
	v.SetDefault("sender.request_timeout_seconds", 15.0)
	v.SetDefault("sender.filename_prefix", "clipboard_")

	v.SetDefault("receiver.enabled", false)
	v.SetDefault("receiver.ntfy_server", "")
	v.SetDefault("receiver.ntfy_topic", "")
	v.SetDefault("receiver.reconnect_delay_seconds", 5.0)
	v.SetDefault("receiver.request_timeout_seconds", 15.0)

	v.SetDefault("macos.image_support", false)

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "auto")
}

// Load decodes v into a Config and normalises it. It does not validate.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	m, err := extMap(v.Get("macos.image_uti_map"))
	if err != nil {
		return nil, fmt.Errorf("config: decode: macos.image_uti_map: %w", err)
	}
	c.MacOS.ImageUTIMap = m
	c.normalize()
	return &c, nil
}

// extMap flattens the raw image map. Keys viper has already split on "."
// (".png" stored as "" -> "png") are joined back together.
func extMap(raw any) (map[string]string, error) {
	if raw == nil {
		return nil, nil
	}
	out := make(map[string]string)
	var walk func(prefix string, node any) error
	walk = func(prefix string, node any) error {
		switch n := node.(type) {
		case map[string]any:
			for k, val := range n {
				if err := walk(joinKey(prefix, k), val); err != nil {
					return err
				}
			}
		case map[any]any:
			for k, val := range n {
				if err := walk(joinKey(prefix, fmt.Sprint(k)), val); err != nil {
					return err
				}
			}
		case map[string]string:
			for k, val := range n {
				out[joinKey(prefix, k)] = val
			}
		case string:
			if prefix == "" {
				return errors.New("expected a map of extension to UTI")
			}
			out[prefix] = n
		default:
			return fmt.Errorf("%q: expected a string, got %T", prefix, node)
		}
		return nil
	}
	if err := walk("", raw); err != nil {
		return nil, err
	}
	return out, nil
}

func joinKey(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + "." + k
}

func (c *Config) normalize() {
	c.Sender.TopicURL = strings.TrimSpace(c.Sender.TopicURL)
	c.Receiver.Server = strings.TrimSpace(c.Receiver.Server)
	c.Receiver.Topic = strings.Trim(strings.TrimSpace(c.Receiver.Topic), "/")

	src := c.MacOS.ImageUTIMap
	if len(src) == 0 {
		src = DefaultImageUTIMap
	}
	m := make(map[string]string, len(src))
	for ext, uti := range src {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		m[ext] = uti
	}
	c.MacOS.ImageUTIMap = m
}

// Mode selects which loops run, overriding the config-file enable flags.
type Mode string

const (
	ModeConfig   Mode = "" // defer to config file
	ModeSender   Mode = "sender"
	ModeReceiver Mode = "receiver"
	ModeBoth     Mode = "both"
)

// ParseMode validates a --mode value. The empty string is ModeConfig.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeConfig, ModeSender, ModeReceiver, ModeBoth:
		return m, nil
	default:
		return "", fmt.Errorf("invalid mode %q (want sender, receiver or both)", s)
	}
}

// ApplyMode overrides both enable flags. ModeConfig leaves them untouched.
func (c *Config) ApplyMode(m Mode) {
	switch m {
	case ModeSender:
		c.Sender.Enabled, c.Receiver.Enabled = true, false
	case ModeReceiver:
		c.Sender.Enabled, c.Receiver.Enabled = false, true
	case ModeBoth:
		c.Sender.Enabled, c.Receiver.Enabled = true, true
	}
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Validate checks the enabled sections. Disabled sections are not inspected.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, reason string) {
		errs = append(errs, &ValidationError{Field: field, Reason: reason})
	}

	if s := c.Sender; s.Enabled {
		if s.TopicURL == "" || strings.Contains(s.TopicURL, sendPlaceholder) {
			add("sender.ntfy_topic_url", "missing or not set")
		}
		if s.PollIntervalSeconds <= 0 {
			add("sender.poll_interval_seconds", "must be a positive number")
		}
		if s.RequestTimeoutSeconds <= 0 {
			add("sender.request_timeout_seconds", "must be a positive number")
		}
	}

	if r := c.Receiver; r.Enabled {
		if r.Topic == "" || strings.Contains(r.Topic, receivePlaceholder) {
			add("receiver.ntfy_topic", "missing or not set")
		}
		if r.Server == "" {
			add("receiver.ntfy_server", "missing")
		}
		if r.ReconnectDelaySeconds <= 0 {
			add("receiver.reconnect_delay_seconds", "must be a positive number")
		}
		if r.RequestTimeoutSeconds <= 0 {
			add("receiver.request_timeout_seconds", "must be a positive number")
		}
	}

	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		add("logging.level", fmt.Sprintf("%q is not one of DEBUG, INFO, WARNING, ERROR, CRITICAL", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// PollInterval returns the publisher poll interval.
func (s SenderConfig) PollInterval() time.Duration { return seconds(s.PollIntervalSeconds) }

// RequestTimeout returns the publish request timeout.
func (s SenderConfig) RequestTimeout() time.Duration { return seconds(s.RequestTimeoutSeconds) }

// ReconnectDelay returns the fixed delay between subscription attempts.
func (r ReceiverConfig) ReconnectDelay() time.Duration { return seconds(r.ReconnectDelaySeconds) }

// RequestTimeout bounds both the WebSocket handshake and attachment downloads.
func (r ReceiverConfig) RequestTimeout() time.Duration { return seconds(r.RequestTimeoutSeconds) }

// Insecure reports whether the server was declared with an http:// prefix.
func (r ReceiverConfig) Insecure() bool {
	return strings.HasPrefix(strings.ToLower(r.Server), "http://")
}

// Host returns the server without scheme or trailing slash.
func (r ReceiverConfig) Host() string {
	h := r.Server
	for _, p := range []string{"https://", "http://"} {
		if len(h) >= len(p) && strings.EqualFold(h[:len(p)], p) {
			h = h[len(p):]
			break
		}
	}
	return strings.TrimRight(h, "/")
}

// WebSocketURL returns the subscription endpoint, or "" when the server or
// topic is unset.
func (r ReceiverConfig) WebSocketURL() string {
	host := r.Host()
	if host == "" || r.Topic == "" {
		return ""
	}
	scheme := "wss"
	if r.Insecure() {
		scheme = "ws"
	}
	return fmt.Sprintf("%s://%s/%s/ws", scheme, host, r.Topic)
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
