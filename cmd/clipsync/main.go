// clipsync: clipboard sync through an ntfy topic.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/clipsync/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clipsync",
		Short: "Clipboard sync through an ntfy topic",
		Long: `clipsync keeps clipboards on several machines in step using an ntfy
server as the relay. The sender publishes new local clipboard text to a
topic; the receiver subscribes to a topic and copies what arrives.

Run "clipsync run" on each machine. Use "clipsync send" to publish stdin
once, and "clipsync status" to inspect a running daemon.

Config file search order (first found wins):
  /etc/clipsync/clipsync.{yaml,toml,json}
  $HOME/.config/clipsync/clipsync.{yaml,toml,json}
  ./clipsync.{yaml,toml,json}
  path supplied via --config

Every config key can be set via CLIPSYNC_<SECTION>_<KEY> env vars,
e.g. CLIPSYNC_SENDER_NTFY_TOPIC_URL.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),
		newSendCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clipsync %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
// An explicit level wins; otherwise interactive runs log at DEBUG and the
// configured level applies to services.
func resolveLogging(interactive bool, formatStr, levelStr, configLevel string) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(configLevel)
	switch {
	case levelStr != "":
		level = logging.ParseLevel(levelStr)
	case interactive:
		level = logging.ParseLevel("debug")
	}
	logging.Setup(format, level)
}
