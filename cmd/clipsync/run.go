package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipsync/internal/clip"
	"go.klb.dev/clipsync/internal/config"
	"go.klb.dev/clipsync/internal/daemon"
	"go.klb.dev/clipsync/internal/ipc"
	"go.klb.dev/clipsync/internal/logging"
)

func newRunCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sync daemon (sender, receiver or both)",
		Long: `Starts the enabled loops. The sender polls the local clipboard and
publishes new text to sender.ntfy_topic_url; the receiver subscribes to
receiver.ntfy_topic on receiver.ntfy_server and copies what arrives.

--mode overrides the enabled flags of both sections.

Precedence (lowest → highest): defaults → config file → CLIPSYNC_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDaemon(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.String("mode", "", "sender|receiver|both (default: enabled flags from config)")
	f.Bool("headless", false, "do not touch the system clipboard")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(ctx context.Context, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	mode, err := config.ParseMode(v.GetString("mode"))
	if err != nil {
		return err
	}
	cfg.ApplyMode(mode)
	setupLogging(v, cfg)

	if err := cfg.Validate(); err != nil {
		logging.Critical("invalid configuration", "err", err)
		return err
	}

	slog.Info("clipsync starting",
		"version", Version,
		"config", v.ConfigFileUsed(),
		"sender", cfg.Sender.Enabled,
		"receiver", cfg.Receiver.Enabled,
	)

	cb := clip.New(clip.Options{
		ImageSupport: cfg.MacOS.ImageSupport,
		Headless:     v.GetBool("headless"),
	})
	defer cb.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := daemon.WatchSignals(cancel)
	defer stop()

	return daemon.Run(ctx, cfg, daemon.Deps{
		Clipboard: cb,
		Version:   Version,
		Listen:    ipc.Listen,
	})
}
