package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipsync/internal/config"
	"go.klb.dev/clipsync/internal/ntfy"
)

func newSendCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Publish stdin to the sender topic once (like pbcopy)",
		Long: `Reads stdin and publishes it to sender.ntfy_topic_url exactly as the
sender loop would. Other machines running the receiver copy it.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSend(cmd.Context(), v, cmd.InOrStdin())
		},
	}

	addLoggingFlags(cmd)
	addConfigFlag(cmd)
	return cmd
}

func runSend(ctx context.Context, v *viper.Viper, in io.Reader) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg.ApplyMode(config.ModeSender)
	setupLogging(v, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	hc := &http.Client{}
	defer hc.CloseIdleConnections()
	if !ntfy.New(cfg, hc).PublishText(ctx, ntfy.DecodeText(data)) {
		return errors.New("publish failed")
	}
	return nil
}
