package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipsync/internal/ipc"
	"go.klb.dev/clipsync/internal/statusapi"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the running daemon",
		Long: `Queries the running clipsync daemon over its control socket
($CLIPSYNC_SOCKET overrides the default location).`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), v, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addConfigFlag(cmd)
	return cmd
}

func runStatus(ctx context.Context, v *viper.Viper, out io.Writer) error {
	if !ipc.IsRunning() {
		return fmt.Errorf("no clipsync daemon listening on %s", ipc.SocketPath())
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	r, err := statusapi.NewClient(ipc.Dial).Status(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	if v.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	printStatus(out, r)
	return nil
}

func printStatus(out io.Writer, r *statusapi.Report) {
	w := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Version:\t%s\n", r.Version)
	fmt.Fprintf(w, "Roles:\t%s\n", strings.Join(r.Roles, ", "))
	fmt.Fprintf(w, "Clipboard:\t%s (images: %t)\n", r.Backend, r.Images)
	fmt.Fprintf(w, "Started:\t%s\n", fmtAge(r.StartedAt))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Published:\t%d\t(failed %d, echoes skipped %d, last %s)\n",
		r.Published, r.PublishFailed, r.EchoesSkipped, tsAge(r.LastPublishAt))
	fmt.Fprintf(w, "Received:\t%d\t(applied %d, failed %d, last %s)\n",
		r.Received, r.Applied, r.ApplyFailed, tsAge(r.LastReceiveAt))

	conn := "disconnected"
	if r.Connected {
		conn = "connected since " + tsAge(r.ConnectedSince)
	}
	fmt.Fprintf(w, "Subscription:\t%s\t(reconnects %d)\n", conn, r.Reconnects)
	if r.LastError != "" {
		fmt.Fprintf(w, "Last error:\t%s\n", r.LastError)
	}
	_ = w.Flush()
}

func tsAge(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return fmtAge(*t)
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	return t.Format("15:04:05")
}
