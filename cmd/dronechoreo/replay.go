package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dronechoreo/internal/choreo"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded transition log",
	Long:  "replay re-emits transition rows from a JSONL log at their original pace, so a recorded show can be fed back into the exporter stack.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigs
			cancel()
		}()

		writer, err := newReplayWriter(replayPrintOnly)
		if err != nil {
			return err
		}

		slog.Default().Info("replaying transition log", "file", replayInput, "speed", replaySpeed)
		return choreo.ReplayLogFile(ctx, replayInput, writer, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Transition log to replay (JSONL)")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (2 = twice as fast, 0 = no pacing)")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print rows to stdout instead of exporting")
	_ = replayCmd.MarkFlagRequired("input")
}
