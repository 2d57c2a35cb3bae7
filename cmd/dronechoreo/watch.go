package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dronechoreo/internal/admin"
	"dronechoreo/internal/choreo"
	"dronechoreo/internal/config"
	"dronechoreo/internal/logging"
	"dronechoreo/internal/wire"
)

var (
	watchConfigPath string
	watchSchemaPath string
	watchInput      string
	watchDemo       bool
	watchSeed       int64
	watchTUI        bool
	watchListen     string
	watchTick       time.Duration
	watchStep       time.Duration
	watchLogFile    string
	watchPrintOnly  bool
	watchSession    string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the live show loop",
	Long:  "watch consumes wire frames from STDIN, a file, or the scripted demo feed, adapts the swarm to them, and exports rows.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(watchConfigPath, watchSchemaPath)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var input io.Reader
		switch {
		case watchDemo:
			pr, pw := io.Pipe()
			go feedDemo(ctx, pw, cfg, watchSeed, watchTick)
			input = pr
		case watchInput != "":
			f, err := os.Open(watchInput)
			if err != nil {
				return err
			}
			defer f.Close()
			input = f
		default:
			input = os.Stdin
		}

		tui := watchTUI && term.IsTerminal(int(os.Stdout.Fd()))
		writer, tuiWriter, cleanup, err := newWriters(cfg, watchPrintOnly, watchLogFile, tui)
		if err != nil {
			return err
		}
		defer cleanup()

		if tui {
			// The TUI owns the terminal; keep log records off it.
			level, _ := logging.ParseLevel(logLevelFlag)
			slog.SetDefault(logging.NewWithWriter(io.Discard, level))
		}
		ctx = logging.NewContext(ctx, slog.Default())

		runner, err := choreo.NewRunner(watchSession, cfg, newOracle(cfg), writer, watchTick, nil)
		if err != nil {
			return err
		}
		if watchStep > 0 {
			runner.SetAutoStep(watchStep)
		}
		if tuiWriter != nil {
			tuiWriter.SetCommandSender(func(cmd wire.Command) {
				runner.Command(ctx, cmd)
			})
		}

		if watchListen != "" {
			srv := admin.NewServer(runner)
			go func() {
				if err := srv.Start(ctx, watchListen); err != nil && err != http.ErrServerClosed {
					logging.FromContext(ctx).Error("admin server failed", "err", err)
				}
			}()
			if sw, ok := writer.(choreo.AdminStatusWriter); ok {
				sw.SetAdminStatus(true)
			}
		}

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigs
			cancel()
		}()

		return runner.Run(ctx, input)
	},
}

// feedDemo paces the scripted demo frames onto the pipe, one per tick.
func feedDemo(ctx context.Context, pw *io.PipeWriter, cfg *config.MissionConfig, seed int64, tick time.Duration) {
	defer pw.Close()
	if tick <= 0 {
		tick = time.Second
	}
	for _, frame := range choreo.DemoFeed(cfg.Fleet(), seed) {
		if _, err := io.WriteString(pw, frame+"\n"); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(tick):
		}
	}
	// Leave the show running after the script ends.
	<-ctx.Done()
}

func init() {
	watchCmd.Flags().StringVar(&watchConfigPath, "config", "config/mission.yaml", "Path to mission configuration YAML")
	watchCmd.Flags().StringVar(&watchSchemaPath, "schema", "schemas/mission.cue", "Path to CUE schema file")
	watchCmd.Flags().StringVar(&watchInput, "input", "", "Read wire frames from a file instead of STDIN")
	watchCmd.Flags().BoolVar(&watchDemo, "demo", false, "Play the scripted demo feed instead of reading frames")
	watchCmd.Flags().Int64Var(&watchSeed, "seed", 1, "Demo feed seed")
	watchCmd.Flags().BoolVar(&watchTUI, "tui", false, "Render the live terminal dashboard")
	watchCmd.Flags().StringVar(&watchListen, "listen", "", "Serve the admin UI on this address (e.g. :8080)")
	watchCmd.Flags().DurationVar(&watchTick, "tick", time.Second, "Hold-expiry tick interval")
	watchCmd.Flags().DurationVar(&watchStep, "step", 0, "Advance the show automatically every interval (0 disables)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "Path to export rows (JSONL)")
	watchCmd.Flags().BoolVar(&watchPrintOnly, "print-only", false, "Print rows to STDOUT instead of writing to DB")
	watchCmd.Flags().StringVar(&watchSession, "session", "", "Session id stamped on rows (generated when empty)")
}
