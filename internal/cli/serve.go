package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tessro/onetap/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP remote control",
	Long: `Serve the tile API so a phone or wall tablet can act as the remote.

Routes:
  GET    /healthz
  GET    /api/tiles
  POST   /api/stop
  POST   /api/tiles/{show_id}/play
  GET    /api/tiles/{show_id}/candidates
  GET    /api/history/{show_id}
  DELETE /api/history/{show_id}
  GET    /metrics

With auto_advance.enabled, plays go through the auto-advance controller and
playback continues after each episode ends. Config file changes are picked up
without a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	la, err := newLiveApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = la.Close() }()
	_ = la.checkTransport(ctx, cmd.ErrOrStderr())

	opts := []server.Option{
		server.WithTransportCheck(la.transport.Ping),
		server.WithStopFunc(la.transport.Stop),
	}
	if cfg.AutoAdvance.Enabled {
		opts = append(opts, server.WithPlayFunc(la.controller.Play))
	}
	srv := server.New(la.launcher, la.store, opts...)

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if !JSONOutput() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Serving on http://%s\n", addr)
	}

	return la.run(ctx, func(ctx context.Context) error {
		return srv.ListenAndServe(ctx, addr)
	})
}
