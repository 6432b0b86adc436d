package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/tessro/onetap/internal/core"
	"github.com/tessro/onetap/internal/tui"
)

var launcherCmd = &cobra.Command{
	Use:     "launcher",
	Aliases: []string{"home"},
	Short:   "Open the tile home screen",
	Long: `Show up to 12 tiles in a grid. Move with the arrow keys, press Enter to
play and S to stop. With auto_advance.enabled, playback continues after each episode.`,
	Args: cobra.NoArgs,
	RunE: runLauncher,
}

func init() {
	rootCmd.AddCommand(launcherCmd)
}

// stater is implemented by transports that can report what is playing.
type stater interface {
	State(ctx context.Context) (*core.PlaybackState, error)
}

func runLauncher(cmd *cobra.Command, args []string) error {
	// The home screen owns the terminal; session results are shown on the
	// tiles.
	la, err := newLiveApp(cmd.Context(), cfg, io.Discard)
	if err != nil {
		return err
	}
	defer func() { _ = la.Close() }()

	play := tui.PlayFunc(la.launcher.Play)
	if cfg.AutoAdvance.Enabled {
		play = la.controller.Play
	}

	opts := []tui.Option{tui.WithRecent(la.store.Entries), tui.WithStop(la.transport.Stop)}
	if s, ok := la.transport.(stater); ok {
		opts = append(opts, tui.WithState(s.State))
	}

	return la.run(cmd.Context(), func(ctx context.Context) error {
		return tui.Run(ctx, cfg.Shows(), cfg.PlaybackMode(), play, opts...)
	})
}
