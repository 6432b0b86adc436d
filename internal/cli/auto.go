package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	apperr "github.com/tessro/onetap/internal/errors"
)

var autoCrossShow bool

var autoCmd = &cobra.Command{
	Use:   "auto [show_id]",
	Short: "Play continuously, advancing when an episode ends",
	Long: `Start a show and keep playing: when an episode ends the next one starts,
when one fails to play its history entry is undone and another is tried.
Stopping playback on the host ends the run's current chain; press Ctrl+C to exit.

Without a show ID a show is picked by tile weight.

Examples:
  onetap auto bluey
  onetap auto --cross-show`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuto,
}

func init() {
	autoCmd.Flags().BoolVar(&autoCrossShow, "cross-show", false, "pick a different show after each episode (overrides auto_advance.cross_show)")
	rootCmd.AddCommand(autoCmd)
}

func runAuto(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	la, err := newLiveApp(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer func() { _ = la.Close() }()
	_ = la.checkTransport(ctx, cmd.ErrOrStderr())

	if cmd.Flags().Changed("cross-show") {
		la.controller.SetCrossShow(autoCrossShow)
	}

	showID := ""
	if len(args) > 0 {
		showID = args[0]
	} else {
		show, err := la.launcher.Selector().PickShow(la.launcher.Settings().Shows, "")
		if err != nil {
			return apperr.WithSuggestion(err, "Add a tile with 'onetap tiles add <show_id> <path>'")
		}
		showID = show.ID
	}

	return la.run(ctx, func(ctx context.Context) error {
		played, err := la.controller.Play(ctx, showID)
		if err != nil {
			return err
		}
		if !played.Played() {
			return fmt.Errorf("%s did not start", showID)
		}
		if !JSONOutput() {
			fmt.Fprintln(cmd.ErrOrStderr(), "Auto-advance on. Press Ctrl+C to stop.")
		}
		<-ctx.Done()
		return nil
	})
}
