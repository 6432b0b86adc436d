package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tessro/onetap/internal/core"
)

var playCmd = &cobra.Command{
	Use:   "play <show_id>",
	Short: "Play the next episode of a show",
	Long: `Pick the next episode of a show and start it on the playback host.

Up to playback.failure_budget candidates are tried. The first one that starts
is recorded in history.

Examples:
  onetap play bluey
  onetap play bluey --json`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	out, err := a.launcher.Play(cmd.Context(), args[0])
	if err != nil && out.Status == "" {
		return err
	}
	if perr := printOutcome(cmd.OutOrStdout(), out); perr != nil {
		return perr
	}
	return err
}

func printOutcome(w io.Writer, out core.Outcome) error {
	if JSONOutput() {
		return writeJSON(w, out)
	}

	switch out.Status {
	case core.OutcomePlayed:
		fmt.Fprintf(w, "▶ Playing %s\n", filepath.Base(out.Episode))
	case core.OutcomeExhausted:
		fmt.Fprintf(w, "✗ Nothing played for %s after %d attempts\n", out.ShowID, out.Attempts)
	case core.OutcomeAborted:
		fmt.Fprintf(w, "■ Stopped before anything played for %s\n", out.ShowID)
	}
	if Verbose() {
		for _, f := range out.Failures {
			fmt.Fprintf(w, "  %s: %s\n", filepath.Base(f.Episode), f.Reason)
		}
	}
	return nil
}
