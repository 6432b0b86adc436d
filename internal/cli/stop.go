package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop playback on the host",
	Long: `Stop whatever the playback host is playing. History is left as is.

With the command transport only a player started by this process can be
stopped, so use the launcher's S key or POST /api/stop on a running server.`,
	Args: cobra.NoArgs,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.transport.Stop(cmd.Context()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if JSONOutput() {
		return writeJSON(out, map[string]bool{"stopped": true})
	}
	fmt.Fprintln(out, "■ Stopped")
	return nil
}
