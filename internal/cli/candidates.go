package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var candidatesLimit int

var candidatesCmd = &cobra.Command{
	Use:   "candidates <show_id>",
	Short: "Preview the episodes a tap would try",
	Long: `Print the candidate list for a show in the order a tap would try it.
Nothing is played and history is not changed. In random mode each run may
print a different order.`,
	Args: cobra.ExactArgs(1),
	RunE: runCandidates,
}

func init() {
	candidatesCmd.Flags().IntVarP(&candidatesLimit, "limit", "n", 0, "show only the first n candidates")
	rootCmd.AddCommand(candidatesCmd)
}

func runCandidates(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	candidates, err := a.launcher.Candidates(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if candidatesLimit > 0 && len(candidates) > candidatesLimit {
		candidates = candidates[:candidatesLimit]
	}

	out := cmd.OutOrStdout()
	if JSONOutput() {
		return writeJSON(out, map[string]any{
			"show_id":    args[0],
			"candidates": candidates,
		})
	}

	for i, c := range candidates {
		name := filepath.Base(c)
		if Verbose() {
			name = c
		}
		fmt.Fprintf(out, "%3d  %s\n", i+1, name)
	}
	return nil
}
