package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/tessro/onetap/internal/core"
	"github.com/tessro/onetap/internal/history"
)

var (
	historyMigrateFrom string
	historyMigrateKeep bool
	historyPurgeAll    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and maintain playback history",
}

var historyShowCmd = &cobra.Command{
	Use:   "show [show_id]",
	Short: "Show recently played episodes",
	Long: `Show the played episodes for one show, newest first. Without a show ID,
print how many entries each show has.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistoryShow,
}

var historyPurgeCmd = &cobra.Command{
	Use:   "purge [show_id]",
	Short: "Delete playback history",
	Long: `Delete the history for one show. Use --all to delete every show's history.

Examples:
  onetap history purge bluey
  onetap history purge --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistoryPurge,
}

var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Import a legacy progress file",
	Long: `Import a legacy progress JSON file ({"show_id": ["episode", ...]}) into the
configured history store. Order is preserved and each show is trimmed to
history.max. The source file is removed afterwards unless --keep is given.`,
	Args: cobra.NoArgs,
	RunE: runHistoryMigrate,
}

func init() {
	historyPurgeCmd.Flags().BoolVar(&historyPurgeAll, "all", false, "purge every show")
	historyMigrateCmd.Flags().StringVar(&historyMigrateFrom, "from", "", "legacy progress file (required)")
	historyMigrateCmd.Flags().BoolVar(&historyMigrateKeep, "keep", false, "keep the legacy file after import")
	_ = historyMigrateCmd.MarkFlagRequired("from")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPurgeCmd)
	historyCmd.AddCommand(historyMigrateCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		return printHistorySummary(cmd, store)
	}

	entries, err := store.Entries(ctx, args[0])
	if err != nil {
		return err
	}
	if JSONOutput() {
		if entries == nil {
			entries = []core.HistoryEntry{}
		}
		return writeJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintf(out, "No history for %s\n", args[0])
		return nil
	}

	t := NewTable(out, "#", "EPISODE", "PLAYED")
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		name := filepath.Base(e.Episode)
		if Verbose() {
			name = e.Episode
		}
		t.Row(fmt.Sprint(len(entries)-i), name, humanize.Time(e.PlayedAt))
	}
	t.Flush()
	return nil
}

func printHistorySummary(cmd *cobra.Command, store core.HistoryStore) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var ids []string
	if lister, ok := store.(history.ShowLister); ok {
		var err error
		if ids, err = lister.ShowIDs(ctx); err != nil {
			return err
		}
	} else {
		for _, t := range cfg.Tiles {
			ids = append(ids, t.ShowID)
		}
	}

	counts := make(map[string]int, len(ids))
	for _, id := range ids {
		eps, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		counts[id] = len(eps)
	}

	if JSONOutput() {
		return writeJSON(out, counts)
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "No history recorded")
		return nil
	}
	t := NewTable(out, "SHOW", "ENTRIES")
	for _, id := range ids {
		t.Row(id, humanize.Comma(int64(counts[id])))
	}
	t.Flush()
	return nil
}

func runHistoryPurge(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !historyPurgeAll {
		return fmt.Errorf("specify a show ID or --all")
	}
	if len(args) > 0 && historyPurgeAll {
		return fmt.Errorf("a show ID and --all cannot be combined")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	showID := ""
	if len(args) > 0 {
		showID = args[0]
	}
	if err := store.Purge(cmd.Context(), showID); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if JSONOutput() {
		return writeJSON(out, map[string]any{"status": "purged", "show_id": showID, "all": showID == ""})
	}
	if showID == "" {
		fmt.Fprintln(out, "Purged history for every show")
	} else {
		fmt.Fprintf(out, "Purged history for %s\n", showID)
	}
	return nil
}

func runHistoryMigrate(cmd *cobra.Command, args []string) error {
	doc, err := history.LoadLegacy(historyMigrateFrom)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	res, err := history.Migrate(cmd.Context(), doc, store, cfg.History.Max)
	if err != nil {
		return err
	}

	removed := false
	if !historyMigrateKeep {
		if err := os.Remove(historyMigrateFrom); err != nil {
			return fmt.Errorf("imported but could not remove %s: %w", historyMigrateFrom, err)
		}
		removed = true
	}

	out := cmd.OutOrStdout()
	if JSONOutput() {
		return writeJSON(out, map[string]any{
			"shows":   res.Shows,
			"entries": res.Entries,
			"removed": removed,
		})
	}
	fmt.Fprintf(out, "Imported %s entries for %d shows into %s history\n",
		humanize.Comma(int64(res.Entries)), res.Shows, cfg.History.Backend)
	if removed {
		fmt.Fprintf(out, "Removed %s\n", historyMigrateFrom)
	}
	return nil
}
