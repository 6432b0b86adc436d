package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tessro/onetap/internal/caregiver"
	"github.com/tessro/onetap/internal/config"
	apperr "github.com/tessro/onetap/internal/errors"
	"github.com/tessro/onetap/internal/library"
)

var (
	tileLabel  string
	tileWeight float64
	tileMode   string
)

var tilesCmd = &cobra.Command{
	Use:   "tiles",
	Short: "List and curate home screen tiles",
	RunE:  runTilesList,
}

var tilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured tiles",
	RunE:  runTilesList,
}

var tilesAddCmd = &cobra.Command{
	Use:   "add <show_id> <path>",
	Short: "Add a tile",
	Long: `Add a show tile. Requires the caregiver PIN when one is set.

Examples:
  onetap tiles add bluey /media/kids/Bluey --label "Bluey"
  onetap tiles add peppa /media/kids/Peppa --weight 2 --mode random`,
	Args: cobra.ExactArgs(2),
	RunE: runTilesAdd,
}

var tilesRmCmd = &cobra.Command{
	Use:     "rm <show_id>",
	Aliases: []string{"remove"},
	Short:   "Remove a tile",
	Args:    cobra.ExactArgs(1),
	RunE:    runTilesRm,
}

func init() {
	tilesAddCmd.Flags().StringVar(&tileLabel, "label", "", "label shown on the tile")
	tilesAddCmd.Flags().Float64Var(&tileWeight, "weight", 0, "cross-show pick weight (default 1)")
	tilesAddCmd.Flags().StringVar(&tileMode, "mode", "", "per-show mode override (order|random)")
	tilesCmd.AddCommand(tilesListCmd)
	tilesCmd.AddCommand(tilesAddCmd)
	tilesCmd.AddCommand(tilesRmCmd)
	rootCmd.AddCommand(tilesCmd)
}

func runTilesList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if JSONOutput() {
		tiles := cfg.Tiles
		if tiles == nil {
			tiles = []config.TileConfig{}
		}
		return writeJSON(out, tiles)
	}

	if len(cfg.Tiles) == 0 {
		fmt.Fprintln(out, "No tiles configured. Add one with 'onetap tiles add <show_id> <path>'.")
		return nil
	}

	res, err := library.ListAll(cmd.Context(), library.Lister{}, cfg.Shows())
	if err != nil {
		return err
	}

	t := NewTable(out, "SHOW", "LABEL", "MODE", "WEIGHT", "EPISODES", "PATH")
	for i, tile := range cfg.Tiles {
		show := tile.Show()
		mode := string(show.EffectiveMode(cfg.PlaybackMode()))
		if tile.Mode == "" {
			mode += " (global)"
		}
		label := show.DisplayLabel()
		if i >= config.MaxTiles {
			label += " (hidden)"
		}
		t.Row(
			tile.ShowID,
			TruncateString(label, 24),
			mode,
			strconv.FormatFloat(show.EffectiveWeight(), 'g', -1, 64),
			episodeCount(res.Data[i]),
			tile.Path,
		)
	}
	t.Flush()

	if res.HasErrors() {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n⚠ %s\n", strings.TrimSpace(res.ErrorSummary()))
	}
	return nil
}

func episodeCount(se library.ShowEpisodes) string {
	switch {
	case se.Err == nil:
		return strconv.Itoa(len(se.Episodes))
	case errors.Is(se.Err, apperr.ErrEmptyDirectory):
		return "empty"
	default:
		return "missing"
	}
}

// editConfig loads the config file for editing, applies fn and saves it.
// The caregiver PIN from the live config is checked first.
func editConfig(fn func(*config.Config) error) (*config.Config, string, error) {
	if err := caregiver.VerifyPIN(cfg, pinPrompt); err != nil {
		return nil, "", err
	}

	path := ConfigPath()
	c, err := config.LoadForEdit(path)
	if err != nil {
		return nil, "", err
	}
	if err := fn(c); err != nil {
		return nil, "", err
	}
	if err := c.Validate(); err != nil {
		return nil, "", err
	}
	if err := config.Save(path, c); err != nil {
		return nil, "", err
	}
	return c, path, nil
}

// pinPrompt asks for the caregiver PIN. Tests replace it.
var pinPrompt caregiver.PromptFunc = caregiver.PromptPIN

func runTilesAdd(cmd *cobra.Command, args []string) error {
	tile := config.TileConfig{
		ShowID: args[0],
		Path:   args[1],
		Label:  tileLabel,
		Weight: tileWeight,
		Mode:   tileMode,
	}
	edited, path, err := editConfig(func(c *config.Config) error {
		return caregiver.AddTile(c, tile)
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if JSONOutput() {
		return writeJSON(out, map[string]string{"status": "added", "show_id": tile.ShowID, "config": path})
	}
	fmt.Fprintf(out, "Added tile %s\n", tile.ShowID)
	if len(edited.Tiles) > config.MaxTiles {
		fmt.Fprintf(out, "Note: only the first %d tiles appear on the home screen\n", config.MaxTiles)
	}
	return nil
}

func runTilesRm(cmd *cobra.Command, args []string) error {
	_, path, err := editConfig(func(c *config.Config) error {
		return caregiver.RemoveTile(c, args[0])
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if JSONOutput() {
		return writeJSON(out, map[string]string{"status": "removed", "show_id": args[0], "config": path})
	}
	fmt.Fprintf(out, "Removed tile %s\n", args[0])
	return nil
}
