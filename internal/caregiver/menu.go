package caregiver

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/tessro/onetap/internal/config"
	xlog "github.com/tessro/onetap/internal/log"
)

// Menu actions.
const (
	actionAdd    = "add"
	actionRemove = "remove"
	actionMode   = "mode"
	actionExport = "export"
	actionImport = "import"
	actionDone   = "done"
)

// PromptPIN asks for the caregiver PIN with masked input.
func PromptPIN() (string, error) {
	var pin string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Caregiver PIN").
				EchoMode(huh.EchoModePassword).
				Value(&pin),
		),
	).Run()
	if err != nil {
		return "", fmt.Errorf("PIN entry cancelled: %w", err)
	}
	return pin, nil
}

// RunMenu opens the interactive caregiver menu for the config file at path.
// The PIN is checked against live, which carries environment overrides.
// Every change is saved immediately.
func RunMenu(live *config.Config, path string, out io.Writer) error {
	if err := VerifyPIN(live, PromptPIN); err != nil {
		return err
	}
	cfg, err := config.LoadForEdit(path)
	if err != nil {
		return err
	}

	logger := xlog.WithComponent("caregiver")

	for {
		action, err := chooseAction(cfg)
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
		if action == actionDone {
			return nil
		}

		msg, changed, err := runAction(cfg, action)
		if err != nil {
			_, _ = fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		if changed {
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			logger.Info().Str("action", action).Str("path", path).Msg("config updated")
		}
		if msg != "" {
			_, _ = fmt.Fprintln(out, msg)
		}
	}
}

func chooseAction(cfg *config.Config) (string, error) {
	var action string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Caregiver menu").
				Description(fmt.Sprintf("%d tiles, mode %s", len(cfg.Tiles), cfg.Mode)).
				Options(
					huh.NewOption("Add a tile", actionAdd),
					huh.NewOption("Remove a tile", actionRemove),
					huh.NewOption(fmt.Sprintf("Switch to %s mode", cfg.PlaybackMode().Toggle()), actionMode),
					huh.NewOption("Export settings", actionExport),
					huh.NewOption("Import settings", actionImport),
					huh.NewOption("Done", actionDone),
				).
				Value(&action),
		),
	).Run()
	return action, err
}

// runAction performs one menu action and reports whether cfg changed.
func runAction(cfg *config.Config, action string) (string, bool, error) {
	switch action {
	case actionAdd:
		tile, err := promptTile()
		if err != nil {
			return "", false, err
		}
		if err := AddTile(cfg, tile); err != nil {
			return "", false, err
		}
		return fmt.Sprintf("Added %s", tile.ShowID), true, nil

	case actionRemove:
		if len(cfg.Tiles) == 0 {
			return "No tiles to remove", false, nil
		}
		var showID string
		options := make([]huh.Option[string], 0, len(cfg.Tiles))
		for _, t := range cfg.Tiles {
			options = append(options, huh.NewOption(t.Show().DisplayLabel(), t.ShowID))
		}
		err := huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().Title("Remove which tile?").Options(options...).Value(&showID),
		)).Run()
		if err != nil {
			return "", false, err
		}
		if err := RemoveTile(cfg, showID); err != nil {
			return "", false, err
		}
		return fmt.Sprintf("Removed %s", showID), true, nil

	case actionMode:
		mode := ToggleMode(cfg)
		return fmt.Sprintf("Mode is now %s", mode), true, nil

	case actionExport:
		path, err := promptPath("Export to", "onetap-export.toml")
		if err != nil {
			return "", false, err
		}
		if err := Export(cfg, path); err != nil {
			return "", false, err
		}
		return fmt.Sprintf("Exported to %s", path), false, nil

	case actionImport:
		path, err := promptPath("Import from", "")
		if err != nil {
			return "", false, err
		}
		imported, err := Import(path)
		if err != nil {
			return "", false, err
		}
		*cfg = *imported
		return fmt.Sprintf("Imported %d tiles from %s", len(cfg.Tiles), path), true, nil
	}
	return "", false, fmt.Errorf("unknown action %q", action)
}

func promptTile() (config.TileConfig, error) {
	var tile config.TileConfig
	var weight string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Show ID").Description("Short unique name, e.g. bluey").Value(&tile.ShowID),
			huh.NewInput().Title("Folder").Description("Directory containing the episode files").Value(&tile.Path),
			huh.NewInput().Title("Label").Description("Optional name shown on the tile").Value(&tile.Label),
			huh.NewInput().Title("Weight").Description("Optional, used by cross-show auto-advance").
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					_, err := strconv.ParseFloat(s, 64)
					return err
				}).
				Value(&weight),
		),
	).Run()
	if err != nil {
		return tile, err
	}
	if weight != "" {
		tile.Weight, _ = strconv.ParseFloat(weight, 64)
	}
	return tile, nil
}

func promptPath(title, placeholder string) (string, error) {
	var path string
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(title).
			Description(".toml, .json or .yaml").
			Placeholder(placeholder).
			Value(&path),
	)).Run()
	if err == nil && path == "" {
		path = placeholder
	}
	return path, err
}
