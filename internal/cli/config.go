package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/tessro/onetap/internal/caregiver"
	"github.com/tessro/onetap/internal/config"
	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
)

var setModeShow string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Commands for viewing and editing onetap configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration, including environment overrides. Secrets are masked.`,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), ConfigPath())
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long:  `Open the configuration file in your default editor.`,
	RunE:  runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long:  `Create a new configuration file with default values.`,
	RunE:  runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value. Requires the caregiver PIN when one is set.

Supported keys:
  mode                         order or random
  random.exclude_last_n        Recent episodes random mode avoids
  random.use_comfort_weights   Favour recently watched episodes (true/false)
  history.backend              sqlite, json or memory
  history.path                 History file
  history.max                  Entries kept per show
  playback.failure_budget      Failed starts tolerated per tap
  auto_advance.enabled         Keep playing after an episode ends (true/false)
  auto_advance.cross_show      Switch shows after each episode (true/false)
  auto_advance.poll_interval   Player poll interval in milliseconds
  transport.kind               kodi, command or noop
  transport.kodi_url           Kodi base URL
  transport.username           Kodi username
  transport.password           Kodi password
  transport.timeout            Request timeout in seconds
  transport.command            Player command, {file} is the episode
  caregiver.pin                Caregiver PIN (empty disables it)
  log.level                    debug, info, warn or error
  log.file                     Log file
  server.addr                  HTTP listen address

Examples:
  onetap config set mode random
  onetap config set transport.kodi_url http://livingroom.local:8080
  onetap config set transport.command "mpv --fs {file}"`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configSetModeCmd = &cobra.Command{
	Use:   "set-mode [order|random]",
	Short: "Set the playback mode",
	Long: `Set the global playback mode, or one show's mode with --show. Without an
argument a picker is shown. Use --show with "inherit" to clear a show's
override.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigSetMode,
}

var configExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the configuration",
	Long:  `Write the configuration file as TOML, JSON or YAML, chosen by extension.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigExport,
}

var configImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the configuration with an exported file",
	Long:  `Read a TOML, JSON or YAML export, validate it and save it as the configuration file.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigImport,
}

func init() {
	configSetModeCmd.Flags().StringVar(&setModeShow, "show", "", "set the mode for one show only")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetModeCmd)
	configCmd.AddCommand(configExportCmd)
	configCmd.AddCommand(configImportCmd)
	rootCmd.AddCommand(configCmd)
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	shown := *cfg
	shown.Caregiver.PIN = maskSecret(shown.Caregiver.PIN)
	shown.Transport.Password = maskSecret(shown.Transport.Password)

	out := cmd.OutOrStdout()
	if JSONOutput() {
		return writeJSON(out, shown)
	}

	encoder := toml.NewEncoder(out)
	encoder.Indent = "  "
	return encoder.Encode(shown)
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath := ConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return apperr.WithSuggestion(
			fmt.Errorf("%w: %s", apperr.ErrConfigNotFound, configPath),
			"Run 'onetap config init' first",
		)
	}
	if err := caregiver.VerifyPIN(cfg, pinPrompt); err != nil {
		return err
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		for _, e := range []string{"nano", "vim", "vi"} {
			if _, err := exec.LookPath(e); err == nil {
				editor = e
				break
			}
		}
	}
	if editor == "" {
		return fmt.Errorf("no editor found. Set EDITOR environment variable")
	}

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return err
	}

	c, err := config.LoadFrom(configPath)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return apperr.WithSuggestion(err, "Run 'onetap config edit' again to fix it")
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := ConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists at %s", configPath)
	}

	if err := config.Save(configPath, config.Default()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if JSONOutput() {
		return writeJSON(out, map[string]string{
			"status": "created",
			"path":   configPath,
		})
	}
	fmt.Fprintf(out, "Created config file: %s\n", configPath)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Add a show with 'onetap tiles add <show_id> <path>'")
	fmt.Fprintln(out, "  2. Point transport.kodi_url at your Kodi, or set transport.command")
	fmt.Fprintln(out, "  3. Optionally set caregiver.pin to lock the caregiver tools")
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	if _, _, err := editConfig(func(c *config.Config) error {
		return setConfigValue(c, key, value)
	}); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	shown := value
	if key == "caregiver.pin" || key == "transport.password" {
		shown = maskSecret(value)
	}
	if JSONOutput() {
		return writeJSON(out, map[string]string{
			"status": "updated",
			"key":    key,
			"value":  shown,
		})
	}
	fmt.Fprintf(out, "Set %s = %s\n", key, shown)
	return nil
}

func setConfigValue(c *config.Config, key, value string) error {
	intValue := func(dst *int) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: value must be an integer for %s", apperr.ErrInvalidConfig, key)
		}
		*dst = n
		return nil
	}
	boolValue := func(dst *bool) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: value must be true or false for %s", apperr.ErrInvalidConfig, key)
		}
		*dst = b
		return nil
	}

	switch key {
	case "mode":
		c.Mode = value
	case "random.exclude_last_n":
		return intValue(&c.Random.ExcludeLastN)
	case "random.use_comfort_weights":
		return boolValue(&c.Random.UseComfortWeights)
	case "history.backend":
		c.History.Backend = value
	case "history.path":
		c.History.Path = value
	case "history.max":
		return intValue(&c.History.Max)
	case "playback.failure_budget":
		return intValue(&c.Playback.FailureBudget)
	case "auto_advance.enabled":
		return boolValue(&c.AutoAdvance.Enabled)
	case "auto_advance.cross_show":
		return boolValue(&c.AutoAdvance.CrossShow)
	case "auto_advance.poll_interval":
		return intValue(&c.AutoAdvance.PollInterval)
	case "transport.kind":
		c.Transport.Kind = value
	case "transport.kodi_url":
		c.Transport.KodiURL = value
	case "transport.username":
		c.Transport.Username = value
	case "transport.password":
		c.Transport.Password = value
	case "transport.timeout":
		return intValue(&c.Transport.Timeout)
	case "transport.command":
		c.Transport.Command = strings.Fields(value)
	case "caregiver.pin":
		c.Caregiver.PIN = value
	case "log.level":
		c.Log.Level = value
	case "log.file":
		c.Log.File = value
	case "server.addr":
		c.Server.Addr = value
	default:
		return fmt.Errorf("%w: unknown key %q", apperr.ErrInvalidConfig, key)
	}
	return nil
}

const modeInherit = "inherit"

func runConfigSetMode(cmd *cobra.Command, args []string) error {
	var mode string
	if len(args) > 0 {
		mode = args[0]
	} else {
		picked, err := pickMode()
		if err != nil {
			return err
		}
		mode = picked
	}
	if mode == modeInherit {
		if setModeShow == "" {
			return fmt.Errorf("%q only applies with --show", modeInherit)
		}
		mode = ""
	}

	if _, _, err := editConfig(func(c *config.Config) error {
		return caregiver.SetMode(c, setModeShow, mode)
	}); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if JSONOutput() {
		return writeJSON(out, map[string]string{
			"status":  "updated",
			"show_id": setModeShow,
			"mode":    mode,
		})
	}
	switch {
	case setModeShow == "":
		fmt.Fprintf(out, "Mode set to %s\n", mode)
	case mode == "":
		fmt.Fprintf(out, "%s now follows the global mode\n", setModeShow)
	default:
		fmt.Fprintf(out, "%s mode set to %s\n", setModeShow, mode)
	}
	return nil
}

func pickMode() (string, error) {
	options := []huh.Option[string]{
		huh.NewOption("In order (next unwatched episode)", string(core.ModeOrder)),
		huh.NewOption("Random (gentle shuffle)", string(core.ModeRandom)),
	}
	if setModeShow != "" {
		options = append(options, huh.NewOption("Follow the global mode", modeInherit))
	}

	selected := string(cfg.PlaybackMode())
	title := "Playback mode"
	if setModeShow != "" {
		title = "Playback mode for " + setModeShow
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("selection cancelled: %w", err)
	}
	return selected, nil
}

func runConfigExport(cmd *cobra.Command, args []string) error {
	if err := caregiver.VerifyPIN(cfg, pinPrompt); err != nil {
		return err
	}
	c, err := config.LoadForEdit(ConfigPath())
	if err != nil {
		return err
	}
	if err := caregiver.Export(c, args[0]); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if JSONOutput() {
		return writeJSON(out, map[string]string{"status": "exported", "path": args[0]})
	}
	fmt.Fprintf(out, "Exported configuration to %s\n", args[0])
	return nil
}

func runConfigImport(cmd *cobra.Command, args []string) error {
	imported, err := caregiver.Import(args[0])
	if err != nil {
		return err
	}

	path, err := replaceConfig(imported)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if JSONOutput() {
		return writeJSON(out, map[string]any{"status": "imported", "path": path, "tiles": len(imported.Tiles)})
	}
	fmt.Fprintf(out, "Imported %d tiles into %s\n", len(imported.Tiles), path)
	return nil
}

// replaceConfig saves c as the whole configuration file after the PIN check.
func replaceConfig(c *config.Config) (string, error) {
	_, path, err := editConfig(func(dst *config.Config) error {
		*dst = *c
		return nil
	})
	return path, err
}
