package cli

import (
	"github.com/spf13/cobra"
	"github.com/tessro/onetap/internal/caregiver"
)

var caregiverCmd = &cobra.Command{
	Use:   "caregiver",
	Short: "Open the PIN-protected caregiver menu",
	Long: `Curate the home screen: add and remove tiles, switch between order and
random mode, export and import the configuration. Asks for caregiver.pin
first when one is set. Changes are saved as they are made.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return caregiver.RunMenu(cfg, ConfigPath(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(caregiverCmd)
}
