package cmd

import (
	"fmt"

	"github.com/brogergvhs/aktudl/internal/config"

	"github.com/spf13/cobra"
)

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the current config to default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		label, err := config.CurrentLabel()
		if err != nil {
			return err
		}
		activePath, err := config.ActiveConfigPath()
		if err != nil {
			return err
		}

		if !confirm(fmt.Sprintf("Reset config %q to defaults?", label)) {
			fmt.Println("Aborted.")
			return nil
		}

		if err := config.SaveYAML(config.DefaultConfig(), activePath); err != nil {
			return err
		}

		fmt.Printf("Reset config %q (%s)\n", label, activePath)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configResetCmd)
}
