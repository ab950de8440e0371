package cmd

import (
	"fmt"

	"github.com/brogergvhs/aktudl/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var configSwitchCmd = &cobra.Command{
	Use:   "switch [label]",
	Short: "Switch to a different configuration profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label, err := switchTarget(args)
		if err != nil {
			return err
		}

		if err := config.SwitchConfig(label); err != nil {
			return err
		}

		fmt.Println("Switched to:", label)
		return nil
	},
}

func switchTarget(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	list, err := config.ListConfigs()
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", fmt.Errorf("no configs available")
	}

	items := make([]string, len(list))
	for i, c := range list {
		items[i] = c.Label
		if c.Active {
			items[i] += "  (active)"
		}
	}

	prompt := promptui.Select{Label: "Select config", Items: items}
	idx, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("selection cancelled")
	}

	return list[idx].Label, nil
}

func init() {
	configCmd.AddCommand(configSwitchCmd)
}
