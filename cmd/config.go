package cmd

import (
	"fmt"

	"github.com/brogergvhs/tachi/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and manage tachi configuration profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, used, err := config.LoadMerged(baseOptions())
		if err != nil {
			return err
		}

		fmt.Printf("Loaded config from:\n  %s\n\n", used)
		cfg.Print()
		fmt.Printf("\nSettings: %s\nLibrary:  %s\n", config.SettingsFile(), config.LibraryFile())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
