package main

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "menulens",
	Short: "Menu photo translation service",
	Long: `menulens reads photos of restaurant menus and returns structured,
translated dish data using vision and language model providers.

Menus can be extracted in one call or in small batches of dishes, which
keeps every provider call inside a short request deadline.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.menulens/config.yaml)",
	)
	rootCmd.AddCommand(versionCmd)
}
