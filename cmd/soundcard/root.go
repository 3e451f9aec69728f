package main

import (
	"github.com/exact3design/soundcard/internal/config"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	appCfg := func() config.AppConfig {
		return config.AppConfig{ConfigPath: configFlag}
	}

	rootCmd := &cobra.Command{
		Use:           "soundcard",
		Short:         "Audio and video greeting card service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newServeCommand(appCfg))
	rootCmd.AddCommand(newMigrateCommand(appCfg))
	rootCmd.AddCommand(newAdminCommand(appCfg))
	rootCmd.AddCommand(newOrdersCommand(appCfg))

	return rootCmd
}
