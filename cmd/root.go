package cmd

import (
	"fmt"
	"os"

	"auralis/config"
	"auralis/logger"
	"auralis/server"

	"github.com/spf13/cobra"
)

// cfg 在 PersistentPreRun 中加载，所有子命令共用
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "auralis",
	Short: "Auralis is a music streaming backend.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		logger.InitLogger(logger.Config{
			Level:       logger.ParseLevel(cfg.LogLevel),
			OutputPath:  cfg.LogFile,
			MaxSize:     100,
			MaxBackups:  5,
			MaxAge:      30,
			Compress:    true,
			Development: !cfg.IsProduction(),
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(cfg)
	},
	SilenceUsage: true,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
