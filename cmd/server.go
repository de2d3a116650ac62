package cmd

import (
	"auralis/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 Auralis 服务器",
	Long:  `启动 HTTP API 和 WebSocket 聊天服务，收到 SIGINT/SIGTERM 后优雅退出`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
