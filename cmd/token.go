package cmd

import (
	"fmt"
	"time"

	"auralis/core/auth"

	"github.com/spf13/cobra"
)

var (
	tokenEmail string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "签发本地调试用的 HS256 token",
	Long:  `使用 AUTH_JWT_SECRET 签发 token，sub 为给定的用户 id。仅用于本地调试。`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET is not set")
		}
		token, err := auth.NewToken([]byte(cfg.JWTSecret), args[0], tokenEmail, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "写入 email claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "有效期")
}
