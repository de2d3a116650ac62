package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"auralis/core/music"
	"auralis/db"

	"github.com/spf13/cobra"
)

var (
	seedForce       bool
	reconcileDryRun bool
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "创建数据库索引或迁移表结构",
	Long:  `DB_DRIVER=mongo 时创建集合索引，DB_DRIVER=mysql 时执行 AutoMigrate。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		store, err := db.OpenStore(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer store.Close(context.Background())

		fmt.Printf("%s 索引/表结构已就绪\n", cfg.DBDriver)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "写入示例专辑和歌曲",
	Long:  `写入示例专辑和歌曲，已有数据时跳过；--force 会先清空歌曲和专辑。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		store, err := db.OpenStore(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer store.Close(context.Background())

		report, err := music.Seed(ctx, store, seedForce)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "修复专辑与歌曲之间的引用",
	Long: `扫描所有专辑和歌曲：移除专辑中失效的歌曲 id，补上缺失的歌曲 id，
清除指向已删除专辑的 albumId。--dry-run 只统计不写入。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		store, err := db.OpenStore(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer store.Close(context.Background())

		report, err := music.NewReconciler(store).Run(ctx, reconcileDryRun)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(indexesCmd, seedCmd, reconcileCmd)

	seedCmd.Flags().BoolVar(&seedForce, "force", false, "清空已有歌曲和专辑后重新写入")
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "只统计，不修改数据")
}
