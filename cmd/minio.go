package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"auralis/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix    string
	minioStats     bool
	minioRecursive bool
	minioDelete    bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看和管理媒体存储桶中的文件，支持列出文件、查看统计信息、删除前缀下的所有对象。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)
		store, err := storage.NewMinioStore(ctx, cfg)
		if err != nil {
			return err
		}

		if minioDelete {
			if minioPrefix == "" {
				return fmt.Errorf("删除操作需要指定前缀 (--prefix)")
			}
			n, err := store.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				return err
			}
			fmt.Printf("已删除 %d 个对象 (前缀: %s)\n", n, minioPrefix)
			return nil
		}

		objects, stats, err := store.List(ctx, minioPrefix, minioRecursive || minioStats)
		if err != nil {
			return err
		}

		if minioStats {
			printBucketStats(store.Bucket(), stats)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED")
		for _, o := range objects {
			fmt.Fprintf(w, "%s\t%s\t%s\n", o.Key, storage.FormatSize(o.Size), o.LastModified.Format(time.RFC3339))
		}
		w.Flush()
		fmt.Printf("\n共 %d 个对象，%s\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
		return nil
	},
}

func printBucketStats(bucket string, stats *storage.BucketStats) {
	fmt.Printf("\n存储桶: %s\n", bucket)
	fmt.Printf("对象总数: %d\n", stats.TotalObjects)
	fmt.Printf("总大小: %s\n", storage.FormatSize(stats.TotalSize))
	if !stats.LastModified.IsZero() {
		fmt.Printf("最后修改: %s\n", stats.LastModified.Format(time.RFC3339))
	}

	prefixes := make([]string, 0, len(stats.ByPrefix))
	for p := range stats.ByPrefix {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	for _, p := range prefixes {
		fmt.Printf("  %-12s %s\n", p, storage.FormatSize(stats.ByPrefix[p]))
	}
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件或指定要删除的前缀")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "显示存储桶统计信息")
	minioCmd.Flags().BoolVarP(&minioRecursive, "recursive", "r", false, "递归列出子目录")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "删除指定前缀下的所有对象")

	minioCmd.Example = `  # 列出顶层文件
  auralis minio

  # 递归列出音频
  auralis minio -r -p "audio/"

  # 显示存储桶统计信息
  auralis minio -s

  # 删除前缀下的所有对象
  auralis minio -d -p "images/"`
}
