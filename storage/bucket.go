package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/minio/minio-go/v7"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
	ByPrefix     map[string]int64 // 顶层目录 -> 字节数
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// List 列出前缀下的对象并统计
func (s *MinioStore) List(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{ByPrefix: make(map[string]int64)}
	var objects []ObjectInfo

	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	}) {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("list objects: %w", object.Err)
		}

		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
		stats.ByPrefix[topLevel(object.Key)] += object.Size

		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
		})
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, stats, nil
}

// DeletePrefix 递归删除前缀下的所有对象，返回删除数量
func (s *MinioStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, fmt.Errorf("refusing to delete the whole bucket")
	}

	var toDelete []minio.ObjectInfo
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return 0, fmt.Errorf("list objects: %w", object.Err)
		}
		toDelete = append(toDelete, object)
	}
	if len(toDelete) == 0 {
		return 0, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(toDelete))
	for _, obj := range toDelete {
		objectsCh <- obj
	}
	close(objectsCh)

	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			return 0, fmt.Errorf("remove object %s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	return len(toDelete), nil
}

// Bucket 存储桶名
func (s *MinioStore) Bucket() string {
	return s.bucket
}

func topLevel(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return key[:i+1]
		}
	}
	return "/"
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
