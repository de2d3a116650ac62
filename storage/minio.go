package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"auralis/config"
	"auralis/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MediaKind 上传资源的分类，音频和图片放在不同前缀下
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaImage MediaKind = "image"
)

// Prefix 对象 key 前缀
func (k MediaKind) Prefix() string {
	if k == MediaImage {
		return "images/"
	}
	return "audio/"
}

// publicReadPolicy 允许匿名读取媒体前缀
const publicReadPolicy = `{
  "Version": "2012-10-17",
  "Statement": [{
    "Effect": "Allow",
    "Principal": {"AWS": ["*"]},
    "Action": ["s3:GetObject"],
    "Resource": ["arn:aws:s3:::%[1]s/audio/*", "arn:aws:s3:::%[1]s/images/*"]
  }]
}`

// MinioStore 媒体文件存储
type MinioStore struct {
	client    *minio.Client
	bucket    string
	region    string
	publicURL string
	maxWidth  int
	maxHeight int
}

// NewMinioStore 初始化 MinIO 客户端并确保存储桶存在
func NewMinioStore(ctx context.Context, cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	s := &MinioStore{
		client:    client,
		bucket:    cfg.MinioBucket,
		region:    cfg.MinioRegion,
		publicURL: strings.TrimRight(cfg.MediaPublicURL, "/"),
		maxWidth:  cfg.ImageMaxWidth,
		maxHeight: cfg.ImageMaxHeight,
	}
	if s.publicURL == "" {
		s.publicURL = strings.TrimRight(client.EndpointURL().String(), "/") + "/" + s.bucket
	}

	if err := s.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureBucket 检查存储桶，不存在则创建并设置公开读
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		logger.Info("bucket already exists", logger.String("bucket", s.bucket))
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	if err := s.client.SetBucketPolicy(ctx, s.bucket, fmt.Sprintf(publicReadPolicy, s.bucket)); err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}
	logger.Info("bucket created", logger.String("bucket", s.bucket))
	return nil
}

// Ping 检查存储是否可用
func (s *MinioStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

// Upload 上传本地暂存文件，返回公开访问地址；图片会先缩放到限定尺寸内
func (s *MinioStore) Upload(ctx context.Context, kind MediaKind, localPath, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	var (
		body io.Reader
		size int64
		ext  = strings.ToLower(filepath.Ext(localPath))
	)

	if kind == MediaImage {
		data, ct, err := FitImage(f, s.maxWidth, s.maxHeight)
		if err != nil {
			return "", err
		}
		body, size, contentType = bytes.NewReader(data), int64(len(data)), ct
		ext = extensionFor(ct)
	} else {
		info, err := f.Stat()
		if err != nil {
			return "", fmt.Errorf("stat staged file: %w", err)
		}
		body, size = f, info.Size()
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := kind.Prefix() + uuid.NewString() + ext
	_, err = s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000",
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	logger.Debug("media uploaded",
		logger.String("key", key),
		logger.Int64("size", size),
		logger.String("contentType", contentType))
	return s.ObjectURL(key), nil
}

// ObjectURL 对象的公开访问地址
func (s *MinioStore) ObjectURL(key string) string {
	return s.publicURL + "/" + key
}

// KeyFromURL 从公开地址反推对象 key，不属于本存储的地址返回 false
func (s *MinioStore) KeyFromURL(url string) (string, bool) {
	prefix := s.publicURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := path.Clean(strings.TrimPrefix(url, prefix))
	if key == "." || strings.HasPrefix(key, "../") {
		return "", false
	}
	return key, true
}

// Delete 按公开地址删除对象，外部地址直接忽略
func (s *MinioStore) Delete(ctx context.Context, url string) error {
	key, ok := s.KeyFromURL(url)
	if !ok {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	default:
		return ".jpg"
	}
}
