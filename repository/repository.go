package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound 文档不存在
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate 违反唯一索引
	ErrDuplicate = errors.New("duplicate key")
)

// Store 聚合所有仓库，由 db.OpenStore 按驱动构造
type Store struct {
	Driver   string
	Songs    SongRepository
	Albums   AlbumRepository
	Users    UserRepository
	Messages MessageRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping 检查底层连接
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close 关闭底层连接
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// containsPattern 用户输入按字面子串匹配
func containsPattern(s string) string {
	return regexp.QuoteMeta(strings.TrimSpace(s))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern 转义 LIKE 通配符后包成 %s%
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(s)) + "%"
}

// hexID 解析数据库中的十六进制 id，非法值返回零值
func hexID(s string) primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(s)
	return id
}

func hexIDs(in []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(in))
	for _, s := range in {
		if id, err := primitive.ObjectIDFromHex(s); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func hexStrings(in []primitive.ObjectID) []string {
	out := make([]string, 0, len(in))
	for _, id := range in {
		out = append(out, id.Hex())
	}
	return out
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
