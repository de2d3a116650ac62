package cache

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	presenceConnsKey    = "auralis:presence:conns"    // Hash: userID -> connID
	presenceActivityKey = "auralis:presence:activity" // Hash: userID -> activity
	presenceAliveKey    = "auralis:presence:alive:%s" // String: 连接心跳 key (connID)
	presenceTTL         = 90 * time.Second            // 心跳过期时间
)

// removeIfOwner 只有当前登记的连接才能移除自己
var removeIfOwner = redis.NewScript(`
if redis.call('HGET', KEYS[1], ARGV[1]) == ARGV[2] then
  redis.call('HDEL', KEYS[1], ARGV[1])
  redis.call('HDEL', KEYS[2], ARGV[1])
  redis.call('DEL', KEYS[3])
  return 1
end
return 0
`)

// RedisPresence 基于 Redis 的在线用户表，多实例共享
type RedisPresence struct {
	client *redis.Client
}

// NewRedisPresence 创建在线用户表
func NewRedisPresence(client *redis.Client) *RedisPresence {
	return &RedisPresence{client: client}
}

func aliveKey(connID string) string {
	return fmt.Sprintf(presenceAliveKey, connID)
}

// Add 登记用户连接，覆盖旧连接
func (p *RedisPresence) Add(ctx context.Context, userID, connID string) error {
	pipe := p.client.TxPipeline()
	pipe.HSet(ctx, presenceConnsKey, userID, connID)
	pipe.Set(ctx, aliveKey(connID), userID, presenceTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Touch 刷新连接心跳
func (p *RedisPresence) Touch(ctx context.Context, userID, connID string) error {
	return p.client.Set(ctx, aliveKey(connID), userID, presenceTTL).Err()
}

// Remove 移除用户，connID 不匹配时不做任何事
func (p *RedisPresence) Remove(ctx context.Context, userID, connID string) (bool, error) {
	n, err := removeIfOwner.Run(ctx, p.client,
		[]string{presenceConnsKey, presenceActivityKey, aliveKey(connID)},
		userID, connID,
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Lookup 查询用户当前连接
func (p *RedisPresence) Lookup(ctx context.Context, userID string) (string, bool, error) {
	connID, err := p.client.HGet(ctx, presenceConnsKey, userID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return connID, true, nil
}

// Online 返回在线用户，心跳过期的条目顺便清理
func (p *RedisPresence) Online(ctx context.Context) ([]string, error) {
	conns, err := p.client.HGetAll(ctx, presenceConnsKey).Result()
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return []string{}, nil
	}

	pipe := p.client.Pipeline()
	checks := make(map[string]*redis.IntCmd, len(conns))
	for userID, connID := range conns {
		checks[userID] = pipe.Exists(ctx, aliveKey(connID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	users := make([]string, 0, len(conns))
	for userID, cmd := range checks {
		if cmd.Val() > 0 {
			users = append(users, userID)
			continue
		}
		if _, err := p.Remove(ctx, userID, conns[userID]); err != nil {
			return nil, err
		}
	}
	sort.Strings(users)
	return users, nil
}

// SetActivity 记录用户当前在听什么
func (p *RedisPresence) SetActivity(ctx context.Context, userID, activity string) error {
	return p.client.HSet(ctx, presenceActivityKey, userID, activity).Err()
}

// Activities 所有用户的当前活动
func (p *RedisPresence) Activities(ctx context.Context) (map[string]string, error) {
	return p.client.HGetAll(ctx, presenceActivityKey).Result()
}
