package ratelimit

import (
	"context"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// KeyPrefix 计数键前缀，内存和 Redis 两种存储共用
const KeyPrefix = "auralis:ratelimit"

// Store 固定窗口计数存储
type Store = limiter.Store

// Rule 一类请求的预算
type Rule struct {
	Name    string
	Limit   int64
	Window  time.Duration
	Message string
}

// 各类请求的预算，按客户端 IP 计数
var (
	API = Rule{
		Name:    "api",
		Limit:   1000,
		Window:  15 * time.Minute,
		Message: "Too many requests from this IP, please try again later.",
	}
	Auth = Rule{
		Name:    "auth",
		Limit:   5,
		Window:  15 * time.Minute,
		Message: "Too many authentication attempts, please try again later.",
	}
	Upload = Rule{
		Name:    "upload",
		Limit:   10,
		Window:  time.Hour,
		Message: "Too many upload attempts, please try again later.",
	}
	Search = Rule{
		Name:    "search",
		Limit:   30,
		Window:  time.Minute,
		Message: "Too many search requests, please slow down.",
	}
	Play = Rule{
		Name:    "play",
		Limit:   100,
		Window:  time.Minute,
		Message: "Too many play requests, please slow down.",
	}
)

// Result 一次判定的结果
type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	Reset     time.Duration
}

// Limiter 单条规则的限流器
type Limiter struct {
	lim  *limiter.Limiter
	rule Rule
}

// New 创建限流器
func New(store Store, rule Rule) *Limiter {
	rate := limiter.Rate{Period: rule.Window, Limit: rule.Limit}
	return &Limiter{lim: limiter.New(store, rate), rule: rule}
}

// Rule 限流规则
func (l *Limiter) Rule() Rule {
	return l.rule
}

// Allow 计数并判定是否放行
func (l *Limiter) Allow(ctx context.Context, client string) (Result, error) {
	lc, err := l.lim.Get(ctx, l.rule.Name+":"+client)
	if err != nil {
		return Result{Allowed: true, Limit: l.rule.Limit, Remaining: l.rule.Limit}, err
	}

	reset := time.Until(time.Unix(lc.Reset, 0))
	if reset <= 0 || reset > l.rule.Window {
		reset = l.rule.Window
	}
	return Result{
		Allowed:   !lc.Reached,
		Limit:     lc.Limit,
		Remaining: lc.Remaining,
		Reset:     reset,
	}, nil
}

// NewMemoryStore 进程内计数，单实例部署使用，过期窗口由存储自行清理
func NewMemoryStore() Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          KeyPrefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	})
}
