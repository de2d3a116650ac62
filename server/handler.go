package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"auralis/config"
	"auralis/core/auth"
	"auralis/core/chat"
	"auralis/core/music"
	"auralis/core/ratelimit"
	"auralis/logger"
	"auralis/repository"

	"github.com/gorilla/websocket"
)

// TokenParser 校验 bearer token
type TokenParser interface {
	ParseToken(token string) (*auth.Identity, error)
}

// AdminResolver 解析用户主邮箱并判定是否管理员
type AdminResolver interface {
	Resolve(ctx context.Context, userID string) (email string, isAdmin bool, err error)
}

// Pinger 健康检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options 构造 APIHandler 所需的依赖
type Options struct {
	Config    *config.Config
	Store     *repository.Store
	Media     music.MediaStore
	Prober    music.DurationProber
	Tokens    TokenParser
	Admins    AdminResolver
	Chat      *chat.Service
	Hub       *chat.Hub
	RateStore ratelimit.Store

	// 健康检查，Redis 和存储未启用时为 nil
	Database Pinger
	Redis    Pinger
	Storage  Pinger
}

// APIHandler 处理所有API请求
type APIHandler struct {
	cfg    *config.Config
	users  repository.UserRepository
	query  *music.QueryService
	admin  *music.AdminService
	tokens TokenParser
	admins AdminResolver
	chat   *chat.Service
	hub    *chat.Hub

	apiLimit    *ratelimit.Limiter
	authLimit   *ratelimit.Limiter
	uploadLimit *ratelimit.Limiter
	searchLimit *ratelimit.Limiter
	playLimit   *ratelimit.Limiter

	database Pinger
	redis    Pinger
	storage  Pinger

	// 可信反向代理，只有来自这些地址的请求才读取转发头
	proxies []*net.IPNet

	upgrader websocket.Upgrader
	started  time.Time
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(o Options) *APIHandler {
	rates := o.RateStore
	if rates == nil {
		rates = ratelimit.NewMemoryStore()
	}

	h := &APIHandler{
		cfg:    o.Config,
		users:  o.Store.Users,
		query:  music.NewQueryService(o.Store),
		admin:  music.NewAdminService(o.Store, o.Media, o.Prober, o.Config),
		tokens: o.Tokens,
		admins: o.Admins,
		chat:   o.Chat,
		hub:    o.Hub,

		apiLimit:    ratelimit.New(rates, ratelimit.API),
		authLimit:   ratelimit.New(rates, ratelimit.Auth),
		uploadLimit: ratelimit.New(rates, ratelimit.Upload),
		searchLimit: ratelimit.New(rates, ratelimit.Search),
		playLimit:   ratelimit.New(rates, ratelimit.Play),

		database: o.Database,
		redis:    o.Redis,
		storage:  o.Storage,
		started:  time.Now(),
	}
	if h.database == nil {
		h.database = o.Store
	}

	proxies, err := o.Config.TrustedNetworks()
	if err != nil {
		logger.Warn("Ignoring invalid trusted proxies", logger.ErrorField(err))
	}
	h.proxies = proxies

	origins := make(map[string]bool, len(o.Config.ClientURLs))
	for _, u := range o.Config.ClientURLs {
		origins[u] = true
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origins[origin]
		},
	}
	return h
}
