package server

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"auralis/core/apperr"
	"auralis/core/auth"
	"auralis/core/ratelimit"
	"auralis/logger"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// requestLogger 记录每个请求的方法、路径、状态码和耗时
func (h *APIHandler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []zap.Field{
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("duration", time.Since(start)),
			logger.String("requestId", middleware.GetReqID(r.Context())),
			logger.String("ip", h.clientIP(r)),
		}
		switch {
		case status >= 500:
			logger.Error("HTTP request", fields...)
		case status >= 400:
			logger.Warn("HTTP request", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	})
}

// recoverer 捕获 panic，按内部错误返回统一响应
func (h *APIHandler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.Error("Panic recovered",
				logger.String("path", r.URL.Path),
				logger.Any("panic", rec),
				logger.String("stack", string(debug.Stack())))
			h.writeError(w, r, fmt.Errorf("panic: %v", rec))
		}()
		next.ServeHTTP(w, r)
	})
}

// clientIP 默认取连接地址；连接来自可信代理时，从 X-Forwarded-For 右侧
// 找第一个不可信的地址，其次是 X-Real-IP
func (h *APIHandler) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !h.trusted(host) {
		return host
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if net.ParseIP(hop) == nil {
				break
			}
			if !h.trusted(hop) {
				return hop
			}
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(realIP) != nil {
		return realIP
	}
	return host
}

func (h *APIHandler) trusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range h.proxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// limit 按客户端 IP 计数，存储出错时放行
func (h *APIHandler) limit(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Allow(r.Context(), h.clientIP(r))
			if err != nil {
				logger.Warn("Rate limit store unavailable, allowing request",
					logger.String("rule", l.Rule().Name),
					logger.ErrorField(err))
				next.ServeHTTP(w, r)
				return
			}

			header := w.Header()
			header.Set("RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
			header.Set("RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			header.Set("RateLimit-Reset", strconv.Itoa(int(math.Ceil(res.Reset.Seconds()))))

			if !res.Allowed {
				h.writeError(w, r, apperr.New(apperr.RateLimited, l.Rule().Message))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestToken 优先取 Authorization 头，websocket 握手可以用 token 参数
func requestToken(r *http.Request) (string, bool) {
	if token, ok := auth.BearerToken(r.Header.Get("Authorization")); ok {
		return token, true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}

// authenticate 校验 token 并把身份写入上下文
func (h *APIHandler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := requestToken(r)
		if !ok {
			h.writeError(w, r, apperr.New(apperr.Unauthorized, "Unauthorized - you must be logged in"))
			return
		}
		id, err := h.tokens.ParseToken(token)
		if err != nil {
			logger.Debug("Token rejected", logger.ErrorField(err))
			h.writeError(w, r, apperr.New(apperr.Unauthorized, "Unauthorized - you must be logged in"))
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// requireAdmin 必须在 authenticate 之后使用
func (h *APIHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			h.writeError(w, r, apperr.New(apperr.Unauthorized, "Unauthorized - you must be logged in"))
			return
		}
		email, isAdmin, err := h.admins.Resolve(r.Context(), id.UserID)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("resolve admin: %w", err))
			return
		}
		if !isAdmin {
			logger.Warn("Admin access denied",
				logger.String("userId", id.UserID),
				logger.String("email", email))
			h.writeError(w, r, apperr.New(apperr.Forbidden, "Unauthorized - you must be an admin"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// chain 按书写顺序包裹 handler，第一个中间件在最外层
func chain(handler http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
	var out http.Handler = handler
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// identity 受保护路由中取当前用户
func identity(r *http.Request) *auth.Identity {
	id, _ := auth.FromContext(r.Context())
	if id == nil {
		return &auth.Identity{}
	}
	return id
}
