package server

import (
	"net/http"

	"auralis/core/apperr"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
)

// Routes 注册所有路由并套上全局中间件
func (h *APIHandler) Routes() http.Handler {
	router := mux.NewRouter()

	auth := h.authenticate
	admin := h.requireAdmin
	api := h.limit(h.apiLimit)

	router.HandleFunc("/", h.IndexHandler).Methods(http.MethodGet)
	router.Handle("/ws", chain(h.WebSocketHandler, auth)).Methods(http.MethodGet)

	// 健康检查
	router.Handle("/api/health", chain(h.HealthHandler, api)).Methods(http.MethodGet)
	router.Handle("/api/health/detailed", chain(h.DetailedHealthHandler, api)).Methods(http.MethodGet)

	// 认证
	authLimit := h.limit(h.authLimit)
	router.Handle("/api/auth/callback", chain(h.AuthCallbackHandler, api, authLimit)).Methods(http.MethodPost)
	router.Handle("/api/auth/me", chain(h.MeHandler, api, authLimit, auth)).Methods(http.MethodGet)

	// 用户和聊天
	router.Handle("/api/users", chain(h.ListUsersHandler, api, auth)).Methods(http.MethodGet)
	router.Handle("/api/users/messages/{userId}", chain(h.GetMessagesHandler, api, auth)).Methods(http.MethodGet)
	router.Handle("/api/users/messages/{userId}", chain(h.SendMessageHandler, api, auth)).Methods(http.MethodPost)

	// 歌曲，固定路径必须在 {id} 之前注册
	search := h.limit(h.searchLimit)
	router.Handle("/api/songs", chain(h.ListSongsHandler, api, auth, admin)).Methods(http.MethodGet)
	router.Handle("/api/songs/search", chain(h.SearchHandler, api, search)).Methods(http.MethodGet)
	router.Handle("/api/songs/search/quick", chain(h.QuickSearchHandler, api, search)).Methods(http.MethodGet)
	router.Handle("/api/songs/featured", chain(h.FeaturedHandler, api)).Methods(http.MethodGet)
	router.Handle("/api/songs/made-for-you", chain(h.MadeForYouHandler, api)).Methods(http.MethodGet)
	router.Handle("/api/songs/trending", chain(h.TrendingHandler, api)).Methods(http.MethodGet)
	router.Handle("/api/songs/{id}", chain(h.GetSongHandler, api)).Methods(http.MethodGet)
	router.Handle("/api/songs/{id}/play", chain(h.PlayHandler, api, h.limit(h.playLimit))).Methods(http.MethodPost)

	// 专辑
	router.Handle("/api/albums", chain(h.ListAlbumsHandler, api)).Methods(http.MethodGet)
	router.Handle("/api/albums/{albumId}", chain(h.GetAlbumHandler, api)).Methods(http.MethodGet)

	// 管理员
	uploads := h.limit(h.uploadLimit)
	router.Handle("/api/admin/check", chain(h.CheckAdminHandler, api, auth, admin)).Methods(http.MethodGet)
	router.Handle("/api/admin/songs", chain(h.CreateSongHandler, api, uploads, auth, admin)).Methods(http.MethodPost)
	router.Handle("/api/admin/songs/{id}", chain(h.DeleteSongHandler, api, auth, admin)).Methods(http.MethodDelete)
	router.Handle("/api/admin/albums", chain(h.CreateAlbumHandler, api, uploads, auth, admin)).Methods(http.MethodPost)
	router.Handle("/api/admin/albums/{id}", chain(h.DeleteAlbumHandler, api, auth, admin)).Methods(http.MethodDelete)
	router.Handle("/api/stats", chain(h.StatsHandler, api, auth, admin)).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, apperr.New(apperr.NotFound, "Route not found"))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	return chi.Chain(
		middleware.RequestID,
		h.requestLogger,
		h.recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   h.cfg.ClientURLs,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.Compress(5),
	).Handler(router)
}
