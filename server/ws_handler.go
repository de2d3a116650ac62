package server

import (
	"context"
	"net/http"

	"auralis/logger"
)

// WebSocketHandler GET /ws，token 通过 Authorization 头或 token 参数传递
func (h *APIHandler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	id := identity(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", logger.String("userId", id.UserID), logger.ErrorField(err))
		return
	}

	client := h.hub.NewClient(conn, id.UserID)
	h.hub.Register(client)

	// 连接的生命周期独立于请求上下文
	go client.WritePump()
	go client.ReadPump(context.Background())
}
