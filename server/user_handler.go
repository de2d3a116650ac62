package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// ListUsersHandler GET /api/users，不包括当前用户
func (h *APIHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.chat.Users(r.Context(), identity(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, users, "Users retrieved successfully")
}

// GetMessagesHandler GET /api/users/messages/{userId}
func (h *APIHandler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chat.Messages(r.Context(), identity(r).UserID, mux.Vars(r)["userId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, messages, "Messages retrieved successfully")
}

// SendMessageHandler POST /api/users/messages/{userId}
func (h *APIHandler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	msg, err := h.chat.Send(r.Context(), identity(r).UserID, mux.Vars(r)["userId"], req.Content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, msg, "Message sent successfully")
}
