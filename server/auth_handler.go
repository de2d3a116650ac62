package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"auralis/core/apperr"
	"auralis/logger"
	"auralis/model"
	"auralis/repository"
)

// CallbackRequest 外部登录完成后前端回传的用户资料
type CallbackRequest struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ImageURL  string `json:"imageUrl"`
}

// decodeJSON 解析 JSON 请求体，限制大小
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Invalid("Invalid request body")
	}
	return nil
}

// AuthCallbackHandler POST /api/auth/callback，首次登录时创建本地用户
func (h *APIHandler) AuthCallbackHandler(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		h.writeError(w, r, apperr.Validation([]apperr.FieldError{
			{Field: "id", Message: "User id is required", Value: req.ID},
		}))
		return
	}

	_, err := h.users.FindByClerkID(r.Context(), req.ID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		user := &model.User{
			ClerkID:  req.ID,
			FullName: strings.TrimSpace(req.FirstName + " " + req.LastName),
			ImageURL: req.ImageURL,
		}
		if err := h.users.Create(r.Context(), user); err != nil && !errors.Is(err, repository.ErrDuplicate) {
			h.writeError(w, r, fmt.Errorf("create user: %w", err))
			return
		}
		logger.Info("User created", logger.String("clerkId", req.ID))
	default:
		h.writeError(w, r, fmt.Errorf("find user: %w", err))
		return
	}

	writeSuccess(w, http.StatusOK, nil, "Authentication callback processed")
}

// MeHandler GET /api/auth/me
func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	id := identity(r)

	email, isAdmin, err := h.admins.Resolve(r.Context(), id.UserID)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("resolve admin: %w", err))
		return
	}

	user, err := h.users.FindByClerkID(r.Context(), id.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.writeError(w, r, fmt.Errorf("find user: %w", err))
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"userId":  id.UserID,
		"email":   email,
		"isAdmin": isAdmin,
		"user":    user,
	}, "User retrieved successfully")
}
