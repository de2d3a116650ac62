package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"auralis/core/apperr"
	"auralis/core/music"
	"auralis/logger"
)

// timestampLayout ISO8601，毫秒精度，UTC
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Response 所有接口统一的响应结构
type Response struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Data       interface{}       `json:"data,omitempty"`
	Errors     interface{}       `json:"errors,omitempty"`
	Pagination *music.Pagination `json:"pagination,omitempty"`
	Timestamp  string            `json:"timestamp"`
}

func timestamp() string {
	return time.Now().UTC().Format(timestampLayout)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("Failed to encode response", logger.ErrorField(err))
	}
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data, Timestamp: timestamp()})
}

func writePaginated(w http.ResponseWriter, data interface{}, p music.Pagination, message string) {
	writeJSON(w, http.StatusOK, Response{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: &p,
		Timestamp:  timestamp(),
	})
}

func writeFailure(w http.ResponseWriter, status int, message string, errs interface{}) {
	writeJSON(w, status, Response{Success: false, Message: message, Errors: errs, Timestamp: timestamp()})
}

// writeError 把错误转换为响应；未分类的错误在生产环境只返回通用文案
func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = apperr.Wrap(apperr.Internal, "", err)
	}

	status := e.Kind.Status()
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("kind", e.Kind.String()),
			logger.ErrorField(err))
	}

	message := e.Message
	if e.Kind == apperr.Internal {
		message = "Internal server error"
		if !h.cfg.IsProduction() {
			message = err.Error()
		}
	}

	var details interface{}
	if len(e.Fields) > 0 {
		details = e.Fields
	}
	writeFailure(w, status, message, details)
}
