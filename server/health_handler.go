package server

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

const healthTimeout = 3 * time.Second

type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func runCheck(ctx context.Context, p Pinger) checkResult {
	if p == nil {
		return checkResult{Status: "disabled"}
	}
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return checkResult{Status: "disconnected", Error: err.Error()}
	}
	return checkResult{Status: "connected"}
}

func megabytes(b uint64) uint64 {
	return b / 1024 / 1024
}

func (h *APIHandler) baseHealth(db checkResult) map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]interface{}{
		"status":      "healthy",
		"timestamp":   timestamp(),
		"uptime":      int64(time.Since(h.started).Seconds()),
		"environment": h.cfg.Environment,
		"version":     h.cfg.Version,
		"database": map[string]interface{}{
			"status": db.Status,
			"driver": h.cfg.DBDriver,
		},
		"memory": map[string]uint64{
			"used":  megabytes(mem.HeapAlloc),
			"total": megabytes(mem.HeapSys),
		},
	}
}

// HealthHandler GET /api/health，数据库不可用时返回 503
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	db := runCheck(r.Context(), h.database)
	info := h.baseHealth(db)

	if db.Status != "connected" {
		info["status"] = "unhealthy"
		writeFailure(w, http.StatusServiceUnavailable, "Database not connected", info)
		return
	}
	writeSuccess(w, http.StatusOK, info, "Service is healthy")
}

// DetailedHealthHandler GET /api/health/detailed
func (h *APIHandler) DetailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	db := runCheck(r.Context(), h.database)
	redis := runCheck(r.Context(), h.redis)
	storage := runCheck(r.Context(), h.storage)

	info := h.baseHealth(db)
	if db.Error != "" {
		info["database"].(map[string]interface{})["error"] = db.Error
	}
	info["checks"] = map[string]checkResult{
		"database": db,
		"redis":    redis,
		"storage":  storage,
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	info["system"] = map[string]interface{}{
		"goVersion":  runtime.Version(),
		"platform":   runtime.GOOS + "/" + runtime.GOARCH,
		"numCPU":     runtime.NumCPU(),
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]uint64{
			"heapAlloc": mem.HeapAlloc,
			"heapSys":   mem.HeapSys,
			"sys":       mem.Sys,
			"numGC":     uint64(mem.NumGC),
		},
	}

	for _, c := range []checkResult{db, redis, storage} {
		if c.Status == "disconnected" {
			info["status"] = "degraded"
			break
		}
	}
	writeSuccess(w, http.StatusOK, info, "Detailed health check")
}

// IndexHandler GET /
func (h *APIHandler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"message":     "Auralis Backend API is running",
		"version":     h.cfg.Version,
		"environment": h.cfg.Environment,
		"api": map[string]string{
			"health": "/api/health",
			"auth":   "/api/auth",
			"songs":  "/api/songs",
			"albums": "/api/albums",
			"stats":  "/api/stats",
			"users":  "/api/users",
			"admin":  "/api/admin",
			"ws":     "/ws",
		},
		"timestamp": timestamp(),
	})
}
