package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/catalyst-codex/codex/shared/logger"
)

const readyTimeout = 2 * time.Second

// Health is the liveness probe: the process is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeProbe(w, http.StatusOK, "ok")
}

// Ready answers 503 until the document store behind the forum responds.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		logger.Log.Warn("readiness check failed", "docstore", h.cfg.Public.Docstore, "error", err)
		writeProbe(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeProbe(w, http.StatusOK, "ok")
}

func writeProbe(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
