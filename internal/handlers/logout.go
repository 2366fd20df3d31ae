package handlers

import (
	"log/slog"
	"net/http"

	"fleets-server/internal/shared/config"
	"fleets-server/internal/shared/cookies"
)

type LogoutHandler struct {
	cfg *config.Config
}

func NewLogoutHandler(cfg *config.Config) *LogoutHandler {
	return &LogoutHandler{cfg: cfg}
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "logout", "remote_addr", r.RemoteAddr)

	cookies.ClearAuthCookie(w, h.cfg)
	w.WriteHeader(http.StatusNoContent)

	logger.Info("User logged out")
}
