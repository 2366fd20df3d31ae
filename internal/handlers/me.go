package handlers

import (
	"log/slog"
	"net/http"

	"fleets-server/internal/middleware"
	"fleets-server/internal/shared/errors"
	"fleets-server/internal/shared/response"
	"fleets-server/internal/user"
)

type MeHandler struct {
	users *user.Service
}

func NewMeHandler(users *user.Service) *MeHandler {
	return &MeHandler{users: users}
}

// ServeHTTP credits the resources produced since the last visit and returns
// the caller's user row.
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "me")

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	u, err := h.users.TriggerResourcesUpdate(r.Context(), claims.UserID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, u)
}
