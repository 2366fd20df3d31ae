package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"fleets-server/internal/auth"
	"fleets-server/internal/models"
	"fleets-server/internal/shared/config"
	"fleets-server/internal/shared/cookies"
	"fleets-server/internal/shared/errors"
	"fleets-server/internal/shared/response"
	"fleets-server/internal/user"
)

type SignupRequest struct {
	Username     string `json:"username"`
	FactionID    int64  `json:"faction_id"`
	HomePlanetID int64  `json:"home_planet_id"`
}

type SignupResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type SignupHandler struct {
	users *user.Service
	auth  *auth.Service
	cfg   *config.Config
}

func NewSignupHandler(users *user.Service, authService *auth.Service, cfg *config.Config) *SignupHandler {
	return &SignupHandler{users: users, auth: authService, cfg: cfg}
}

// ServeHTTP creates a user on a free home planet and logs them in.
func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "signup")

	var req SignupRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	u, err := h.users.CreateUser(ctx, req.Username, req.FactionID, req.HomePlanetID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	token, err := h.auth.IssueToken(u)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	cookies.SetAuthCookie(w, h.cfg, token)

	response.Success(w, http.StatusCreated, SignupResponse{User: u, Token: token})
}
