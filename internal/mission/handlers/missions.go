package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"fleets-server/internal/middleware"
	"fleets-server/internal/mission"
	"fleets-server/internal/models"
	"fleets-server/internal/shared/errors"
	"fleets-server/internal/shared/response"
)

const (
	defaultReportLimit = 20
	maxReportLimit     = 100
)

type MissionHandler struct {
	service *mission.Service
}

func NewMissionHandler(service *mission.Service) *MissionHandler {
	return &MissionHandler{service: service}
}

func currentUserID(r *http.Request) (int64, error) {
	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		return 0, errors.Unauthorized("authentication required")
	}
	return claims.UserID, nil
}

func (h *MissionHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "register_mission")

	userID, err := currentUserID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	missionType, err := models.ParseMissionType(r.PathValue("type"))
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid mission type", err))
		return
	}

	var req mission.Request
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	running, err := h.service.Register(ctx, userID, missionType, req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, running)
}

func (h *MissionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "cancel_mission")

	userID, err := currentUserID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	missionID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid mission ID format", err))
		return
	}

	ret, err := h.service.Cancel(ctx, userID, missionID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, ret)
}

func (h *MissionHandler) GetRunning(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_running_missions")

	userID, err := currentUserID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	missions, err := h.service.FindUserRunningMissions(ctx, userID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if missions == nil {
		missions = []mission.RunningMission{}
	}

	response.Success(w, http.StatusOK, missions)
}

func (h *MissionHandler) GetEnemy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_enemy_missions")

	userID, err := currentUserID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	missions, err := h.service.FindEnemyRunningMissions(ctx, userID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if missions == nil {
		missions = []mission.RunningMission{}
	}

	response.Success(w, http.StatusOK, missions)
}

func (h *MissionHandler) GetReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_reports")

	userID, err := currentUserID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	limit := defaultReportLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			response.Error(w, r, logger, errors.Validationf("invalid limit %q", raw))
			return
		}
		limit = min(limit, maxReportLimit)
	}

	reports, err := h.service.FindReports(ctx, userID, limit)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if reports == nil {
		reports = []models.MissionReport{}
	}

	response.Success(w, http.StatusOK, reports)
}
