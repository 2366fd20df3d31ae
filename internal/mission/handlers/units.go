package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"fleets-server/internal/ledger"
	"fleets-server/internal/mission"
	"fleets-server/internal/models"
	"fleets-server/internal/shared/errors"
	"fleets-server/internal/shared/response"
)

type UnitHandler struct {
	missions *mission.Service
	ledger   *ledger.Ledger
}

func NewUnitHandler(missions *mission.Service, l *ledger.Ledger) *UnitHandler {
	return &UnitHandler{missions: missions, ledger: l}
}

// GetStationed lists the caller's fleets that are parked on a planet.
func (h *UnitHandler) GetStationed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_stationed_units")

	userID, err := currentUserID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	units, err := h.missions.FindStationedUnits(ctx, userID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if units == nil {
		units = []models.ObtainedUnit{}
	}

	response.Success(w, http.StatusOK, units)
}

func (h *UnitHandler) Produce(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "produce_units")

	userID, err := currentUserID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req ledger.ProduceRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	produced, err := h.ledger.Produce(ctx, userID, req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, produced)
}
