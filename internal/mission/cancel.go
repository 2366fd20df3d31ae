package mission

import (
	"context"

	"fleets-server/internal/models"
	"fleets-server/internal/shared/errors"
	"fleets-server/internal/store"
)

// Cancel aborts a running mission and sends its fleets back. The Return takes
// the time that was still left on the mission.
func (s *Service) Cancel(ctx context.Context, userID, missionID int64) (*models.Mission, error) {
	logger := s.logger.With("component", "mission_service", "operation", "cancel",
		"user_id", userID, "mission_id", missionID)

	var ret *models.Mission
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		m, err := tx.Missions().FindLockedByID(ctx, missionID)
		if err != nil {
			return err
		}
		if m.UserID != userID {
			return errors.Forbiddenf("mission %d doesn't belong to you", missionID)
		}
		if !m.Type.IsCancellable() {
			return errors.Validationf("can't cancel a %s mission", m.Type)
		}
		if m.Resolved || m.TerminationDate == nil {
			return errors.Validationf("mission %d is already resolved", missionID)
		}

		remaining := clamp(m.TerminationDate.Sub(s.now()).Seconds(), 0, m.RequiredTime)

		if err := s.resolveMission(ctx, tx, m); err != nil {
			return err
		}
		ret, err = s.registerReturn(ctx, tx, m, &remaining)
		if err != nil {
			return err
		}
		s.disarmAfterCommit(tx, m.ID)
		return s.emitLocalMissionChange(ctx, tx, m)
	})
	if err != nil {
		logger.Debug("Mission cancellation rejected", "error", err)
		return nil, err
	}

	logger.Info("Mission cancelled", "return_mission_id", ret.ID, "return_time", ret.RequiredTime)
	return ret, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
