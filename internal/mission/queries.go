package mission

import (
	"context"

	"fleets-server/internal/models"
	"fleets-server/internal/store"
)

const defaultReportLimit = 50

func (s *Service) runningViews(ctx context.Context, tx store.Tx, viewerID int64, missions []models.Mission) ([]RunningMission, error) {
	running := make([]RunningMission, 0, len(missions))
	for _, m := range missions {
		fleets, err := tx.Units().FindLockedByMission(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		views, err := s.visible(viewerID, fleets)
		if err != nil {
			return nil, err
		}
		running = append(running, RunningMission{Mission: m, Units: views})
	}
	return running, nil
}

// FindUserRunningMissions lists the user's unresolved missions, Deployed
// included, with their fleets.
func (s *Service) FindUserRunningMissions(ctx context.Context, userID int64) ([]RunningMission, error) {
	var running []RunningMission
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		missions, err := tx.Missions().FindRunningByUser(ctx, userID)
		if err != nil {
			return err
		}
		running, err = s.runningViews(ctx, tx, userID, missions)
		return err
	})
	return running, err
}

// FindEnemyRunningMissions lists other users' missions heading to planets the
// user owns. Invisible fleets are masked.
func (s *Service) FindEnemyRunningMissions(ctx context.Context, userID int64) ([]RunningMission, error) {
	var running []RunningMission
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		missions, err := tx.Missions().FindEnemyRunning(ctx, userID)
		if err != nil {
			return err
		}
		running, err = s.runningViews(ctx, tx, userID, missions)
		return err
	})
	return running, err
}

// CountUserMissions counts the missions that use a running mission slot.
func (s *Service) CountUserMissions(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		count, err = tx.Missions().CountRunningByUser(ctx, userID)
		return err
	})
	return count, err
}

func (s *Service) missionChange(ctx context.Context, userID int64) (MissionChange, error) {
	count, err := s.CountUserMissions(ctx, userID)
	if err != nil {
		return MissionChange{}, err
	}
	running, err := s.FindUserRunningMissions(ctx, userID)
	if err != nil {
		return MissionChange{}, err
	}
	return MissionChange{Count: count, Missions: running}, nil
}

func (s *Service) FindReports(ctx context.Context, userID int64, limit int) ([]models.MissionReport, error) {
	if limit <= 0 {
		limit = defaultReportLimit
	}
	var reports []models.MissionReport
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		reports, err = tx.Reports().FindByUser(ctx, userID, limit)
		return err
	})
	return reports, err
}

func (s *Service) FindStationedUnits(ctx context.Context, userID int64) ([]models.ObtainedUnit, error) {
	var units []models.ObtainedUnit
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		units, err = s.ledger.Stationed(ctx, tx, userID)
		return err
	})
	return units, err
}
