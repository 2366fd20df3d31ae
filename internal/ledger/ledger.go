package ledger

import (
	"context"
	"log/slog"
	"time"

	"fleets-server/internal/catalog"
	"fleets-server/internal/models"
	"fleets-server/internal/notify"
	"fleets-server/internal/shared/errors"
	"fleets-server/internal/store"
)

// EnergyCalculator reports the energy a user can still spend on new units.
type EnergyCalculator interface {
	AvailableEnergy(ctx context.Context, tx store.Tx, user *models.User) (float64, error)
}

// Ledger owns every change to fleet counts and locations.
type Ledger struct {
	catalog *catalog.Catalog
	store   store.Store
	sender  notify.Sender
	energy  EnergyCalculator
	logger  *slog.Logger
	now     func() time.Time
}

func New(c *catalog.Catalog, s store.Store, sender notify.Sender, energy EnergyCalculator, logger *slog.Logger) *Ledger {
	logger.Debug("Initializing unit ledger")

	return &Ledger{
		catalog: c,
		store:   s,
		sender:  sender,
		energy:  energy,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used to stamp created missions.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Subtract removes amount units from the stored fleet. It returns nil when the
// fleet was emptied and deleted.
func (l *Ledger) Subtract(ctx context.Context, tx store.Tx, fleet *models.ObtainedUnit, amount int64) (*models.ObtainedUnit, error) {
	logger := l.logger.With("component", "ledger", "operation", "subtract", "obtained_unit_id", fleet.ID, "amount", amount)

	if amount < 1 {
		return nil, errors.Validationf("count must be at least 1, got %d", amount)
	}

	stored, err := tx.Units().FindLockedByID(ctx, fleet.ID)
	if err != nil {
		return nil, err
	}

	if amount > stored.Count {
		return nil, errors.Validationf("tried to subtract %d units but only %d are available", amount, stored.Count)
	}

	stored.Count -= amount
	if stored.Count == 0 {
		if err := tx.Units().Delete(ctx, stored.ID); err != nil {
			logger.Error("Failed to delete emptied fleet", "error", err)
			return nil, err
		}
		logger.Debug("Fleet emptied and deleted")
		return nil, nil
	}

	if err := tx.Units().Save(ctx, stored); err != nil {
		logger.Error("Failed to save fleet", "error", err)
		return nil, err
	}
	return stored, nil
}

// Station adds count units of unitID to the user's stationed fleet at a planet,
// creating the fleet when none exists.
func (l *Ledger) Station(ctx context.Context, tx store.Tx, userID, planetID, unitID, count int64) (*models.ObtainedUnit, error) {
	existing, err := tx.Units().FindStationed(ctx, userID, planetID, unitID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		existing = &models.ObtainedUnit{UnitID: unitID, UserID: userID, SourcePlanetID: planetID}
	}
	existing.Count += count

	if err := tx.Units().Save(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// MoveUnit relocates a travelling fleet to targetPlanetID. On a planet the
// user owns the fleet becomes stationed and merges with any stationed fleet of
// the same unit. Elsewhere it joins the user's Deployed mission for that
// planet, merging with that mission's fleet of the same unit. The returned
// fleet is the row that now holds the units.
func (l *Ledger) MoveUnit(ctx context.Context, tx store.Tx, fleet *models.ObtainedUnit, userID, targetPlanetID int64) (*models.ObtainedUnit, error) {
	logger := l.logger.With("component", "ledger", "operation", "move_unit",
		"obtained_unit_id", fleet.ID, "user_id", userID, "target_planet_id", targetPlanetID)

	planet, err := tx.Planets().FindByID(ctx, targetPlanetID)
	if err != nil {
		return nil, err
	}

	if planet.IsOwnedBy(userID) {
		if err := tx.Units().Delete(ctx, fleet.ID); err != nil {
			return nil, err
		}
		stationed, err := l.Station(ctx, tx, userID, targetPlanetID, fleet.UnitID, fleet.Count)
		if err != nil {
			logger.Error("Failed to station fleet", "error", err)
			return nil, err
		}
		logger.Debug("Fleet stationed on owned planet", "stationed_id", stationed.ID)
		return stationed, nil
	}

	if fleet.MissionID != nil {
		current, err := tx.Missions().FindByID(ctx, *fleet.MissionID)
		if err != nil {
			return nil, err
		}
		if current.Type == models.MissionDeployed {
			fleet.TargetPlanetID = &targetPlanetID
			if err := tx.Units().Save(ctx, fleet); err != nil {
				return nil, err
			}
			return fleet, nil
		}
	}

	fleet.TargetPlanetID = &targetPlanetID
	deployed, err := l.FindDeployedMissionOrCreate(ctx, tx, fleet)
	if err != nil {
		logger.Error("Failed to find or create deployed mission", "error", err)
		return nil, err
	}
	fleet.MissionID = &deployed.ID

	merged, err := l.mergeIntoMission(ctx, tx, fleet, deployed.ID)
	if err != nil {
		logger.Error("Failed to merge fleet into deployed mission", "error", err)
		return nil, err
	}
	if merged != nil {
		logger.Debug("Fleet merged into deployed fleet", "mission_id", deployed.ID, "merged_id", merged.ID)
		return merged, nil
	}

	if err := tx.Units().Save(ctx, fleet); err != nil {
		return nil, err
	}
	logger.Debug("Fleet joined deployed mission", "mission_id", deployed.ID)
	return fleet, nil
}

// mergeIntoMission adds the fleet to a row of the same unit already in the
// mission and deletes the fleet. It returns nil when the mission holds no
// such row.
func (l *Ledger) mergeIntoMission(ctx context.Context, tx store.Tx, fleet *models.ObtainedUnit, missionID int64) (*models.ObtainedUnit, error) {
	rows, err := tx.Units().FindLockedByMission(ctx, missionID)
	if err != nil {
		return nil, err
	}

	for i := range rows {
		row := &rows[i]
		if row.ID == fleet.ID || row.UnitID != fleet.UnitID {
			continue
		}
		row.Count += fleet.Count
		if err := tx.Units().Delete(ctx, fleet.ID); err != nil {
			return nil, err
		}
		if err := tx.Units().Save(ctx, row); err != nil {
			return nil, err
		}
		return row, nil
	}
	return nil, nil
}

// FindDeployedMissionOrCreate returns the user's Deployed mission at the
// fleet's target. A new mission keeps the source of the fleet's first
// deployment so a later Return goes back to the original origin.
func (l *Ledger) FindDeployedMissionOrCreate(ctx context.Context, tx store.Tx, fleet *models.ObtainedUnit) (*models.Mission, error) {
	if fleet.TargetPlanetID == nil {
		return nil, errors.Invariantf("fleet %d has no target planet to deploy to", fleet.ID)
	}
	targetPlanetID := *fleet.TargetPlanetID

	existing, err := tx.Missions().FindDeployed(ctx, fleet.UserID, targetPlanetID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		fleet.FirstDeploymentMissionID = nil
		return existing, nil
	}

	deployed := &models.Mission{
		Type:           models.MissionDeployed,
		UserID:         fleet.UserID,
		SourcePlanetID: fleet.SourcePlanetID,
		TargetPlanetID: targetPlanetID,
		CreatedAt:      l.now(),
	}

	if fleet.FirstDeploymentMissionID != nil {
		first, err := tx.Missions().FindByID(ctx, *fleet.FirstDeploymentMissionID)
		if err != nil {
			return nil, err
		}
		deployed.SourcePlanetID = first.SourcePlanetID
	}

	if err := tx.Missions().Save(ctx, deployed); err != nil {
		return nil, err
	}

	if fleet.FirstDeploymentMissionID == nil {
		fleet.FirstDeploymentMissionID = &deployed.ID
	}
	return deployed, nil
}

// ResolveIfEmpty marks a mission resolved once no fleet travels with it.
func (l *Ledger) ResolveIfEmpty(ctx context.Context, tx store.Tx, missionID int64) (bool, error) {
	remaining, err := tx.Units().FindLockedByMission(ctx, missionID)
	if err != nil {
		return false, err
	}
	if len(remaining) > 0 {
		return false, nil
	}

	mission, err := tx.Missions().FindLockedByID(ctx, missionID)
	if err != nil {
		return false, err
	}
	if mission.Resolved {
		return false, nil
	}
	mission.Resolved = true
	if err := tx.Missions().Save(ctx, mission); err != nil {
		return false, err
	}
	return true, nil
}

// Stationed lists the user's fleets that are not travelling.
func (l *Ledger) Stationed(ctx context.Context, tx store.Tx, userID int64) ([]models.ObtainedUnit, error) {
	all, err := tx.Units().FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	stationed := make([]models.ObtainedUnit, 0, len(all))
	for _, u := range all {
		if u.IsStationed() {
			stationed = append(stationed, u)
		}
	}
	return stationed, nil
}

// QueueObtainedChange notifies the user after commit that their stationed
// fleets changed.
func (l *Ledger) QueueObtainedChange(tx store.Tx, userID int64) {
	tx.Outbox().Add(notify.EventUnitObtainedChange, func(ctx context.Context) error {
		l.sender.SendMessage(userID, notify.EventUnitObtainedChange, func() (any, error) {
			var stationed []models.ObtainedUnit
			err := l.store.InTx(ctx, func(tx store.Tx) error {
				var err error
				stationed, err = l.Stationed(ctx, tx, userID)
				return err
			})
			return stationed, err
		})
		return nil
	})
}
