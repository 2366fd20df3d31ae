package ledger

import (
	"context"

	"fleets-server/internal/models"
	"fleets-server/internal/shared/errors"
	"fleets-server/internal/store"
)

type ProduceRequest struct {
	PlanetID int64 `json:"planet_id"`
	UnitID   int64 `json:"unit_id"`
	Count    int64 `json:"count"`
}

// Produce builds units on an owned planet, paying resources atomically.
func (l *Ledger) Produce(ctx context.Context, userID int64, req ProduceRequest) (*models.ObtainedUnit, error) {
	logger := l.logger.With("component", "ledger", "operation", "produce",
		"user_id", userID, "planet_id", req.PlanetID, "unit_id", req.UnitID, "count", req.Count)

	if req.Count < 1 {
		return nil, errors.Validationf("count must be at least 1, got %d", req.Count)
	}

	unit, err := l.catalog.Unit(req.UnitID)
	if err != nil {
		return nil, err
	}
	unitType, err := l.catalog.UnitType(unit.TypeID)
	if err != nil {
		return nil, err
	}

	var produced *models.ObtainedUnit
	err = l.store.InTx(ctx, func(tx store.Tx) error {
		planet, err := tx.Planets().FindLockedByID(ctx, req.PlanetID)
		if err != nil {
			return err
		}
		if !planet.IsOwnedBy(userID) {
			return errors.Forbiddenf("planet %d does not belong to you", req.PlanetID)
		}

		user, err := tx.Users().FindLockedByID(ctx, userID)
		if err != nil {
			return err
		}

		owned, err := tx.Units().CountByUserAndUnit(ctx, userID, unit.ID)
		if err != nil {
			return err
		}
		if unit.Unique && (owned > 0 || req.Count > 1) {
			return errors.Policyf("%s is unique and can only be built once", unit.Name)
		}
		if unitType.MaxCount != nil && owned+req.Count > *unitType.MaxCount {
			return errors.Policyf("you can not have more than %d units of type %s", *unitType.MaxCount, unitType.Name)
		}

		count := float64(req.Count)
		primary := unit.PrimaryCost * count
		secondary := unit.SecondaryCost * count
		if user.PrimaryResource < primary || user.SecondaryResource < secondary {
			return errors.Policy("not enough resources")
		}

		available, err := l.energy.AvailableEnergy(ctx, tx, user)
		if err != nil {
			return err
		}
		if unit.EnergyCost*count > available {
			return errors.Policy("not enough energy")
		}

		if err := tx.Users().AddResources(ctx, userID, -primary, -secondary); err != nil {
			return err
		}

		produced, err = l.Station(ctx, tx, userID, req.PlanetID, unit.ID, req.Count)
		if err != nil {
			return err
		}

		l.QueueObtainedChange(tx, userID)
		return nil
	})
	if err != nil {
		logger.Debug("Unit production rejected", "error", err)
		return nil, err
	}

	logger.Info("Units produced successfully", "obtained_unit_id", produced.ID)
	return produced, nil
}
