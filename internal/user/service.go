package user

import (
	"context"
	"log/slog"
	"time"

	"fleets-server/internal/catalog"
	"fleets-server/internal/improvement"
	"fleets-server/internal/models"
	"fleets-server/internal/shared/errors"
	"fleets-server/internal/store"
)

type Service struct {
	catalog *catalog.Catalog
	store   store.Store
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(c *catalog.Catalog, s store.Store, logger *slog.Logger) *Service {
	logger.Debug("Initializing user service")

	return &Service{
		catalog: c,
		store:   s,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// FindUserImprovement evaluates every upgrade the user holds.
func (s *Service) FindUserImprovement(ctx context.Context, tx store.Tx, userID int64) (improvement.GroupedImprovement, error) {
	upgrades, err := tx.Users().Upgrades(ctx, userID)
	if err != nil {
		return improvement.GroupedImprovement{}, err
	}
	return improvement.Evaluate(upgrades, s.catalog)
}

// TriggerResourcesUpdate credits the production accumulated since the last
// update and stamps the update time.
func (s *Service) TriggerResourcesUpdate(ctx context.Context, userID int64) (*models.User, error) {
	logger := s.logger.With("component", "user_service", "operation", "trigger_resources_update", "user_id", userID)

	var updated *models.User
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		user, err := tx.Users().FindLockedByID(ctx, userID)
		if err != nil {
			return err
		}

		now := s.now()
		if !user.LastResourceUpdate.IsZero() && now.After(user.LastResourceUpdate) {
			faction, err := s.catalog.Faction(user.FactionID)
			if err != nil {
				return err
			}
			grouped, err := s.FindUserImprovement(ctx, tx, userID)
			if err != nil {
				return err
			}

			elapsed := now.Sub(user.LastResourceUpdate).Seconds()
			primary := elapsed * improvement.ComputePlusPercentage(faction.PrimaryResourceProduction, grouped.MorePrimaryResourceProduction)
			secondary := elapsed * improvement.ComputePlusPercentage(faction.SecondaryResourceProduction, grouped.MoreSecondaryResourceProduction)
			if err := tx.Users().AddResources(ctx, userID, primary, secondary); err != nil {
				return err
			}
			logger.Debug("Resources credited", "elapsed_seconds", elapsed, "primary", primary, "secondary", secondary)
		}

		if err := tx.Users().TouchResourceUpdate(ctx, userID, now); err != nil {
			return err
		}

		updated, err = tx.Users().FindByID(ctx, userID)
		return err
	})
	if err != nil {
		logger.Error("Failed to update resources", "error", err)
		return nil, err
	}
	return updated, nil
}

func (s *Service) MaxEnergy(ctx context.Context, tx store.Tx, user *models.User) (float64, error) {
	faction, err := s.catalog.Faction(user.FactionID)
	if err != nil {
		return 0, err
	}
	grouped, err := s.FindUserImprovement(ctx, tx, user.ID)
	if err != nil {
		return 0, err
	}
	return improvement.ComputePlusPercentage(faction.InitialEnergy, grouped.MoreEnergyProduction), nil
}

// ConsumedEnergy sums the energy cost of every unit the user owns, stationed
// or travelling.
func (s *Service) ConsumedEnergy(ctx context.Context, tx store.Tx, userID int64) (float64, error) {
	fleets, err := tx.Units().FindByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	var consumed float64
	for _, fleet := range fleets {
		unit, err := s.catalog.Unit(fleet.UnitID)
		if err != nil {
			return 0, err
		}
		consumed += unit.EnergyCost * float64(fleet.Count)
	}
	return consumed, nil
}

func (s *Service) AvailableEnergy(ctx context.Context, tx store.Tx, user *models.User) (float64, error) {
	max, err := s.MaxEnergy(ctx, tx, user)
	if err != nil {
		return 0, err
	}
	consumed, err := s.ConsumedEnergy(ctx, tx, user.ID)
	if err != nil {
		return 0, err
	}
	return max - consumed, nil
}

// HasMaxPlanets compares the owned planet count with the faction limit.
func (s *Service) HasMaxPlanets(ctx context.Context, tx store.Tx, user *models.User) (bool, error) {
	faction, err := s.catalog.Faction(user.FactionID)
	if err != nil {
		return false, err
	}
	owned, err := tx.Planets().CountOwnedBy(ctx, user.ID)
	if err != nil {
		return false, err
	}
	return owned >= faction.MaxPlanets, nil
}

// CreateUser onboards a player on an unowned home planet with the faction's
// starting resources.
func (s *Service) CreateUser(ctx context.Context, username string, factionID, homePlanetID int64) (*models.User, error) {
	logger := s.logger.With("component", "user_service", "operation", "create_user",
		"username", username, "faction_id", factionID, "home_planet_id", homePlanetID)

	if username == "" {
		return nil, errors.Validation("username is required")
	}
	faction, err := s.catalog.Faction(factionID)
	if err != nil {
		return nil, err
	}

	var created *models.User
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		planet, err := tx.Planets().FindLockedByID(ctx, homePlanetID)
		if err != nil {
			return err
		}
		if planet.OwnerID != nil {
			return errors.Conflictf("planet %d already has an owner", homePlanetID)
		}

		user := &models.User{
			Username:           username,
			FactionID:          faction.ID,
			PrimaryResource:    faction.InitialPrimaryResource,
			SecondaryResource:  faction.InitialSecondaryResource,
			HomePlanetID:       &planet.ID,
			LastResourceUpdate: s.now(),
		}
		if err := tx.Users().Save(ctx, user); err != nil {
			return err
		}

		planet.OwnerID = &user.ID
		planet.Home = true
		if err := tx.Planets().Save(ctx, planet); err != nil {
			return err
		}
		if err := tx.Users().MarkExplored(ctx, user.ID, planet.ID); err != nil {
			return err
		}

		created = user
		return nil
	})
	if err != nil {
		logger.Error("Failed to create user", "error", err)
		return nil, err
	}

	logger.Info("User created successfully", "user_id", created.ID)
	return created, nil
}
