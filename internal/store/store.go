package store

import (
	"context"
	"time"

	"fleets-server/internal/models"
	"fleets-server/internal/outbox"
)

// Repository is the CRUD contract shared by every entity. FindByID and
// FindLockedByID return a not_found AppError when the row does not exist.
// FindLockedByID holds the row exclusively until the transaction ends.
// Save inserts when the entity id is zero and assigns the new id.
type Repository[T any, ID comparable] interface {
	FindByID(ctx context.Context, id ID) (*T, error)
	FindLockedByID(ctx context.Context, id ID) (*T, error)
	Save(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id ID) error
}

type UserRepository interface {
	Repository[models.User, int64]
	AddResources(ctx context.Context, userID int64, primary, secondary float64) error
	AddPoints(ctx context.Context, userID int64, points float64) error
	TouchResourceUpdate(ctx context.Context, userID int64, at time.Time) error
	IsExplored(ctx context.Context, userID, planetID int64) (bool, error)
	MarkExplored(ctx context.Context, userID, planetID int64) error
	IsUnlocked(ctx context.Context, userID, relationID int64) (bool, error)
	Unlock(ctx context.Context, userID, relationID int64) error
	Upgrades(ctx context.Context, userID int64) ([]models.ObtainedUpgrade, error)
	SaveUpgrade(ctx context.Context, upgrade models.ObtainedUpgrade) error
}

type PlanetRepository interface {
	Repository[models.Planet, int64]
	FindOwnedBy(ctx context.Context, userID int64) ([]models.Planet, error)
	CountOwnedBy(ctx context.Context, userID int64) (int, error)
}

type ObtainedUnitRepository interface {
	Repository[models.ObtainedUnit, int64]
	// FindLockedByMission locks every fleet travelling with the mission.
	FindLockedByMission(ctx context.Context, missionID int64) ([]models.ObtainedUnit, error)
	// FindStationed returns the user's stationed fleet of a unit at a planet,
	// or nil when there is none.
	FindStationed(ctx context.Context, userID, planetID, unitID int64) (*models.ObtainedUnit, error)
	// FindLockedStationedAt locks every stationed fleet at a planet.
	FindLockedStationedAt(ctx context.Context, planetID int64) ([]models.ObtainedUnit, error)
	FindByUser(ctx context.Context, userID int64) ([]models.ObtainedUnit, error)
	CountByUserAndUnit(ctx context.Context, userID, unitID int64) (int64, error)
	DeleteStationedAt(ctx context.Context, planetID int64) error
}

type MissionRepository interface {
	Repository[models.Mission, int64]
	FindRunningByUser(ctx context.Context, userID int64) ([]models.Mission, error)
	CountRunningByUser(ctx context.Context, userID int64) (int, error)
	// FindEnemyRunning returns unresolved missions of other users targeting
	// planets owned by userID.
	FindEnemyRunning(ctx context.Context, userID int64) ([]models.Mission, error)
	// FindDeployed returns the user's unresolved Deployed mission at a
	// planet, or nil.
	FindDeployed(ctx context.Context, userID, planetID int64) (*models.Mission, error)
	FindDeployedAt(ctx context.Context, planetID int64) ([]models.Mission, error)
	// FindPending returns every unresolved mission with a termination date.
	FindPending(ctx context.Context) ([]models.Mission, error)
}

type ReportRepository interface {
	Save(ctx context.Context, report *models.MissionReport) error
	FindByUser(ctx context.Context, userID int64, limit int) ([]models.MissionReport, error)
}

// Tx is the unit of work handed to InTx callbacks.
type Tx interface {
	Users() UserRepository
	Planets() PlanetRepository
	Units() ObtainedUnitRepository
	Missions() MissionRepository
	Reports() ReportRepository
	// Outbox queues actions that run only after a successful commit.
	Outbox() *outbox.Outbox
}

type Store interface {
	// InTx commits when fn returns nil and flushes the outbox afterwards.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
