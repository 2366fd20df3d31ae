package mission

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"fleets-server/internal/catalog"
	"fleets-server/internal/ledger"
	"fleets-server/internal/models"
	"fleets-server/internal/notify"
	"fleets-server/internal/shared/config"
	"fleets-server/internal/shared/errors"
	"fleets-server/internal/store"
	"fleets-server/internal/user"
)

// Scheduler arms and disarms mission resolutions.
type Scheduler interface {
	Schedule(ctx context.Context, missionID int64, fireAt time.Time) error
	Cancel(ctx context.Context, missionID int64) error
}

type Service struct {
	catalog   *catalog.Catalog
	store     store.Store
	ledger    *ledger.Ledger
	users     *user.Service
	sender    notify.Sender
	scheduler Scheduler
	cfg       config.MissionsConfig
	logger    *slog.Logger
	now       func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewService(
	c *catalog.Catalog,
	s store.Store,
	l *ledger.Ledger,
	users *user.Service,
	sender notify.Sender,
	scheduler Scheduler,
	cfg config.MissionsConfig,
	logger *slog.Logger,
) *Service {
	logger.Debug("Initializing mission service",
		"deploy_policy", cfg.DeployPolicy,
		"max_running_missions", cfg.MaxRunningMissions)

	return &Service{
		catalog:   c,
		store:     s,
		ledger:    l,
		users:     users,
		sender:    sender,
		scheduler: scheduler,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithSeed pins the combat shuffle order.
func (s *Service) WithSeed(seed int64) *Service {
	s.rng = rand.New(rand.NewSource(seed))
	return s
}

func (s *Service) battleRand() *rand.Rand {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return rand.New(rand.NewSource(s.rng.Int63()))
}

// Resolve applies the outcome of a mission whose termination date passed.
// Already resolved missions are left untouched.
func (s *Service) Resolve(ctx context.Context, missionID int64) error {
	logger := s.logger.With("component", "mission_service", "operation", "resolve", "mission_id", missionID)

	var missionType models.MissionType
	skipped := false
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		m, err := tx.Missions().FindLockedByID(ctx, missionID)
		if err != nil {
			return err
		}
		missionType = m.Type
		if m.Resolved {
			skipped = true
			return nil
		}

		switch m.Type {
		case models.MissionExplore:
			return s.processExplore(ctx, tx, m)
		case models.MissionGather:
			return s.processGather(ctx, tx, m)
		case models.MissionEstablishBase:
			return s.processEstablishBase(ctx, tx, m)
		case models.MissionAttack, models.MissionCounterattack:
			return s.processAttack(ctx, tx, m)
		case models.MissionConquest:
			return s.processConquest(ctx, tx, m)
		case models.MissionDeploy:
			return s.processDeploy(ctx, tx, m)
		case models.MissionReturn:
			return s.processReturn(ctx, tx, m)
		case models.MissionDeployed:
			skipped = true
			return nil
		default:
			return errors.Invariantf("mission %d has unknown type %q", m.ID, m.Type)
		}
	})
	if err != nil {
		if errors.Is(err, errors.ErrorTypeInvariant) {
			logger.Error("Mission resolution hit an invariant violation", "error", err)
		} else {
			logger.Warn("Mission resolution failed", "error", err)
		}
		return err
	}

	if skipped {
		logger.Debug("Mission resolution skipped", "type", missionType)
		return nil
	}
	logger.Info("Mission resolved", "type", missionType)
	return nil
}

func (s *Service) resolveMission(ctx context.Context, tx store.Tx, m *models.Mission) error {
	m.Resolved = true
	return tx.Missions().Save(ctx, m)
}

// registerReturn creates the Return mission of m and moves its fleets onto
// it. A nil requiredTime reuses the duration of m.
func (s *Service) registerReturn(ctx context.Context, tx store.Tx, m *models.Mission, requiredTime *float64) (*models.Mission, error) {
	required := m.RequiredTime
	if requiredTime != nil {
		required = *requiredTime
	}
	termination := models.TerminationAfter(s.now(), required)

	ret := &models.Mission{
		Type:             models.MissionReturn,
		UserID:           m.UserID,
		SourcePlanetID:   m.SourcePlanetID,
		TargetPlanetID:   m.TargetPlanetID,
		RequiredTime:     required,
		TerminationDate:  &termination,
		RelatedMissionID: &m.ID,
		CreatedAt:        s.now(),
	}
	if err := tx.Missions().Save(ctx, ret); err != nil {
		return nil, err
	}

	fleets, err := tx.Units().FindLockedByMission(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	for i := range fleets {
		fleets[i].MissionID = &ret.ID
		if err := tx.Units().Save(ctx, &fleets[i]); err != nil {
			return nil, err
		}
	}

	s.armAfterCommit(tx, ret)
	return ret, nil
}

func (s *Service) armAfterCommit(tx store.Tx, m *models.Mission) {
	missionID, fireAt := m.ID, *m.TerminationDate
	tx.Outbox().Add("scheduler_arm", func(ctx context.Context) error {
		return s.scheduler.Schedule(ctx, missionID, fireAt)
	})
}

func (s *Service) disarmAfterCommit(tx store.Tx, missionID int64) {
	tx.Outbox().Add("scheduler_disarm", func(ctx context.Context) error {
		return s.scheduler.Cancel(ctx, missionID)
	})
}

// emitLocalMissionChange refreshes the running missions of the mission owner
// and, when someone else owns the target planet, that owner's enemy missions.
func (s *Service) emitLocalMissionChange(ctx context.Context, tx store.Tx, m *models.Mission) error {
	userID := m.UserID
	tx.Outbox().Add(notify.EventUnitMissionChange, func(ctx context.Context) error {
		s.sender.SendMessage(userID, notify.EventUnitMissionChange, func() (any, error) {
			return s.missionChange(ctx, userID)
		})
		return nil
	})

	target, err := tx.Planets().FindByID(ctx, m.TargetPlanetID)
	if err != nil {
		return err
	}
	if target.OwnerID != nil && *target.OwnerID != userID {
		s.emitEnemyMissionChange(tx, *target.OwnerID)
	}
	return nil
}

func (s *Service) emitEnemyMissionChange(tx store.Tx, userID int64) {
	tx.Outbox().Add(notify.EventEnemyMissionChange, func(ctx context.Context) error {
		s.sender.SendMessage(userID, notify.EventEnemyMissionChange, func() (any, error) {
			return s.FindEnemyRunningMissions(ctx, userID)
		})
		return nil
	})
}

func (s *Service) emitPlanetOwnedChange(tx store.Tx, userID int64) {
	tx.Outbox().Add(notify.EventPlanetOwnedChange, func(ctx context.Context) error {
		s.sender.SendMessage(userID, notify.EventPlanetOwnedChange, func() (any, error) {
			var planets []models.Planet
			err := s.store.InTx(ctx, func(tx store.Tx) error {
				var err error
				planets, err = tx.Planets().FindOwnedBy(ctx, userID)
				return err
			})
			return planets, err
		})
		return nil
	})
}

func (s *Service) emitUserDataChange(tx store.Tx, userID int64) {
	tx.Outbox().Add(notify.EventUserDataChange, func(ctx context.Context) error {
		s.sender.SendMessage(userID, notify.EventUserDataChange, func() (any, error) {
			var u *models.User
			err := s.store.InTx(ctx, func(tx store.Tx) error {
				var err error
				u, err = tx.Users().FindByID(ctx, userID)
				return err
			})
			return u, err
		})
		return nil
	})
}

func (s *Service) emitUnitTypeChange(tx store.Tx, userID int64) {
	tx.Outbox().Add(notify.EventUnitTypeChange, func(ctx context.Context) error {
		s.sender.SendMessage(userID, notify.EventUnitTypeChange, func() (any, error) {
			return s.unitTypeCounts(ctx, userID)
		})
		return nil
	})
}

// UnitTypeCount is the unit_type_change payload entry.
type UnitTypeCount struct {
	UnitTypeID int64 `json:"unit_type_id"`
	Count      int64 `json:"count"`
}

func (s *Service) unitTypeCounts(ctx context.Context, userID int64) ([]UnitTypeCount, error) {
	var fleets []models.ObtainedUnit
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		fleets, err = tx.Units().FindByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	totals := make(map[int64]int64)
	var order []int64
	for _, f := range fleets {
		unit, err := s.catalog.Unit(f.UnitID)
		if err != nil {
			return nil, err
		}
		if _, ok := totals[unit.TypeID]; !ok {
			order = append(order, unit.TypeID)
		}
		totals[unit.TypeID] += f.Count
	}

	counts := make([]UnitTypeCount, 0, len(order))
	for _, typeID := range order {
		counts = append(counts, UnitTypeCount{UnitTypeID: typeID, Count: totals[typeID]})
	}
	return counts, nil
}
