package mission

import (
	"context"
	"sort"

	"fleets-server/internal/combat"
	"fleets-server/internal/improvement"
	"fleets-server/internal/models"
	"fleets-server/internal/store"
)

const (
	gatherPrimaryShare   = 0.7
	gatherSecondaryShare = 0.3
)

// Soft failure reasons shown to players.
const (
	msgPlanetAlreadyOwned  = "The planet already belongs to a user"
	msgMaxPlanets          = "You already have the max planets, you can have"
	msgHomePlanet          = "This is a home planet now, can't conquest it"
	msgYourPlanetConquered = "Your planet was conquered"
)

type missionContext struct {
	mission  *models.Mission
	user     *models.User
	source   *models.Planet
	target   *models.Planet
	involved []models.ObtainedUnit
}

// load reads the common state of a mission being resolved. The target planet
// is locked for the rest of the transaction.
func (s *Service) load(ctx context.Context, tx store.Tx, m *models.Mission) (*missionContext, error) {
	u, err := tx.Users().FindByID(ctx, m.UserID)
	if err != nil {
		return nil, err
	}
	source, err := tx.Planets().FindByID(ctx, m.SourcePlanetID)
	if err != nil {
		return nil, err
	}
	target, err := tx.Planets().FindLockedByID(ctx, m.TargetPlanetID)
	if err != nil {
		return nil, err
	}
	involved, err := tx.Units().FindLockedByMission(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	return &missionContext{mission: m, user: u, source: source, target: target, involved: involved}, nil
}

func (mc *missionContext) report() *Report {
	return newReport(mc.mission, mc.source, mc.target, mc.involved)
}

// fleetsAt locks every fleet standing at a planet: stationed fleets and the
// fleets of Deployed missions there.
func fleetsAt(ctx context.Context, tx store.Tx, planetID int64) ([]models.ObtainedUnit, error) {
	fleets, err := tx.Units().FindLockedStationedAt(ctx, planetID)
	if err != nil {
		return nil, err
	}

	deployed, err := tx.Missions().FindDeployedAt(ctx, planetID)
	if err != nil {
		return nil, err
	}
	for _, d := range deployed {
		units, err := tx.Units().FindLockedByMission(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		fleets = append(fleets, units...)
	}
	return fleets, nil
}

func (s *Service) processExplore(ctx context.Context, tx store.Tx, m *models.Mission) error {
	mc, err := s.load(ctx, tx, m)
	if err != nil {
		return err
	}

	explored, err := tx.Users().IsExplored(ctx, mc.user.ID, mc.target.ID)
	if err != nil {
		return err
	}
	if !explored {
		if err := tx.Users().MarkExplored(ctx, mc.user.ID, mc.target.ID); err != nil {
			return err
		}
	}

	present, err := fleetsAt(ctx, tx, mc.target.ID)
	if err != nil {
		return err
	}
	unitsInPlanet, err := s.visible(mc.user.ID, present)
	if err != nil {
		return err
	}

	if _, err := s.registerReturn(ctx, tx, m, nil); err != nil {
		return err
	}
	report := mc.report()
	report.UnitsInPlanet = unitsInPlanet
	if err := s.saveReport(ctx, tx, m, mc.user.ID, false, report); err != nil {
		return err
	}
	if err := s.resolveMission(ctx, tx, m); err != nil {
		return err
	}
	return s.emitLocalMissionChange(ctx, tx, m)
}

func (s *Service) processGather(ctx context.Context, tx store.Tx, m *models.Mission) error {
	mc, err := s.load(ctx, tx, m)
	if err != nil {
		return err
	}

	var charge float64
	for _, fleet := range mc.involved {
		unit, err := s.catalog.Unit(fleet.UnitID)
		if err != nil {
			return err
		}
		charge += unit.Charge * float64(fleet.Count)
	}

	grouped, err := s.users.FindUserImprovement(ctx, tx, mc.user.ID)
	if err != nil {
		return err
	}
	gathered := improvement.ComputePlusPercentage(charge*mc.target.Richness, grouped.MoreChargeCapacity)
	primary := gathered * gatherPrimaryShare
	secondary := gathered * gatherSecondaryShare

	if err := tx.Users().AddResources(ctx, mc.user.ID, primary, secondary); err != nil {
		return err
	}
	if _, err := s.registerReturn(ctx, tx, m, nil); err != nil {
		return err
	}

	report := mc.report()
	report.GatheredPrimary = &primary
	report.GatheredSecondary = &secondary
	if err := s.saveReport(ctx, tx, m, mc.user.ID, false, report); err != nil {
		return err
	}
	if err := s.resolveMission(ctx, tx, m); err != nil {
		return err
	}

	s.emitUserDataChange(tx, mc.user.ID)
	return s.emitLocalMissionChange(ctx, tx, m)
}

func (s *Service) processEstablishBase(ctx context.Context, tx store.Tx, m *models.Mission) error {
	mc, err := s.load(ctx, tx, m)
	if err != nil {
		return err
	}

	full, err := s.users.HasMaxPlanets(ctx, tx, mc.user)
	if err != nil {
		return err
	}

	report := mc.report()
	switch {
	case mc.target.OwnerID != nil:
		report.withStatus(false, msgPlanetAlreadyOwned)
	case full:
		report.withStatus(false, msgMaxPlanets)
	default:
		report.withStatus(true, "")
	}

	if *report.Success {
		if err := s.definePlanetAsOwnedBy(ctx, tx, mc.user.ID, mc.involved, mc.target); err != nil {
			return err
		}
	} else {
		s.logger.Warn("Establish base failed softly", "mission_id", m.ID, "reason", report.StatusMessage)
		if _, err := s.registerReturn(ctx, tx, m, nil); err != nil {
			return err
		}
	}

	if err := s.saveReport(ctx, tx, m, mc.user.ID, false, report); err != nil {
		return err
	}
	if err := s.resolveMission(ctx, tx, m); err != nil {
		return err
	}
	return s.emitLocalMissionChange(ctx, tx, m)
}

func (s *Service) processConquest(ctx context.Context, tx store.Tx, m *models.Mission) error {
	mc, err := s.load(ctx, tx, m)
	if err != nil {
		return err
	}

	full, err := s.users.HasMaxPlanets(ctx, tx, mc.user)
	if err != nil {
		return err
	}

	report := mc.report()
	switch {
	case full:
		report.withStatus(false, msgMaxPlanets)
	case mc.target.Home:
		report.withStatus(false, msgHomePlanet)
	default:
		report.withStatus(true, "")
	}

	if !*report.Success {
		s.logger.Warn("Conquest failed softly", "mission_id", m.ID, "reason", report.StatusMessage)
		if _, err := s.registerReturn(ctx, tx, m, nil); err != nil {
			return err
		}
	} else {
		oldOwner := mc.target.OwnerID

		removed, err := tx.Units().FindLockedStationedAt(ctx, mc.target.ID)
		if err != nil {
			return err
		}
		if err := tx.Units().DeleteStationedAt(ctx, mc.target.ID); err != nil {
			return err
		}
		for _, fleet := range removed {
			s.ledger.QueueObtainedChange(tx, fleet.UserID)
		}

		if err := s.definePlanetAsOwnedBy(ctx, tx, mc.user.ID, mc.involved, mc.target); err != nil {
			return err
		}

		if oldOwner != nil && *oldOwner != mc.user.ID {
			s.emitPlanetOwnedChange(tx, *oldOwner)
			s.emitEnemyMissionChange(tx, *oldOwner)
			enemyReport := mc.report().withStatus(true, msgYourPlanetConquered)
			if err := s.saveReport(ctx, tx, m, *oldOwner, true, enemyReport); err != nil {
				return err
			}
		}
	}

	if err := s.saveReport(ctx, tx, m, mc.user.ID, false, report); err != nil {
		return err
	}
	if err := s.resolveMission(ctx, tx, m); err != nil {
		return err
	}
	return s.emitLocalMissionChange(ctx, tx, m)
}

// definePlanetAsOwnedBy transfers the planet and stations the fleets there.
func (s *Service) definePlanetAsOwnedBy(ctx context.Context, tx store.Tx, userID int64, fleets []models.ObtainedUnit, planet *models.Planet) error {
	planet.OwnerID = &userID
	if err := tx.Planets().Save(ctx, planet); err != nil {
		return err
	}

	for i := range fleets {
		if _, err := s.ledger.MoveUnit(ctx, tx, &fleets[i], userID, planet.ID); err != nil {
			return err
		}
	}

	s.logger.Info("Planet ownership transferred", "planet_id", planet.ID, "user_id", userID)
	s.emitPlanetOwnedChange(tx, userID)
	s.ledger.QueueObtainedChange(tx, userID)
	return nil
}

func (s *Service) processAttack(ctx context.Context, tx store.Tx, m *models.Mission) error {
	mc, err := s.load(ctx, tx, m)
	if err != nil {
		return err
	}

	present, err := fleetsAt(ctx, tx, mc.target.ID)
	if err != nil {
		return err
	}
	all := append(present, mc.involved...)

	battle, byID, err := s.buildBattle(ctx, tx, m.ID, all)
	if err != nil {
		return err
	}
	result, err := combat.Resolve(battle, s.battleRand())
	if err != nil {
		return err
	}

	if err := s.applyCombat(ctx, tx, result, byID); err != nil {
		return err
	}

	if !result.MissionRemoved {
		if _, err := s.registerReturn(ctx, tx, m, nil); err != nil {
			return err
		}
	}
	if err := s.resolveMission(ctx, tx, m); err != nil {
		return err
	}

	report := mc.report().withAttack(result)
	for _, outcome := range report.AttackUsers {
		if outcome.UserID == mc.user.ID {
			continue
		}
		if err := s.saveReport(ctx, tx, m, outcome.UserID, true, report); err != nil {
			return err
		}
	}
	if err := s.saveReport(ctx, tx, m, mc.user.ID, false, report); err != nil {
		return err
	}

	return s.emitLocalMissionChange(ctx, tx, m)
}

func (s *Service) buildBattle(ctx context.Context, tx store.Tx, attackMissionID int64, fleets []models.ObtainedUnit) (combat.Battle, map[int64]*models.ObtainedUnit, error) {
	type owner struct {
		user     *models.User
		improved improvement.GroupedImprovement
	}
	owners := make(map[int64]*owner)
	byID := make(map[int64]*models.ObtainedUnit, len(fleets))
	battle := combat.Battle{AttackMissionID: attackMissionID}

	for i := range fleets {
		f := &fleets[i]
		if _, dup := byID[f.ID]; dup {
			continue
		}
		byID[f.ID] = f

		o, ok := owners[f.UserID]
		if !ok {
			u, err := tx.Users().FindByID(ctx, f.UserID)
			if err != nil {
				return combat.Battle{}, nil, err
			}
			grouped, err := s.users.FindUserImprovement(ctx, tx, f.UserID)
			if err != nil {
				return combat.Battle{}, nil, err
			}
			o = &owner{user: u, improved: grouped}
			owners[f.UserID] = o
		}

		cf, err := combat.NewFleet(s.catalog, *f, o.user, o.improved)
		if err != nil {
			return combat.Battle{}, nil, err
		}
		battle.Fleets = append(battle.Fleets, cf)
	}
	return battle, byID, nil
}

// applyCombat persists casualties, points and missions emptied by the battle.
func (s *Service) applyCombat(ctx context.Context, tx store.Tx, result combat.Result, byID map[int64]*models.ObtainedUnit) error {
	for _, outcome := range result.Fleets {
		switch {
		case outcome.Destroyed:
			if err := tx.Units().Delete(ctx, outcome.FleetID); err != nil {
				return err
			}
		case outcome.Changed():
			fleet := byID[outcome.FleetID]
			fleet.Count = outcome.FinalCount
			if err := tx.Units().Save(ctx, fleet); err != nil {
				return err
			}
		}
	}

	for _, userID := range sortedKeys(result.Points) {
		if points := result.Points[userID]; points != 0 {
			if err := tx.Users().AddPoints(ctx, userID, points); err != nil {
				return err
			}
		}
	}

	for _, missionID := range result.EmptiedMissionIDs {
		emptied, err := tx.Missions().FindByID(ctx, missionID)
		if err != nil {
			return err
		}
		resolved, err := s.ledger.ResolveIfEmpty(ctx, tx, missionID)
		if err != nil {
			return err
		}
		if resolved {
			s.logger.Info("Mission lost every fleet in combat", "mission_id", missionID)
			if err := s.emitLocalMissionChange(ctx, tx, emptied); err != nil {
				return err
			}
		}
	}

	for _, userID := range result.AlteredUsers {
		s.emitUnitTypeChange(tx, userID)
		s.ledger.QueueObtainedChange(tx, userID)
		s.emitUserDataChange(tx, userID)
	}
	return nil
}

func sortedKeys(m map[int64]float64) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (s *Service) processDeploy(ctx context.Context, tx store.Tx, m *models.Mission) error {
	involved, err := tx.Units().FindLockedByMission(ctx, m.ID)
	if err != nil {
		return err
	}
	if _, err := tx.Planets().FindLockedByID(ctx, m.TargetPlanetID); err != nil {
		return err
	}

	for i := range involved {
		if _, err := s.ledger.MoveUnit(ctx, tx, &involved[i], m.UserID, m.TargetPlanetID); err != nil {
			return err
		}
	}

	if err := s.resolveMission(ctx, tx, m); err != nil {
		return err
	}
	s.ledger.QueueObtainedChange(tx, m.UserID)
	return s.emitLocalMissionChange(ctx, tx, m)
}

// processReturn brings every fleet back to the planet it departed from.
func (s *Service) processReturn(ctx context.Context, tx store.Tx, m *models.Mission) error {
	involved, err := tx.Units().FindLockedByMission(ctx, m.ID)
	if err != nil {
		return err
	}

	for i := range involved {
		fleet := &involved[i]
		if _, err := s.ledger.MoveUnit(ctx, tx, fleet, m.UserID, fleet.SourcePlanetID); err != nil {
			return err
		}
	}

	if err := s.resolveMission(ctx, tx, m); err != nil {
		return err
	}
	s.ledger.QueueObtainedChange(tx, m.UserID)
	return s.emitLocalMissionChange(ctx, tx, m)
}
