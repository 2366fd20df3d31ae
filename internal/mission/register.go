package mission

import (
	"context"
	"sort"

	"fleets-server/internal/catalog"
	"fleets-server/internal/improvement"
	"fleets-server/internal/models"
	"fleets-server/internal/shared/config"
	"fleets-server/internal/shared/errors"
	"fleets-server/internal/store"
)

type UnitSelection struct {
	UnitID int64 `json:"id"`
	Count  int64 `json:"count"`
}

type Request struct {
	SourcePlanetID int64           `json:"source_planet_id"`
	TargetPlanetID int64           `json:"target_planet_id"`
	InvolvedUnits  []UnitSelection `json:"involved_units"`
}

func (r Request) validate() error {
	if r.SourcePlanetID == 0 {
		return errors.Validation("source_planet_id is required")
	}
	if r.TargetPlanetID == 0 {
		return errors.Validation("target_planet_id is required")
	}
	if len(r.InvolvedUnits) == 0 {
		return errors.Validation("involved_units can't be empty")
	}

	seen := make(map[int64]bool, len(r.InvolvedUnits))
	for _, u := range r.InvolvedUnits {
		if u.Count < 1 {
			return errors.Validationf("count for unit %d must be at least 1, got %d", u.UnitID, u.Count)
		}
		if seen[u.UnitID] {
			return errors.Validationf("unit %d is selected more than once", u.UnitID)
		}
		seen[u.UnitID] = true
	}
	return nil
}

// selectedFleet is a fleet picked at the source planet, before subtraction.
type selectedFleet struct {
	fleet    models.ObtainedUnit
	unit     *catalog.Unit
	count    int64
	deployed bool
}

// Register validates and starts a mission. Ledger subtraction, mission
// creation and the in-flight fleets are committed together; the scheduler
// is armed after commit.
func (s *Service) Register(ctx context.Context, userID int64, missionType models.MissionType, req Request) (*RunningMission, error) {
	logger := s.logger.With("component", "mission_service", "operation", "register",
		"user_id", userID, "type", missionType,
		"source_planet_id", req.SourcePlanetID, "target_planet_id", req.TargetPlanetID)

	if !missionType.IsRegistrable() {
		return nil, errors.Validationf("mission type %s can not be registered directly", missionType)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	var created *RunningMission
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		created, err = s.register(ctx, tx, userID, missionType, req)
		return err
	})
	if err != nil {
		logger.Debug("Mission registration rejected", "error", err)
		return nil, err
	}

	logger.Info("Mission registered",
		"mission_id", created.ID,
		"required_time", created.RequiredTime,
		"termination_date", created.TerminationDate)
	return created, nil
}

func (s *Service) register(ctx context.Context, tx store.Tx, userID int64, missionType models.MissionType, req Request) (*RunningMission, error) {
	u, err := tx.Users().FindLockedByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	source, target, err := lockPlanets(ctx, tx, req.SourcePlanetID, req.TargetPlanetID)
	if err != nil {
		return nil, err
	}
	targetOwned := target.IsOwnedBy(userID)

	if err := s.checkMissionType(ctx, tx, u, missionType, source, target); err != nil {
		return nil, err
	}

	grouped, err := s.users.FindUserImprovement(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.checkRunningLimit(ctx, tx, userID, grouped); err != nil {
		return nil, err
	}

	if missionType != models.MissionExplore {
		explored, err := tx.Users().IsExplored(ctx, userID, target.ID)
		if err != nil {
			return nil, err
		}
		if !explored {
			return nil, errors.Policy("can't send this mission, because target planet is not explored")
		}
	}

	selected, err := s.selectFleets(ctx, tx, userID, missionType, source, target, req.InvolvedUnits)
	if err != nil {
		return nil, err
	}

	units := make([]*catalog.Unit, 0, len(selected))
	for _, sel := range selected {
		units = append(units, sel.unit)
		if err := s.checkUnitCanDoMission(ctx, tx, userID, sel.unit, missionType, source, target, targetOwned); err != nil {
			return nil, err
		}
	}

	emptiedDeployed := make(map[int64]bool)
	for _, sel := range selected {
		remaining, err := s.ledger.Subtract(ctx, tx, &sel.fleet, sel.count)
		if err != nil {
			return nil, err
		}
		if remaining == nil && sel.deployed {
			emptiedDeployed[*sel.fleet.MissionID] = true
		}
	}

	now := s.now()
	required := RequiredTime(s.catalog, s.cfg.BaseTime(string(missionType)), units, source, target)
	termination := models.TerminationAfter(now, required)
	m := &models.Mission{
		Type:            missionType,
		UserID:          userID,
		SourcePlanetID:  source.ID,
		TargetPlanetID:  target.ID,
		RequiredTime:    required,
		TerminationDate: &termination,
		CreatedAt:       now,
	}
	if err := tx.Missions().Save(ctx, m); err != nil {
		return nil, err
	}

	inFlight := make([]models.ObtainedUnit, 0, len(selected))
	for _, sel := range selected {
		fleet := models.ObtainedUnit{
			UnitID:                   sel.unit.ID,
			UserID:                   userID,
			Count:                    sel.count,
			SourcePlanetID:           source.ID,
			TargetPlanetID:           &target.ID,
			MissionID:                &m.ID,
			FirstDeploymentMissionID: sel.fleet.FirstDeploymentMissionID,
		}
		if sel.fleet.FirstDeploymentMissionID != nil {
			first, err := tx.Missions().FindByID(ctx, *sel.fleet.FirstDeploymentMissionID)
			if err != nil {
				return nil, err
			}
			fleet.SourcePlanetID = first.SourcePlanetID
		}
		if err := tx.Units().Save(ctx, &fleet); err != nil {
			return nil, err
		}
		inFlight = append(inFlight, fleet)
	}

	for missionID := range emptiedDeployed {
		if _, err := s.ledger.ResolveIfEmpty(ctx, tx, missionID); err != nil {
			return nil, err
		}
	}

	s.armAfterCommit(tx, m)
	if err := s.emitLocalMissionChange(ctx, tx, m); err != nil {
		return nil, err
	}
	s.ledger.QueueObtainedChange(tx, userID)

	views, err := s.visible(userID, inFlight)
	if err != nil {
		return nil, err
	}
	return &RunningMission{Mission: *m, Units: views}, nil
}

// lockPlanets locks both planets in id order.
func lockPlanets(ctx context.Context, tx store.Tx, sourceID, targetID int64) (*models.Planet, *models.Planet, error) {
	ids := []int64{sourceID, targetID}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	locked := make(map[int64]*models.Planet, 2)
	for _, id := range ids {
		if _, ok := locked[id]; ok {
			continue
		}
		p, err := tx.Planets().FindLockedByID(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		locked[id] = p
	}
	return locked[sourceID], locked[targetID], nil
}

func (s *Service) checkMissionType(ctx context.Context, tx store.Tx, u *models.User, missionType models.MissionType, source, target *models.Planet) error {
	switch missionType {
	case models.MissionCounterattack:
		if !target.IsOwnedBy(u.ID) {
			return errors.Policy("counterattack is only possible on your own planets")
		}
	case models.MissionConquest:
		if target.IsOwnedBy(u.ID) {
			return errors.Policy("you can't conquest your own planet")
		}
		if target.Home {
			return errors.Policy("this is a home planet, can't conquest it")
		}
		full, err := s.users.HasMaxPlanets(ctx, tx, u)
		if err != nil {
			return err
		}
		if full {
			return errors.Policy("you already have the max planets you can have")
		}
	case models.MissionDeploy:
		if source.ID == target.ID {
			return errors.Validation("can't deploy to the same planet")
		}
		if s.cfg.DeployPolicy == config.DeployPolicyDisallowed {
			return errors.Policy("the deployment mission is globally disabled")
		}
	}
	return nil
}

func (s *Service) checkRunningLimit(ctx context.Context, tx store.Tx, userID int64, grouped improvement.GroupedImprovement) error {
	running, err := tx.Missions().CountRunningByUser(ctx, userID)
	if err != nil {
		return err
	}
	limit := s.cfg.MaxRunningMissions + int(grouped.MoreMissions)
	if running >= limit {
		return errors.Policyf("you can not have more than %d running missions", limit)
	}
	return nil
}

// selectFleets finds each selected unit at the source planet: the stationed
// fleet on an owned planet, else the fleet of the user's Deployed mission
// there.
func (s *Service) selectFleets(ctx context.Context, tx store.Tx, userID int64, missionType models.MissionType, source, target *models.Planet, selection []UnitSelection) ([]selectedFleet, error) {
	sourceOwned := source.IsOwnedBy(userID)

	var deployedFleets []models.ObtainedUnit
	if !sourceOwned {
		deployed, err := tx.Missions().FindDeployed(ctx, userID, source.ID)
		if err != nil {
			return nil, err
		}
		if deployed != nil {
			deployedFleets, err = tx.Units().FindLockedByMission(ctx, deployed.ID)
			if err != nil {
				return nil, err
			}
		}
	}

	selected := make([]selectedFleet, 0, len(selection))
	for _, sel := range selection {
		unit, err := s.catalog.Unit(sel.UnitID)
		if err != nil {
			return nil, err
		}

		var fleet *models.ObtainedUnit
		if sourceOwned {
			fleet, err = tx.Units().FindStationed(ctx, userID, source.ID, unit.ID)
			if err != nil {
				return nil, err
			}
		} else {
			for i := range deployedFleets {
				if deployedFleets[i].UnitID == unit.ID {
					fleet = &deployedFleets[i]
					break
				}
			}
		}
		if fleet == nil {
			return nil, errors.NotFoundf("no fleet of unit %d was found in planet %d", unit.ID, source.ID)
		}

		deployed := !sourceOwned
		if deployed && missionType == models.MissionDeploy && !target.IsOwnedBy(userID) {
			switch s.cfg.DeployPolicy {
			case config.DeployPolicyOnlyOnceReturnSource, config.DeployPolicyOnlyOnceReturnDeployed:
				return nil, errors.Policy("you can't do a deploy mission after a deploy mission")
			}
		}

		selected = append(selected, selectedFleet{fleet: *fleet, unit: unit, count: sel.Count, deployed: deployed})
	}
	return selected, nil
}

func (s *Service) checkUnitCanDoMission(ctx context.Context, tx store.Tx, userID int64, unit *catalog.Unit, missionType models.MissionType, source, target *models.Planet, targetOwned bool) error {
	supported, err := s.catalog.SupportsMission(unit, missionType, targetOwned)
	if err != nil {
		return err
	}
	if !supported {
		return errors.Policyf("%s doesn't support the %s mission", unit.Name, missionType)
	}

	if source.GalaxyID == target.GalaxyID {
		return nil
	}
	group := s.catalog.SpeedImpactGroupFor(unit)
	if group == nil {
		return nil
	}
	if !group.MissionSupport.Allows(missionType, targetOwned) {
		return errors.Policyf("%s doesn't support the %s mission outside of the galaxy", group.Name, missionType)
	}
	unlocked, err := tx.Users().IsUnlocked(ctx, userID, group.UnlockRelationID)
	if err != nil {
		return err
	}
	if !unlocked {
		return errors.Policyf("%s is not unlocked for cross galaxy missions", group.Name)
	}
	return nil
}
