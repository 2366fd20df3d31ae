package memory

import (
	"context"
	"maps"
	"slices"
	"time"

	"fleets-server/internal/models"
)

type userRepo struct {
	repo[models.User]
	state *state
}

func (r *userRepo) AddResources(_ context.Context, userID int64, primary, secondary float64) error {
	user, err := r.t.find(userID)
	if err != nil {
		return err
	}
	user.PrimaryResource += primary
	user.SecondaryResource += secondary
	r.t.save(user)
	return nil
}

func (r *userRepo) AddPoints(_ context.Context, userID int64, points float64) error {
	user, err := r.t.find(userID)
	if err != nil {
		return err
	}
	user.Points += points
	r.t.save(user)
	return nil
}

func (r *userRepo) TouchResourceUpdate(_ context.Context, userID int64, at time.Time) error {
	user, err := r.t.find(userID)
	if err != nil {
		return err
	}
	user.LastResourceUpdate = at
	r.t.save(user)
	return nil
}

func (r *userRepo) IsExplored(_ context.Context, userID, planetID int64) (bool, error) {
	return r.state.explored[pair{userID, planetID}], nil
}

func (r *userRepo) MarkExplored(_ context.Context, userID, planetID int64) error {
	r.state.explored[pair{userID, planetID}] = true
	return nil
}

func (r *userRepo) IsUnlocked(_ context.Context, userID, relationID int64) (bool, error) {
	return r.state.unlocked[pair{userID, relationID}], nil
}

func (r *userRepo) Unlock(_ context.Context, userID, relationID int64) error {
	r.state.unlocked[pair{userID, relationID}] = true
	return nil
}

func (r *userRepo) Upgrades(_ context.Context, userID int64) ([]models.ObtainedUpgrade, error) {
	var out []models.ObtainedUpgrade
	for _, key := range slices.SortedFunc(maps.Keys(r.state.upgrades), comparePairs) {
		if key.a == userID {
			out = append(out, models.ObtainedUpgrade{UserID: key.a, UpgradeID: key.b, Level: r.state.upgrades[key]})
		}
	}
	return out, nil
}

func (r *userRepo) SaveUpgrade(_ context.Context, upgrade models.ObtainedUpgrade) error {
	r.state.upgrades[pair{upgrade.UserID, upgrade.UpgradeID}] = upgrade.Level
	return nil
}

func comparePairs(x, y pair) int {
	if x.a != y.a {
		return int(x.a - y.a)
	}
	return int(x.b - y.b)
}

type planetRepo struct {
	repo[models.Planet]
}

func (r *planetRepo) FindOwnedBy(_ context.Context, userID int64) ([]models.Planet, error) {
	return r.t.filter(func(p *models.Planet) bool { return p.IsOwnedBy(userID) }), nil
}

func (r *planetRepo) CountOwnedBy(ctx context.Context, userID int64) (int, error) {
	owned, err := r.FindOwnedBy(ctx, userID)
	return len(owned), err
}

type unitRepo struct {
	repo[models.ObtainedUnit]
}

func (r *unitRepo) FindLockedByMission(_ context.Context, missionID int64) ([]models.ObtainedUnit, error) {
	return r.t.filter(func(u *models.ObtainedUnit) bool {
		return u.MissionID != nil && *u.MissionID == missionID
	}), nil
}

func (r *unitRepo) FindStationed(_ context.Context, userID, planetID, unitID int64) (*models.ObtainedUnit, error) {
	found := r.t.filter(func(u *models.ObtainedUnit) bool {
		return u.UserID == userID && u.UnitID == unitID && u.SourcePlanetID == planetID && u.MissionID == nil
	})
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (r *unitRepo) FindLockedStationedAt(_ context.Context, planetID int64) ([]models.ObtainedUnit, error) {
	return r.t.filter(func(u *models.ObtainedUnit) bool {
		return u.SourcePlanetID == planetID && u.MissionID == nil
	}), nil
}

func (r *unitRepo) FindByUser(_ context.Context, userID int64) ([]models.ObtainedUnit, error) {
	return r.t.filter(func(u *models.ObtainedUnit) bool { return u.UserID == userID }), nil
}

func (r *unitRepo) CountByUserAndUnit(_ context.Context, userID, unitID int64) (int64, error) {
	var total int64
	for _, u := range r.t.filter(func(u *models.ObtainedUnit) bool { return u.UserID == userID && u.UnitID == unitID }) {
		total += u.Count
	}
	return total, nil
}

func (r *unitRepo) DeleteStationedAt(_ context.Context, planetID int64) error {
	for _, u := range r.t.filter(func(u *models.ObtainedUnit) bool {
		return u.SourcePlanetID == planetID && u.MissionID == nil
	}) {
		r.t.delete(u.ID)
	}
	return nil
}

type missionRepo struct {
	repo[models.Mission]
	state *state
}

func (r *missionRepo) FindRunningByUser(_ context.Context, userID int64) ([]models.Mission, error) {
	return r.t.filter(func(m *models.Mission) bool { return m.UserID == userID && !m.Resolved }), nil
}

func (r *missionRepo) CountRunningByUser(_ context.Context, userID int64) (int, error) {
	running := r.t.filter(func(m *models.Mission) bool {
		return m.UserID == userID && !m.Resolved && m.Type != models.MissionDeployed
	})
	return len(running), nil
}

func (r *missionRepo) FindEnemyRunning(_ context.Context, userID int64) ([]models.Mission, error) {
	return r.t.filter(func(m *models.Mission) bool {
		if m.Resolved || m.UserID == userID {
			return false
		}
		target, ok := r.state.planets.rows[m.TargetPlanetID]
		return ok && target.IsOwnedBy(userID)
	}), nil
}

func (r *missionRepo) FindDeployed(_ context.Context, userID, planetID int64) (*models.Mission, error) {
	found := r.t.filter(func(m *models.Mission) bool {
		return m.Type == models.MissionDeployed && !m.Resolved && m.UserID == userID && m.TargetPlanetID == planetID
	})
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (r *missionRepo) FindDeployedAt(_ context.Context, planetID int64) ([]models.Mission, error) {
	return r.t.filter(func(m *models.Mission) bool {
		return m.Type == models.MissionDeployed && !m.Resolved && m.TargetPlanetID == planetID
	}), nil
}

func (r *missionRepo) FindPending(_ context.Context) ([]models.Mission, error) {
	return r.t.filter(func(m *models.Mission) bool { return !m.Resolved && m.TerminationDate != nil }), nil
}

type reportRepo struct {
	t *table[models.MissionReport]
}

func (r *reportRepo) Save(_ context.Context, report *models.MissionReport) error {
	r.t.save(report)
	return nil
}

func (r *reportRepo) FindByUser(_ context.Context, userID int64, limit int) ([]models.MissionReport, error) {
	reports := r.t.filter(func(m *models.MissionReport) bool { return m.UserID == userID })
	slices.Reverse(reports)
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}
