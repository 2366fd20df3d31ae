package mission

import (
	"context"
	"encoding/json"
	"fmt"

	"fleets-server/internal/combat"
	"fleets-server/internal/models"
	"fleets-server/internal/notify"
	"fleets-server/internal/store"
)

// UnitView is a fleet as seen by another user. Unit and count are hidden for
// invisible units the viewer does not own.
type UnitView struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"user_id"`
	UnitID         *int64 `json:"unit_id"`
	Count          *int64 `json:"count"`
	SourcePlanetID int64  `json:"source_planet_id"`
	MissionID      *int64 `json:"mission_id,omitempty"`
}

type RunningMission struct {
	models.Mission
	Units []UnitView `json:"units"`
}

// MissionChange is the unit_mission_change payload.
type MissionChange struct {
	Count    int              `json:"count"`
	Missions []RunningMission `json:"missions"`
}

type AttackUserReport struct {
	UserID       int64                 `json:"user_id"`
	EarnedPoints float64               `json:"earned_points"`
	Units        []combat.FleetOutcome `json:"units"`
}

type Report struct {
	MissionType       models.MissionType    `json:"mission_type"`
	SourcePlanet      *models.Planet        `json:"source_planet,omitempty"`
	TargetPlanet      *models.Planet        `json:"target_planet,omitempty"`
	InvolvedUnits     []models.ObtainedUnit `json:"involved_units,omitempty"`
	UnitsInPlanet     []UnitView            `json:"units_in_planet,omitempty"`
	GatheredPrimary   *float64              `json:"gathered_primary,omitempty"`
	GatheredSecondary *float64              `json:"gathered_secondary,omitempty"`
	Success           *bool                 `json:"success,omitempty"`
	StatusMessage     string                `json:"status_message,omitempty"`
	AttackUsers       []AttackUserReport    `json:"attack_users,omitempty"`
	AttackMissionLost bool                  `json:"attack_mission_lost,omitempty"`
}

func newReport(m *models.Mission, source, target *models.Planet, involved []models.ObtainedUnit) *Report {
	return &Report{
		MissionType:   m.Type,
		SourcePlanet:  source,
		TargetPlanet:  target,
		InvolvedUnits: involved,
	}
}

func (r *Report) withStatus(success bool, message string) *Report {
	r.Success = &success
	r.StatusMessage = message
	return r
}

// withAttack adds the battle outcome and replaces the involved units with
// what survived it.
func (r *Report) withAttack(result combat.Result) *Report {
	outcomes := make(map[int64]combat.FleetOutcome, len(result.Fleets))
	for _, o := range result.Fleets {
		outcomes[o.FleetID] = o
	}
	survivors := make([]models.ObtainedUnit, 0, len(r.InvolvedUnits))
	for _, u := range r.InvolvedUnits {
		if o, ok := outcomes[u.ID]; ok {
			if o.Destroyed {
				continue
			}
			u.Count = o.FinalCount
		}
		survivors = append(survivors, u)
	}
	r.InvolvedUnits = survivors

	byUser := make(map[int64]*AttackUserReport)
	var order []int64
	for _, o := range result.Fleets {
		u, ok := byUser[o.UserID]
		if !ok {
			u = &AttackUserReport{UserID: o.UserID, EarnedPoints: result.Points[o.UserID]}
			byUser[o.UserID] = u
			order = append(order, o.UserID)
		}
		u.Units = append(u.Units, o)
	}
	for _, userID := range order {
		r.AttackUsers = append(r.AttackUsers, *byUser[userID])
	}
	r.AttackMissionLost = result.MissionRemoved
	return r
}

func (s *Service) visible(viewerID int64, units []models.ObtainedUnit) ([]UnitView, error) {
	views := make([]UnitView, 0, len(units))
	for _, u := range units {
		view := UnitView{
			ID:             u.ID,
			UserID:         u.UserID,
			SourcePlanetID: u.SourcePlanetID,
			MissionID:      u.MissionID,
		}
		unit, err := s.catalog.Unit(u.UnitID)
		if err != nil {
			return nil, err
		}
		if u.UserID == viewerID || !unit.Invisible {
			unitID, count := u.UnitID, u.Count
			view.UnitID = &unitID
			view.Count = &count
		}
		views = append(views, view)
	}
	return views, nil
}

// saveReport stores the report and notifies its addressee after commit.
func (s *Service) saveReport(ctx context.Context, tx store.Tx, m *models.Mission, userID int64, enemy bool, report *Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode mission report: %w", err)
	}

	saved := &models.MissionReport{
		MissionID: &m.ID,
		UserID:    userID,
		Enemy:     enemy,
		Payload:   payload,
		CreatedAt: s.now(),
	}
	if err := tx.Reports().Save(ctx, saved); err != nil {
		return err
	}

	tx.Outbox().Add(notify.EventMissionReportNew, func(context.Context) error {
		s.sender.SendMessage(userID, notify.EventMissionReportNew, func() (any, error) { return saved, nil })
		return nil
	})
	return nil
}
