package models

// ObtainedUnit is a fleet: a count of one unit owned by a user. A nil
// MissionID means the fleet is stationed at SourcePlanetID.
type ObtainedUnit struct {
	ID                       int64  `json:"id"`
	UnitID                   int64  `json:"unit_id"`
	UserID                   int64  `json:"user_id"`
	Count                    int64  `json:"count"`
	SourcePlanetID           int64  `json:"source_planet_id"`
	TargetPlanetID           *int64 `json:"target_planet_id"`
	MissionID                *int64 `json:"mission_id"`
	FirstDeploymentMissionID *int64 `json:"first_deployment_mission_id"`
}

func (u *ObtainedUnit) IsStationed() bool {
	return u.MissionID == nil
}
