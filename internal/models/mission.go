package models

import (
	"fmt"
	"strings"
	"time"
)

type MissionType string

const (
	MissionExplore       MissionType = "EXPLORE"
	MissionGather        MissionType = "GATHER"
	MissionEstablishBase MissionType = "ESTABLISH_BASE"
	MissionAttack        MissionType = "ATTACK"
	MissionCounterattack MissionType = "COUNTERATTACK"
	MissionConquest      MissionType = "CONQUEST"
	MissionDeploy        MissionType = "DEPLOY"
	MissionDeployed      MissionType = "DEPLOYED"
	MissionReturn        MissionType = "RETURN_MISSION"
)

// RegistrableMissionTypes are the types a player may request directly.
var RegistrableMissionTypes = []MissionType{
	MissionExplore,
	MissionGather,
	MissionEstablishBase,
	MissionAttack,
	MissionCounterattack,
	MissionConquest,
	MissionDeploy,
}

// ParseMissionType accepts the canonical code or its lower/kebab-case form
// ("establish-base").
func ParseMissionType(s string) (MissionType, error) {
	code := MissionType(strings.ToUpper(strings.ReplaceAll(s, "-", "_")))
	switch code {
	case MissionExplore, MissionGather, MissionEstablishBase, MissionAttack, MissionCounterattack,
		MissionConquest, MissionDeploy, MissionDeployed, MissionReturn:
		return code, nil
	}
	return "", fmt.Errorf("unknown mission type %q", s)
}

func (t MissionType) IsRegistrable() bool {
	for _, r := range RegistrableMissionTypes {
		if r == t {
			return true
		}
	}
	return false
}

// IsCancellable reports whether a player may abort a mission of this type.
func (t MissionType) IsCancellable() bool {
	return t != MissionReturn && t != MissionDeployed
}

type Mission struct {
	ID               int64       `json:"id"`
	Type             MissionType `json:"type"`
	UserID           int64       `json:"user_id"`
	SourcePlanetID   int64       `json:"source_planet_id"`
	TargetPlanetID   int64       `json:"target_planet_id"`
	RequiredTime     float64     `json:"required_time"`
	TerminationDate  *time.Time  `json:"termination_date"`
	Resolved         bool        `json:"resolved"`
	RelatedMissionID *int64      `json:"related_mission_id"`
	CreatedAt        time.Time   `json:"created_at"`
}

// TerminationAfter computes the termination date for a duration in seconds.
func TerminationAfter(now time.Time, requiredSeconds float64) time.Time {
	return now.Add(time.Duration(requiredSeconds * float64(time.Second))).UTC()
}
