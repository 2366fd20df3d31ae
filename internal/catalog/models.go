package catalog

import "fleets-server/internal/models"

type MissionSupport string

const (
	SupportAny       MissionSupport = "ANY"
	SupportOwnedOnly MissionSupport = "OWNED_ONLY"
	SupportNone      MissionSupport = "NONE"
)

// MissionSupportTable maps a mission type to its support level. Types absent
// from the table are supported everywhere.
type MissionSupportTable map[models.MissionType]MissionSupport

func (t MissionSupportTable) For(missionType models.MissionType) MissionSupport {
	if support, ok := t[missionType]; ok {
		return support
	}
	return SupportAny
}

// Allows reports whether the mission may target a planet given its ownership.
func (t MissionSupportTable) Allows(missionType models.MissionType, targetOwned bool) bool {
	switch t.For(missionType) {
	case SupportAny:
		return true
	case SupportOwnedOnly:
		return targetOwned
	default:
		return false
	}
}

type Faction struct {
	ID                          int64   `yaml:"id"`
	Name                        string  `yaml:"name"`
	InitialPrimaryResource      float64 `yaml:"initial_primary_resource"`
	InitialSecondaryResource    float64 `yaml:"initial_secondary_resource"`
	InitialEnergy               float64 `yaml:"initial_energy"`
	PrimaryResourceProduction   float64 `yaml:"primary_resource_production"`
	SecondaryResourceProduction float64 `yaml:"secondary_resource_production"`
	MaxPlanets                  int     `yaml:"max_planets"`
}

type UnitType struct {
	ID                 int64               `yaml:"id"`
	Name               string              `yaml:"name"`
	ParentID           *int64              `yaml:"parent_id"`
	SpeedImpactGroupID *int64              `yaml:"speed_impact_group_id"`
	AttackRuleID       *int64              `yaml:"attack_rule_id"`
	MaxCount           *int64              `yaml:"max_count"`
	MissionSupport     MissionSupportTable `yaml:"mission_support"`
}

type Unit struct {
	ID                 int64   `yaml:"id"`
	Name               string  `yaml:"name"`
	TypeID             int64   `yaml:"type_id"`
	Attack             float64 `yaml:"attack"`
	Shield             float64 `yaml:"shield"`
	Health             float64 `yaml:"health"`
	Speed              float64 `yaml:"speed"`
	Charge             float64 `yaml:"charge"`
	PrimaryCost        float64 `yaml:"primary_cost"`
	SecondaryCost      float64 `yaml:"secondary_cost"`
	EnergyCost         float64 `yaml:"energy_cost"`
	Points             float64 `yaml:"points"`
	Unique             bool    `yaml:"unique"`
	Invisible          bool    `yaml:"invisible"`
	SpeedImpactGroupID *int64  `yaml:"speed_impact_group_id"`
	AttackRuleID       *int64  `yaml:"attack_rule_id"`
}

type SpeedImpactGroup struct {
	ID               int64               `yaml:"id"`
	Name             string              `yaml:"name"`
	Fixed            bool                `yaml:"fixed"`
	UnlockRelationID int64               `yaml:"unlock_relation_id"`
	MissionSupport   MissionSupportTable `yaml:"mission_support"`
}

type AttackTarget string

const (
	AttackTargetUnit     AttackTarget = "UNIT"
	AttackTargetUnitType AttackTarget = "UNIT_TYPE"
)

type AttackRuleEntry struct {
	Target      AttackTarget `yaml:"target"`
	ReferenceID int64        `yaml:"reference_id"`
	CanAttack   bool         `yaml:"can_attack"`
}

type AttackRule struct {
	ID      int64             `yaml:"id"`
	Name    string            `yaml:"name"`
	Entries []AttackRuleEntry `yaml:"entries"`
}

type UnitTypeImprovementKind string

const (
	ImproveAttack  UnitTypeImprovementKind = "ATTACK"
	ImproveShield  UnitTypeImprovementKind = "SHIELD"
	ImproveDefense UnitTypeImprovementKind = "DEFENSE"
	ImproveSpeed   UnitTypeImprovementKind = "SPEED"
	ImproveAmount  UnitTypeImprovementKind = "AMOUNT"
)

type UnitTypeImprovement struct {
	Kind       UnitTypeImprovementKind `yaml:"kind"`
	UnitTypeID int64                   `yaml:"unit_type_id"`
	Value      float64                 `yaml:"value"`
}

// Improvement values are percentages granted per upgrade level.
type Improvement struct {
	MorePrimaryResourceProduction   float64               `yaml:"more_primary_resource_production"`
	MoreSecondaryResourceProduction float64               `yaml:"more_secondary_resource_production"`
	MoreEnergyProduction            float64               `yaml:"more_energy_production"`
	MoreChargeCapacity              float64               `yaml:"more_charge_capacity"`
	MoreMissions                    float64               `yaml:"more_missions"`
	UnitTypes                       []UnitTypeImprovement `yaml:"unit_types"`
}

type Upgrade struct {
	ID          int64       `yaml:"id"`
	Name        string      `yaml:"name"`
	Improvement Improvement `yaml:"improvement"`
}
