package combat

import (
	"math"
	"math/rand"
	"sort"

	"fleets-server/internal/catalog"
	"fleets-server/internal/improvement"
	"fleets-server/internal/models"
	"fleets-server/internal/shared/errors"
)

// Fleet is the combat view of one ObtainedUnit row. Stats are per unit;
// bonuses are fractions (0.1 means +10%).
type Fleet struct {
	ID         int64
	UserID     int64
	AllianceID *int64
	MissionID  *int64
	UnitID     int64
	TypeChain  []int64
	Rule       *catalog.AttackRule
	Count      int64

	Attack float64
	Shield float64
	Health float64
	Points float64

	AttackBonus  float64
	ShieldBonus  float64
	DefenseBonus float64
}

// NewFleet builds the combat view of a fleet using its owner's improvements.
func NewFleet(c *catalog.Catalog, fleet models.ObtainedUnit, owner *models.User, grouped improvement.GroupedImprovement) (Fleet, error) {
	unit, err := c.Unit(fleet.UnitID)
	if err != nil {
		return Fleet{}, err
	}
	chain, err := c.TypeChain(unit.TypeID)
	if err != nil {
		return Fleet{}, err
	}
	rule, err := c.AttackRuleFor(unit)
	if err != nil {
		return Fleet{}, err
	}

	return Fleet{
		ID:           fleet.ID,
		UserID:       fleet.UserID,
		AllianceID:   owner.AllianceID,
		MissionID:    fleet.MissionID,
		UnitID:       unit.ID,
		TypeChain:    chain,
		Rule:         rule,
		Count:        fleet.Count,
		Attack:       unit.Attack,
		Shield:       unit.Shield,
		Health:       unit.Health,
		Points:       unit.Points,
		AttackBonus:  grouped.UnitTypeRational(catalog.ImproveAttack, chain),
		ShieldBonus:  grouped.UnitTypeRational(catalog.ImproveShield, chain),
		DefenseBonus: grouped.UnitTypeRational(catalog.ImproveDefense, chain),
	}, nil
}

// Battle is every fleet present at a planet when an attack resolves.
type Battle struct {
	AttackMissionID int64
	Fleets          []Fleet
}

type FleetOutcome struct {
	FleetID      int64   `json:"fleet_id"`
	UserID       int64   `json:"user_id"`
	UnitID       int64   `json:"unit_id"`
	MissionID    *int64  `json:"mission_id,omitempty"`
	InitialCount int64   `json:"initial_count"`
	FinalCount   int64   `json:"final_count"`
	Destroyed    bool    `json:"destroyed"`
	DamageDealt  float64 `json:"damage_dealt"`
	DamageTaken  float64 `json:"damage_taken"`
}

// Changed reports whether the fleet lost units but survived.
func (o FleetOutcome) Changed() bool {
	return !o.Destroyed && o.FinalCount != o.InitialCount
}

type Result struct {
	// Fleets follows the order of Battle.Fleets.
	Fleets            []FleetOutcome
	DestroyedFleetIDs []int64
	Points            map[int64]float64
	AlteredUsers      []int64
	// EmptiedMissionIDs lists missions, other than the attack mission, that
	// lost every fleet taking part in the battle.
	EmptiedMissionIDs []int64
	// MissionRemoved is set when the attack mission itself lost every fleet.
	MissionRemoved bool
}

type entry struct {
	fleet   *Fleet
	outcome *FleetOutcome

	pendingAttack float64
	shield        float64
	health        float64
	healthPerUnit float64
	targets       []*entry
}

// Resolve runs one simultaneous combat round. Every fleet attacks with its
// full strength regardless of the damage it receives in the same round.
func Resolve(battle Battle, rng *rand.Rand) (Result, error) {
	if err := validateRules(battle.Fleets); err != nil {
		return Result{}, err
	}

	result := Result{
		Fleets: make([]FleetOutcome, len(battle.Fleets)),
		Points: make(map[int64]float64),
	}

	entries := make([]*entry, 0, len(battle.Fleets))
	for i := range battle.Fleets {
		f := &battle.Fleets[i]
		result.Fleets[i] = FleetOutcome{
			FleetID:      f.ID,
			UserID:       f.UserID,
			UnitID:       f.UnitID,
			MissionID:    f.MissionID,
			InitialCount: f.Count,
			FinalCount:   f.Count,
		}
		if f.Count <= 0 {
			continue
		}

		count := float64(f.Count)
		totalHealth := f.Health * count * (1 + f.DefenseBonus)
		entries = append(entries, &entry{
			fleet:         f,
			outcome:       &result.Fleets[i],
			pendingAttack: f.Attack * count * (1 + f.AttackBonus),
			shield:        f.Shield * count * (1 + f.ShieldBonus),
			health:        totalHealth,
			healthPerUnit: totalHealth / count,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].fleet.ID < entries[j].fleet.ID })
	rng.Shuffle(len(entries), func(i, j int) { entries[i], entries[j] = entries[j], entries[i] })

	for _, attacker := range entries {
		for _, target := range entries {
			if hostile(attacker.fleet, target.fleet) && canAttack(attacker.fleet.Rule, target.fleet) {
				attacker.targets = append(attacker.targets, target)
			}
		}
	}

	for _, attacker := range entries {
		if attacker.pendingAttack <= 0 {
			continue
		}
		for _, target := range attacker.targets {
			if target.outcome.Destroyed {
				continue
			}
			if exhausted := strike(attacker, target, result.Points); exhausted {
				break
			}
		}
	}

	collect(&result, battle.AttackMissionID)
	return result, nil
}

// strike applies the attacker's pending attack to one target and reports
// whether the attack was fully absorbed.
func strike(attacker, target *entry, points map[int64]float64) bool {
	attack := attacker.pendingAttack

	if target.shield > attack {
		target.shield -= attack
		record(attacker, target, attack)
		attacker.pendingAttack = 0
		return true
	}

	absorbed := target.shield
	attack -= absorbed
	target.shield = 0

	// Points count floor(attack / health per unit) casualties on both
	// branches, capped at the units left.
	killed := int64(math.Floor(attack / target.healthPerUnit))
	if killed > target.outcome.FinalCount {
		killed = target.outcome.FinalCount
	}
	points[attacker.fleet.UserID] += float64(killed) * target.fleet.Points

	if target.health > attack {
		target.outcome.FinalCount -= killed
		target.health -= attack
		record(attacker, target, absorbed+attack)
		attacker.pendingAttack = 0
		return true
	}

	target.outcome.FinalCount = 0
	target.outcome.Destroyed = true

	record(attacker, target, absorbed+target.health)
	attacker.pendingAttack = attack - target.health
	target.health = 0
	return false
}

func record(attacker, target *entry, damage float64) {
	attacker.outcome.DamageDealt += damage
	target.outcome.DamageTaken += damage
}

func hostile(attacker, target *Fleet) bool {
	if attacker.UserID == target.UserID {
		return false
	}
	if attacker.AllianceID != nil && target.AllianceID != nil && *attacker.AllianceID == *target.AllianceID {
		return false
	}
	return true
}

// canAttack walks the rule entries in order; the first entry matching the
// target decides. No rule or no matching entry allows the attack.
func canAttack(rule *catalog.AttackRule, target *Fleet) bool {
	if rule == nil {
		return true
	}
	for _, e := range rule.Entries {
		switch e.Target {
		case catalog.AttackTargetUnit:
			if e.ReferenceID == target.UnitID {
				return e.CanAttack
			}
		case catalog.AttackTargetUnitType:
			for _, typeID := range target.TypeChain {
				if typeID == e.ReferenceID {
					return e.CanAttack
				}
			}
		}
	}
	return true
}

func validateRules(fleets []Fleet) error {
	for _, f := range fleets {
		if f.Rule == nil {
			continue
		}
		for _, e := range f.Rule.Entries {
			if e.Target != catalog.AttackTargetUnit && e.Target != catalog.AttackTargetUnitType {
				return errors.Invariantf("attack rule %d has unknown target kind %q", f.Rule.ID, e.Target)
			}
		}
	}
	return nil
}

func collect(result *Result, attackMissionID int64) {
	altered := make(map[int64]bool)
	survivors := make(map[int64]bool)
	lost := make(map[int64]bool)

	for _, o := range result.Fleets {
		if o.Destroyed {
			result.DestroyedFleetIDs = append(result.DestroyedFleetIDs, o.FleetID)
		}
		if o.Destroyed || o.Changed() {
			altered[o.UserID] = true
		}
		if o.MissionID == nil {
			continue
		}
		if o.Destroyed {
			lost[*o.MissionID] = true
		} else {
			survivors[*o.MissionID] = true
		}
	}

	for missionID := range lost {
		if survivors[missionID] {
			continue
		}
		if missionID == attackMissionID {
			result.MissionRemoved = true
			continue
		}
		result.EmptiedMissionIDs = append(result.EmptiedMissionIDs, missionID)
	}
	for userID := range altered {
		result.AlteredUsers = append(result.AlteredUsers, userID)
	}

	sortIDs(result.DestroyedFleetIDs)
	sortIDs(result.EmptiedMissionIDs)
	sortIDs(result.AlteredUsers)
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
