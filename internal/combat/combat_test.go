package combat

import (
	"math"
	"math/rand"
	"testing"

	"fleets-server/internal/catalog"
	"fleets-server/internal/improvement"
	"fleets-server/internal/models"
	"fleets-server/internal/shared/errors"
)

func ptr(v int64) *int64 { return &v }

func fleet(id, userID, count int64, attack, shield, health float64) Fleet {
	return Fleet{
		ID:        id,
		UserID:    userID,
		UnitID:    id,
		TypeChain: []int64{1},
		Count:     count,
		Attack:    attack,
		Shield:    shield,
		Health:    health,
		Points:    1,
	}
}

func outcome(t *testing.T, r Result, fleetID int64) FleetOutcome {
	t.Helper()
	for _, o := range r.Fleets {
		if o.FleetID == fleetID {
			return o
		}
	}
	t.Fatalf("fleet %d missing from result", fleetID)
	return FleetOutcome{}
}

func TestResolveTenVersusTen(t *testing.T) {
	attacker := fleet(1, 1, 10, 5, 0, 10)
	attacker.MissionID = ptr(100)
	defender := fleet(2, 2, 10, 3, 0, 8)

	for seed := int64(0); seed < 5; seed++ {
		r, err := Resolve(Battle{AttackMissionID: 100, Fleets: []Fleet{attacker, defender}}, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}

		if got := outcome(t, r, 2).FinalCount; got != 4 {
			t.Errorf("seed %d: defender FinalCount = %d, want 4", seed, got)
		}
		if got := outcome(t, r, 1).FinalCount; got != 7 {
			t.Errorf("seed %d: attacker FinalCount = %d, want 7", seed, got)
		}
		if r.Points[1] != 6 || r.Points[2] != 3 {
			t.Errorf("seed %d: Points = %v, want map[1:6 2:3]", seed, r.Points)
		}
		if len(r.DestroyedFleetIDs) != 0 || r.MissionRemoved {
			t.Errorf("seed %d: destroyed = %v removed = %v, want none", seed, r.DestroyedFleetIDs, r.MissionRemoved)
		}
		if len(r.AlteredUsers) != 2 {
			t.Errorf("seed %d: AlteredUsers = %v, want both users", seed, r.AlteredUsers)
		}
	}
}

func TestResolveConservesDamage(t *testing.T) {
	fleets := []Fleet{
		fleet(1, 1, 12, 7, 2, 9),
		fleet(2, 1, 4, 20, 10, 40),
		fleet(3, 2, 30, 1, 0, 3),
		fleet(4, 3, 6, 11, 5, 25),
	}

	r, err := Resolve(Battle{Fleets: fleets}, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	var dealt, taken float64
	for i, o := range r.Fleets {
		dealt += o.DamageDealt
		taken += o.DamageTaken

		f := fleets[i]
		maxAttack := f.Attack * float64(f.Count)
		if o.DamageDealt > maxAttack+1e-9 {
			t.Errorf("fleet %d dealt %v, more than its attack %v", f.ID, o.DamageDealt, maxAttack)
		}
		pool := (f.Shield + f.Health) * float64(f.Count)
		if o.DamageTaken > pool+1e-9 {
			t.Errorf("fleet %d took %v, more than its shield and health %v", f.ID, o.DamageTaken, pool)
		}

		if !o.Destroyed {
			lostHealth := math.Max(0, o.DamageTaken-f.Shield*float64(f.Count))
			killed := o.InitialCount - o.FinalCount
			if float64(killed)*f.Health > lostHealth+1e-9 {
				t.Errorf("fleet %d lost %d units for only %v health", f.ID, killed, lostHealth)
			}
		}
	}
	if math.Abs(dealt-taken) > 1e-9 {
		t.Fatalf("dealt = %v, taken = %v, want equal", dealt, taken)
	}
}

func TestResolveSkipsAllies(t *testing.T) {
	a := fleet(1, 1, 5, 10, 0, 10)
	a.AllianceID = ptr(9)
	b := fleet(2, 2, 5, 10, 0, 10)
	b.AllianceID = ptr(9)

	r, err := Resolve(Battle{Fleets: []Fleet{a, b}}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	for _, o := range r.Fleets {
		if o.FinalCount != 5 || o.DamageDealt != 0 {
			t.Errorf("fleet %d = %+v, want untouched", o.FleetID, o)
		}
	}
	if len(r.AlteredUsers) != 0 {
		t.Errorf("AlteredUsers = %v, want empty", r.AlteredUsers)
	}
}

func TestResolveAppliesAttackRules(t *testing.T) {
	raider := fleet(1, 1, 10, 100, 0, 10)
	raider.Rule = &catalog.AttackRule{ID: 1, Entries: []catalog.AttackRuleEntry{
		{Target: catalog.AttackTargetUnitType, ReferenceID: 3, CanAttack: false},
	}}
	hauler := fleet(2, 2, 10, 0, 0, 10)
	hauler.TypeChain = []int64{5, 3, 1}
	fighter := fleet(3, 2, 1, 0, 0, 10)

	r, err := Resolve(Battle{Fleets: []Fleet{raider, hauler, fighter}}, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if got := outcome(t, r, 2); got.FinalCount != 10 || got.DamageTaken != 0 {
		t.Errorf("hauler = %+v, want protected by the type rule", got)
	}
	if got := outcome(t, r, 3); !got.Destroyed {
		t.Errorf("fighter = %+v, want destroyed", got)
	}
}

func TestCanAttackFirstMatchWins(t *testing.T) {
	rule := &catalog.AttackRule{Entries: []catalog.AttackRuleEntry{
		{Target: catalog.AttackTargetUnit, ReferenceID: 7, CanAttack: true},
		{Target: catalog.AttackTargetUnitType, ReferenceID: 1, CanAttack: false},
	}}

	tests := []struct {
		name   string
		target Fleet
		want   bool
	}{
		{"unit entry first", Fleet{UnitID: 7, TypeChain: []int64{2, 1}}, true},
		{"ancestor type", Fleet{UnitID: 8, TypeChain: []int64{2, 1}}, false},
		{"no match", Fleet{UnitID: 8, TypeChain: []int64{4}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canAttack(rule, &tt.target); got != tt.want {
				t.Fatalf("canAttack() = %v, want %v", got, tt.want)
			}
		})
	}

	if !canAttack(nil, &Fleet{UnitID: 1}) {
		t.Fatal("canAttack(nil) = false, want true")
	}
}

func TestResolveMutualDestruction(t *testing.T) {
	a := fleet(1, 1, 2, 100, 0, 10)
	a.MissionID = ptr(50)
	b := fleet(2, 1, 1, 100, 0, 10)
	b.MissionID = ptr(50)
	c := fleet(3, 2, 3, 100, 0, 10)
	c.MissionID = ptr(60)

	r, err := Resolve(Battle{AttackMissionID: 50, Fleets: []Fleet{a, b, c}}, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(r.DestroyedFleetIDs) != 3 {
		t.Fatalf("DestroyedFleetIDs = %v, want all three", r.DestroyedFleetIDs)
	}
	if !r.MissionRemoved {
		t.Error("MissionRemoved = false, want true")
	}
	if len(r.EmptiedMissionIDs) != 1 || r.EmptiedMissionIDs[0] != 60 {
		t.Errorf("EmptiedMissionIDs = %v, want [60]", r.EmptiedMissionIDs)
	}
	if r.Points[1] != 3 || r.Points[2] != 3 {
		t.Errorf("Points = %v, want map[1:3 2:3]", r.Points)
	}
}

func TestResolveLeftoverAttackCarriesOver(t *testing.T) {
	attacker := fleet(1, 1, 1, 25, 0, 100)
	first := fleet(2, 2, 1, 0, 0, 10)
	second := fleet(3, 2, 2, 0, 0, 10)

	r, err := Resolve(Battle{Fleets: []Fleet{attacker, first, second}}, rand.New(rand.NewSource(11)))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	destroyed := len(r.DestroyedFleetIDs)
	remaining := outcome(t, r, 2).FinalCount + outcome(t, r, 3).FinalCount
	if outcome(t, r, 1).DamageDealt != 25 {
		t.Errorf("DamageDealt = %v, want 25", outcome(t, r, 1).DamageDealt)
	}
	if destroyed < 1 || remaining >= 3 {
		t.Errorf("destroyed = %d, remaining = %d, want leftover attack to reach a second target", destroyed, remaining)
	}
}

func TestResolveShieldAbsorbsFirst(t *testing.T) {
	attacker := fleet(1, 1, 1, 30, 0, 10)
	target := fleet(2, 2, 1, 0, 50, 10)

	r, err := Resolve(Battle{Fleets: []Fleet{attacker, target}}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := outcome(t, r, 2); got.FinalCount != 1 || got.DamageTaken != 30 {
		t.Fatalf("target = %+v, want shield to absorb all 30", got)
	}
}

func TestResolveNoTargets(t *testing.T) {
	lonely := fleet(1, 1, 3, 10, 0, 10)

	r, err := Resolve(Battle{Fleets: []Fleet{lonely}}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := outcome(t, r, 1); got.FinalCount != 3 || got.DamageDealt != 0 {
		t.Fatalf("fleet = %+v, want untouched", got)
	}
}

func TestResolveSameSeedSameResult(t *testing.T) {
	build := func() []Fleet {
		return []Fleet{
			fleet(1, 1, 5, 9, 1, 10),
			fleet(2, 2, 5, 9, 1, 10),
			fleet(3, 3, 5, 9, 1, 10),
			fleet(4, 1, 2, 30, 0, 5),
		}
	}

	first, err := Resolve(Battle{Fleets: build()}, rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	second, err := Resolve(Battle{Fleets: build()}, rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	for i := range first.Fleets {
		if first.Fleets[i].FinalCount != second.Fleets[i].FinalCount {
			t.Fatalf("fleet %d FinalCount = %d then %d, want deterministic", first.Fleets[i].FleetID,
				first.Fleets[i].FinalCount, second.Fleets[i].FinalCount)
		}
	}
}

func TestResolveUnknownRuleTarget(t *testing.T) {
	bad := fleet(1, 1, 1, 1, 0, 1)
	bad.Rule = &catalog.AttackRule{ID: 4, Entries: []catalog.AttackRuleEntry{{Target: "PLANET", ReferenceID: 1}}}

	_, err := Resolve(Battle{Fleets: []Fleet{bad, fleet(2, 2, 1, 1, 0, 1)}}, rand.New(rand.NewSource(1)))
	if !errors.Is(err, errors.ErrorTypeInvariant) {
		t.Fatalf("Resolve() error = %v, want invariant", err)
	}
}

func TestNewFleetAppliesImprovements(t *testing.T) {
	c, err := catalog.Parse([]byte(`
unit_types:
  - id: 1
    name: Ships
  - id: 2
    name: Fighters
    parent_id: 1
units:
  - id: 1
    name: Fighter
    type_id: 2
    attack: 10
    shield: 2
    health: 20
    points: 3
upgrades:
  - id: 1
    name: Weapons
    improvement:
      unit_types:
        - kind: ATTACK
          unit_type_id: 1
          value: 10
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	grouped, err := improvement.Evaluate([]models.ObtainedUpgrade{{UserID: 1, UpgradeID: 1, Level: 2}}, c)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	f, err := NewFleet(c, models.ObtainedUnit{ID: 5, UnitID: 1, UserID: 1, Count: 4}, &models.User{ID: 1, AllianceID: ptr(3)}, grouped)
	if err != nil {
		t.Fatalf("NewFleet() error = %v", err)
	}
	if math.Abs(f.AttackBonus-0.2) > 1e-9 {
		t.Errorf("AttackBonus = %v, want 0.2", f.AttackBonus)
	}
	if f.AllianceID == nil || *f.AllianceID != 3 {
		t.Errorf("AllianceID = %v, want 3", f.AllianceID)
	}
	if len(f.TypeChain) != 2 || f.TypeChain[1] != 1 {
		t.Errorf("TypeChain = %v, want [2 1]", f.TypeChain)
	}
}

func TestResolvePointsFollowSpentAttack(t *testing.T) {
	heavy := fleet(1, 1, 1, 50, 0, 100)
	light := fleet(2, 1, 1, 30, 0, 100)
	target := fleet(3, 2, 10, 0, 0, 8)

	for seed := int64(0); seed < 5; seed++ {
		r, err := Resolve(Battle{Fleets: []Fleet{heavy, light, target}}, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got := outcome(t, r, 3); !got.Destroyed || got.FinalCount != 0 {
			t.Errorf("seed %d: target = %+v, want destroyed", seed, got)
		}
		if r.Points[1] != 9 {
			t.Errorf("seed %d: Points[1] = %v, want 9", seed, r.Points[1])
		}
	}
}
