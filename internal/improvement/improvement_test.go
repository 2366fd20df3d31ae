package improvement

import (
	"math"
	"testing"

	"fleets-server/internal/catalog"
	"fleets-server/internal/models"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	parent := int64(1)
	c := &catalog.Catalog{
		UnitTypes: []catalog.UnitType{
			{ID: 1, Name: "Ships"},
			{ID: 2, Name: "Fighters", ParentID: &parent},
		},
		Upgrades: []catalog.Upgrade{
			{ID: 1, Improvement: catalog.Improvement{
				MoreChargeCapacity: 10,
				MoreMissions:       1,
				UnitTypes: []catalog.UnitTypeImprovement{
					{Kind: catalog.ImproveAttack, UnitTypeID: 1, Value: 5},
				},
			}},
			{ID: 2, Improvement: catalog.Improvement{
				MorePrimaryResourceProduction: 3,
				UnitTypes: []catalog.UnitTypeImprovement{
					{Kind: catalog.ImproveAttack, UnitTypeID: 2, Value: 2},
					{Kind: catalog.ImproveShield, UnitTypeID: 2, Value: 7},
				},
			}},
		},
	}
	if err := c.Index(); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	return c
}

func TestEvaluateScalesByLevel(t *testing.T) {
	c := testCatalog(t)
	got, err := Evaluate([]models.ObtainedUpgrade{
		{UpgradeID: 1, Level: 2},
		{UpgradeID: 2, Level: 1},
		{UpgradeID: 2, Level: 0},
	}, c)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if got.MoreChargeCapacity != 20 {
		t.Errorf("MoreChargeCapacity = %v, want 20", got.MoreChargeCapacity)
	}
	if got.MoreMissions != 2 {
		t.Errorf("MoreMissions = %v, want 2", got.MoreMissions)
	}
	if got.MorePrimaryResourceProduction != 3 {
		t.Errorf("MorePrimaryResourceProduction = %v, want 3", got.MorePrimaryResourceProduction)
	}

	chain, _ := c.TypeChain(2)
	if v := got.FindUnitTypeImprovement(catalog.ImproveAttack, chain); v != 12 {
		t.Errorf("attack improvement for fighters = %v, want 12 (10 inherited + 2)", v)
	}
	if v := got.FindUnitTypeImprovement(catalog.ImproveAttack, []int64{1}); v != 10 {
		t.Errorf("attack improvement for ships = %v, want 10", v)
	}
	if v := got.UnitTypeRational(catalog.ImproveShield, chain); math.Abs(v-0.07) > 1e-9 {
		t.Errorf("shield rational = %v, want 0.07", v)
	}
}

func TestEvaluateUnknownUpgrade(t *testing.T) {
	c := testCatalog(t)
	if _, err := Evaluate([]models.ObtainedUpgrade{{UpgradeID: 42, Level: 1}}, c); err == nil {
		t.Fatal("Evaluate() error = nil, want not found")
	}
}

func TestPercentHelpers(t *testing.T) {
	if got := FindAsRational(25); got != 0.25 {
		t.Errorf("FindAsRational(25) = %v, want 0.25", got)
	}
	if got := ComputePlusPercentage(200, 10); got != 220 {
		t.Errorf("ComputePlusPercentage(200, 10) = %v, want 220", got)
	}
}
