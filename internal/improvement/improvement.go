package improvement

import (
	"fleets-server/internal/catalog"
	"fleets-server/internal/models"
)

type unitTypeKey struct {
	kind       catalog.UnitTypeImprovementKind
	unitTypeID int64
}

// GroupedImprovement is the sum of every upgrade a user holds, in percent.
type GroupedImprovement struct {
	MorePrimaryResourceProduction   float64
	MoreSecondaryResourceProduction float64
	MoreEnergyProduction            float64
	MoreChargeCapacity              float64
	MoreMissions                    float64

	unitTypes map[unitTypeKey]float64
}

// Evaluate multiplies each upgrade's per level improvement by the obtained
// level and sums the results.
func Evaluate(upgrades []models.ObtainedUpgrade, c *catalog.Catalog) (GroupedImprovement, error) {
	grouped := GroupedImprovement{unitTypes: make(map[unitTypeKey]float64)}

	for _, obtained := range upgrades {
		if obtained.Level <= 0 {
			continue
		}
		upgrade, err := c.Upgrade(obtained.UpgradeID)
		if err != nil {
			return GroupedImprovement{}, err
		}

		level := float64(obtained.Level)
		imp := upgrade.Improvement
		grouped.MorePrimaryResourceProduction += imp.MorePrimaryResourceProduction * level
		grouped.MoreSecondaryResourceProduction += imp.MoreSecondaryResourceProduction * level
		grouped.MoreEnergyProduction += imp.MoreEnergyProduction * level
		grouped.MoreChargeCapacity += imp.MoreChargeCapacity * level
		grouped.MoreMissions += imp.MoreMissions * level

		for _, ut := range imp.UnitTypes {
			grouped.unitTypes[unitTypeKey{ut.Kind, ut.UnitTypeID}] += ut.Value * level
		}
	}

	return grouped, nil
}

// FindUnitTypeImprovement sums the percentage for kind over a type chain as
// returned by catalog.TypeChain, so ancestor bonuses apply to descendants.
func (g GroupedImprovement) FindUnitTypeImprovement(kind catalog.UnitTypeImprovementKind, typeChain []int64) float64 {
	var total float64
	for _, typeID := range typeChain {
		total += g.unitTypes[unitTypeKey{kind, typeID}]
	}
	return total
}

// UnitTypeRational is FindUnitTypeImprovement expressed as a fraction.
func (g GroupedImprovement) UnitTypeRational(kind catalog.UnitTypeImprovementKind, typeChain []int64) float64 {
	return FindAsRational(g.FindUnitTypeImprovement(kind, typeChain))
}

func FindAsRational(percent float64) float64 {
	return percent / 100
}

func ComputePlusPercentage(base, percent float64) float64 {
	return base + base*FindAsRational(percent)
}
