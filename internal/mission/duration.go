package mission

import (
	"fleets-server/internal/catalog"
	"fleets-server/internal/models"
)

// speedNormalization is the unit speed at which a mission takes its base time.
const speedNormalization = 70.0

// MoveCost is the distance surcharge in percent between two planets.
func MoveCost(source, target *models.Planet) int64 {
	cost := abs(source.Quadrant-target.Quadrant) + 2*abs(source.Sector-target.Sector)
	if source.GalaxyID != target.GalaxyID {
		cost += 10
	}
	return cost
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// RequiredTime returns the mission duration in seconds. A fleet containing a
// fixed speed unit, or without any positive speed, takes the base time.
func RequiredTime(c *catalog.Catalog, base float64, units []*catalog.Unit, source, target *models.Planet) float64 {
	lowest := 0.0
	for _, unit := range units {
		group := c.SpeedImpactGroupFor(unit)
		if group != nil && group.Fixed {
			return base
		}
		if unit.Speed > 0 && (lowest == 0 || unit.Speed < lowest) {
			lowest = unit.Speed
		}
	}
	if lowest == 0 {
		return base
	}

	withMoveCost := base + base*float64(MoveCost(source, target))*0.01
	return withMoveCost / (lowest / speedNormalization)
}
