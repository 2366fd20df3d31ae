package mission

import (
	"math"
	"testing"

	"fleets-server/internal/catalog"
	"fleets-server/internal/models"
)

const durationCatalog = `
unit_types:
  - id: 1
    name: Ships
speed_impact_groups:
  - id: 1
    name: Platforms
    fixed: true
    unlock_relation_id: 10
units:
  - id: 1
    name: Slow
    type_id: 1
    health: 1
    speed: 35
  - id: 2
    name: Standard
    type_id: 1
    health: 1
    speed: 70
  - id: 3
    name: Fast
    type_id: 1
    health: 1
    speed: 140
  - id: 4
    name: Platform
    type_id: 1
    health: 1
    speed: 140
    speed_impact_group_id: 1
  - id: 5
    name: Drifter
    type_id: 1
    health: 1
`

func planetAt(galaxy, sector, quadrant int64) *models.Planet {
	return &models.Planet{GalaxyID: galaxy, Sector: sector, Quadrant: quadrant}
}

func TestMoveCost(t *testing.T) {
	tests := []struct {
		name           string
		source, target *models.Planet
		want           int64
	}{
		{"same planet", planetAt(1, 1, 1), planetAt(1, 1, 1), 0},
		{"quadrants", planetAt(1, 1, 4), planetAt(1, 1, 1), 3},
		{"sectors weigh double", planetAt(1, 1, 2), planetAt(1, 3, 2), 4},
		{"sector and quadrant", planetAt(1, 2, 1), planetAt(1, 1, 3), 4},
		{"other galaxy", planetAt(1, 1, 1), planetAt(2, 1, 2), 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MoveCost(tt.source, tt.target); got != tt.want {
				t.Fatalf("MoveCost() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRequiredTime(t *testing.T) {
	c, err := catalog.Parse([]byte(durationCatalog))
	if err != nil {
		t.Fatalf("catalog.Parse() error = %v", err)
	}
	unit := func(id int64) *catalog.Unit {
		u, err := c.Unit(id)
		if err != nil {
			t.Fatalf("Unit(%d) error = %v", id, err)
		}
		return u
	}

	home := planetAt(1, 1, 1)
	tests := []struct {
		name   string
		units  []int64
		target *models.Planet
		want   float64
	}{
		{"base speed", []int64{2}, home, 100},
		{"twice as fast", []int64{3}, home, 50},
		{"half as fast", []int64{1}, home, 200},
		{"slowest unit sets the pace", []int64{3, 2}, home, 100},
		{"move cost surcharge", []int64{2}, planetAt(1, 1, 4), 103},
		{"surcharge then speed", []int64{3}, planetAt(1, 2, 1), 51},
		{"other galaxy", []int64{2}, planetAt(2, 2, 1), 112},
		{"fixed group takes base time", []int64{4, 1}, planetAt(2, 2, 1), 100},
		{"no speed takes base time", []int64{5}, planetAt(1, 1, 4), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := make([]*catalog.Unit, 0, len(tt.units))
			for _, id := range tt.units {
				units = append(units, unit(id))
			}
			if got := RequiredTime(c, 100, units, home, tt.target); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("RequiredTime() = %v, want %v", got, tt.want)
			}
		})
	}
}
