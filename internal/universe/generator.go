// Package universe generates the planet map players spread across.
package universe

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"fleets-server/internal/models"
	"fleets-server/internal/shared/config"
	"fleets-server/internal/store"
)

// richnessTier weights how often planets of a given richness appear.
type richnessTier struct {
	richness float64
	weight   int
}

var richnessTiers = []richnessTier{
	{richness: 0.5, weight: 15},
	{richness: 0.8, weight: 25},
	{richness: 1.0, weight: 40},
	{richness: 1.3, weight: 15},
	{richness: 1.6, weight: 5},
}

var systemNames = []string{
	"Altair", "Vega", "Sirius", "Arcturus", "Capella", "Rigel", "Procyon",
	"Betelgeuse", "Aldebaran", "Spica", "Antares", "Pollux", "Fomalhaut",
	"Deneb", "Regulus", "Adhara", "Castor", "Gacrux", "Bellatrix", "Elnath",
	"Miaplacidus", "Alnilam", "Alnair", "Alioth", "Dubhe", "Mirfak", "Wezen",
	"Sargas", "Kaus", "Avior", "Menkalinan", "Atria", "Alhena", "Peacock",
}

var planetSuffixes = []string{
	"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X",
	"Prime", "Alpha", "Beta", "Gamma", "Major", "Minor",
}

type Stats struct {
	Galaxies  int `json:"galaxies"`
	Sectors   int `json:"sectors"`
	Quadrants int `json:"quadrants"`
	Planets   int `json:"planets"`
}

type Generator struct {
	store  store.Store
	cfg    config.UniverseConfig
	logger *slog.Logger
	rng    *rand.Rand
}

func NewGenerator(s store.Store, cfg config.UniverseConfig, logger *slog.Logger) *Generator {
	logger.Debug("Initializing universe generator",
		"galaxies", cfg.Galaxies,
		"sectors_per_galaxy", cfg.SectorsPerGalaxy,
		"quadrants_per_sector", cfg.QuadrantsPerSector)

	return &Generator{
		store:  s,
		cfg:    cfg,
		logger: logger,
		rng:    rand.New(rand.NewSource(rand.Int63())),
	}
}

// WithSeed makes generation reproducible.
func (g *Generator) WithSeed(seed int64) *Generator {
	g.rng = rand.New(rand.NewSource(seed))
	return g
}

// Generate creates every planet in one transaction. Planet numbers restart
// at 1 in each quadrant.
func (g *Generator) Generate(ctx context.Context) (Stats, error) {
	logger := g.logger.With("component", "universe_generator", "operation", "generate")
	logger.Info("Starting universe generation")

	if err := g.cfg.Validate(); err != nil {
		return Stats{}, err
	}

	var stats Stats
	err := g.store.InTx(ctx, func(tx store.Tx) error {
		stats = Stats{}
		nameIndex := 0
		for galaxy := 1; galaxy <= g.cfg.Galaxies; galaxy++ {
			stats.Galaxies++
			for sector := 1; sector <= g.cfg.SectorsPerGalaxy; sector++ {
				stats.Sectors++
				for quadrant := 1; quadrant <= g.cfg.QuadrantsPerSector; quadrant++ {
					stats.Quadrants++
					systemName := systemNames[nameIndex%len(systemNames)]
					nameIndex++

					count := g.cfg.MinPlanetsPerQuadrant +
						g.rng.Intn(g.cfg.MaxPlanetsPerQuadrant-g.cfg.MinPlanetsPerQuadrant+1)
					for number := 1; number <= count; number++ {
						p := &models.Planet{
							Name:         fmt.Sprintf("%s %s", systemName, planetSuffixes[(number-1)%len(planetSuffixes)]),
							GalaxyID:     int64(galaxy),
							Sector:       int64(sector),
							Quadrant:     int64(quadrant),
							PlanetNumber: int64(number),
							Richness:     g.randomRichness(),
						}
						if err := tx.Planets().Save(ctx, p); err != nil {
							return fmt.Errorf("failed to create planet at %d:%d:%d:%d: %w", galaxy, sector, quadrant, number, err)
						}
						stats.Planets++
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to generate universe", "error", err)
		return Stats{}, err
	}

	logger.Info("Universe generation completed",
		"galaxies", stats.Galaxies,
		"sectors", stats.Sectors,
		"quadrants", stats.Quadrants,
		"planets", stats.Planets)
	return stats, nil
}

func (g *Generator) randomRichness() float64 {
	total := 0
	for _, t := range richnessTiers {
		total += t.weight
	}

	roll := g.rng.Intn(total)
	current := 0
	for _, t := range richnessTiers {
		current += t.weight
		if roll < current {
			return t.richness
		}
	}
	return 1.0
}
