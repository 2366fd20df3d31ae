package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"fleets-server/internal/models"
	"fleets-server/internal/shared/database"
	"fleets-server/internal/shared/errors"
)

const planetColumns = `id, name, owner_id, galaxy_id, sector, quadrant, planet_number,
	richness, home, special_location_id`

type planetRepo struct {
	exec database.Executor
}

func scanPlanet(row scanner) (*models.Planet, error) {
	var p models.Planet
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.OwnerID,
		&p.GalaxyID,
		&p.Sector,
		&p.Quadrant,
		&p.PlanetNumber,
		&p.Richness,
		&p.Home,
		&p.SpecialLocationID,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *planetRepo) find(ctx context.Context, id int64, lock bool) (*models.Planet, error) {
	query := `SELECT ` + planetColumns + ` FROM planets WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	p, err := scanPlanet(r.exec.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFoundf("planet %d not found", id)
		}
		return nil, fmt.Errorf("failed to get planet %d: %w", id, err)
	}
	return p, nil
}

func (r *planetRepo) FindByID(ctx context.Context, id int64) (*models.Planet, error) {
	return r.find(ctx, id, false)
}

func (r *planetRepo) FindLockedByID(ctx context.Context, id int64) (*models.Planet, error) {
	return r.find(ctx, id, true)
}

func (r *planetRepo) Save(ctx context.Context, p *models.Planet) error {
	args := []any{
		p.Name,
		p.OwnerID,
		p.GalaxyID,
		p.Sector,
		p.Quadrant,
		p.PlanetNumber,
		p.Richness,
		p.Home,
		p.SpecialLocationID,
	}

	if p.ID == 0 {
		query := `
			INSERT INTO planets (name, owner_id, galaxy_id, sector, quadrant, planet_number,
				richness, home, special_location_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`
		if err := r.exec.QueryRowContext(ctx, query, args...).Scan(&p.ID); err != nil {
			return fmt.Errorf("failed to insert planet: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO planets (id, name, owner_id, galaxy_id, sector, quadrant, planet_number,
			richness, home, special_location_id)
		VALUES ($10, $1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			owner_id = EXCLUDED.owner_id,
			galaxy_id = EXCLUDED.galaxy_id,
			sector = EXCLUDED.sector,
			quadrant = EXCLUDED.quadrant,
			planet_number = EXCLUDED.planet_number,
			richness = EXCLUDED.richness,
			home = EXCLUDED.home,
			special_location_id = EXCLUDED.special_location_id`
	if _, err := r.exec.ExecContext(ctx, query, append(args, p.ID)...); err != nil {
		return fmt.Errorf("failed to save planet %d: %w", p.ID, err)
	}
	return nil
}

func (r *planetRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.exec.ExecContext(ctx, `DELETE FROM planets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete planet %d: %w", id, err)
	}
	return nil
}

func (r *planetRepo) FindOwnedBy(ctx context.Context, userID int64) ([]models.Planet, error) {
	return queryList(ctx, r.exec, scanPlanet,
		`SELECT `+planetColumns+` FROM planets WHERE owner_id = $1 ORDER BY id`, userID)
}

func (r *planetRepo) CountOwnedBy(ctx context.Context, userID int64) (int, error) {
	var count int
	if err := r.exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM planets WHERE owner_id = $1`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count planets of user %d: %w", userID, err)
	}
	return count, nil
}
