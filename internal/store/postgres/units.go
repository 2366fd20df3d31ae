package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"fleets-server/internal/models"
	"fleets-server/internal/shared/database"
	"fleets-server/internal/shared/errors"
)

const unitColumns = `id, unit_id, user_id, count, source_planet_id, target_planet_id,
	mission_id, first_deployment_mission_id`

type unitRepo struct {
	exec database.Executor
}

func scanUnit(row scanner) (*models.ObtainedUnit, error) {
	var u models.ObtainedUnit
	err := row.Scan(
		&u.ID,
		&u.UnitID,
		&u.UserID,
		&u.Count,
		&u.SourcePlanetID,
		&u.TargetPlanetID,
		&u.MissionID,
		&u.FirstDeploymentMissionID,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *unitRepo) find(ctx context.Context, id int64, lock bool) (*models.ObtainedUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM obtained_units WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	u, err := scanUnit(r.exec.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFoundf("obtained unit %d not found", id)
		}
		return nil, fmt.Errorf("failed to get obtained unit %d: %w", id, err)
	}
	return u, nil
}

func (r *unitRepo) FindByID(ctx context.Context, id int64) (*models.ObtainedUnit, error) {
	return r.find(ctx, id, false)
}

func (r *unitRepo) FindLockedByID(ctx context.Context, id int64) (*models.ObtainedUnit, error) {
	return r.find(ctx, id, true)
}

func (r *unitRepo) Save(ctx context.Context, u *models.ObtainedUnit) error {
	args := []any{
		u.UnitID,
		u.UserID,
		u.Count,
		u.SourcePlanetID,
		u.TargetPlanetID,
		u.MissionID,
		u.FirstDeploymentMissionID,
	}

	if u.ID == 0 {
		query := `
			INSERT INTO obtained_units (unit_id, user_id, count, source_planet_id, target_planet_id,
				mission_id, first_deployment_mission_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`
		if err := r.exec.QueryRowContext(ctx, query, args...).Scan(&u.ID); err != nil {
			return fmt.Errorf("failed to insert obtained unit: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO obtained_units (id, unit_id, user_id, count, source_planet_id, target_planet_id,
			mission_id, first_deployment_mission_id)
		VALUES ($8, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			unit_id = EXCLUDED.unit_id,
			user_id = EXCLUDED.user_id,
			count = EXCLUDED.count,
			source_planet_id = EXCLUDED.source_planet_id,
			target_planet_id = EXCLUDED.target_planet_id,
			mission_id = EXCLUDED.mission_id,
			first_deployment_mission_id = EXCLUDED.first_deployment_mission_id`
	if _, err := r.exec.ExecContext(ctx, query, append(args, u.ID)...); err != nil {
		return fmt.Errorf("failed to save obtained unit %d: %w", u.ID, err)
	}
	return nil
}

func (r *unitRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.exec.ExecContext(ctx, `DELETE FROM obtained_units WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete obtained unit %d: %w", id, err)
	}
	return nil
}

func (r *unitRepo) FindLockedByMission(ctx context.Context, missionID int64) ([]models.ObtainedUnit, error) {
	return queryList(ctx, r.exec, scanUnit,
		`SELECT `+unitColumns+` FROM obtained_units WHERE mission_id = $1 ORDER BY id FOR UPDATE`, missionID)
}

func (r *unitRepo) FindStationed(ctx context.Context, userID, planetID, unitID int64) (*models.ObtainedUnit, error) {
	query := `
		SELECT ` + unitColumns + ` FROM obtained_units
		WHERE user_id = $1 AND source_planet_id = $2 AND unit_id = $3 AND mission_id IS NULL
		ORDER BY id LIMIT 1`

	u, err := scanUnit(r.exec.QueryRowContext(ctx, query, userID, planetID, unitID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get stationed unit: %w", err)
	}
	return u, nil
}

func (r *unitRepo) FindLockedStationedAt(ctx context.Context, planetID int64) ([]models.ObtainedUnit, error) {
	return queryList(ctx, r.exec, scanUnit, `
		SELECT `+unitColumns+` FROM obtained_units
		WHERE source_planet_id = $1 AND mission_id IS NULL
		ORDER BY id FOR UPDATE`, planetID)
}

func (r *unitRepo) FindByUser(ctx context.Context, userID int64) ([]models.ObtainedUnit, error) {
	return queryList(ctx, r.exec, scanUnit,
		`SELECT `+unitColumns+` FROM obtained_units WHERE user_id = $1 ORDER BY id`, userID)
}

func (r *unitRepo) CountByUserAndUnit(ctx context.Context, userID, unitID int64) (int64, error) {
	var total int64
	err := r.exec.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(count), 0) FROM obtained_units WHERE user_id = $1 AND unit_id = $2`,
		userID, unitID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count unit %d of user %d: %w", unitID, userID, err)
	}
	return total, nil
}

func (r *unitRepo) DeleteStationedAt(ctx context.Context, planetID int64) error {
	_, err := r.exec.ExecContext(ctx,
		`DELETE FROM obtained_units WHERE source_planet_id = $1 AND mission_id IS NULL`, planetID)
	if err != nil {
		return fmt.Errorf("failed to delete units stationed at planet %d: %w", planetID, err)
	}
	return nil
}
