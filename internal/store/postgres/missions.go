package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"fleets-server/internal/models"
	"fleets-server/internal/shared/database"
	"fleets-server/internal/shared/errors"
)

const missionColumns = `id, type, user_id, source_planet_id, target_planet_id, required_time,
	termination_date, resolved, related_mission_id, created_at`

type missionRepo struct {
	exec database.Executor
}

func scanMission(row scanner) (*models.Mission, error) {
	var m models.Mission
	err := row.Scan(
		&m.ID,
		&m.Type,
		&m.UserID,
		&m.SourcePlanetID,
		&m.TargetPlanetID,
		&m.RequiredTime,
		&m.TerminationDate,
		&m.Resolved,
		&m.RelatedMissionID,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	if m.TerminationDate != nil {
		utc := m.TerminationDate.UTC()
		m.TerminationDate = &utc
	}
	return &m, nil
}

func (r *missionRepo) find(ctx context.Context, id int64, lock bool) (*models.Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	m, err := scanMission(r.exec.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFoundf("mission %d not found", id)
		}
		return nil, fmt.Errorf("failed to get mission %d: %w", id, err)
	}
	return m, nil
}

func (r *missionRepo) FindByID(ctx context.Context, id int64) (*models.Mission, error) {
	return r.find(ctx, id, false)
}

func (r *missionRepo) FindLockedByID(ctx context.Context, id int64) (*models.Mission, error) {
	return r.find(ctx, id, true)
}

func (r *missionRepo) Save(ctx context.Context, m *models.Mission) error {
	args := []any{
		string(m.Type),
		m.UserID,
		m.SourcePlanetID,
		m.TargetPlanetID,
		m.RequiredTime,
		m.TerminationDate,
		m.Resolved,
		m.RelatedMissionID,
	}

	if m.ID == 0 {
		query := `
			INSERT INTO missions (type, user_id, source_planet_id, target_planet_id, required_time,
				termination_date, resolved, related_mission_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at`
		if err := r.exec.QueryRowContext(ctx, query, args...).Scan(&m.ID, &m.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert mission: %w", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		return nil
	}

	query := `
		INSERT INTO missions (id, type, user_id, source_planet_id, target_planet_id, required_time,
			termination_date, resolved, related_mission_id)
		VALUES ($9, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			user_id = EXCLUDED.user_id,
			source_planet_id = EXCLUDED.source_planet_id,
			target_planet_id = EXCLUDED.target_planet_id,
			required_time = EXCLUDED.required_time,
			termination_date = EXCLUDED.termination_date,
			resolved = EXCLUDED.resolved,
			related_mission_id = EXCLUDED.related_mission_id`
	if _, err := r.exec.ExecContext(ctx, query, append(args, m.ID)...); err != nil {
		return fmt.Errorf("failed to save mission %d: %w", m.ID, err)
	}
	return nil
}

func (r *missionRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.exec.ExecContext(ctx, `DELETE FROM missions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete mission %d: %w", id, err)
	}
	return nil
}

func (r *missionRepo) FindRunningByUser(ctx context.Context, userID int64) ([]models.Mission, error) {
	return queryList(ctx, r.exec, scanMission,
		`SELECT `+missionColumns+` FROM missions WHERE user_id = $1 AND NOT resolved ORDER BY id`, userID)
}

func (r *missionRepo) CountRunningByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.exec.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM missions WHERE user_id = $1 AND NOT resolved AND type <> $2`,
		userID, string(models.MissionDeployed)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count running missions of user %d: %w", userID, err)
	}
	return count, nil
}

func (r *missionRepo) FindEnemyRunning(ctx context.Context, userID int64) ([]models.Mission, error) {
	return queryList(ctx, r.exec, scanMission, `
		SELECT `+prefixed("m", missionColumns)+`
		FROM missions m
		JOIN planets p ON p.id = m.target_planet_id
		WHERE NOT m.resolved AND m.user_id <> $1 AND p.owner_id = $1
		ORDER BY m.id`, userID)
}

func (r *missionRepo) FindDeployed(ctx context.Context, userID, planetID int64) (*models.Mission, error) {
	query := `
		SELECT ` + missionColumns + ` FROM missions
		WHERE type = $1 AND NOT resolved AND user_id = $2 AND target_planet_id = $3
		ORDER BY id LIMIT 1`

	m, err := scanMission(r.exec.QueryRowContext(ctx, query, string(models.MissionDeployed), userID, planetID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get deployed mission: %w", err)
	}
	return m, nil
}

func (r *missionRepo) FindDeployedAt(ctx context.Context, planetID int64) ([]models.Mission, error) {
	return queryList(ctx, r.exec, scanMission, `
		SELECT `+missionColumns+` FROM missions
		WHERE type = $1 AND NOT resolved AND target_planet_id = $2
		ORDER BY id`, string(models.MissionDeployed), planetID)
}

func (r *missionRepo) FindPending(ctx context.Context) ([]models.Mission, error) {
	return queryList(ctx, r.exec, scanMission, `
		SELECT `+missionColumns+` FROM missions
		WHERE NOT resolved AND termination_date IS NOT NULL
		ORDER BY termination_date, id`)
}
