package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fleets-server/internal/models"
	"fleets-server/internal/shared/database"
	"fleets-server/internal/shared/errors"
)

const userColumns = `id, username, faction_id, primary_resource, secondary_resource,
	alliance_id, points, home_planet_id, last_resource_update`

type userRepo struct {
	exec database.Executor
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.FactionID,
		&u.PrimaryResource,
		&u.SecondaryResource,
		&u.AllianceID,
		&u.Points,
		&u.HomePlanetID,
		&u.LastResourceUpdate,
	)
	if err != nil {
		return nil, err
	}
	u.LastResourceUpdate = u.LastResourceUpdate.UTC()
	return &u, nil
}

func (r *userRepo) find(ctx context.Context, id int64, lock bool) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	u, err := scanUser(r.exec.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFoundf("user %d not found", id)
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return u, nil
}

func (r *userRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.find(ctx, id, false)
}

func (r *userRepo) FindLockedByID(ctx context.Context, id int64) (*models.User, error) {
	return r.find(ctx, id, true)
}

func (r *userRepo) Save(ctx context.Context, u *models.User) error {
	args := []any{
		u.Username,
		u.FactionID,
		u.PrimaryResource,
		u.SecondaryResource,
		u.AllianceID,
		u.Points,
		u.HomePlanetID,
		u.LastResourceUpdate,
	}

	if u.ID == 0 {
		query := `
			INSERT INTO users (username, faction_id, primary_resource, secondary_resource,
				alliance_id, points, home_planet_id, last_resource_update)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`
		if err := r.exec.QueryRowContext(ctx, query, args...).Scan(&u.ID); err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO users (id, username, faction_id, primary_resource, secondary_resource,
			alliance_id, points, home_planet_id, last_resource_update)
		VALUES ($9, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			faction_id = EXCLUDED.faction_id,
			primary_resource = EXCLUDED.primary_resource,
			secondary_resource = EXCLUDED.secondary_resource,
			alliance_id = EXCLUDED.alliance_id,
			points = EXCLUDED.points,
			home_planet_id = EXCLUDED.home_planet_id,
			last_resource_update = EXCLUDED.last_resource_update`
	if _, err := r.exec.ExecContext(ctx, query, append(args, u.ID)...); err != nil {
		return fmt.Errorf("failed to save user %d: %w", u.ID, err)
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.exec.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	return nil
}

// updateOne runs an UPDATE that must touch exactly the user's row.
func (r *userRepo) updateOne(ctx context.Context, userID int64, query string, args ...any) error {
	res, err := r.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", userID, err)
	}
	if n == 0 {
		return errors.NotFoundf("user %d not found", userID)
	}
	return nil
}

func (r *userRepo) AddResources(ctx context.Context, userID int64, primary, secondary float64) error {
	return r.updateOne(ctx, userID, `
		UPDATE users
		SET primary_resource = primary_resource + $2, secondary_resource = secondary_resource + $3
		WHERE id = $1`, userID, primary, secondary)
}

func (r *userRepo) AddPoints(ctx context.Context, userID int64, points float64) error {
	return r.updateOne(ctx, userID, `UPDATE users SET points = points + $2 WHERE id = $1`, userID, points)
}

func (r *userRepo) TouchResourceUpdate(ctx context.Context, userID int64, at time.Time) error {
	return r.updateOne(ctx, userID, `UPDATE users SET last_resource_update = $2 WHERE id = $1`, userID, at)
}

func (r *userRepo) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := r.exec.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return found, nil
}

func (r *userRepo) IsExplored(ctx context.Context, userID, planetID int64) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS(SELECT 1 FROM explored_planets WHERE user_id = $1 AND planet_id = $2)`,
		userID, planetID)
}

func (r *userRepo) MarkExplored(ctx context.Context, userID, planetID int64) error {
	_, err := r.exec.ExecContext(ctx, `
		INSERT INTO explored_planets (user_id, planet_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, planetID)
	if err != nil {
		return fmt.Errorf("failed to mark planet %d explored: %w", planetID, err)
	}
	return nil
}

func (r *userRepo) IsUnlocked(ctx context.Context, userID, relationID int64) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS(SELECT 1 FROM unlocked_relations WHERE user_id = $1 AND relation_id = $2)`,
		userID, relationID)
}

func (r *userRepo) Unlock(ctx context.Context, userID, relationID int64) error {
	_, err := r.exec.ExecContext(ctx, `
		INSERT INTO unlocked_relations (user_id, relation_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, relationID)
	if err != nil {
		return fmt.Errorf("failed to unlock relation %d: %w", relationID, err)
	}
	return nil
}

func (r *userRepo) Upgrades(ctx context.Context, userID int64) ([]models.ObtainedUpgrade, error) {
	rows, err := r.exec.QueryContext(ctx, `
		SELECT user_id, upgrade_id, level FROM obtained_upgrades
		WHERE user_id = $1 ORDER BY upgrade_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query upgrades: %w", err)
	}
	defer rows.Close()

	var upgrades []models.ObtainedUpgrade
	for rows.Next() {
		var u models.ObtainedUpgrade
		if err := rows.Scan(&u.UserID, &u.UpgradeID, &u.Level); err != nil {
			return nil, fmt.Errorf("failed to scan upgrade: %w", err)
		}
		upgrades = append(upgrades, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating upgrades: %w", err)
	}
	return upgrades, nil
}

func (r *userRepo) SaveUpgrade(ctx context.Context, upgrade models.ObtainedUpgrade) error {
	_, err := r.exec.ExecContext(ctx, `
		INSERT INTO obtained_upgrades (user_id, upgrade_id, level) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, upgrade_id) DO UPDATE SET level = EXCLUDED.level`,
		upgrade.UserID, upgrade.UpgradeID, upgrade.Level)
	if err != nil {
		return fmt.Errorf("failed to save upgrade %d: %w", upgrade.UpgradeID, err)
	}
	return nil
}
