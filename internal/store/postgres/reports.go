package postgres

import (
	"context"
	"fmt"

	"fleets-server/internal/models"
	"fleets-server/internal/shared/database"
)

type reportRepo struct {
	exec database.Executor
}

func scanReport(row scanner) (*models.MissionReport, error) {
	var (
		r       models.MissionReport
		payload []byte
	)
	if err := row.Scan(&r.ID, &r.MissionID, &r.UserID, &r.Enemy, &payload, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Payload = payload
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

func (r *reportRepo) Save(ctx context.Context, report *models.MissionReport) error {
	query := `
		INSERT INTO mission_reports (mission_id, user_id, enemy, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.exec.QueryRowContext(ctx, query,
		report.MissionID, report.UserID, report.Enemy, []byte(report.Payload),
	).Scan(&report.ID, &report.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert mission report: %w", err)
	}
	report.CreatedAt = report.CreatedAt.UTC()
	return nil
}

// FindByUser returns the newest reports first. A limit below one returns all.
func (r *reportRepo) FindByUser(ctx context.Context, userID int64, limit int) ([]models.MissionReport, error) {
	query := `
		SELECT id, mission_id, user_id, enemy, payload, created_at
		FROM mission_reports
		WHERE user_id = $1
		ORDER BY id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return queryList(ctx, r.exec, scanReport, query, args...)
}
