// Package postgres implements store.Store on PostgreSQL through lib/pq.
// Locked reads use SELECT ... FOR UPDATE and resources move through
// atomic UPDATE ... SET x = x + $n statements.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fleets-server/internal/outbox"
	"fleets-server/internal/shared/database"
	"fleets-server/internal/store"
)

type Store struct {
	db     *database.DB
	logger *slog.Logger
}

func New(db *database.DB, logger *slog.Logger) *Store {
	logger.Debug("Initializing postgres store")
	return &Store{db: db, logger: logger}
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	ob := outbox.New()
	err := s.db.WithTx(ctx, func(dbTx *database.Tx) error {
		return fn(&tx{exec: dbTx, outbox: ob})
	})
	if err != nil {
		ob.Discard()
		return err
	}
	ob.Flush(ctx, s.logger)
	return nil
}

type tx struct {
	exec   database.Executor
	outbox *outbox.Outbox
}

func (t *tx) Users() store.UserRepository {
	return &userRepo{exec: t.exec}
}

func (t *tx) Planets() store.PlanetRepository {
	return &planetRepo{exec: t.exec}
}

func (t *tx) Units() store.ObtainedUnitRepository {
	return &unitRepo{exec: t.exec}
}

func (t *tx) Missions() store.MissionRepository {
	return &missionRepo{exec: t.exec}
}

func (t *tx) Reports() store.ReportRepository {
	return &reportRepo{exec: t.exec}
}

func (t *tx) Outbox() *outbox.Outbox {
	return t.outbox
}

type scanner interface {
	Scan(dest ...any) error
}

// queryList runs query and scans every row with scan.
func queryList[T any](ctx context.Context, exec database.Executor, scan func(scanner) (*T, error), query string, args ...any) ([]T, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		row, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// prefixed qualifies a comma separated column list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
