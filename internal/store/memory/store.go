package memory

import (
	"context"
	"log/slog"
	"maps"

	"fleets-server/internal/models"
	"fleets-server/internal/outbox"
	"fleets-server/internal/store"
)

type pair struct {
	a, b int64
}

type state struct {
	users    *table[models.User]
	planets  *table[models.Planet]
	units    *table[models.ObtainedUnit]
	missions *table[models.Mission]
	reports  *table[models.MissionReport]

	explored map[pair]bool
	unlocked map[pair]bool
	upgrades map[pair]int
}

func newState() *state {
	return &state{
		users:    newTable("user", func(u *models.User) *int64 { return &u.ID }),
		planets:  newTable("planet", func(p *models.Planet) *int64 { return &p.ID }),
		units:    newTable("obtained unit", func(u *models.ObtainedUnit) *int64 { return &u.ID }),
		missions: newTable("mission", func(m *models.Mission) *int64 { return &m.ID }),
		reports:  newTable("mission report", func(r *models.MissionReport) *int64 { return &r.ID }),
		explored: make(map[pair]bool),
		unlocked: make(map[pair]bool),
		upgrades: make(map[pair]int),
	}
}

func (s *state) clone() *state {
	return &state{
		users:    s.users.clone(),
		planets:  s.planets.clone(),
		units:    s.units.clone(),
		missions: s.missions.clone(),
		reports:  s.reports.clone(),
		explored: maps.Clone(s.explored),
		unlocked: maps.Clone(s.unlocked),
		upgrades: maps.Clone(s.upgrades),
	}
}

// Store is a single process store.Store. Transactions are serialized by one
// mutex and roll back by restoring a snapshot taken when they began.
type Store struct {
	mu     chan struct{}
	data   *state
	logger *slog.Logger
}

func New(logger *slog.Logger) *Store {
	logger.Debug("Initializing in-memory store")

	s := &Store{
		mu:     make(chan struct{}, 1),
		data:   newState(),
		logger: logger,
	}
	return s
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	ob := outbox.New()
	if err := s.run(ctx, ob, fn); err != nil {
		return err
	}
	ob.Flush(ctx, s.logger)
	return nil
}

func (s *Store) run(ctx context.Context, ob *outbox.Outbox, fn func(tx store.Tx) error) (err error) {
	select {
	case s.mu <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	snapshot := s.data.clone()
	committed := false
	defer func() {
		if !committed {
			s.data = snapshot
			ob.Discard()
		}
		<-s.mu
	}()

	if err := fn(&tx{state: s.data, outbox: ob}); err != nil {
		return err
	}
	committed = true
	return nil
}

type tx struct {
	state  *state
	outbox *outbox.Outbox
}

func (t *tx) Users() store.UserRepository {
	return &userRepo{repo: repo[models.User]{t.state.users}, state: t.state}
}

func (t *tx) Planets() store.PlanetRepository {
	return &planetRepo{repo: repo[models.Planet]{t.state.planets}}
}

func (t *tx) Units() store.ObtainedUnitRepository {
	return &unitRepo{repo: repo[models.ObtainedUnit]{t.state.units}}
}

func (t *tx) Missions() store.MissionRepository {
	return &missionRepo{repo: repo[models.Mission]{t.state.missions}, state: t.state}
}

func (t *tx) Reports() store.ReportRepository {
	return &reportRepo{t: t.state.reports}
}

func (t *tx) Outbox() *outbox.Outbox {
	return t.outbox
}
