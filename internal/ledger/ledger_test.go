package ledger

import (
	"context"
	"testing"

	"fleets-server/internal/catalog"
	"fleets-server/internal/models"
	"fleets-server/internal/shared/errors"
	"fleets-server/internal/shared/logger"
	"fleets-server/internal/store"
	"fleets-server/internal/store/memory"
)

const testCatalog = `
factions:
  - id: 1
    name: Terran
    max_planets: 3
unit_types:
  - id: 1
    name: Ships
  - id: 2
    name: Stations
    max_count: 2
units:
  - id: 1
    name: Fighter
    type_id: 1
    health: 10
    primary_cost: 10
    secondary_cost: 5
    energy_cost: 2
  - id: 2
    name: Flagship
    type_id: 1
    health: 100
    unique: true
  - id: 3
    name: Outpost
    type_id: 2
    health: 50
`

type fixedEnergy float64

func (e fixedEnergy) AvailableEnergy(context.Context, store.Tx, *models.User) (float64, error) {
	return float64(e), nil
}

type nopSender struct{}

func (nopSender) SendMessage(int64, string, func() (any, error)) {}

func newTestLedger(t *testing.T, energy float64) (*Ledger, *memory.Store) {
	t.Helper()
	c, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("catalog.Parse() error = %v", err)
	}
	st := memory.New(logger.Discard())
	return New(c, st, nopSender{}, fixedEnergy(energy), logger.Discard()), st
}

func inTx(t *testing.T, st *memory.Store, fn func(ctx context.Context, tx store.Tx) error) error {
	t.Helper()
	ctx := context.Background()
	return st.InTx(ctx, func(tx store.Tx) error { return fn(ctx, tx) })
}

func mustTx(t *testing.T, st *memory.Store, fn func(ctx context.Context, tx store.Tx) error) {
	t.Helper()
	if err := inTx(t, st, fn); err != nil {
		t.Fatalf("InTx() error = %v", err)
	}
}

// seedWorld stores user 1 owning planet 1, an unowned planet 2 and ten
// fighters stationed on planet 1.
func seedWorld(t *testing.T, st *memory.Store) {
	t.Helper()
	owner := int64(1)
	mustTx(t, st, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Users().Save(ctx, &models.User{Username: "ada", FactionID: 1, PrimaryResource: 100, SecondaryResource: 100}); err != nil {
			return err
		}
		if err := tx.Planets().Save(ctx, &models.Planet{Name: "Terra", OwnerID: &owner}); err != nil {
			return err
		}
		if err := tx.Planets().Save(ctx, &models.Planet{Name: "Kepler"}); err != nil {
			return err
		}
		return tx.Units().Save(ctx, &models.ObtainedUnit{UnitID: 1, UserID: 1, Count: 10, SourcePlanetID: 1})
	})
}

func TestSubtract(t *testing.T) {
	l, st := newTestLedger(t, 100)
	seedWorld(t, st)
	fleet := &models.ObtainedUnit{ID: 1}

	err := inTx(t, st, func(ctx context.Context, tx store.Tx) error {
		_, err := l.Subtract(ctx, tx, fleet, 11)
		return err
	})
	if !errors.Is(err, errors.ErrorTypeValidation) {
		t.Fatalf("Subtract(11) error = %v, want validation", err)
	}

	mustTx(t, st, func(ctx context.Context, tx store.Tx) error {
		stored, err := tx.Units().FindByID(ctx, 1)
		if err != nil {
			return err
		}
		if stored.Count != 10 {
			t.Errorf("Count = %d, want 10 after a rejected subtraction", stored.Count)
		}

		remaining, err := l.Subtract(ctx, tx, fleet, 4)
		if err != nil {
			return err
		}
		if remaining == nil || remaining.Count != 6 {
			t.Errorf("Subtract(4) = %+v, want count 6", remaining)
		}

		remaining, err = l.Subtract(ctx, tx, fleet, 6)
		if err != nil {
			return err
		}
		if remaining != nil {
			t.Errorf("Subtract(6) = %+v, want nil for an emptied fleet", remaining)
		}
		if _, err := tx.Units().FindByID(ctx, 1); !errors.Is(err, errors.ErrorTypeNotFound) {
			t.Errorf("emptied fleet still stored: %v", err)
		}
		return nil
	})
}

func TestMoveUnitStationsOnOwnedPlanet(t *testing.T) {
	l, st := newTestLedger(t, 100)
	seedWorld(t, st)

	mustTx(t, st, func(ctx context.Context, tx store.Tx) error {
		missionID := int64(50)
		target := int64(1)
		travelling := &models.ObtainedUnit{UnitID: 1, UserID: 1, Count: 3, SourcePlanetID: 2, TargetPlanetID: &target, MissionID: &missionID}
		if err := tx.Units().Save(ctx, travelling); err != nil {
			return err
		}

		moved, err := l.MoveUnit(ctx, tx, travelling, 1, 1)
		if err != nil {
			return err
		}
		if moved.ID != 1 || moved.Count != 13 || !moved.IsStationed() {
			t.Errorf("MoveUnit() = %+v, want merged stationed fleet 1 of 13", moved)
		}
		if _, err := tx.Units().FindByID(ctx, travelling.ID); !errors.Is(err, errors.ErrorTypeNotFound) {
			t.Errorf("travelling fleet still stored: %v", err)
		}
		return nil
	})
}

func TestMoveUnitJoinsDeployedMission(t *testing.T) {
	l, st := newTestLedger(t, 100)
	seedWorld(t, st)

	mustTx(t, st, func(ctx context.Context, tx store.Tx) error {
		deploy := &models.Mission{Type: models.MissionDeploy, UserID: 1, SourcePlanetID: 1, TargetPlanetID: 2}
		if err := tx.Missions().Save(ctx, deploy); err != nil {
			return err
		}

		first := &models.ObtainedUnit{UnitID: 1, UserID: 1, Count: 2, SourcePlanetID: 1, MissionID: &deploy.ID}
		second := &models.ObtainedUnit{UnitID: 1, UserID: 1, Count: 3, SourcePlanetID: 1, MissionID: &deploy.ID}
		for _, u := range []*models.ObtainedUnit{first, second} {
			if err := tx.Units().Save(ctx, u); err != nil {
				return err
			}
		}

		a, err := l.MoveUnit(ctx, tx, first, 1, 2)
		if err != nil {
			return err
		}
		b, err := l.MoveUnit(ctx, tx, second, 1, 2)
		if err != nil {
			return err
		}
		if *a.MissionID != *b.MissionID {
			t.Fatalf("fleets joined missions %d and %d, want one Deployed mission", *a.MissionID, *b.MissionID)
		}
		if b.ID != a.ID || b.Count != 5 {
			t.Fatalf("second MoveUnit() = %+v, want fleet %d merged to 5", b, a.ID)
		}
		if _, err := tx.Units().FindByID(ctx, second.ID); !errors.Is(err, errors.ErrorTypeNotFound) {
			t.Errorf("merged fleet still stored: %v", err)
		}

		deployed, err := tx.Missions().FindDeployed(ctx, 1, 2)
		if err != nil {
			return err
		}
		if deployed == nil || deployed.ID != *a.MissionID || deployed.SourcePlanetID != 1 {
			t.Fatalf("FindDeployed() = %+v, want mission %d from planet 1", deployed, *a.MissionID)
		}
		if a.FirstDeploymentMissionID == nil || *a.FirstDeploymentMissionID != deployed.ID {
			t.Errorf("FirstDeploymentMissionID = %v, want %d", a.FirstDeploymentMissionID, deployed.ID)
		}

		moved, err := l.MoveUnit(ctx, tx, b, 1, 2)
		if err != nil {
			return err
		}
		if moved.Count != 5 || *moved.MissionID != deployed.ID {
			t.Errorf("fleet already deployed moved to mission %d, want %d", *moved.MissionID, deployed.ID)
		}
		return nil
	})
}

func TestFindDeployedMissionOrCreateRequiresTarget(t *testing.T) {
	l, st := newTestLedger(t, 100)
	err := inTx(t, st, func(ctx context.Context, tx store.Tx) error {
		_, err := l.FindDeployedMissionOrCreate(ctx, tx, &models.ObtainedUnit{ID: 7})
		return err
	})
	if !errors.Is(err, errors.ErrorTypeInvariant) {
		t.Fatalf("FindDeployedMissionOrCreate() error = %v, want invariant", err)
	}
}

func TestResolveIfEmpty(t *testing.T) {
	l, st := newTestLedger(t, 100)
	seedWorld(t, st)

	mustTx(t, st, func(ctx context.Context, tx store.Tx) error {
		empty := &models.Mission{Type: models.MissionDeployed, UserID: 1, SourcePlanetID: 1, TargetPlanetID: 2}
		busy := &models.Mission{Type: models.MissionDeployed, UserID: 1, SourcePlanetID: 1, TargetPlanetID: 1}
		for _, m := range []*models.Mission{empty, busy} {
			if err := tx.Missions().Save(ctx, m); err != nil {
				return err
			}
		}
		if err := tx.Units().Save(ctx, &models.ObtainedUnit{UnitID: 1, UserID: 1, Count: 1, MissionID: &busy.ID}); err != nil {
			return err
		}

		resolved, err := l.ResolveIfEmpty(ctx, tx, empty.ID)
		if err != nil || !resolved {
			t.Errorf("ResolveIfEmpty(empty) = %v, %v, want true", resolved, err)
		}
		resolved, err = l.ResolveIfEmpty(ctx, tx, empty.ID)
		if err != nil || resolved {
			t.Errorf("second ResolveIfEmpty(empty) = %v, %v, want false", resolved, err)
		}
		resolved, err = l.ResolveIfEmpty(ctx, tx, busy.ID)
		if err != nil || resolved {
			t.Errorf("ResolveIfEmpty(busy) = %v, %v, want false", resolved, err)
		}
		return nil
	})
}

func TestProduce(t *testing.T) {
	tests := []struct {
		name   string
		energy float64
		req    ProduceRequest
		want   errors.ErrorType
	}{
		{name: "zero count", energy: 100, req: ProduceRequest{PlanetID: 1, UnitID: 1}, want: errors.ErrorTypeValidation},
		{name: "foreign planet", energy: 100, req: ProduceRequest{PlanetID: 2, UnitID: 1, Count: 1}, want: errors.ErrorTypeForbidden},
		{name: "not enough resources", energy: 100, req: ProduceRequest{PlanetID: 1, UnitID: 1, Count: 11}, want: errors.ErrorTypePolicy},
		{name: "not enough energy", energy: 3, req: ProduceRequest{PlanetID: 1, UnitID: 1, Count: 2}, want: errors.ErrorTypePolicy},
		{name: "unique unit", energy: 100, req: ProduceRequest{PlanetID: 1, UnitID: 2, Count: 2}, want: errors.ErrorTypePolicy},
		{name: "type limit", energy: 100, req: ProduceRequest{PlanetID: 1, UnitID: 3, Count: 3}, want: errors.ErrorTypePolicy},
		{name: "unknown unit", energy: 100, req: ProduceRequest{PlanetID: 1, UnitID: 9, Count: 1}, want: errors.ErrorTypeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, st := newTestLedger(t, tt.energy)
			seedWorld(t, st)
			if _, err := l.Produce(context.Background(), 1, tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("Produce() error = %v, want %s", err, tt.want)
			}
		})
	}

	l, st := newTestLedger(t, 100)
	seedWorld(t, st)
	produced, err := l.Produce(context.Background(), 1, ProduceRequest{PlanetID: 1, UnitID: 1, Count: 4})
	if err != nil {
		t.Fatalf("Produce() error = %v", err)
	}
	if produced.ID != 1 || produced.Count != 14 {
		t.Errorf("Produce() = %+v, want stationed fleet 1 of 14", produced)
	}
	mustTx(t, st, func(ctx context.Context, tx store.Tx) error {
		u, err := tx.Users().FindByID(ctx, 1)
		if err != nil {
			return err
		}
		if u.PrimaryResource != 60 || u.SecondaryResource != 80 {
			t.Errorf("resources = %v/%v, want 60/80", u.PrimaryResource, u.SecondaryResource)
		}
		return nil
	})
}
