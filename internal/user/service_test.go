package user

import (
	"context"
	"testing"
	"time"

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
    initial_primary_resource: 500
    initial_secondary_resource: 250
    initial_energy: 100
    primary_resource_production: 2
    secondary_resource_production: 1
    max_planets: 2
unit_types:
  - id: 1
    name: Ships
units:
  - id: 1
    name: Fighter
    type_id: 1
    health: 10
    energy_cost: 5
upgrades:
  - id: 1
    name: Refinery
    improvement:
      more_primary_resource_production: 50
  - id: 2
    name: Reactor
    improvement:
      more_energy_production: 10
`

var epoch = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memory.Store, *time.Time) {
	t.Helper()
	c, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("catalog.Parse() error = %v", err)
	}
	st := memory.New(logger.Discard())
	now := epoch
	svc := NewService(c, st, logger.Discard()).WithClock(func() time.Time { return now })
	return svc, st, &now
}

func seed(t *testing.T, st *memory.Store, fn func(ctx context.Context, tx store.Tx) error) {
	t.Helper()
	ctx := context.Background()
	if err := st.InTx(ctx, func(tx store.Tx) error { return fn(ctx, tx) }); err != nil {
		t.Fatalf("seed error = %v", err)
	}
}

func TestTriggerResourcesUpdate(t *testing.T) {
	svc, st, now := newTestService(t)
	ctx := context.Background()

	seed(t, st, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Users().Save(ctx, &models.User{Username: "ada", FactionID: 1, LastResourceUpdate: epoch}); err != nil {
			return err
		}
		return tx.Users().SaveUpgrade(ctx, models.ObtainedUpgrade{UserID: 1, UpgradeID: 1, Level: 1})
	})

	*now = epoch.Add(100 * time.Second)
	u, err := svc.TriggerResourcesUpdate(ctx, 1)
	if err != nil {
		t.Fatalf("TriggerResourcesUpdate() error = %v", err)
	}
	if u.PrimaryResource != 300 || u.SecondaryResource != 100 {
		t.Fatalf("resources = %v/%v, want 300/100", u.PrimaryResource, u.SecondaryResource)
	}
	if !u.LastResourceUpdate.Equal(*now) {
		t.Errorf("LastResourceUpdate = %v, want %v", u.LastResourceUpdate, *now)
	}

	u, err = svc.TriggerResourcesUpdate(ctx, 1)
	if err != nil {
		t.Fatalf("second TriggerResourcesUpdate() error = %v", err)
	}
	if u.PrimaryResource != 300 {
		t.Errorf("PrimaryResource = %v, want 300 when no time elapsed", u.PrimaryResource)
	}
}

func TestTriggerResourcesUpdateWithoutPreviousStamp(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	seed(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.Users().Save(ctx, &models.User{Username: "ada", FactionID: 1})
	})

	u, err := svc.TriggerResourcesUpdate(ctx, 1)
	if err != nil {
		t.Fatalf("TriggerResourcesUpdate() error = %v", err)
	}
	if u.PrimaryResource != 0 {
		t.Errorf("PrimaryResource = %v, want 0", u.PrimaryResource)
	}
	if !u.LastResourceUpdate.Equal(epoch) {
		t.Errorf("LastResourceUpdate = %v, want %v", u.LastResourceUpdate, epoch)
	}
}

func TestAvailableEnergy(t *testing.T) {
	svc, st, _ := newTestService(t)

	seed(t, st, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Users().Save(ctx, &models.User{Username: "ada", FactionID: 1}); err != nil {
			return err
		}
		if err := tx.Users().SaveUpgrade(ctx, models.ObtainedUpgrade{UserID: 1, UpgradeID: 2, Level: 1}); err != nil {
			return err
		}
		return tx.Units().Save(ctx, &models.ObtainedUnit{UnitID: 1, UserID: 1, Count: 4, SourcePlanetID: 1})
	})

	seed(t, st, func(ctx context.Context, tx store.Tx) error {
		u, err := tx.Users().FindByID(ctx, 1)
		if err != nil {
			return err
		}
		available, err := svc.AvailableEnergy(ctx, tx, u)
		if err != nil {
			return err
		}
		if available != 90 {
			t.Errorf("AvailableEnergy() = %v, want 90", available)
		}
		return nil
	})
}

func TestHasMaxPlanets(t *testing.T) {
	svc, st, _ := newTestService(t)
	owner := int64(1)

	seed(t, st, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Users().Save(ctx, &models.User{Username: "ada", FactionID: 1}); err != nil {
			return err
		}
		return tx.Planets().Save(ctx, &models.Planet{Name: "Kepler", OwnerID: &owner})
	})

	check := func(want bool) {
		t.Helper()
		seed(t, st, func(ctx context.Context, tx store.Tx) error {
			u, err := tx.Users().FindByID(ctx, owner)
			if err != nil {
				return err
			}
			full, err := svc.HasMaxPlanets(ctx, tx, u)
			if err != nil {
				return err
			}
			if full != want {
				t.Errorf("HasMaxPlanets() = %v, want %v", full, want)
			}
			return nil
		})
	}

	check(false)
	seed(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.Planets().Save(ctx, &models.Planet{Name: "Gliese", OwnerID: &owner})
	})
	check(true)
}

func TestCreateUser(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	seed(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.Planets().Save(ctx, &models.Planet{Name: "Terra"})
	})

	u, err := svc.CreateUser(ctx, "ada", 1, 1)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.PrimaryResource != 500 || u.SecondaryResource != 250 {
		t.Errorf("resources = %v/%v, want 500/250", u.PrimaryResource, u.SecondaryResource)
	}

	seed(t, st, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.Planets().FindByID(ctx, 1)
		if err != nil {
			return err
		}
		if !p.IsOwnedBy(u.ID) || !p.Home {
			t.Errorf("planet = %+v, want home planet of user %d", p, u.ID)
		}
		explored, err := tx.Users().IsExplored(ctx, u.ID, 1)
		if err != nil {
			return err
		}
		if !explored {
			t.Error("home planet is not explored")
		}
		return nil
	})

	tests := []struct {
		name     string
		username string
		faction  int64
		planet   int64
		want     errors.ErrorType
	}{
		{name: "planet taken", username: "bob", faction: 1, planet: 1, want: errors.ErrorTypeConflict},
		{name: "no username", username: "", faction: 1, planet: 1, want: errors.ErrorTypeValidation},
		{name: "unknown faction", username: "bob", faction: 9, planet: 1, want: errors.ErrorTypeNotFound},
		{name: "unknown planet", username: "bob", faction: 1, planet: 9, want: errors.ErrorTypeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, tt.username, tt.faction, tt.planet)
			if !errors.Is(err, tt.want) {
				t.Fatalf("CreateUser() error = %v, want %s", err, tt.want)
			}
		})
	}
}
