package memory

import (
	"context"
	"fmt"
	"testing"

	"fleets-server/internal/models"
	"fleets-server/internal/shared/errors"
	"fleets-server/internal/shared/logger"
	"fleets-server/internal/store"
)

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New(logger.Discard())

	var userID int64
	err := s.InTx(ctx, func(tx store.Tx) error {
		u := &models.User{Username: "ada", PrimaryResource: 10}
		if err := tx.Users().Save(ctx, u); err != nil {
			return err
		}
		userID = u.ID
		return nil
	})
	if err != nil {
		t.Fatalf("InTx() error = %v", err)
	}

	flushed := false
	err = s.InTx(ctx, func(tx store.Tx) error {
		tx.Outbox().Add("test", func(context.Context) error { flushed = true; return nil })
		if err := tx.Users().AddResources(ctx, userID, 5, 0); err != nil {
			return err
		}
		if err := tx.Planets().Save(ctx, &models.Planet{Name: "Kepler"}); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	if err == nil {
		t.Fatal("InTx() error = nil, want abort")
	}
	if flushed {
		t.Error("outbox flushed for a rolled back transaction")
	}

	_ = s.InTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if u.PrimaryResource != 10 {
			t.Errorf("PrimaryResource = %v, want 10 after rollback", u.PrimaryResource)
		}
		if _, err := tx.Planets().FindByID(ctx, 1); !errors.Is(err, errors.ErrorTypeNotFound) {
			t.Errorf("rolled back planet still visible: %v", err)
		}
		return nil
	})
}

func TestInTxFlushesOutboxAfterCommit(t *testing.T) {
	ctx := context.Background()
	s := New(logger.Discard())

	flushed := false
	err := s.InTx(ctx, func(tx store.Tx) error {
		tx.Outbox().Add("test", func(context.Context) error { flushed = true; return nil })
		if flushed {
			t.Error("outbox ran before commit")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InTx() error = %v", err)
	}
	if !flushed {
		t.Fatal("outbox not flushed after commit")
	}
}

func TestFindByIDNotFound(t *testing.T) {
	ctx := context.Background()
	s := New(logger.Discard())
	_ = s.InTx(ctx, func(tx store.Tx) error {
		_, err := tx.Missions().FindByID(ctx, 99)
		if !errors.Is(err, errors.ErrorTypeNotFound) {
			t.Errorf("FindByID() error = %v, want not_found", err)
		}
		return nil
	})
}

func TestMissionFinders(t *testing.T) {
	ctx := context.Background()
	s := New(logger.Discard())

	owner := int64(2)
	err := s.InTx(ctx, func(tx store.Tx) error {
		planets := tx.Planets()
		_ = planets.Save(ctx, &models.Planet{ID: 10, OwnerID: &owner})
		_ = planets.Save(ctx, &models.Planet{ID: 11})

		missions := tx.Missions()
		for _, m := range []models.Mission{
			{Type: models.MissionAttack, UserID: 1, TargetPlanetID: 10},
			{Type: models.MissionDeployed, UserID: 1, TargetPlanetID: 11},
			{Type: models.MissionExplore, UserID: 1, TargetPlanetID: 11, Resolved: true},
			{Type: models.MissionGather, UserID: 2, TargetPlanetID: 10},
		} {
			if err := missions.Save(ctx, &m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed error = %v", err)
	}

	_ = s.InTx(ctx, func(tx store.Tx) error {
		missions := tx.Missions()

		running, _ := missions.FindRunningByUser(ctx, 1)
		if len(running) != 2 {
			t.Errorf("FindRunningByUser() = %d missions, want 2", len(running))
		}
		count, _ := missions.CountRunningByUser(ctx, 1)
		if count != 1 {
			t.Errorf("CountRunningByUser() = %d, want 1 (deployed excluded)", count)
		}
		enemy, _ := missions.FindEnemyRunning(ctx, 2)
		if len(enemy) != 1 || enemy[0].Type != models.MissionAttack {
			t.Errorf("FindEnemyRunning() = %+v, want the attack only", enemy)
		}
		deployed, _ := missions.FindDeployed(ctx, 1, 11)
		if deployed == nil {
			t.Error("FindDeployed() = nil, want the deployed mission")
		}
		none, _ := missions.FindDeployed(ctx, 1, 10)
		if none != nil {
			t.Errorf("FindDeployed() = %+v, want nil", none)
		}
		return nil
	})
}

func TestUnitFinders(t *testing.T) {
	ctx := context.Background()
	s := New(logger.Discard())
	missionID := int64(5)

	_ = s.InTx(ctx, func(tx store.Tx) error {
		units := tx.Units()
		_ = units.Save(ctx, &models.ObtainedUnit{UnitID: 1, UserID: 1, Count: 4, SourcePlanetID: 10})
		_ = units.Save(ctx, &models.ObtainedUnit{UnitID: 1, UserID: 1, Count: 6, SourcePlanetID: 10, MissionID: &missionID})
		_ = units.Save(ctx, &models.ObtainedUnit{UnitID: 2, UserID: 2, Count: 1, SourcePlanetID: 10})
		return nil
	})

	_ = s.InTx(ctx, func(tx store.Tx) error {
		units := tx.Units()

		stationed, _ := units.FindStationed(ctx, 1, 10, 1)
		if stationed == nil || stationed.Count != 4 {
			t.Errorf("FindStationed() = %+v, want count 4", stationed)
		}
		inMission, _ := units.FindLockedByMission(ctx, missionID)
		if len(inMission) != 1 || inMission[0].Count != 6 {
			t.Errorf("FindLockedByMission() = %+v, want one fleet of 6", inMission)
		}
		total, _ := units.CountByUserAndUnit(ctx, 1, 1)
		if total != 10 {
			t.Errorf("CountByUserAndUnit() = %d, want 10", total)
		}
		if err := units.DeleteStationedAt(ctx, 10); err != nil {
			t.Fatalf("DeleteStationedAt() error = %v", err)
		}
		at, _ := units.FindLockedStationedAt(ctx, 10)
		if len(at) != 0 {
			t.Errorf("FindLockedStationedAt() after delete = %d fleets, want 0", len(at))
		}
		remaining, _ := units.FindByUser(ctx, 1)
		if len(remaining) != 1 {
			t.Errorf("FindByUser() = %d fleets, want the travelling one", len(remaining))
		}
		return nil
	})
}
