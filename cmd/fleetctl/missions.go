package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"fleets-server/internal/models"
	"fleets-server/internal/scheduler"
	"fleets-server/internal/shared/config"
	"fleets-server/internal/shared/redis"
	"fleets-server/internal/store"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newMissionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "missions",
		Short: "Inspect and recover scheduled missions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "List unresolved missions and whether they are armed",
		Args:  cobra.NoArgs,
		RunE:  runPending,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "recover",
		Short: "Re-arm every unresolved mission on the scheduler queue",
		Args:  cobra.NoArgs,
		RunE:  runRecover,
	})

	return cmd
}

// openQueue returns the Redis queue the server arms missions on.
func openQueue(ctx context.Context, cfg *config.Config) (scheduler.Queue, func() error, error) {
	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if rdb == nil {
		return nil, nil, fmt.Errorf("redis is disabled (REDIS_ENABLED=false), the in-memory queue lives inside the server")
	}
	return scheduler.NewRedisQueue(rdb.Client, cfg.Missions.Scheduler.QueueKey), rdb.Close, nil
}

func runPending(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	st, db, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	queue, closeQueue, err := openQueue(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeQueue()

	var pending []models.Mission
	err = st.InTx(ctx, func(tx store.Tx) error {
		pending, err = tx.Missions().FindPending(ctx)
		return err
	})
	if err != nil {
		return err
	}

	titleColor.Printf("%d unresolved missions\n", len(pending))
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"ID", "Type", "User", "Source", "Target", "Termination", "Armed"}),
	)

	now := time.Now().UTC()
	unarmed := 0
	for _, m := range pending {
		armed, err := queue.Contains(ctx, m.ID)
		if err != nil {
			return err
		}
		status := "yes"
		if !armed {
			unarmed++
			status = "NO"
			buried, err := queue.Buried(ctx, m.ID)
			if err != nil {
				return err
			}
			if buried {
				status = "NO (gave up)"
			}
		}
		termination := m.TerminationDate.Format(time.RFC3339)
		if m.TerminationDate.Before(now) {
			termination += " (overdue)"
		}
		table.Append([]string{
			fmt.Sprint(m.ID),
			string(m.Type),
			fmt.Sprint(m.UserID),
			fmt.Sprint(m.SourcePlanetID),
			fmt.Sprint(m.TargetPlanetID),
			termination,
			status,
		})
	}
	table.Render()

	if unarmed > 0 {
		warnColor.Printf("%d missions are not armed, run `fleetctl missions recover`\n", unarmed)
	}
	return nil
}

func runRecover(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	st, db, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	queue, closeQueue, err := openQueue(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeQueue()

	recovered, err := scheduler.New(queue, st, cfg.Missions.Scheduler, log).Recover(ctx)
	if err != nil {
		return err
	}

	successColor.Printf("Re-armed %d missions\n", recovered)
	return nil
}
