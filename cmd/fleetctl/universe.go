package main

import (
	"fmt"
	"os"

	"fleets-server/internal/universe"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newUniverseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "universe",
		Short: "Manage the planet map",
	}

	var seed int64
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate planets using the UNIVERSE_* settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			if err := db.RunMigrations(ctx, cfg.Database.MigrationsPath); err != nil {
				return err
			}

			generator := universe.NewGenerator(st, cfg.Universe, log)
			if cmd.Flags().Changed("seed") {
				generator.WithSeed(seed)
			}
			stats, err := generator.Generate(ctx)
			if err != nil {
				return err
			}

			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"Galaxies", "Sectors", "Quadrants", "Planets"}),
			)
			table.Append([]string{
				fmt.Sprint(stats.Galaxies),
				fmt.Sprint(stats.Sectors),
				fmt.Sprint(stats.Quadrants),
				fmt.Sprint(stats.Planets),
			})
			table.Render()

			successColor.Println("Universe generated")
			return nil
		},
	}
	generate.Flags().Int64Var(&seed, "seed", 0, "seed for reproducible maps")
	cmd.AddCommand(generate)

	return cmd
}
