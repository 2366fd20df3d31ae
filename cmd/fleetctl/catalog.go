package main

import (
	"fmt"
	"os"

	"fleets-server/internal/catalog"
	"fleets-server/internal/shared/logger"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect game catalogs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate <path>",
		Short: "Parse and validate a catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.Load(args[0], logger.Discard())
			if err != nil {
				return err
			}
			printCatalog(c)
			successColor.Printf("Catalog %s is valid\n", args[0])
			return nil
		},
	})

	return cmd
}

func printCatalog(c *catalog.Catalog) {
	titleColor.Println("Units")
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"ID", "Name", "Type", "Attack", "Health", "Shield", "Speed", "Charge"}),
	)
	for _, u := range c.Units {
		table.Append([]string{
			fmt.Sprint(u.ID),
			u.Name,
			fmt.Sprint(u.TypeID),
			fmt.Sprint(u.Attack),
			fmt.Sprint(u.Health),
			fmt.Sprint(u.Shield),
			fmt.Sprint(u.Speed),
			fmt.Sprint(u.Charge),
		})
	}
	table.Render()

	fmt.Printf("%d factions, %d unit types, %d upgrades\n", len(c.Factions), len(c.UnitTypes), len(c.Upgrades))
}
