package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"railplan.dev/railplan/feed"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Refreshes outdated feeds and reports table sizes",
	Args:  cobra.NoArgs,
	RunE:  ingest,
}

func ingest(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, f := range feed.All() {
		for _, table := range f.OwnedTables() {
			count, err := store.TableCount(table)
			if err != nil {
				return err
			}
			fmt.Printf("%-20s %d\n", table, count)
		}
	}
	return nil
}
