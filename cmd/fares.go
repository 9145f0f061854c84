package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"railplan.dev/railplan"
)

var faresCmd = &cobra.Command{
	Use:   "fares <from_crs> <to_crs>",
	Short: "Lists ticket prices between two stations",
	Args:  cobra.ExactArgs(2),
	RunE:  fares,
}

func fares(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	options, err := railplan.TicketPrices(store, args[0], args[1])
	if err != nil {
		return err
	}
	if len(options) == 0 {
		return fmt.Errorf("no fares found from %s to %s", args[0], args[1])
	}

	for i := range options {
		option := &options[i]
		fmt.Printf("%-4s %-20s %s\n",
			option.Ticket.TicketCode, option.Ticket.Description,
			railplan.FormatPrice(option))
	}
	return nil
}
