package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"railplan.dev/railplan"
)

var journeysCmd = &cobra.Command{
	Use:   "journeys <from_crs> <to_crs>",
	Short: "Plans a journey between two stations",
	Args:  cobra.ExactArgs(2),
	RunE:  journeys,
}

var (
	travelDate  string
	travelTime  string
	childTicket bool
	noIncidents bool
)

func init() {
	journeysCmd.Flags().StringVarP(&travelDate, "date", "d", "", "Travel date (YYYY-MM-DD, default today)")
	journeysCmd.Flags().StringVarP(&travelTime, "time", "T", "", "Earliest departure (HH:MM, default now)")
	journeysCmd.Flags().BoolVarP(&childTicket, "child", "", false, "Price a child ticket instead of adult")
	journeysCmd.Flags().BoolVarP(&noIncidents, "no-incidents", "", false, "Skip the incident lookup")
}

func journeys(cmd *cobra.Command, args []string) error {
	now := time.Now()

	date := now
	if travelDate != "" {
		var err error
		date, err = time.Parse("2006-01-02", travelDate)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", travelDate, err)
		}
	}

	earliest := now.Hour()*100 + now.Minute()
	if travelTime != "" {
		parsed, err := time.Parse("15:04", travelTime)
		if err != nil {
			return fmt.Errorf("invalid time %q: %w", travelTime, err)
		}
		earliest = parsed.Hour()*100 + parsed.Minute()
	}

	ticketFor := railplan.TicketForAdult
	if childTicket {
		ticketFor = railplan.TicketForChild
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	plan, err := railplan.NewPlanner(store).Plan(railplan.PlanRequest{
		FromCRS:          args[0],
		ToCRS:            args[1],
		Date:             date,
		Time:             earliest,
		TicketFor:        ticketFor,
		IncludeIncidents: !noIncidents,
	})
	if err != nil {
		return err
	}

	fmt.Print(plan.Describe())
	return nil
}
