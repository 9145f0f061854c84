package railplan

import (
	"fmt"
	"sort"

	"railplan.dev/railplan/storage"
)

// Fare resolution. Fares are priced on flows between NLC codes, where
// either end may be a cluster of stations rather than a single one.

// TicketPrices returns every priced ticket between two stations. Both
// ends are widened to their cluster sets first. When no direct flow
// exists the reversed-direction form is tried, which covers return
// legs and zonal cluster fares.
func TicketPrices(store *storage.Store, fromCRS, toCRS string) ([]storage.FareOption, error) {
	clusters, err := store.LocationClusters(fromCRS, toCRS)
	if err != nil {
		return nil, err
	}
	fromSet, toSet := clusters[fromCRS], clusters[toCRS]

	options, err := store.Fares(fromSet, toSet, false)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		options, err = store.Fares(fromSet, toSet, true)
		if err != nil {
			return nil, err
		}
	}
	return options, nil
}

// TicketFor selects which passenger type a fare summary is for.
type TicketFor int

const (
	TicketForAdult TicketFor = iota
	TicketForChild
)

// A TicketSummary is the cheapest single and return for display.
// Either may be nil when no matching fare exists.
type TicketSummary struct {
	Single *storage.FareOption
	Return *storage.FareOption
}

func ticketMatches(option storage.FareOption, ticketFor TicketFor) bool {
	if option.Ticket.TktGroup != "S" {
		return false
	}
	if option.Ticket.DiscountCategory != "01" {
		return false
	}

	if ticketFor == TicketForAdult && option.Ticket.MaxAdults == 0 {
		return false
	}
	if ticketFor == TicketForChild && option.Ticket.MaxChildren == 0 {
		return false
	}
	return true
}

// SummarizeTickets picks the cheapest single and return fares in the
// standard selling group for the given passenger type.
func SummarizeTickets(options []storage.FareOption, ticketFor TicketFor) TicketSummary {
	sorted := append([]storage.FareOption{}, options...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Fare < sorted[b].Fare
	})

	summary := TicketSummary{}
	for i, option := range sorted {
		if !ticketMatches(option, ticketFor) {
			continue
		}
		switch option.Ticket.TktType {
		case "S":
			if summary.Single == nil {
				summary.Single = &sorted[i]
			}
		case "R":
			if summary.Return == nil {
				summary.Return = &sorted[i]
			}
		}
	}
	return summary
}

// FormatPrice renders a fare in pence as pounds, e.g. £03.10.
func FormatPrice(option *storage.FareOption) string {
	if option == nil {
		return "None"
	}
	return fmt.Sprintf("£%02d.%02d", option.Fare/100, option.Fare%100)
}
