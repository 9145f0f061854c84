package railplan

import (
	"sort"
)

// Journey filtering. The assembler can produce several journeys with
// the same arrival time; only the one leaving latest is worth
// showing.

// FilterBestJourneys keeps, for each distinct arrival time, the
// journey with the latest departure. Results stay grouped by route,
// in the order the routes were found; routes left with no journeys
// are dropped.
func FilterBestJourneys(results []RouteJourneys) []RouteJourneys {
	type tagged struct {
		group   int
		journey Journey
	}

	all := []tagged{}
	for i, result := range results {
		for _, journey := range result.Journeys {
			all = append(all, tagged{group: i, journey: journey})
		}
	}
	sort.SliceStable(all, func(a, b int) bool {
		return all[a].journey.Arrival() < all[b].journey.Arrival()
	})

	best := map[int]tagged{}
	arrivals := []int{}
	for _, t := range all {
		arrival := t.journey.Arrival()
		current, ok := best[arrival]
		if !ok {
			arrivals = append(arrivals, arrival)
		}
		if !ok || t.journey.Departure() > current.journey.Departure() {
			best[arrival] = t
		}
	}

	grouped := make([][]Journey, len(results))
	for _, arrival := range arrivals {
		t := best[arrival]
		grouped[t.group] = append(grouped[t.group], t.journey)
	}

	filtered := []RouteJourneys{}
	for i, result := range results {
		if len(grouped[i]) > 0 {
			filtered = append(filtered, RouteJourneys{
				Route:    result.Route,
				Journeys: grouped[i],
			})
		}
	}
	return filtered
}

// A RouteJourney is a single displayable journey together with the
// train route it rides.
type RouteJourney struct {
	Route   TrainRoute
	Journey Journey
}

const bestJourneyCount = 3

// journeySortKey orders journeys by arrival, except that journeys
// arriving after midnight sort by departure so they land after the
// same-day ones.
func journeySortKey(j Journey) int {
	if j.Arrival() < j.Departure() {
		return j.Departure()
	}
	return j.Arrival()
}

// BestJourneys filters the assembled journeys, drops those leaving
// before earliest (an hour*100+minute time), and returns up to three,
// soonest arrival first.
func BestJourneys(results []RouteJourneys, earliest int) []RouteJourney {
	candidates := []RouteJourney{}
	for _, result := range FilterBestJourneys(results) {
		for _, journey := range result.Journeys {
			if journey.Departure() < earliest {
				continue
			}
			candidates = append(candidates, RouteJourney{
				Route:   result.Route,
				Journey: journey,
			})
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return journeySortKey(candidates[a].Journey) < journeySortKey(candidates[b].Journey)
	})
	if len(candidates) > bestJourneyCount {
		candidates = candidates[:bestJourneyCount]
	}
	return candidates
}
