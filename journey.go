package railplan

import (
	"strings"
	"time"

	"railplan.dev/railplan/model"
	"railplan.dev/railplan/storage"
)

// Journey assembly. A candidate location route from the path search
// is bound to concrete services for a given date: stops are grouped
// into trains, trains into shared stopping patterns, and a chain of
// boardable legs is searched over those patterns.

// A JourneySegment is one ride on one service, from a boarding stop
// to an alighting stop.
type JourneySegment struct {
	Start model.TrainStop
	End   model.TrainStop
}

// A Journey is an ordered sequence of rides. Each connection departs
// after the previous ride arrives.
type Journey []JourneySegment

// Departure is the scheduled departure time of the first ride.
func (j Journey) Departure() int {
	return j[0].Start.ScheduledDeparture
}

// Arrival is the scheduled arrival time of the last ride.
func (j Journey) Arrival() int {
	return j[len(j)-1].End.ScheduledArrival
}

// A TrainRouteSegment names a leg abstractly: which stopping pattern
// to ride and where to board and alight. It is not yet bound to a
// specific service instance.
type TrainRouteSegment struct {
	Path  []string
	Start string
	Stop  string
}

// A TrainRoute walks a location route from origin to destination with
// at most three changes.
type TrainRoute []TrainRouteSegment

// RouteJourneys pairs a train route with the concrete journeys found
// along it.
type RouteJourneys struct {
	Route    TrainRoute
	Journeys []Journey
}

// trainGroups buckets the day's services by their stopping pattern
// within a route, preserving first-seen order so the leg search is
// deterministic.
type trainGroups struct {
	keys   []string
	groups map[string]*trainGroup
}

type trainGroup struct {
	path   []string
	trains [][]model.TrainStop
}

func pathKey(path []string) string {
	return strings.Join(path, " ")
}

func groupTrainsByPath(trains map[string][]model.TrainStop, order []string) *trainGroups {
	groups := &trainGroups{groups: map[string]*trainGroup{}}
	for _, uid := range order {
		stops, ok := trains[uid]
		if !ok {
			continue
		}
		path := make([]string, len(stops))
		for i, stop := range stops {
			path[i] = stop.Location
		}

		key := pathKey(path)
		group, ok := groups.groups[key]
		if !ok {
			group = &trainGroup{path: path}
			groups.groups[key] = group
			groups.keys = append(groups.keys, key)
		}
		group.trains = append(group.trains, stops)
	}
	return groups
}

// sortTrainsByUID splits stops into per-service lists ordered so the
// schedule index and the position within route increase together.
// Stops that cannot be placed consistently are discarded, as are
// services left with fewer than two stops. Returns the per-service
// lists and the first-seen order of service UIDs.
func sortTrainsByUID(stops []model.TrainStop, route []string) (map[string][]model.TrainStop, []string) {
	routeIndex := make(map[string]int, len(route))
	for i, location := range route {
		routeIndex[location] = i
	}

	trains := map[string][]model.TrainStop{}
	order := []string{}
	for _, newStop := range stops {
		train, ok := trains[newStop.TrainUID]
		if !ok {
			trains[newStop.TrainUID] = []model.TrainStop{newStop}
			order = append(order, newStop.TrainUID)
			continue
		}

		newIndex := routeIndex[newStop.Location]
		last := train[len(train)-1]
		if newStop.TrainRouteIndex > last.TrainRouteIndex &&
			newIndex > routeIndex[last.Location] {
			trains[newStop.TrainUID] = append(train, newStop)
			continue
		}

		prevScheduleIndex := -1
		for i, next := range train {
			if newStop.TrainRouteIndex < next.TrainRouteIndex &&
				newStop.TrainRouteIndex > prevScheduleIndex &&
				newIndex < routeIndex[next.Location] {
				train = append(train[:i], append([]model.TrainStop{newStop}, train[i:]...)...)
				trains[newStop.TrainUID] = train
				break
			}
			prevScheduleIndex = next.TrainRouteIndex
		}
	}

	for uid, train := range trains {
		if len(train) < 2 {
			delete(trains, uid)
		}
	}
	return trains, order
}

func pathContains(path []string, location string) bool {
	for _, l := range path {
		if l == location {
			return true
		}
	}
	return false
}

// searchTrainRoute finds a chain of stopping patterns that walks
// route from start to its final location, changing trains at most
// three times. Depth-first; the first complete chain wins.
func searchTrainRoute(start string, groups *trainGroups,
	route []string, routeIndex map[string]int, soFar TrainRoute) TrainRoute {
	if len(soFar) > 3 {
		return nil
	}

	destination := route[len(route)-1]
	for _, key := range groups.keys {
		path := groups.groups[key].path
		if !pathContains(path, start) {
			continue
		}

		if pathContains(path, destination) {
			return append(append(TrainRoute{}, soFar...),
				TrainRouteSegment{Path: path, Start: start, Stop: destination})
		}

		for _, stop := range path {
			if routeIndex[stop] <= routeIndex[start] {
				continue
			}
			next := append(append(TrainRoute{}, soFar...),
				TrainRouteSegment{Path: path, Start: start, Stop: stop})
			if result := searchTrainRoute(stop, groups, route, routeIndex, next); result != nil {
				return result
			}
		}
	}
	return nil
}

func firstStopAt(train []model.TrainStop, location string) (model.TrainStop, bool) {
	for _, stop := range train {
		if stop.Location == location {
			return stop, true
		}
	}
	return model.TrainStop{}, false
}

// findJourneys binds a train route to concrete services. Each
// candidate journey boards one of the first leg's services and then
// always takes the earliest feasible connection.
func findJourneys(groups *trainGroups, trainRoute TrainRoute) []Journey {
	startGroup, ok := groups.groups[pathKey(trainRoute[0].Path)]
	if !ok {
		return nil
	}

	journeys := []Journey{}
	for _, startTrain := range startGroup.trains {
		firstStop, ok := firstStopAt(startTrain, trainRoute[0].Stop)
		if !ok {
			continue
		}
		journey := Journey{{Start: startTrain[0], End: firstStop}}

		complete := true
		for _, segment := range trainRoute[1:] {
			previous := journey[len(journey)-1].End

			var bestStop model.TrainStop
			var bestTrain []model.TrainStop
			for _, train := range groups.groups[pathKey(segment.Path)].trains {
				for _, stop := range train {
					if stop.Location != previous.Location ||
						stop.ScheduledDeparture <= previous.ScheduledArrival {
						continue
					}
					if bestTrain == nil || stop.ScheduledDeparture < bestStop.ScheduledDeparture {
						bestStop, bestTrain = stop, train
					}
				}
			}
			if bestTrain == nil {
				complete = false
				break
			}

			end, ok := firstStopAt(bestTrain, segment.Stop)
			if !ok {
				complete = false
				break
			}
			journey = append(journey, JourneySegment{Start: bestStop, End: end})
		}
		if complete {
			journeys = append(journeys, journey)
		}
	}
	return journeys
}

// findJourneysForRoute assembles journeys along one candidate
// location route. Returns false when no train route covers it.
func findJourneysForRoute(route []string, allStops []model.TrainStop) (RouteJourneys, bool) {
	inRoute := make(map[string]bool, len(route))
	routeIndex := make(map[string]int, len(route))
	for i, location := range route {
		inRoute[location] = true
		routeIndex[location] = i
	}

	stops := []model.TrainStop{}
	for _, stop := range allStops {
		if inRoute[stop.Location] {
			stops = append(stops, stop)
		}
	}

	trains, order := sortTrainsByUID(stops, route)
	groups := groupTrainsByPath(trains, order)

	trainRoute := searchTrainRoute(route[0], groups, route, routeIndex, nil)
	if trainRoute == nil {
		return RouteJourneys{}, false
	}
	return RouteJourneys{
		Route:    trainRoute,
		Journeys: findJourneys(groups, trainRoute),
	}, true
}

// FindJourneysForPaths assembles journeys for every route enumerated
// by the given paths on date. Stops are fetched once over the union
// of all path locations.
func FindJourneysForPaths(store *storage.Store, date time.Time, paths []*Path) ([]RouteJourneys, error) {
	all := stringSet{}
	for _, path := range paths {
		for _, location := range path.AllLocations() {
			all.add(location)
		}
	}
	locations := make([]string, 0, len(all))
	for location := range all {
		locations = append(locations, location)
	}

	stops, err := store.StopsAt(locations, date)
	if err != nil {
		return nil, err
	}

	results := []RouteJourneys{}
	for _, path := range paths {
		for _, route := range path.Routes() {
			if result, ok := findJourneysForRoute(route, stops); ok {
				results = append(results, result)
			}
		}
	}
	return results, nil
}

// FindJourneysFromCRS searches journeys between two stations on date.
// Unknown station codes yield an empty result rather than an error.
func FindJourneysFromCRS(store *storage.Store, fromCRS, toCRS string, date time.Time) ([]RouteJourneys, error) {
	fromLoc, ok, err := store.TiplocForCRS(fromCRS)
	if err != nil || !ok {
		return nil, err
	}
	toLoc, ok, err := store.TiplocForCRS(toCRS)
	if err != nil || !ok {
		return nil, err
	}

	paths, err := SearchPaths(store, 4, fromLoc, toLoc)
	if err != nil {
		return nil, err
	}
	return FindJourneysForPaths(store, date, paths)
}
