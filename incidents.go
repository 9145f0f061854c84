package railplan

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"railplan.dev/railplan/model"
	"railplan.dev/railplan/storage"
)

// Incident matching. Incidents describe affected routes as free text
// like "Brighton and Preston Park also London Bridge"; the matcher
// extracts the station names on either side of the first " and " and
// checks them against the legs of a journey.

// ParseIncidentRoutes splits a routes-affected sentence into the
// TIPLOCs named before and after the " and " pivot. Text from
// " also " onward is ignored. ok is false when the sentence has no
// pivot, which callers treat as no restriction.
func ParseIncidentRoutes(nameMap map[string]string, routeText string) (from, to []string, ok bool) {
	andIndex := strings.Index(routeText, " and ")
	if andIndex == -1 {
		return nil, nil, false
	}

	if alsoIndex := strings.Index(routeText, " also "); alsoIndex != -1 {
		routeText = routeText[:alsoIndex]
	}

	for name, tiploc := range nameMap {
		index := strings.Index(routeText, name)
		if index == -1 {
			continue
		}
		if index < andIndex {
			from = append(from, tiploc)
		} else {
			to = append(to, tiploc)
		}
	}
	return from, to, true
}

// An IncidentMatcher finds the incidents relevant to planned
// journeys. The station name map and per-operator incident lists are
// cached between calls.
type IncidentMatcher struct {
	store    *storage.Store
	names    map[string]string
	tocCache *lru.Cache[string, []model.Incident]
}

func NewIncidentMatcher(store *storage.Store) (*IncidentMatcher, error) {
	cache, err := lru.New[string, []model.Incident](64)
	if err != nil {
		return nil, err
	}
	return &IncidentMatcher{store: store, tocCache: cache}, nil
}

func (m *IncidentMatcher) nameMap() (map[string]string, error) {
	if m.names == nil {
		names, err := m.store.StationNameMap()
		if err != nil {
			return nil, err
		}
		m.names = names
	}
	return m.names, nil
}

func (m *IncidentMatcher) incidentsForTOC(toc string) ([]model.Incident, error) {
	if incidents, ok := m.tocCache.Get(toc); ok {
		return incidents, nil
	}
	incidents, err := m.store.IncidentsForTOC(toc)
	if err != nil {
		return nil, err
	}
	m.tocCache.Add(toc, incidents)
	return incidents, nil
}

func anyInPath(path []string, locations []string) bool {
	for _, location := range locations {
		if pathContains(path, location) {
			return true
		}
	}
	return false
}

// FindIncidents returns the incidents affecting any leg of the given
// journeys. A leg is affected when the incident names its operator
// and the leg's stopping pattern touches both sides of the parsed
// route text. Duplicates are collapsed by incident number.
func (m *IncidentMatcher) FindIncidents(journeys []RouteJourney) ([]model.Incident, error) {
	names, err := m.nameMap()
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	found := []model.Incident{}
	for _, rj := range journeys {
		for i, segment := range rj.Route {
			if i >= len(rj.Journey) {
				break
			}

			incidents, err := m.incidentsForTOC(rj.Journey[i].Start.TOC)
			if err != nil {
				return nil, err
			}
			for _, incident := range incidents {
				if seen[incident.Number] {
					continue
				}
				from, to, ok := ParseIncidentRoutes(names, incident.RoutesAffected)
				if !ok {
					continue
				}
				if !anyInPath(segment.Path, from) || !anyInPath(segment.Path, to) {
					continue
				}
				seen[incident.Number] = true
				found = append(found, incident)
			}
		}
	}
	return found, nil
}
