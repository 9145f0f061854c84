package railplan

import (
	"railplan.dev/railplan/storage"
)

// Path search over the timetable link graph. The search is a layered
// BFS where walks that meet at the same node in the same layer merge
// instead of fanning out, so alternatives are kept without the route
// count exploding.

type stringSet map[string]struct{}

func (s stringSet) add(v string)      { s[v] = struct{}{} }
func (s stringSet) has(v string) bool { _, ok := s[v]; return ok }

// A Path is a trunk of stations plus a forest of sub-paths that
// merged into it earlier in the search. Stations are stored in travel
// order, so a sub-path's history comes before the trunk when routes
// are enumerated.
type Path struct {
	stations []string
	subPaths []*Path

	locations        stringSet
	subPathLocations []stringSet
}

func newPath() *Path {
	return &Path{locations: stringSet{}}
}

func (p *Path) clone() *Path {
	return &Path{
		stations:         append([]string{}, p.stations...),
		subPaths:         append([]*Path{}, p.subPaths...),
		locations:        cloneSet(p.locations),
		subPathLocations: append([]stringSet{}, p.subPathLocations...),
	}
}

func cloneSet(s stringSet) stringSet {
	out := make(stringSet, len(s))
	for v := range s {
		out.add(v)
	}
	return out
}

// extend returns a copy of p with location appended to the trunk.
func (p *Path) extend(location string) *Path {
	next := p.clone()
	next.stations = append(next.stations, location)
	next.locations.add(location)
	return next
}

// merge combines two walks that reached the same node. Both histories
// survive as sub-paths of a fresh, empty trunk. Paths that are
// themselves pure forests are flattened rather than nested.
func (p *Path) merge(other *Path) *Path {
	merged := newPath()
	for _, sub := range []*Path{p, other} {
		merged.subPathLocations = append(merged.subPathLocations, sub.locations)
		merged.subPathLocations = append(merged.subPathLocations, sub.subPathLocations...)
		if len(sub.stations) == 0 {
			merged.subPaths = append(merged.subPaths, sub.subPaths...)
		} else {
			merged.subPaths = append(merged.subPaths, sub)
		}
	}
	return merged
}

// hasBeenTo reports whether any walk folded into this path has
// visited location. This is the cycle guard.
func (p *Path) hasBeenTo(location string) bool {
	if p.locations.has(location) {
		return true
	}
	for _, set := range p.subPathLocations {
		if set.has(location) {
			return true
		}
	}
	return false
}

func (p *Path) possiblePathsCount() int {
	count := 1
	for _, sub := range p.subPaths {
		count += sub.possiblePathsCount()
	}
	return count
}

// AllLocations returns every location visited by any walk folded into
// this path.
func (p *Path) AllLocations() []string {
	all := cloneSet(p.locations)
	for _, set := range p.subPathLocations {
		for v := range set {
			all.add(v)
		}
	}
	out := make([]string, 0, len(all))
	for v := range all {
		out = append(out, v)
	}
	return out
}

// Routes flattens the path into ordered location sequences from
// origin to destination.
func (p *Path) Routes() [][]string {
	if len(p.subPaths) == 0 {
		return [][]string{append([]string{}, p.stations...)}
	}

	routes := [][]string{}
	for _, sub := range p.subPaths {
		for _, subRoute := range sub.Routes() {
			route := make([]string, 0, len(subRoute)+len(p.stations))
			route = append(route, subRoute...)
			route = append(route, p.stations...)
			routes = append(routes, route)
		}
	}
	return routes
}

// SearchPaths walks the timetable link graph outward from fromLoc and
// collects paths reaching toLoc, stopping once they enumerate at
// least n routes. Locations are TIPLOCs. The depth cap bounds the
// search on graphs where the destination is unreachable.
func SearchPaths(store *storage.Store, n int, fromLoc, toLoc string) ([]*Path, error) {
	found := []*Path{}
	foundRouteCount := 0

	frontier := map[string]*Path{fromLoc: newPath()}
	for depth := 0; foundRouteCount < n && depth < 400; depth++ {
		origins := make([]string, 0, len(frontier))
		for loc := range frontier {
			origins = append(origins, loc)
		}
		links, err := store.LinksFrom(origins)
		if err != nil {
			return nil, err
		}

		next := map[string]*Path{}
		for _, link := range links {
			path := frontier[link.FromLocation]
			if path.hasBeenTo(link.ToLocation) {
				continue
			}

			newPath := path.extend(link.FromLocation)
			if existing, ok := next[link.ToLocation]; ok {
				newPath = newPath.merge(existing)
			}
			next[link.ToLocation] = newPath
		}

		frontier = next
		if path, ok := frontier[toLoc]; ok {
			complete := path.extend(toLoc)
			foundRouteCount += complete.possiblePathsCount()
			found = append(found, complete)
			delete(frontier, toLoc)
		}
		if len(frontier) == 0 {
			break
		}
	}
	return found, nil
}
