package storage

import (
	"fmt"
	"time"

	"railplan.dev/railplan/model"
)

// Read-side queries. These may run concurrently with each other, but
// not with the writer.

// TiplocForCRS resolves a CRS code to its first TIPLOC. ok is false
// when the CRS is unknown.
func (s *Store) TiplocForCRS(crs string) (string, bool, error) {
	rows, err := s.db.Query(s.rebind(`
SELECT tiploc_code FROM tiploc WHERE crs_code = ? LIMIT 1`), crs)
	if err != nil {
		return "", false, fmt.Errorf("querying tiploc for %s: %w", crs, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return "", false, nil
	}
	var tiploc string
	if err := rows.Scan(&tiploc); err != nil {
		return "", false, fmt.Errorf("scanning tiploc: %w", err)
	}
	return tiploc, true, nil
}

// CRSForTiplocs maps each given TIPLOC to its CRS code. TIPLOCs
// without a CRS are omitted.
func (s *Store) CRSForTiplocs(tiplocs ...string) (map[string]string, error) {
	if len(tiplocs) == 0 {
		return map[string]string{}, nil
	}

	args := make([]interface{}, len(tiplocs))
	for i, t := range tiplocs {
		args[i] = t
	}
	rows, err := s.db.Query(s.rebind(`
SELECT tiploc_code, crs_code
FROM tiploc
WHERE tiploc_code IN (`+placeholders(len(tiplocs))+`)`), args...)
	if err != nil {
		return nil, fmt.Errorf("querying crs for tiplocs: %w", err)
	}
	defer rows.Close()

	result := map[string]string{}
	for rows.Next() {
		var tiploc, crs string
		if err := rows.Scan(&tiploc, &crs); err != nil {
			return nil, fmt.Errorf("scanning tiploc row: %w", err)
		}
		if crs != "" {
			result[tiploc] = crs
		}
	}
	return result, rows.Err()
}

// LinksFrom returns every timetable_link edge whose origin is in
// locations.
func (s *Store) LinksFrom(locations []string) ([]model.TimetableLink, error) {
	if len(locations) == 0 {
		return nil, nil
	}

	args := make([]interface{}, len(locations))
	for i, l := range locations {
		args[i] = l
	}
	rows, err := s.db.Query(s.rebind(`
SELECT from_location, to_location
FROM timetable_link
WHERE from_location IN (`+placeholders(len(locations))+`)`), args...)
	if err != nil {
		return nil, fmt.Errorf("querying links: %w", err)
	}
	defer rows.Close()

	links := []model.TimetableLink{}
	for rows.Next() {
		var link model.TimetableLink
		if err := rows.Scan(&link.FromLocation, &link.ToLocation); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// StopsAt returns all timetable locations at the given TIPLOCs for
// services running on date, ordered by service and route index.
func (s *Store) StopsAt(locations []string, date time.Time) ([]model.TrainStop, error) {
	if len(locations) == 0 {
		return nil, nil
	}

	// Monday is position 1 of days_run.
	weekday := (int(date.Weekday())+6)%7 + 1
	sqlDate := model.DateToSQL(date)

	args := make([]interface{}, 0, len(locations)+3)
	for _, l := range locations {
		args = append(args, l)
	}
	args = append(args, sqlDate, sqlDate, weekday)

	rows, err := s.db.Query(s.rebind(`
SELECT
    loc.train_uid,
    loc.train_route_index,
    loc.location_type,
    loc.location,
    loc.scheduled_arrival_time,
    loc.scheduled_departure_time,
    loc.public_arrival,
    loc.public_departure,
    loc.platform,
    tt.toc
FROM timetable_location loc
JOIN train_timetable tt ON tt.train_uid = loc.train_uid
WHERE loc.location IN (`+placeholders(len(locations))+`)
  AND tt.date_runs_from <= ?
  AND tt.date_runs_to >= ?
  AND substr(tt.days_run, ?, 1) = '1'
ORDER BY loc.train_uid, loc.train_route_index`), args...)
	if err != nil {
		return nil, fmt.Errorf("querying stops: %w", err)
	}
	defer rows.Close()

	stops := []model.TrainStop{}
	for rows.Next() {
		var stop model.TrainStop
		var locationType string
		err := rows.Scan(
			&stop.TrainUID,
			&stop.TrainRouteIndex,
			&locationType,
			&stop.Location,
			&stop.ScheduledArrival,
			&stop.ScheduledDeparture,
			&stop.PublicArrival,
			&stop.PublicDeparture,
			&stop.Platform,
			&stop.TOC,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning stop: %w", err)
		}
		stop.LocationType = model.LocationType(locationType)
		stops = append(stops, stop)
	}
	return stops, rows.Err()
}

// LocationClusters returns, for each given CRS, its NLC together with
// every cluster the NLC belongs to. This is the "cluster set" used
// for fare lookups.
func (s *Store) LocationClusters(crs ...string) (map[string][]string, error) {
	if len(crs) == 0 {
		return map[string][]string{}, nil
	}

	args := make([]interface{}, len(crs))
	for i, c := range crs {
		args[i] = c
	}
	rows, err := s.db.Query(s.rebind(`
SELECT l.crs_code, l.ncl_code, c.cluster_id
FROM location_record l
LEFT JOIN station_cluster c ON c.location_nlc = l.ncl_code
WHERE l.crs_code IN (`+placeholders(len(crs))+`)`), args...)
	if err != nil {
		return nil, fmt.Errorf("querying clusters: %w", err)
	}
	defer rows.Close()

	seen := map[string]map[string]bool{}
	for rows.Next() {
		var crsCode, ncl string
		var clusterID *string
		if err := rows.Scan(&crsCode, &ncl, &clusterID); err != nil {
			return nil, fmt.Errorf("scanning cluster row: %w", err)
		}
		if seen[crsCode] == nil {
			seen[crsCode] = map[string]bool{}
		}
		seen[crsCode][ncl] = true
		if clusterID != nil {
			seen[crsCode][*clusterID] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := map[string][]string{}
	for crsCode, set := range seen {
		for code := range set {
			result[crsCode] = append(result[crsCode], code)
		}
	}
	return result, nil
}

// A FareOption is a priced ticket on some flow between the queried
// cluster sets.
type FareOption struct {
	Fare   int // pence
	Ticket model.TicketType
}

const fareSelect = `
SELECT
    fare.fare,
    tt.ticket_code,
    tt.description,
    tt.tkt_class,
    tt.tkt_type,
    tt.tkt_group,
    tt.max_passengers,
    tt.min_passengers,
    tt.max_adults,
    tt.min_adults,
    tt.max_children,
    tt.min_children,
    tt.restricted_by_date,
    tt.restricted_by_train,
    tt.restricted_by_area,
    tt.validity_code,
    tt.reservation_required,
    tt.capri_code,
    tt.uts_code,
    tt.time_restriction,
    tt.free_pass_lul,
    tt.package_mkr,
    tt.fare_multiplier,
    tt.discount_category
FROM fare_record fare
JOIN flow_record flow ON flow.flow_id = fare.flow_id
JOIN ticket_type tt ON tt.ticket_code = fare.ticket_code
`

// Fares returns priced tickets on flows from fromSet to toSet. With
// reversed set, flows are matched in the R direction with operands
// swapped, which covers return-leg and cluster-internal fares.
func (s *Store) Fares(fromSet, toSet []string, reversed bool) ([]FareOption, error) {
	if len(fromSet) == 0 || len(toSet) == 0 {
		return nil, nil
	}

	origins, destinations := fromSet, toSet
	condition := ""
	if reversed {
		origins, destinations = toSet, fromSet
		condition = " AND flow.direction = 'R'"
	}

	args := make([]interface{}, 0, len(origins)+len(destinations))
	for _, o := range origins {
		args = append(args, o)
	}
	for _, d := range destinations {
		args = append(args, d)
	}

	rows, err := s.db.Query(s.rebind(fareSelect+`
WHERE flow.origin_code IN (`+placeholders(len(origins))+`)
  AND flow.destination_code IN (`+placeholders(len(destinations))+`)`+
		condition), args...)
	if err != nil {
		return nil, fmt.Errorf("querying fares: %w", err)
	}
	defer rows.Close()

	options := []FareOption{}
	for rows.Next() {
		var opt FareOption
		t := &opt.Ticket
		err := rows.Scan(
			&opt.Fare,
			&t.TicketCode, &t.Description, &t.TktClass, &t.TktType, &t.TktGroup,
			&t.MaxPassengers, &t.MinPassengers, &t.MaxAdults, &t.MinAdults,
			&t.MaxChildren, &t.MinChildren,
			&t.RestrictedByDate, &t.RestrictedByTrain, &t.RestrictedByArea,
			&t.ValidityCode, &t.Reservation, &t.CapriCode, &t.UTSCode,
			&t.TimeRestriction, &t.FreePassLUL, &t.PackageMkr,
			&t.FareMultiplier, &t.DiscountCategory,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning fare: %w", err)
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

// IncidentsForTOC returns all incidents affecting the given operator.
func (s *Store) IncidentsForTOC(toc string) ([]model.Incident, error) {
	rows, err := s.db.Query(s.rebind(`
SELECT DISTINCT
    i.incident_number,
    i.creation_time,
    i.planned,
    i.summary,
    i.description,
    i.cleared,
    i.routes_affected
FROM incident_operator op
JOIN incident i ON i.incident_number = op.incident_number
WHERE op.operator_toc = ?`), toc)
	if err != nil {
		return nil, fmt.Errorf("querying incidents for %s: %w", toc, err)
	}
	defer rows.Close()

	incidents := []model.Incident{}
	for rows.Next() {
		var inc model.Incident
		err := rows.Scan(
			&inc.Number, &inc.CreationTime, &inc.Planned,
			&inc.Summary, &inc.Description, &inc.Cleared,
			&inc.RoutesAffected,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning incident: %w", err)
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// StationNameMap returns station display names keyed to their
// TIPLOCs, via the shared CRS code.
func (s *Store) StationNameMap() (map[string]string, error) {
	rows, err := s.db.Query(`
SELECT st.name, t.tiploc_code
FROM station st
JOIN tiploc t ON t.crs_code = st.crs_code`)
	if err != nil {
		return nil, fmt.Errorf("querying station names: %w", err)
	}
	defer rows.Close()

	names := map[string]string{}
	for rows.Next() {
		var name, tiploc string
		if err := rows.Scan(&name, &tiploc); err != nil {
			return nil, fmt.Errorf("scanning station name: %w", err)
		}
		names[name] = tiploc
	}
	return names, rows.Err()
}

// StationName returns the display name for a CRS code.
func (s *Store) StationName(crs string) (string, bool, error) {
	rows, err := s.db.Query(s.rebind(`
SELECT name FROM station WHERE crs_code = ? LIMIT 1`), crs)
	if err != nil {
		return "", false, fmt.Errorf("querying station name: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return "", false, nil
	}
	var name string
	if err := rows.Scan(&name); err != nil {
		return "", false, fmt.Errorf("scanning station name: %w", err)
	}
	return name, true, nil
}

// OrphanCount counts rows in table whose column value has no match
// in parentTable.parentColumn. Used to check referential integrity
// after an ingest.
func (s *Store) OrphanCount(table, column, parentTable, parentColumn string) (int, error) {
	var count int
	err := s.db.QueryRow(fmt.Sprintf(`
SELECT COUNT(*) FROM %s child
WHERE NOT EXISTS (
    SELECT 1 FROM %s parent WHERE parent.%s = child.%s
)`, table, parentTable, parentColumn, column)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting orphans in %s: %w", table, err)
	}
	return count, nil
}

// RandomLinkedCRSPairs samples n random (from, to) CRS pairs that are
// directly linked in the timetable. Used by the training-data
// collector.
func (s *Store) RandomLinkedCRSPairs(n int) ([][2]string, error) {
	random := "RANDOM()"
	if s.driver == "postgres" {
		random = "random()"
	}

	rows, err := s.db.Query(s.rebind(`
SELECT f.crs_code, t.crs_code
FROM timetable_link link
JOIN tiploc f ON f.tiploc_code = link.from_location
JOIN tiploc t ON t.tiploc_code = link.to_location
WHERE f.crs_code != '' AND t.crs_code != ''
ORDER BY `+random+`
LIMIT ?`), n)
	if err != nil {
		return nil, fmt.Errorf("sampling linked pairs: %w", err)
	}
	defer rows.Close()

	pairs := [][2]string{}
	for rows.Next() {
		var from, to string
		if err := rows.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("scanning pair: %w", err)
		}
		pairs = append(pairs, [2]string{from, to})
	}
	return pairs, rows.Err()
}
