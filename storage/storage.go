package storage

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"railplan.dev/railplan/model"
)

// Store wraps the relational database holding all feed data.
//
// Writes (BulkInsert, Wipe, SetExpiryTime, PrecomputeLinks) must all
// happen on a single goroutine. Reads may run concurrently; the
// SQLite backend is opened in WAL mode to allow this.
type Store struct {
	db      *sql.DB
	driver  string
	writeTx *sql.Tx
}

type tableSpec struct {
	name    string
	columns []string
	create  string
}

var tables = []tableSpec{
	{
		name:    "location_record",
		columns: []string{"uic_code", "ncl_code", "crs_code"},
		create: `
CREATE TABLE IF NOT EXISTS location_record (
    uic_code TEXT,
    ncl_code TEXT,
    crs_code TEXT
);
CREATE INDEX IF NOT EXISTS location_record_crs ON location_record (crs_code);
CREATE INDEX IF NOT EXISTS location_record_ncl ON location_record (ncl_code);`,
	},
	{
		name:    "station_cluster",
		columns: []string{"cluster_id", "location_nlc"},
		create: `
CREATE TABLE IF NOT EXISTS station_cluster (
    cluster_id TEXT,
    location_nlc TEXT
);
CREATE INDEX IF NOT EXISTS station_cluster_nlc ON station_cluster (location_nlc);`,
	},
	{
		name: "flow_record",
		columns: []string{
			"flow_id", "origin_code", "destination_code",
			"direction", "toc", "valid_from", "valid_until",
		},
		create: `
CREATE TABLE IF NOT EXISTS flow_record (
    flow_id TEXT,
    origin_code TEXT,
    destination_code TEXT,
    direction TEXT,
    toc TEXT,
    valid_from INTEGER,
    valid_until INTEGER
);
CREATE INDEX IF NOT EXISTS flow_record_flow_id ON flow_record (flow_id);
CREATE INDEX IF NOT EXISTS flow_record_origin ON flow_record (origin_code);
CREATE INDEX IF NOT EXISTS flow_record_destination ON flow_record (destination_code);`,
	},
	{
		name:    "fare_record",
		columns: []string{"flow_id", "ticket_code", "fare"},
		create: `
CREATE TABLE IF NOT EXISTS fare_record (
    flow_id TEXT,
    ticket_code TEXT,
    fare INTEGER
);
CREATE INDEX IF NOT EXISTS fare_record_flow_id ON fare_record (flow_id);`,
	},
	{
		name: "ticket_type",
		columns: []string{
			"ticket_code", "description", "tkt_class", "tkt_type", "tkt_group",
			"max_passengers", "min_passengers", "max_adults", "min_adults",
			"max_children", "min_children",
			"restricted_by_date", "restricted_by_train", "restricted_by_area",
			"validity_code", "reservation_required", "capri_code", "uts_code",
			"time_restriction", "free_pass_lul", "package_mkr",
			"fare_multiplier", "discount_category",
		},
		create: `
CREATE TABLE IF NOT EXISTS ticket_type (
    ticket_code TEXT,
    description TEXT,
    tkt_class INTEGER,
    tkt_type TEXT,
    tkt_group TEXT,
    max_passengers INTEGER,
    min_passengers INTEGER,
    max_adults INTEGER,
    min_adults INTEGER,
    max_children INTEGER,
    min_children INTEGER,
    restricted_by_date BOOLEAN,
    restricted_by_train BOOLEAN,
    restricted_by_area BOOLEAN,
    validity_code TEXT,
    reservation_required TEXT,
    capri_code TEXT,
    uts_code TEXT,
    time_restriction INTEGER,
    free_pass_lul BOOLEAN,
    package_mkr TEXT,
    fare_multiplier INTEGER,
    discount_category TEXT
);
CREATE INDEX IF NOT EXISTS ticket_type_code ON ticket_type (ticket_code);`,
	},
	{
		name: "train_timetable",
		columns: []string{
			"train_uid", "date_runs_from", "date_runs_to", "days_run",
			"bank_holiday_running", "rsid", "toc",
		},
		create: `
CREATE TABLE IF NOT EXISTS train_timetable (
    train_uid TEXT,
    date_runs_from INTEGER,
    date_runs_to INTEGER,
    days_run TEXT,
    bank_holiday_running BOOLEAN,
    rsid TEXT,
    toc TEXT
);
CREATE INDEX IF NOT EXISTS train_timetable_uid ON train_timetable (train_uid);`,
	},
	{
		name: "timetable_location",
		columns: []string{
			"train_uid", "train_route_index", "location_type", "location",
			"scheduled_arrival_time", "scheduled_departure_time",
			"public_arrival", "public_departure",
			"platform", "line", "path", "activity",
			"engineering_allowance", "pathing_allowance", "performance_allowance",
		},
		create: `
CREATE TABLE IF NOT EXISTS timetable_location (
    train_uid TEXT,
    train_route_index INTEGER,
    location_type TEXT,
    location TEXT,
    scheduled_arrival_time INTEGER,
    scheduled_departure_time INTEGER,
    public_arrival INTEGER,
    public_departure INTEGER,
    platform TEXT,
    line TEXT,
    path TEXT,
    activity TEXT,
    engineering_allowance TEXT,
    pathing_allowance TEXT,
    performance_allowance TEXT
);
CREATE INDEX IF NOT EXISTS timetable_location_uid ON timetable_location (train_uid);
CREATE INDEX IF NOT EXISTS timetable_location_location ON timetable_location (location);
CREATE INDEX IF NOT EXISTS timetable_location_route_index ON timetable_location (train_route_index);`,
	},
	{
		name:    "tiploc",
		columns: []string{"tiploc_code", "crs_code", "description"},
		create: `
CREATE TABLE IF NOT EXISTS tiploc (
    tiploc_code TEXT,
    crs_code TEXT,
    description TEXT
);
CREATE INDEX IF NOT EXISTS tiploc_code ON tiploc (tiploc_code);
CREATE INDEX IF NOT EXISTS tiploc_crs ON tiploc (crs_code);`,
	},
	{
		name:    "timetable_link",
		columns: []string{"from_location", "to_location"},
		create: `
CREATE TABLE IF NOT EXISTS timetable_link (
    from_location TEXT,
    to_location TEXT
);
CREATE INDEX IF NOT EXISTS timetable_link_from ON timetable_link (from_location);`,
	},
	{
		name: "incident",
		columns: []string{
			"incident_number", "creation_time", "planned",
			"summary", "description", "cleared", "routes_affected",
		},
		create: `
CREATE TABLE IF NOT EXISTS incident (
    incident_number TEXT,
    creation_time TEXT,
    planned BOOLEAN,
    summary TEXT,
    description TEXT,
    cleared BOOLEAN,
    routes_affected TEXT
);
CREATE INDEX IF NOT EXISTS incident_number ON incident (incident_number);`,
	},
	{
		name:    "incident_operator",
		columns: []string{"incident_number", "operator_toc", "operator_name"},
		create: `
CREATE TABLE IF NOT EXISTS incident_operator (
    incident_number TEXT,
    operator_toc TEXT,
    operator_name TEXT
);
CREATE INDEX IF NOT EXISTS incident_operator_toc ON incident_operator (operator_toc);`,
	},
	{
		name:    "station",
		columns: []string{"crs_code", "name"},
		create: `
CREATE TABLE IF NOT EXISTS station (
    crs_code TEXT,
    name TEXT
);
CREATE INDEX IF NOT EXISTS station_crs ON station (crs_code);`,
	},
}

const expiryTimesCreate = `
CREATE TABLE IF NOT EXISTS expiry_times (
    api_url TEXT PRIMARY KEY,
    expiry_timestamp INTEGER
);`

// OpenSQLite opens (and creates, if absent) the SQLite database at
// path. On fresh creation the WAL pragmas are applied.
func OpenSQLite(path string) (*Store, error) {
	isNew := false
	if path != ":memory:" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			isNew = true
		}
	} else {
		isNew = true
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if isNew {
		_, err = db.Exec(`
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA cache_size = 100000;`)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragmas: %w", err)
		}
	}

	s := &Store{db: db, driver: "sqlite3"}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres opens a Store backed by Postgres. The schema is shared
// with the SQLite backend; queries are rebound to $n placeholders.
func OpenPostgres(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{db: db, driver: "postgres"}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createSchema() error {
	for _, table := range tables {
		if _, err := s.db.Exec(table.create); err != nil {
			return fmt.Errorf("creating %s table: %w", table.name, err)
		}
	}
	if _, err := s.db.Exec(expiryTimesCreate); err != nil {
		return fmt.Errorf("creating expiry_times table: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.writeTx != nil {
		s.writeTx.Rollback()
		s.writeTx = nil
	}
	return s.db.Close()
}

// rebind translates ? placeholders to the backend's native form.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "?"
	}
	return strings.Join(ps, ", ")
}

func (s *Store) tx() (*sql.Tx, error) {
	if s.writeTx == nil {
		tx, err := s.db.Begin()
		if err != nil {
			return nil, fmt.Errorf("beginning transaction: %w", err)
		}
		s.writeTx = tx
	}
	return s.writeTx, nil
}

// BulkInsert writes every record in the set inside the current write
// transaction, one prepared statement per table. The rows are not
// visible to readers until Commit.
func (s *Store) BulkInsert(records model.RecordSet) error {
	tx, err := s.tx()
	if err != nil {
		return err
	}

	for _, table := range tables {
		rows := records[table.name]
		if len(rows) == 0 {
			continue
		}

		query := s.rebind(fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)",
			table.name,
			strings.Join(table.columns, ", "),
			placeholders(len(table.columns)),
		))
		stmt, err := tx.Prepare(query)
		if err != nil {
			return fmt.Errorf("preparing %s insert: %w", table.name, err)
		}
		for _, row := range rows {
			if _, err := stmt.Exec(row.Values()...); err != nil {
				stmt.Close()
				return fmt.Errorf("inserting into %s: %w", table.name, err)
			}
		}
		stmt.Close()
	}

	return nil
}

// Commit flushes the active write transaction, if any.
func (s *Store) Commit() error {
	if s.writeTx == nil {
		return nil
	}
	err := s.writeTx.Commit()
	s.writeTx = nil
	if err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// Wipe deletes all rows from the given tables.
func (s *Store) Wipe(tableNames ...string) error {
	tx, err := s.tx()
	if err != nil {
		return err
	}
	for _, name := range tableNames {
		if _, err := tx.Exec("DELETE FROM " + name); err != nil {
			return fmt.Errorf("wiping %s: %w", name, err)
		}
	}
	return nil
}

// ExpiryTime returns the recorded expiry timestamp for a feed URL.
// ok is false when no entry exists.
func (s *Store) ExpiryTime(apiURL string) (expiry int64, ok bool, err error) {
	row := s.db.QueryRow(s.rebind(`
SELECT expiry_timestamp FROM expiry_times WHERE api_url = ?`), apiURL)
	err = row.Scan(&expiry)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying expiry time: %w", err)
	}
	return expiry, true, nil
}

// SetExpiryTime records the expiry timestamp for a feed URL,
// replacing any previous entry.
func (s *Store) SetExpiryTime(apiURL string, expiry int64) error {
	tx, err := s.tx()
	if err != nil {
		return err
	}
	_, err = tx.Exec(s.rebind(`
INSERT INTO expiry_times (api_url, expiry_timestamp)
VALUES (?, ?)
ON CONFLICT (api_url) DO UPDATE SET
    expiry_timestamp = excluded.expiry_timestamp`), apiURL, expiry)
	if err != nil {
		return fmt.Errorf("setting expiry time: %w", err)
	}
	return nil
}

// PrecomputeLinks rebuilds timetable_link from consecutive
// timetable_location rows. An (a, b) link exists iff some service
// visits a immediately before b.
func (s *Store) PrecomputeLinks() error {
	tx, err := s.tx()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM timetable_link"); err != nil {
		return fmt.Errorf("clearing timetable_link: %w", err)
	}
	_, err = tx.Exec(`
INSERT INTO timetable_link (from_location, to_location)
SELECT DISTINCT a.location, b.location
FROM timetable_location a
JOIN timetable_location b
  ON a.train_uid = b.train_uid
 AND b.train_route_index = a.train_route_index + 1`)
	if err != nil {
		return fmt.Errorf("precomputing links: %w", err)
	}
	return nil
}

// TableCount returns the number of rows in a table. Only used by
// tests and the CLI status output.
func (s *Store) TableCount(name string) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM " + name).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", name, err)
	}
	return count, nil
}

// DumpTable renders every row of a table as a tab-joined string,
// ordered by all columns. Only used by tests comparing table contents
// across ingests.
func (s *Store) DumpTable(name string) ([]string, error) {
	var columns []string
	for _, table := range tables {
		if table.name == name {
			columns = table.columns
			break
		}
	}
	if columns == nil {
		return nil, fmt.Errorf("unknown table %s", name)
	}

	columnList := strings.Join(columns, ", ")
	rows, err := s.db.Query(fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY %s", columnList, name, columnList))
	if err != nil {
		return nil, fmt.Errorf("dumping %s: %w", name, err)
	}
	defer rows.Close()

	dump := []string{}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", name, err)
		}

		fields := make([]string, len(values))
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			fields[i] = fmt.Sprintf("%v", v)
		}
		dump = append(dump, strings.Join(fields, "\t"))
	}
	return dump, rows.Err()
}
