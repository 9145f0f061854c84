package model

import (
	"time"
)

// Holds the row types shared between the feed parsers, the storage
// layer and the routing engine.

// A Record is a single row destined for a storage table. Values must
// match the column order declared for the table in the storage
// package.
type Record interface {
	Table() string
	Values() []interface{}
}

// A RecordSet groups parsed rows by table name. It is the unit of
// transfer between parsers and the SQL writer.
type RecordSet map[string][]Record

// Add appends a record to the set.
func (rs RecordSet) Add(r Record) {
	rs[r.Table()] = append(rs[r.Table()], r)
}

// Merge moves all records from other into rs.
func (rs RecordSet) Merge(other RecordSet) {
	for table, records := range other {
		rs[table] = append(rs[table], records...)
	}
}

// Len returns the total number of records across all tables.
func (rs RecordSet) Len() int {
	n := 0
	for _, records := range rs {
		n += len(records)
	}
	return n
}

// Times are stored as hour*100+minute and dates as
// year*10000+month*100+day. Both stay integers so validity-window
// filters remain integer range comparisons in SQL.

func TimeToSQL(hour, minute int) int {
	return hour*100 + minute
}

func TimeFromSQL(t int) (hour, minute int) {
	return t / 100, t % 100
}

func DateToSQL(date time.Time) int {
	return date.Year()*10000 + int(date.Month())*100 + date.Day()
}

func DateFromSQL(d int) time.Time {
	return time.Date(d/10000, time.Month((d/100)%100), d%100, 0, 0, 0, 0, time.UTC)
}

// NoEndDate marks validity windows with no end. Feed files encode
// this as a year of 2999 or later.
const NoEndDate = 29991231

type LocationRecord struct {
	UIC string
	NLC string
	CRS string
}

func (LocationRecord) Table() string { return "location_record" }

func (r LocationRecord) Values() []interface{} {
	return []interface{}{r.UIC, r.NLC, r.CRS}
}

type StationCluster struct {
	ClusterID   string
	LocationNLC string
}

func (StationCluster) Table() string { return "station_cluster" }

func (r StationCluster) Values() []interface{} {
	return []interface{}{r.ClusterID, r.LocationNLC}
}

type FlowRecord struct {
	FlowID         string
	OriginNLC      string
	DestinationNLC string
	Direction      string // S or R
	TOC            string
	ValidFrom      int
	ValidUntil     int
}

func (FlowRecord) Table() string { return "flow_record" }

func (r FlowRecord) Values() []interface{} {
	return []interface{}{
		r.FlowID, r.OriginNLC, r.DestinationNLC,
		r.Direction, r.TOC, r.ValidFrom, r.ValidUntil,
	}
}

type FareRecord struct {
	FlowID     string
	TicketCode string
	Fare       int // pence
}

func (FareRecord) Table() string { return "fare_record" }

func (r FareRecord) Values() []interface{} {
	return []interface{}{r.FlowID, r.TicketCode, r.Fare}
}

type TicketType struct {
	TicketCode        string
	Description       string
	TktClass          int
	TktType           string // S single, R return
	TktGroup          string
	MaxPassengers     int
	MinPassengers     int
	MaxAdults         int
	MinAdults         int
	MaxChildren       int
	MinChildren       int
	RestrictedByDate  bool
	RestrictedByTrain bool
	RestrictedByArea  bool
	ValidityCode      string
	Reservation       string
	CapriCode         string
	UTSCode           string
	TimeRestriction   int
	FreePassLUL       bool
	PackageMkr        string
	FareMultiplier    int
	DiscountCategory  string
}

func (TicketType) Table() string { return "ticket_type" }

func (r TicketType) Values() []interface{} {
	return []interface{}{
		r.TicketCode, r.Description, r.TktClass, r.TktType, r.TktGroup,
		r.MaxPassengers, r.MinPassengers, r.MaxAdults, r.MinAdults,
		r.MaxChildren, r.MinChildren,
		r.RestrictedByDate, r.RestrictedByTrain, r.RestrictedByArea,
		r.ValidityCode, r.Reservation, r.CapriCode, r.UTSCode,
		r.TimeRestriction, r.FreePassLUL, r.PackageMkr,
		r.FareMultiplier, r.DiscountCategory,
	}
}

type TrainTimetable struct {
	TrainUID           string
	DateRunsFrom       int
	DateRunsTo         int
	DaysRun            string // 7 chars, Monday first
	BankHolidayRunning bool
	RSID               string
	TOC                string
}

func (TrainTimetable) Table() string { return "train_timetable" }

func (r TrainTimetable) Values() []interface{} {
	return []interface{}{
		r.TrainUID, r.DateRunsFrom, r.DateRunsTo, r.DaysRun,
		r.BankHolidayRunning, r.RSID, r.TOC,
	}
}

type LocationType string

const (
	LocationOrigin       LocationType = "Origin"
	LocationIntermediate LocationType = "Intermediate"
	LocationTerminating  LocationType = "Terminating"
)

type TimetableLocation struct {
	TrainUID             string
	TrainRouteIndex      int
	LocationType         LocationType
	Location             string // TIPLOC
	ScheduledArrival     int
	ScheduledDeparture   int
	PublicArrival        int
	PublicDeparture      int
	Platform             string
	Line                 string
	Path                 string
	Activity             string
	EngineeringAllowance string
	PathingAllowance     string
	PerformanceAllowance string
}

func (TimetableLocation) Table() string { return "timetable_location" }

func (r TimetableLocation) Values() []interface{} {
	return []interface{}{
		r.TrainUID, r.TrainRouteIndex, string(r.LocationType), r.Location,
		r.ScheduledArrival, r.ScheduledDeparture,
		r.PublicArrival, r.PublicDeparture,
		r.Platform, r.Line, r.Path, r.Activity,
		r.EngineeringAllowance, r.PathingAllowance, r.PerformanceAllowance,
	}
}

// A TrainStop is a TimetableLocation joined with the operator of its
// service. This is what the journey assembler works with.
type TrainStop struct {
	TimetableLocation
	TOC string
}

type TIPLOC struct {
	Tiploc      string
	CRS         string
	Description string
}

func (TIPLOC) Table() string { return "tiploc" }

func (r TIPLOC) Values() []interface{} {
	return []interface{}{r.Tiploc, r.CRS, r.Description}
}

type TimetableLink struct {
	FromLocation string
	ToLocation   string
}

func (TimetableLink) Table() string { return "timetable_link" }

func (r TimetableLink) Values() []interface{} {
	return []interface{}{r.FromLocation, r.ToLocation}
}

type Incident struct {
	Number         string
	CreationTime   string
	Planned        bool
	Summary        string
	Description    string
	Cleared        bool
	RoutesAffected string
}

func (Incident) Table() string { return "incident" }

func (r Incident) Values() []interface{} {
	return []interface{}{
		r.Number, r.CreationTime, r.Planned, r.Summary,
		r.Description, r.Cleared, r.RoutesAffected,
	}
}

type IncidentOperator struct {
	IncidentNumber string
	TOC            string
	OperatorName   string
}

func (IncidentOperator) Table() string { return "incident_operator" }

func (r IncidentOperator) Values() []interface{} {
	return []interface{}{r.IncidentNumber, r.TOC, r.OperatorName}
}

type Station struct {
	CRS  string
	Name string
}

func (Station) Table() string { return "station" }

func (r Station) Values() []interface{} {
	return []interface{}{r.CRS, r.Name}
}
