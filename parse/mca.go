package parse

import (
	"io"
	"strings"

	"github.com/pkg/errors"

	"railplan.dev/railplan/model"
)

// mcaState assembles one train schedule at a time. A BS line opens a
// candidate, the following BX makes it usable, LO/LI lines emit stops
// as they arrive and LT emits the deferred header before closing the
// train. Any schedule line outside that sequence is ignored.
type mcaState struct {
	train      *model.TrainTimetable
	usable     bool
	routeIndex int
	seenUIDs   map[string]bool
}

func (s *mcaState) reset() {
	s.train = nil
	s.usable = false
	s.routeIndex = 0
}

// MCA parses a timetable schedule file. The file must be processed as
// a whole by a single caller; schedules span multiple lines.
func MCA(r io.Reader, out Writer) error {
	state := &mcaState{seenUIDs: map[string]bool{}}

	return eachLine(r, func(lineno int, line string) error {
		if len(line) < 2 {
			return nil
		}
		switch line[:2] {
		case "BS":
			return state.basicSchedule(line)
		case "BX":
			return state.extraDetails(line)
		case "LO":
			return state.origin(line, out)
		case "LI":
			return state.intermediate(line, out)
		case "LT":
			return state.terminating(line, out)
		case "TI":
			return tiplocInsert(line, out)
		}
		return nil
	})
}

func (s *mcaState) basicSchedule(line string) error {
	// A new schedule always abandons any half-assembled one.
	s.reset()

	if len(line) < 29 {
		return errors.Errorf("short BS record (%d chars)", len(line))
	}

	trainUID := line[3:9]
	if s.seenUIDs[trainUID] {
		return nil
	}
	s.seenUIDs[trainUID] = true

	from, err := parseDateYYMMDD(line[9:15])
	if err != nil {
		return err
	}
	to, err := parseDateYYMMDD(line[15:21])
	if err != nil {
		return err
	}

	s.train = &model.TrainTimetable{
		TrainUID:           trainUID,
		DateRunsFrom:       from,
		DateRunsTo:         to,
		DaysRun:            line[21:28],
		BankHolidayRunning: line[28] == 'Y',
	}
	return nil
}

func (s *mcaState) extraDetails(line string) error {
	if s.train == nil {
		return nil
	}
	if len(line) < 22 {
		return errors.Errorf("short BX record (%d chars)", len(line))
	}
	s.train.TOC = strings.TrimSpace(line[11:13])
	s.train.RSID = strings.TrimSpace(line[14:22])
	s.usable = true
	return nil
}

func (s *mcaState) origin(line string, out Writer) error {
	if !s.usable {
		return nil
	}
	if len(line) < 43 {
		return errors.Errorf("short LO record (%d chars)", len(line))
	}

	departure, err := parseTime(line[10:15])
	if err != nil {
		return err
	}
	publicDeparture, err := parseTime(line[15:19])
	if err != nil {
		return err
	}

	s.routeIndex = 1
	return out.Put(model.TimetableLocation{
		TrainUID:             s.train.TrainUID,
		TrainRouteIndex:      0,
		LocationType:         model.LocationOrigin,
		Location:             strings.TrimSpace(line[2:10]),
		ScheduledDeparture:   departure,
		PublicDeparture:      publicDeparture,
		Platform:             strings.TrimSpace(line[19:22]),
		Line:                 strings.TrimSpace(line[22:25]),
		EngineeringAllowance: strings.TrimSpace(line[25:27]),
		PathingAllowance:     strings.TrimSpace(line[27:29]),
		Activity:             strings.TrimSpace(line[39:41]),
		PerformanceAllowance: strings.TrimSpace(line[41:43]),
	})
}

func (s *mcaState) intermediate(line string, out Writer) error {
	if !s.usable || s.routeIndex == 0 {
		return nil
	}
	if len(line) < 60 {
		return errors.Errorf("short LI record (%d chars)", len(line))
	}

	// A non-blank pass time means the train runs through without
	// stopping; such locations take no passengers and are dropped.
	if strings.TrimSpace(line[20:25]) != "" {
		return nil
	}

	arrival, err := parseTime(line[10:15])
	if err != nil {
		return err
	}
	departure, err := parseTime(line[15:20])
	if err != nil {
		return err
	}
	publicArrival, err := parseTime(line[25:29])
	if err != nil {
		return err
	}
	publicDeparture, err := parseTime(line[29:33])
	if err != nil {
		return err
	}

	index := s.routeIndex
	s.routeIndex++
	return out.Put(model.TimetableLocation{
		TrainUID:             s.train.TrainUID,
		TrainRouteIndex:      index,
		LocationType:         model.LocationIntermediate,
		Location:             strings.TrimSpace(line[2:10]),
		ScheduledArrival:     arrival,
		ScheduledDeparture:   departure,
		PublicArrival:        publicArrival,
		PublicDeparture:      publicDeparture,
		Platform:             strings.TrimSpace(line[33:36]),
		Line:                 strings.TrimSpace(line[36:39]),
		Path:                 strings.TrimSpace(line[39:42]),
		Activity:             strings.TrimSpace(line[42:54]),
		EngineeringAllowance: strings.TrimSpace(line[54:56]),
		PathingAllowance:     strings.TrimSpace(line[56:58]),
		PerformanceAllowance: strings.TrimSpace(line[58:60]),
	})
}

func (s *mcaState) terminating(line string, out Writer) error {
	if !s.usable || s.routeIndex == 0 {
		return nil
	}
	if len(line) < 37 {
		return errors.Errorf("short LT record (%d chars)", len(line))
	}

	arrival, err := parseTime(line[10:15])
	if err != nil {
		return err
	}
	publicArrival, err := parseTime(line[15:19])
	if err != nil {
		return err
	}

	// The header is held back until the schedule completes, so
	// truncated schedules never produce a queryable train.
	if err := out.Put(*s.train); err != nil {
		return err
	}
	err = out.Put(model.TimetableLocation{
		TrainUID:         s.train.TrainUID,
		TrainRouteIndex:  s.routeIndex,
		LocationType:     model.LocationTerminating,
		Location:         strings.TrimSpace(line[2:10]),
		ScheduledArrival: arrival,
		PublicArrival:    publicArrival,
		Platform:         strings.TrimSpace(line[19:22]),
		Path:             strings.TrimSpace(line[22:25]),
		Activity:         strings.TrimSpace(line[25:37]),
	})
	s.reset()
	return err
}

func tiplocInsert(line string, out Writer) error {
	if len(line) < 72 {
		return errors.Errorf("short TI record (%d chars)", len(line))
	}
	return out.Put(model.TIPLOC{
		Tiploc:      strings.TrimSpace(line[2:9]),
		CRS:         line[53:56],
		Description: strings.TrimSpace(line[56:72]),
	})
}
