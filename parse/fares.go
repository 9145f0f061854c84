package parse

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"railplan.dev/railplan/model"
)

// Parsers for the fares feed's fixed-width files: LOC (locations),
// FFL (flows and fares), FSC (station clusters) and TTY (ticket
// types). Offsets follow the RJFA file layouts. Records whose
// validity window excludes the ingest day, whether already closed or
// not yet open, are dropped at parse time.

// LOC parses RL location records. Locations with no CRS are of no use
// to the journey planner and are skipped.
func LOC(r io.Reader, asOf time.Time, out Writer) error {
	return eachLine(r, func(lineno int, line string) error {
		if !strings.HasPrefix(line, "RL") {
			return nil
		}
		if len(line) < 59 {
			return errors.Errorf("short RL record (%d chars)", len(line))
		}

		endDate, err := parseDateDDMMYYYY(line[9:17])
		if err != nil {
			return err
		}
		startDate, err := parseDateDDMMYYYY(line[17:25])
		if err != nil {
			return err
		}
		if outsideWindow(startDate, endDate, asOf) {
			return nil
		}

		crs := strings.TrimSpace(line[56:59])
		if crs == "" {
			return nil
		}

		return out.Put(model.LocationRecord{
			UIC: line[2:9],
			NLC: line[36:40],
			CRS: crs,
		})
	})
}

// FFL parses flow (RF) and fare (RT) records. Fares reference their
// flow by id only, so the ids of flows outside their validity window
// are tracked in parser state and their fares dropped alongside them.
func FFL(r io.Reader, asOf time.Time, out Writer) error {
	droppedFlows := map[string]bool{}

	return eachLine(r, func(lineno int, line string) error {
		switch {
		case strings.HasPrefix(line, "RF"):
			if len(line) < 49 {
				return errors.Errorf("short RF record (%d chars)", len(line))
			}

			flowID := line[42:49]
			endDate, err := parseDateDDMMYYYY(line[20:28])
			if err != nil {
				return err
			}
			startDate, err := parseDateDDMMYYYY(line[28:36])
			if err != nil {
				return err
			}
			if outsideWindow(startDate, endDate, asOf) {
				droppedFlows[flowID] = true
				return nil
			}

			return out.Put(model.FlowRecord{
				FlowID:         flowID,
				OriginNLC:      line[2:6],
				DestinationNLC: line[6:10],
				Direction:      line[19:20],
				TOC:            line[36:39],
				ValidFrom:      startDate,
				ValidUntil:     endDate,
			})

		case strings.HasPrefix(line, "RT"):
			if len(line) < 20 {
				return errors.Errorf("short RT record (%d chars)", len(line))
			}

			flowID := line[2:9]
			if droppedFlows[flowID] {
				return nil
			}
			fare, err := strconv.Atoi(strings.TrimSpace(line[12:20]))
			if err != nil {
				return errors.Wrapf(err, "fare for flow %s", flowID)
			}

			return out.Put(model.FareRecord{
				FlowID:     flowID,
				TicketCode: line[9:12],
				Fare:       fare,
			})
		}
		return nil
	})
}

// FSC parses station cluster records.
func FSC(r io.Reader, asOf time.Time, out Writer) error {
	return eachLine(r, func(lineno int, line string) error {
		if !strings.HasPrefix(line, "R") {
			return nil
		}
		if len(line) < 25 {
			return errors.Errorf("short cluster record (%d chars)", len(line))
		}

		endDate, err := parseDateDDMMYYYY(line[9:17])
		if err != nil {
			return err
		}
		startDate, err := parseDateDDMMYYYY(line[17:25])
		if err != nil {
			return err
		}
		if outsideWindow(startDate, endDate, asOf) {
			return nil
		}

		return out.Put(model.StationCluster{
			ClusterID:   line[1:5],
			LocationNLC: line[5:9],
		})
	})
}

// TTY parses ticket type records.
func TTY(r io.Reader, asOf time.Time, out Writer) error {
	return eachLine(r, func(lineno int, line string) error {
		if !strings.HasPrefix(line, "R") {
			return nil
		}
		if len(line) < 113 {
			return errors.Errorf("short ticket type record (%d chars)", len(line))
		}

		endDate, err := parseDateDDMMYYYY(line[4:12])
		if err != nil {
			return err
		}
		startDate, err := parseDateDDMMYYYY(line[12:20])
		if err != nil {
			return err
		}
		if outsideWindow(startDate, endDate, asOf) {
			return nil
		}

		ticket := model.TicketType{
			TicketCode:        line[1:4],
			Description:       strings.TrimSpace(line[28:43]),
			TktType:           line[44:45],
			TktGroup:          line[45:46],
			RestrictedByDate:  line[72] == 'Y',
			RestrictedByTrain: line[73] == 'Y',
			RestrictedByArea:  line[74] == 'Y',
			ValidityCode:      line[75:77],
			Reservation:       line[98:99],
			CapriCode:         line[99:102],
			UTSCode:           line[103:105],
			FreePassLUL:       line[106] == 'Y',
			PackageMkr:        line[107:108],
			DiscountCategory:  line[111:113],
		}

		for _, f := range []struct {
			name string
			text string
			dest *int
		}{
			{"tkt_class", line[43:44], &ticket.TktClass},
			{"max_passengers", line[54:57], &ticket.MaxPassengers},
			{"min_passengers", line[57:60], &ticket.MinPassengers},
			{"max_adults", line[60:63], &ticket.MaxAdults},
			{"min_adults", line[63:66], &ticket.MinAdults},
			{"max_children", line[66:69], &ticket.MaxChildren},
			{"min_children", line[69:72], &ticket.MinChildren},
			{"time_restriction", line[105:106], &ticket.TimeRestriction},
			{"fare_multiplier", line[108:111], &ticket.FareMultiplier},
		} {
			n, err := strconv.Atoi(strings.TrimSpace(f.text))
			if err != nil {
				return errors.Wrapf(err, "%s for ticket %s", f.name, ticket.TicketCode)
			}
			*f.dest = n
		}

		return out.Put(ticket)
	})
}
