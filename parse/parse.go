// Package parse turns raw feed files into model records. The fares
// and timetable feeds are fixed-width ASCII with positional columns;
// the knowledge base feeds are XML.
package parse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spkg/bom"

	"railplan.dev/railplan/model"
)

// A Writer receives parsed records. Put may block on backpressure and
// returns an error when the ingest is shutting down.
type Writer interface {
	Put(model.Record) error
}

// DTDFile dispatches a fares or timetable file to the parser selected
// by its 3-letter suffix. Returns false when the suffix is not one we
// load.
func DTDFile(name string, r io.Reader, asOf time.Time, out Writer) (bool, error) {
	var err error
	switch {
	case strings.HasSuffix(name, "LOC"):
		err = LOC(r, asOf, out)
	case strings.HasSuffix(name, "FFL"):
		err = FFL(r, asOf, out)
	case strings.HasSuffix(name, "FSC"):
		err = FSC(r, asOf, out)
	case strings.HasSuffix(name, "TTY"):
		err = TTY(r, asOf, out)
	case strings.HasSuffix(name, "MCA"):
		err = MCA(r, out)
	default:
		return false, nil
	}
	if err != nil {
		return true, errors.Wrapf(err, "parsing %s", name)
	}
	return true, nil
}

// eachLine scans r line by line, stripping any BOM, and calls fn with
// 1-based line numbers for error context.
func eachLine(r io.Reader, fn func(lineno int, line string) error) error {
	scanner := bufio.NewScanner(bom.NewReader(r))
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)

	lineno := 0
	for scanner.Scan() {
		lineno++
		if err := fn(lineno, scanner.Text()); err != nil {
			return errors.Wrapf(err, "line %d", lineno)
		}
	}
	return scanner.Err()
}

// parseTime reads a positional HHMM field. All-blank components mean
// zero. Returns hour*100+minute.
func parseTime(s string) (int, error) {
	if len(s) < 4 {
		return 0, errors.Errorf("short time field %q", s)
	}
	hour, minute := 0, 0
	var err error
	if s[:2] != "  " {
		hour, err = strconv.Atoi(s[:2])
		if err != nil {
			return 0, errors.Wrapf(err, "hour in %q", s)
		}
	}
	if s[2:4] != "  " {
		minute, err = strconv.Atoi(s[2:4])
		if err != nil {
			return 0, errors.Wrapf(err, "minute in %q", s)
		}
	}
	return model.TimeToSQL(hour, minute), nil
}

// parseDateYYMMDD reads a 6-digit timetable date. Years are relative
// to 2000.
func parseDateYYMMDD(s string) (int, error) {
	if len(s) < 6 {
		return 0, errors.Errorf("short date field %q", s)
	}
	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, errors.Wrapf(err, "year in %q", s)
	}
	month, err := strconv.Atoi(s[2:4])
	if err != nil {
		return 0, errors.Wrapf(err, "month in %q", s)
	}
	day, err := strconv.Atoi(s[4:6])
	if err != nil {
		return 0, errors.Wrapf(err, "day in %q", s)
	}
	return (2000+year)*10000 + month*100 + day, nil
}

// parseDateDDMMYYYY reads an 8-digit fares date. Years of 2999 or
// later collapse to the open-ended sentinel.
func parseDateDDMMYYYY(s string) (int, error) {
	if len(s) < 8 {
		return 0, errors.Errorf("short date field %q", s)
	}
	day, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, errors.Wrapf(err, "day in %q", s)
	}
	month, err := strconv.Atoi(s[2:4])
	if err != nil {
		return 0, errors.Wrapf(err, "month in %q", s)
	}
	year, err := strconv.Atoi(s[4:8])
	if err != nil {
		return 0, errors.Wrapf(err, "year in %q", s)
	}
	if year >= 2999 {
		return model.NoEndDate, nil
	}
	return year*10000 + month*100 + day, nil
}

// outsideWindow reports whether a validity window excludes the given
// day: the end date has passed or the start date has not arrived.
// Fares feeds carry advance price changes, so the start side matters.
func outsideWindow(startDate, endDate int, asOf time.Time) bool {
	today := model.DateToSQL(asOf)
	if endDate != model.NoEndDate && endDate < today {
		return true
	}
	return startDate > today
}
