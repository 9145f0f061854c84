package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportDrawsBar(t *testing.T) {
	buf := &bytes.Buffer{}
	tr := New(buf)

	tr.Report("fares", 24, 100)

	out := buf.String()
	assert.Contains(t, out, "fares [")
	assert.Contains(t, out, "] 25 / 100")
	assert.Contains(t, out, "=")
}

func TestReportTruncatesLongNames(t *testing.T) {
	buf := &bytes.Buffer{}
	tr := New(buf)

	tr.Report("a-very-long-feed-name-indeed", 0, 10)

	assert.Contains(t, buf.String(), "a-very-long-feed-...")
}

func TestCompletedBarIsRemoved(t *testing.T) {
	buf := &bytes.Buffer{}
	tr := New(buf)

	tr.Report("timetable", 0, 10)
	tr.Report("timetable", 10, 10)
	buf.Reset()

	tr.Report("fares", 0, 10)

	out := buf.String()
	assert.Contains(t, out, "fares")
	assert.NotContains(t, out, "timetable")
}

func TestQuickUpdateKeepsSingleFrame(t *testing.T) {
	buf := &bytes.Buffer{}
	tr := New(buf)

	tr.Report("fares", 0, 100)
	tr.Report("fares", 50, 100)

	// The second report redraws in place rather than printing a new
	// line per update.
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}
