package parse

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railplan.dev/railplan/model"
)

type collector struct {
	records []model.Record
}

func (c *collector) Put(r model.Record) error {
	c.records = append(c.records, r)
	return nil
}

func (c *collector) table(name string) []model.Record {
	matched := []model.Record{}
	for _, r := range c.records {
		if r.Table() == name {
			matched = append(matched, r)
		}
	}
	return matched
}

var asOf = time.Date(2022, 1, 4, 0, 0, 0, 0, time.UTC)

func rlLine(uic, nlc, crs, from, until string) string {
	return "RL" + uic + until + from +
		strings.Repeat(" ", 11) + nlc + strings.Repeat(" ", 16) + crs
}

func rfLine(origin, dest, direction, toc, flowID, from, until string) string {
	return "RF" + origin + dest + "     " + "   " + " " + direction +
		until + from + toc + "   " + flowID
}

func rtLine(flowID, ticket, fare string) string {
	return "RT" + flowID + ticket + fare
}

func TestParseLOC(t *testing.T) {
	for _, tc := range []struct {
		name  string
		lines []string
		want  []model.Record
	}{
		{
			"valid record",
			[]string{rlLine("7054430", "0443", "BTN", "01012020", "31122999")},
			[]model.Record{model.LocationRecord{UIC: "7054430", NLC: "0443", CRS: "BTN"}},
		},
		{
			"expired window skipped",
			[]string{rlLine("7054430", "0443", "BTN", "01012020", "31122021")},
			[]model.Record{},
		},
		{
			"future window skipped",
			[]string{rlLine("7054430", "0443", "BTN", "01012030", "31122030")},
			[]model.Record{},
		},
		{
			"blank crs skipped",
			[]string{rlLine("7054430", "0443", "   ", "01012020", "31122999")},
			[]model.Record{},
		},
		{
			"non-RL lines ignored",
			[]string{"/!! Start of file", "RV" + strings.Repeat(" ", 57)},
			[]model.Record{},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := &collector{}
			err := LOC(strings.NewReader(strings.Join(tc.lines, "\n")), asOf, out)
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.want, out.records)
		})
	}
}

func TestParseFFL(t *testing.T) {
	out := &collector{}
	input := strings.Join([]string{
		rfLine("0443", "0446", "S", "SN ", "0012345", "01012020", "31122999"),
		rfLine("0443", "0449", "S", "SN ", "0012346", "01012020", "31122021"),
		rtLine("0012345", "SDS", "00001230"),
		rtLine("0012346", "SDS", "00009990"),
	}, "\n")

	err := FFL(strings.NewReader(input), asOf, out)
	require.NoError(t, err)

	flows := out.table("flow_record")
	require.Len(t, flows, 1)
	assert.Equal(t, model.FlowRecord{
		FlowID:         "0012345",
		OriginNLC:      "0443",
		DestinationNLC: "0446",
		Direction:      "S",
		TOC:            "SN ",
		ValidFrom:      20200101,
		ValidUntil:     model.NoEndDate,
	}, flows[0])

	// The fare referencing the expired flow is dropped with it.
	fares := out.table("fare_record")
	require.Len(t, fares, 1)
	assert.Equal(t, model.FareRecord{
		FlowID:     "0012345",
		TicketCode: "SDS",
		Fare:       1230,
	}, fares[0])
}

// Fares feeds carry advance price changes: a flow whose validity
// opens in the future must not surface as purchasable today, and its
// fares go with it.
func TestParseFFLFutureStart(t *testing.T) {
	out := &collector{}
	input := strings.Join([]string{
		rfLine("0443", "0446", "S", "SN ", "0012345", "01012030", "31122030"),
		rtLine("0012345", "SDS", "00001230"),
	}, "\n")

	err := FFL(strings.NewReader(input), asOf, out)
	require.NoError(t, err)
	assert.Empty(t, out.records)
}

func TestParseFSC(t *testing.T) {
	out := &collector{}
	input := strings.Join([]string{
		"RA1230443" + "31122999" + "01012020",
		"RA1230449" + "31122021" + "01012020",
		"RA1230450" + "31122030" + "01012030",
	}, "\n")

	err := FSC(strings.NewReader(input), asOf, out)
	require.NoError(t, err)

	require.Len(t, out.records, 1)
	assert.Equal(t, model.StationCluster{
		ClusterID:   "A123",
		LocationNLC: "0443",
	}, out.records[0])
}

func ttyLine(code, from, until, desc, class, tktType, group string) string {
	return "R" + code + until + from + "01012020" +
		desc + class + tktType + group +
		strings.Repeat(" ", 8) +
		"001" + "001" + "001" + "000" + "001" + "000" +
		"Y" + "N" + "N" + "1A" +
		strings.Repeat(" ", 21) +
		"N" + "   " + " " + "00" + "0" + "N" + "N" + "001" + "01"
}

func TestParseTTY(t *testing.T) {
	out := &collector{}
	input := strings.Join([]string{
		ttyLine("SDS", "01012020", "31122999", "SUPER OFF-PEAK ", "2", "S", "S"),
		ttyLine("OLD", "01012020", "31122021", "WITHDRAWN      ", "2", "S", "S"),
		ttyLine("NEW", "01012030", "31122030", "NOT YET ON SALE", "2", "S", "S"),
	}, "\n")

	err := TTY(strings.NewReader(input), asOf, out)
	require.NoError(t, err)

	require.Len(t, out.records, 1)
	ticket, ok := out.records[0].(model.TicketType)
	require.True(t, ok)
	assert.Equal(t, "SDS", ticket.TicketCode)
	assert.Equal(t, "SUPER OFF-PEAK", ticket.Description)
	assert.Equal(t, 2, ticket.TktClass)
	assert.Equal(t, "S", ticket.TktType)
	assert.Equal(t, "S", ticket.TktGroup)
	assert.Equal(t, 1, ticket.MaxAdults)
	assert.Equal(t, 1, ticket.MaxChildren)
	assert.True(t, ticket.RestrictedByDate)
	assert.False(t, ticket.FreePassLUL)
	assert.Equal(t, 1, ticket.FareMultiplier)
	assert.Equal(t, "01", ticket.DiscountCategory)
}

func TestParseFFLMalformed(t *testing.T) {
	out := &collector{}
	err := FFL(strings.NewReader(rtLine("0012345", "SDS", "badfare!")), asOf, out)
	assert.ErrorContains(t, err, "fare for flow 0012345")
}
