package railplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stationNames = map[string]string{
	"Brighton":      "BRGHTN",
	"Preston Park":  "PRSTPK",
	"London Bridge": "LNDNBDC",
}

func TestParseIncidentRoutes(t *testing.T) {
	from, to, ok := ParseIncidentRoutes(stationNames,
		"Brighton and Preston Park also London Bridge")
	require.True(t, ok)
	assert.Equal(t, []string{"BRGHTN"}, from)
	assert.Equal(t, []string{"PRSTPK"}, to)
}

func TestParseIncidentRoutesMultiple(t *testing.T) {
	from, to, ok := ParseIncidentRoutes(stationNames,
		"Brighton, Preston Park and London Bridge")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"BRGHTN", "PRSTPK"}, from)
	assert.ElementsMatch(t, []string{"LNDNBDC"}, to)
}

func TestParseIncidentRoutesNoPivot(t *testing.T) {
	_, _, ok := ParseIncidentRoutes(stationNames, "Brighton station closed")
	assert.False(t, ok)
}

func TestFindIncidents(t *testing.T) {
	store := newNetworkStore(t)

	results, err := FindJourneysFromCRS(store, "BTN", "PRP", networkDate)
	require.NoError(t, err)
	best := BestJourneys(results, 0)
	require.NotEmpty(t, best)

	matcher, err := NewIncidentMatcher(store)
	require.NoError(t, err)

	incidents, err := matcher.FindIncidents(best)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, "INC001", incidents[0].Number)
}

// The incident names Brighton on its from side; a leg that never
// touches Brighton is unaffected.
func TestFindIncidentsUnrelatedLeg(t *testing.T) {
	store := newNetworkStore(t)

	results, err := FindJourneysFromCRS(store, "PRP", "LBG", networkDate)
	require.NoError(t, err)
	best := BestJourneys(results, 0)
	require.NotEmpty(t, best)

	matcher, err := NewIncidentMatcher(store)
	require.NoError(t, err)

	incidents, err := matcher.FindIncidents(best)
	require.NoError(t, err)
	assert.Empty(t, incidents)
}
