package railplan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedDelay struct {
	minutes int
}

func (d fixedDelay) PredictDelay(fromCRS, toCRS string, date time.Time, departure int) (int, bool, error) {
	return d.minutes, true, nil
}

func TestPlannerPlan(t *testing.T) {
	planner := NewPlanner(newNetworkStore(t))

	plan, err := planner.Plan(PlanRequest{
		FromCRS:          "BTN",
		ToCRS:            "PRP",
		Date:             networkDate,
		IncludeIncidents: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Brighton", plan.FromName)
	assert.Equal(t, "Preston Park", plan.ToName)
	assert.Equal(t, 1000, plan.Journey.Departure())
	assert.Equal(t, 1004, plan.Journey.Arrival())

	require.NotNil(t, plan.Summary.Single)
	assert.Equal(t, 310, plan.Summary.Single.Fare)

	require.Len(t, plan.Incidents, 1)
	assert.Equal(t, "INC001", plan.Incidents[0].Number)

	assert.False(t, plan.DelayKnown)
	assert.Equal(t, "on time", plan.FormatDelay())
	assert.Nil(t, plan.Alternative)

	described := plan.Describe()
	assert.Contains(t, described, "leaving Brighton at 10:00")
	assert.Contains(t, described, "arrive at Preston Park at 10:04")
	assert.Contains(t, described, "Single ticket: £03.10")
	assert.Contains(t, described, "Return ticket: £06.20")
	assert.Contains(t, described,
		"https://ojp.nationalrail.co.uk/service/timesandfares/BTN/PRP/040122/1000/dep")
	assert.Contains(t, described, "Disruption between Brighton and Preston Park")
}

func TestPlannerDelayAlternative(t *testing.T) {
	planner := NewPlanner(newNetworkStore(t))
	planner.Delays = fixedDelay{minutes: 10}

	plan, err := planner.Plan(PlanRequest{
		FromCRS: "BTN",
		ToCRS:   "PRP",
		Date:    networkDate,
	})
	require.NoError(t, err)

	assert.True(t, plan.DelayKnown)
	assert.Equal(t, "up to 10 minutes late", plan.FormatDelay())
	require.NotNil(t, plan.Alternative)
	assert.Equal(t, 1030, plan.Alternative.Departure())
	assert.Contains(t, plan.Describe(),
		"An alternative journey departs at 10:30 and arrives at 10:34.")
}

func TestPlannerUnderspecified(t *testing.T) {
	planner := NewPlanner(newNetworkStore(t))

	_, err := planner.Plan(PlanRequest{})
	require.Error(t, err)
	assert.Equal(t,
		"Please tell me where you're planning to travel from and to",
		err.Error())

	_, err = planner.Plan(PlanRequest{FromCRS: "BTN", Date: networkDate})
	require.Error(t, err)
	assert.Equal(t,
		"Please tell me where you're planning to go from Brighton",
		err.Error())
}

func TestPlannerNoRoute(t *testing.T) {
	planner := NewPlanner(newNetworkStore(t))

	_, err := planner.Plan(PlanRequest{
		FromCRS: "BTN",
		ToCRS:   "ZZZ",
		Date:    networkDate,
	})
	require.Error(t, err)
	assert.Equal(t, "No route from Brighton to ZZZ found", err.Error())
}

// A weekend request with no service rolls over to the next day's
// timetable before giving up.
func TestPlannerNextDayRetry(t *testing.T) {
	planner := NewPlanner(newNetworkStore(t))

	sunday := time.Date(2022, 1, 9, 0, 0, 0, 0, time.UTC)
	plan, err := planner.Plan(PlanRequest{
		FromCRS: "BTN",
		ToCRS:   "PRP",
		Date:    sunday,
		Time:    1200,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC), plan.Date)
	assert.Equal(t, 1000, plan.Journey.Departure())
}
