package railplan

import (
	"fmt"
	"strings"
	"time"

	"railplan.dev/railplan/model"
	"railplan.dev/railplan/storage"
)

// The Planner ties the routing, fare and incident engines together
// into a single trip-planning call and renders the user-facing
// summary.

// A DelayPredictor estimates how late a service is likely to run.
// ok is false when no prediction is available.
type DelayPredictor interface {
	PredictDelay(fromCRS, toCRS string, date time.Time, departure int) (minutes int, ok bool, err error)
}

type Planner struct {
	Store *storage.Store

	// Delays is optional; without it journeys are reported on time.
	Delays DelayPredictor

	matcher *IncidentMatcher
}

func NewPlanner(store *storage.Store) *Planner {
	return &Planner{Store: store}
}

// A PlanRequest describes the trip the user asked for. Time is the
// earliest acceptable departure as hour*100+minute.
type PlanRequest struct {
	FromCRS   string
	ToCRS     string
	Date      time.Time
	Time      int
	TicketFor TicketFor

	// IncludeIncidents controls whether operator incidents along the
	// chosen route are looked up.
	IncludeIncidents bool
}

// A Plan is the answer to a PlanRequest.
type Plan struct {
	FromCRS  string
	ToCRS    string
	FromName string
	ToName   string
	Date     time.Time

	Journey Journey
	Route   TrainRoute

	// Alternative is the next best journey, set when a delay is
	// predicted on the chosen one.
	Alternative Journey

	Tickets   []storage.FareOption
	Summary   TicketSummary
	Incidents []model.Incident

	PossibleDelay int
	DelayKnown    bool
}

func (p *Planner) stationName(crs string) string {
	name, ok, err := p.Store.StationName(crs)
	if err != nil || !ok {
		return crs
	}
	return name
}

// Plan finds the best journey for the request along with fares,
// incidents and a delay estimate. Underspecified or unroutable
// requests produce an error carrying the message to show the user.
func (p *Planner) Plan(req PlanRequest) (*Plan, error) {
	if req.FromCRS == "" {
		return nil, fmt.Errorf("Please tell me where you're planning to travel from and to")
	}
	if req.ToCRS == "" {
		return nil, fmt.Errorf("Please tell me where you're planning to go from %s",
			p.stationName(req.FromCRS))
	}

	date := req.Date
	results, err := FindJourneysFromCRS(p.Store, req.FromCRS, req.ToCRS, date)
	if err != nil {
		return nil, err
	}
	best := BestJourneys(results, req.Time)

	// Late departures may only connect on the next day's timetable.
	if len(best) == 0 {
		date = req.Date.AddDate(0, 0, 1)
		results, err = FindJourneysFromCRS(p.Store, req.FromCRS, req.ToCRS, date)
		if err != nil {
			return nil, err
		}
		best = BestJourneys(results, 0)
	}
	if len(best) == 0 {
		return nil, fmt.Errorf("No route from %s to %s found",
			p.stationName(req.FromCRS), p.stationName(req.ToCRS))
	}

	plan := &Plan{
		FromCRS:  req.FromCRS,
		ToCRS:    req.ToCRS,
		FromName: p.stationName(req.FromCRS),
		ToName:   p.stationName(req.ToCRS),
		Date:     date,
		Journey:  best[0].Journey,
		Route:    best[0].Route,
	}

	plan.Tickets, err = TicketPrices(p.Store, req.FromCRS, req.ToCRS)
	if err != nil {
		return nil, err
	}
	plan.Summary = SummarizeTickets(plan.Tickets, req.TicketFor)

	if req.IncludeIncidents {
		if p.matcher == nil {
			p.matcher, err = NewIncidentMatcher(p.Store)
			if err != nil {
				return nil, err
			}
		}
		plan.Incidents, err = p.matcher.FindIncidents(best)
		if err != nil {
			return nil, err
		}
	}

	if p.Delays != nil {
		minutes, ok, err := p.Delays.PredictDelay(
			req.FromCRS, req.ToCRS, req.Date, plan.Journey.Departure())
		if err == nil && ok {
			plan.PossibleDelay = minutes
			plan.DelayKnown = true
			if len(best) > 1 {
				plan.Alternative = best[1].Journey
			}
		}
	}

	return plan, nil
}

// FormatTime renders an hour*100+minute time as HH:MM.
func FormatTime(t int) string {
	return fmt.Sprintf("%02d:%02d", t/100, t%100)
}

// Link builds the OJP times-and-fares page for the plan, pinned to
// the requested hour.
func (p *Plan) Link() string {
	return fmt.Sprintf(
		"https://ojp.nationalrail.co.uk/service/timesandfares/%s/%s/%s/%02d00/dep",
		p.FromCRS, p.ToCRS, p.Date.Format("020106"),
		p.Journey.Departure()/100)
}

// FormatDelay renders the delay estimate for display.
func (p *Plan) FormatDelay() string {
	if !p.DelayKnown {
		return "on time"
	}
	return fmt.Sprintf("up to %d minutes late", p.PossibleDelay)
}

// Describe renders the plan as the user-facing summary text.
func (p *Plan) Describe() string {
	start := p.Journey[0].Start
	end := p.Journey[len(p.Journey)-1].End

	b := &strings.Builder{}
	fmt.Fprintf(b,
		"The latest train will be leaving %s at %s, it will arrive at %s at %s.\n",
		p.FromName, FormatTime(start.PublicDeparture),
		p.ToName, FormatTime(end.PublicArrival))
	fmt.Fprintf(b, "Single ticket: %s\n", FormatPrice(p.Summary.Single))
	fmt.Fprintf(b, "Return ticket: %s\n", FormatPrice(p.Summary.Return))
	fmt.Fprintf(b, "%s\n", p.Link())

	fmt.Fprintf(b, "The train is expected to be %s.\n", p.FormatDelay())
	if p.Alternative != nil {
		altStart := p.Alternative[0].Start
		altEnd := p.Alternative[len(p.Alternative)-1].End
		fmt.Fprintf(b,
			"An alternative journey departs at %s and arrives at %s.\n",
			FormatTime(altStart.PublicDeparture), FormatTime(altEnd.PublicArrival))
	}

	if len(p.Incidents) > 0 {
		fmt.Fprintf(b, "Incidents that may affect your journey:\n")
		for _, incident := range p.Incidents {
			fmt.Fprintf(b, "%s\n", incident.Summary)
		}
	}
	return b.String()
}
