// Package hsp talks to the Historic Service Performance API and
// turns its metrics into the flat per-service statistics used by the
// delay training-data collector.
package hsp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Tolerances are the lateness thresholds, in minutes, every metrics
// request asks for.
var Tolerances = []int{0, 5, 10, 30}

// Days selects which day class a metrics query covers.
type Days string

const (
	Weekday  Days = "WEEKDAY"
	Saturday Days = "SATURDAY"
	Sunday   Days = "SUNDAY"
)

// DaysFromDate returns the day class covering date.
func DaysFromDate(date time.Time) Days {
	switch date.Weekday() {
	case time.Saturday:
		return Saturday
	case time.Sunday:
		return Sunday
	default:
		return Weekday
	}
}

// A Request bounds a service metrics query. Times are
// hour*100+minute.
type Request struct {
	FromTime  int
	ToTime    int
	FromDate  time.Time
	ToDate    time.Time
	Days      Days
	TOCFilter []string
}

// A Client calls the HSP endpoints with basic auth. The zero
// HTTPClient falls back to a 30 second timeout default.
type Client struct {
	URL        string
	Username   string
	Password   string
	HTTPClient *http.Client
}

type metricsRequest struct {
	FromLoc   string   `json:"from_loc"`
	ToLoc     string   `json:"to_loc"`
	FromTime  string   `json:"from_time"`
	ToTime    string   `json:"to_time"`
	FromDate  string   `json:"from_date"`
	ToDate    string   `json:"to_date"`
	Days      string   `json:"days"`
	Tolerance []int    `json:"tolerance"`
	TOCFilter []string `json:"toc_filter,omitempty"`
}

// ServiceAttributes identifies one scheduled service within the
// queried window.
type ServiceAttributes struct {
	TOCCode       string   `json:"toc_code"`
	DepartureTime string   `json:"gbtt_ptd"`
	ArrivalTime   string   `json:"gbtt_pta"`
	RIDs          []string `json:"rids"`
}

type Metric struct {
	ToleranceValue  int `json:"tolerance_value"`
	NumNotTolerance int `json:"num_not_tolerance"`
	NumTolerance    int `json:"num_tolerance"`
}

type ServiceMetrics struct {
	Attributes ServiceAttributes `json:"serviceAttributesMetrics"`
	Metrics    []Metric          `json:"Metrics"`
}

// TimeLate buckets how late the service ran: the smallest queried
// tolerance it stayed within, or -1 when it blew through all of
// them.
func (s ServiceMetrics) TimeLate() int {
	for _, tolerance := range Tolerances {
		for _, metric := range s.Metrics {
			if metric.ToleranceValue == tolerance && metric.NumNotTolerance == 0 {
				return tolerance
			}
		}
	}
	return -1
}

type metricsResponse struct {
	Services []ServiceMetrics `json:"Services"`
}

// A ServiceDetail is one calling point of a single service run.
type ServiceDetail struct {
	Location        string `json:"location"`
	DepartureTime   string `json:"gbtt_ptd"`
	ArrivalTime     string `json:"gbtt_pta"`
	ActualDeparture string `json:"actual_td"`
	ActualArrival   string `json:"actual_ta"`
	LateCancReason  string `json:"late_canc_reason"`
}

type detailsResponse struct {
	Attributes struct {
		Locations []ServiceDetail `json:"locations"`
	} `json:"serviceAttributesDetails"`
}

func formatTime(t int) string {
	return fmt.Sprintf("%04d", t)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.URL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.Username, c.Password)

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("calling %s: status %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// Metrics queries aggregate performance for services between two
// stations over the request window.
func (c *Client) Metrics(ctx context.Context, fromCRS, toCRS string, req Request) ([]ServiceMetrics, error) {
	body := metricsRequest{
		FromLoc:   fromCRS,
		ToLoc:     toCRS,
		FromTime:  formatTime(req.FromTime),
		ToTime:    formatTime(req.ToTime),
		FromDate:  req.FromDate.Format("2006-01-02"),
		ToDate:    req.ToDate.Format("2006-01-02"),
		Days:      string(req.Days),
		Tolerance: Tolerances,
		TOCFilter: req.TOCFilter,
	}

	var response metricsResponse
	if err := c.post(ctx, "/api/v1/serviceMetrics", body, &response); err != nil {
		return nil, err
	}
	return response.Services, nil
}

// Details returns the calling points of a single service run.
func (c *Client) Details(ctx context.Context, rid string) ([]ServiceDetail, error) {
	var response detailsResponse
	body := map[string]string{"rid": rid}
	if err := c.post(ctx, "/api/v1/serviceDetails", body, &response); err != nil {
		return nil, err
	}
	return response.Attributes.Locations, nil
}
