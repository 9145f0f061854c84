package hsp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railplan.dev/railplan/hsp"
)

// requestLog captures decoded requests; the collector test hits the
// server from several goroutines at once.
type requestLog struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (l *requestLog) add(req recordedRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, req)
}

func (l *requestLog) all() []recordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recordedRequest{}, l.requests...)
}

type recordedRequest struct {
	FromLoc   string   `json:"from_loc"`
	ToLoc     string   `json:"to_loc"`
	FromTime  string   `json:"from_time"`
	ToTime    string   `json:"to_time"`
	FromDate  string   `json:"from_date"`
	ToDate    string   `json:"to_date"`
	Days      string   `json:"days"`
	Tolerance []int    `json:"tolerance"`
	TOCFilter []string `json:"toc_filter"`
}

func metric(tolerance, numNot int) map[string]int {
	return map[string]int{
		"tolerance_value":   tolerance,
		"num_not_tolerance": numNot,
	}
}

func service(toc, ptd, pta string, metrics []map[string]int) map[string]interface{} {
	return map[string]interface{}{
		"serviceAttributesMetrics": map[string]interface{}{
			"toc_code": toc,
			"gbtt_ptd": ptd,
			"gbtt_pta": pta,
			"rids":     []string{"202201040001"},
		},
		"Metrics": metrics,
	}
}

// metricsServer answers today queries (from_date == to_date) with a
// single slightly late Southern service and history queries with its
// two-week record plus an unmatched Thameslink one.
func metricsServer(t *testing.T, log *requestLog) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/serviceMetrics", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "hsp@example.com" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var req recordedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		log.add(req)

		var services []map[string]interface{}
		if req.FromDate == req.ToDate {
			services = []map[string]interface{}{
				service("SN", "1000", "1030", []map[string]int{
					metric(0, 1), metric(5, 0), metric(10, 0), metric(30, 0),
				}),
			}
		} else {
			services = []map[string]interface{}{
				service("SN", "1000", "1030", []map[string]int{
					metric(0, 3), metric(5, 2), metric(10, 1), metric(30, 0),
				}),
				service("TL", "1100", "1130", []map[string]int{
					metric(0, 1), metric(5, 0), metric(10, 0), metric(30, 0),
				}),
			}
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"Services": services,
		}))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newClient(server *httptest.Server) *hsp.Client {
	return &hsp.Client{
		URL:      server.URL,
		Username: "hsp@example.com",
		Password: "secret",
	}
}

func TestDaysFromDate(t *testing.T) {
	assert.Equal(t, hsp.Weekday,
		hsp.DaysFromDate(time.Date(2022, 1, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, hsp.Saturday,
		hsp.DaysFromDate(time.Date(2022, 1, 8, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, hsp.Sunday,
		hsp.DaysFromDate(time.Date(2022, 1, 9, 0, 0, 0, 0, time.UTC)))
}

func TestTimeLate(t *testing.T) {
	onTime := hsp.ServiceMetrics{Metrics: []hsp.Metric{
		{ToleranceValue: 0, NumNotTolerance: 0},
	}}
	assert.Equal(t, 0, onTime.TimeLate())

	slightlyLate := hsp.ServiceMetrics{Metrics: []hsp.Metric{
		{ToleranceValue: 0, NumNotTolerance: 1},
		{ToleranceValue: 5, NumNotTolerance: 0},
	}}
	assert.Equal(t, 5, slightlyLate.TimeLate())

	veryLate := hsp.ServiceMetrics{Metrics: []hsp.Metric{
		{ToleranceValue: 0, NumNotTolerance: 1},
		{ToleranceValue: 5, NumNotTolerance: 1},
		{ToleranceValue: 10, NumNotTolerance: 1},
		{ToleranceValue: 30, NumNotTolerance: 1},
	}}
	assert.Equal(t, -1, veryLate.TimeLate())
}

func TestSampleRouteStats(t *testing.T) {
	log := &requestLog{}
	server := metricsServer(t, log)
	client := newClient(server)

	date := time.Date(2022, 1, 4, 0, 0, 0, 0, time.UTC)
	stats, err := client.SampleRouteStats(context.Background(), "BTN", "PRP", date, 10)
	require.NoError(t, err)

	// The unmatched Thameslink service contributes no row.
	require.Len(t, stats, 1)
	stat := stats[0]
	assert.Equal(t, "SN", stat.TOC)
	assert.Equal(t, "BTN", stat.FromCRS)
	assert.Equal(t, "PRP", stat.ToCRS)
	assert.Equal(t, "2022-01-04", stat.Date)
	assert.Equal(t, "1000", stat.DepartureTime)
	assert.Equal(t, "1030", stat.ArrivalTime)
	assert.Equal(t, 3, stat.Late0)
	assert.Equal(t, 2, stat.Late5)
	assert.Equal(t, 1, stat.Late10)
	assert.Equal(t, 0, stat.Late30)
	assert.False(t, stat.WasLate0)
	assert.True(t, stat.WasLate5)
	assert.False(t, stat.WasLate10)
	assert.False(t, stat.WasLate30)

	requests := log.all()
	require.Len(t, requests, 2)
	today, history := requests[0], requests[1]
	assert.Equal(t, "1000", today.FromTime)
	assert.Equal(t, "1100", today.ToTime)
	assert.Equal(t, "2022-01-04", today.FromDate)
	assert.Equal(t, "WEEKDAY", today.Days)
	assert.Equal(t, hsp.Tolerances, today.Tolerance)
	assert.Empty(t, today.TOCFilter)

	assert.Equal(t, "2021-12-20", history.FromDate)
	assert.Equal(t, "2022-01-03", history.ToDate)
	assert.Equal(t, []string{"SN"}, history.TOCFilter)
}

func TestSampleRouteStatsLastHour(t *testing.T) {
	log := &requestLog{}
	server := metricsServer(t, log)
	client := newClient(server)

	date := time.Date(2022, 1, 4, 0, 0, 0, 0, time.UTC)
	_, err := client.SampleRouteStats(context.Background(), "BTN", "PRP", date, 23)
	require.NoError(t, err)

	requests := log.all()
	require.NotEmpty(t, requests)
	assert.Equal(t, "2300", requests[0].FromTime)
	assert.Equal(t, "2359", requests[0].ToTime)
}

func TestMetricsBadCredentials(t *testing.T) {
	server := metricsServer(t, &requestLog{})

	client := &hsp.Client{URL: server.URL, Username: "wrong", Password: "wrong"}
	_, err := client.Metrics(context.Background(), "BTN", "PRP", hsp.Request{
		FromDate: time.Now(),
		ToDate:   time.Now(),
		Days:     hsp.Weekday,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
