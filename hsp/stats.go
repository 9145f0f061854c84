package hsp

import (
	"context"
	"time"
)

// TrainRouteStats is one row of the delay training set: how often a
// scheduled service ran late over the previous two weeks, and whether
// it was late today.
type TrainRouteStats struct {
	TOC           string `csv:"toc"`
	FromCRS       string `csv:"from_crs"`
	ToCRS         string `csv:"to_crs"`
	Date          string `csv:"date"`
	DepartureTime string `csv:"departure_time"`
	ArrivalTime   string `csv:"arrival_time"`
	Late0         int    `csv:"late_0"`
	Late5         int    `csv:"late_5"`
	Late10        int    `csv:"late_10"`
	Late30        int    `csv:"late_30"`
	WasLate0      bool   `csv:"was_late_0"`
	WasLate5      bool   `csv:"was_late_5"`
	WasLate10     bool   `csv:"was_late_10"`
	WasLate30     bool   `csv:"was_late_30"`
}

// SampleRouteStats queries one hour of a day's services between two
// stations and joins each against its two-week lateness history.
// Services with no history are skipped.
func (c *Client) SampleRouteStats(ctx context.Context, fromCRS, toCRS string,
	date time.Time, hour int) ([]TrainRouteStats, error) {
	fromTime := hour * 100
	toTime := (hour + 1) * 100
	if hour == 23 {
		toTime = 2359
	}

	today, err := c.Metrics(ctx, fromCRS, toCRS, Request{
		FromTime: fromTime,
		ToTime:   toTime,
		FromDate: date,
		ToDate:   date,
		Days:     DaysFromDate(date),
	})
	if err != nil {
		return nil, err
	}

	tocs := make([]string, 0, len(today))
	for _, service := range today {
		tocs = append(tocs, service.Attributes.TOCCode)
	}

	lastWeeks, err := c.Metrics(ctx, fromCRS, toCRS, Request{
		FromTime:  fromTime,
		ToTime:    toTime,
		FromDate:  date.AddDate(0, 0, -15),
		ToDate:    date.AddDate(0, 0, -1),
		Days:      DaysFromDate(date),
		TOCFilter: tocs,
	})
	if err != nil {
		return nil, err
	}

	stats := []TrainRouteStats{}
	for _, service := range lastWeeks {
		attributes := service.Attributes
		late := map[int]int{}
		for _, metric := range service.Metrics {
			late[metric.ToleranceValue] = metric.NumNotTolerance
		}

		var todayService *ServiceMetrics
		for i, candidate := range today {
			if candidate.Attributes.TOCCode == attributes.TOCCode &&
				candidate.Attributes.DepartureTime == attributes.DepartureTime &&
				candidate.Attributes.ArrivalTime == attributes.ArrivalTime {
				todayService = &today[i]
				break
			}
		}
		if todayService == nil {
			continue
		}

		timeLate := todayService.TimeLate()
		stats = append(stats, TrainRouteStats{
			TOC:           attributes.TOCCode,
			FromCRS:       fromCRS,
			ToCRS:         toCRS,
			Date:          date.Format("2006-01-02"),
			DepartureTime: attributes.DepartureTime,
			ArrivalTime:   attributes.ArrivalTime,
			Late0:         late[0],
			Late5:         late[5],
			Late10:        late[10],
			Late30:        late[30],
			WasLate0:      timeLate == 0,
			WasLate5:      timeLate == 5,
			WasLate10:     timeLate == 10,
			WasLate30:     timeLate == 30,
		})
	}
	return stats, nil
}
