package hsp

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"railplan.dev/railplan/storage"
)

// A Collector samples random linked station pairs from the timetable
// and appends their route statistics to a CSV training set. Sampling
// runs on ThreadCount workers; the output file is written by the
// calling goroutine only.
type Collector struct {
	Client *Client
	Store  *storage.Store

	// Count is the number of station pairs sampled per worker.
	Count       int
	ThreadCount int
	Output      string
}

func randomDate(rng *rand.Rand) time.Time {
	year := 2018 + rng.Intn(5)
	month := time.Month(1 + rng.Intn(12))
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := 1 + rng.Intn(daysInMonth)
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (c *Collector) sampleWorker(ctx context.Context, rng *rand.Rand,
	pairs [][2]string, out chan<- TrainRouteStats) error {
	for _, pair := range pairs {
		date := randomDate(rng)
		hour := rng.Intn(23)

		stats, err := c.Client.SampleRouteStats(ctx, pair[0], pair[1], date, hour)
		if err != nil {
			logrus.WithError(err).Warnf(
				"sampling %s to %s failed, skipping", pair[0], pair[1])
			continue
		}
		for _, stat := range stats {
			select {
			case out <- stat:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// Run collects samples until every worker has exhausted its pairs,
// appending rows to Output as they arrive. The header is only
// written when the file starts empty.
func (c *Collector) Run(ctx context.Context) error {
	threads := c.ThreadCount
	if threads < 1 {
		threads = 1
	}

	file, err := os.OpenFile(c.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening output: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	wroteHeader := info.Size() > 0

	group, ctx := errgroup.WithContext(ctx)
	samples := make(chan TrainRouteStats, threads)
	for i := 0; i < threads; i++ {
		pairs, err := c.Store.RandomLinkedCRSPairs(c.Count)
		if err != nil {
			return err
		}
		rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(i)))
		group.Go(func() error {
			return c.sampleWorker(ctx, rng, pairs, samples)
		})
	}
	go func() {
		group.Wait()
		close(samples)
	}()

	written := 0
	for stat := range samples {
		row := []TrainRouteStats{stat}
		if !wroteHeader {
			err = gocsv.Marshal(&row, file)
			wroteHeader = true
		} else {
			err = gocsv.MarshalWithoutHeaders(&row, file)
		}
		if err != nil {
			return fmt.Errorf("writing sample: %w", err)
		}
		written++
	}
	if err := group.Wait(); err != nil {
		return err
	}

	logrus.Infof("collected %d samples into %s", written, c.Output)
	return nil
}
