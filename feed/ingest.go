package feed

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"railplan.dev/railplan/model"
	"railplan.dev/railplan/storage"
)

// Only one refresh runs per process; a second concurrent Open returns
// the store as-is rather than racing the first.
var ingesting atomic.Bool

// Open opens the SQLite store at path, creating it if absent, and
// refreshes any outdated feeds before returning.
func Open(path string, cfg Config) (*storage.Store, error) {
	store, err := storage.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := Ingest(context.Background(), store, cfg); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// Ingest refreshes every registered feed whose expiry has passed.
// Returns nil without touching the store when everything is fresh or
// another refresh is already running.
func Ingest(ctx context.Context, store *storage.Store, cfg Config) error {
	cfg = cfg.withDefaults()

	outdated, err := outdatedFeeds(store)
	if err != nil {
		return err
	}
	if len(outdated) == 0 {
		return nil
	}
	if !ingesting.CompareAndSwap(false, true) {
		return nil
	}
	defer ingesting.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	names := make([]string, len(outdated))
	for i, f := range outdated {
		names[i] = f.APIURL()
	}
	logrus.WithField("feeds", names).Info("refreshing outdated feeds")

	dataDir, err := os.MkdirTemp("", "railplan-feeds-")
	if err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	defer os.RemoveAll(dataDir)

	d := newDownloader(cfg)
	token := ""
	if !cfg.DisableDownload {
		if token, err = d.token(ctx); err != nil {
			return err
		}
	}

	type result struct {
		feed Feed
		dir  string
		err  error
	}

	downloaded := make(chan result, len(outdated))
	var wg sync.WaitGroup
	for _, f := range outdated {
		f := f
		wg.Add(1)
		go func() {
			defer wg.Done()
			dir, err := d.fetch(ctx, token, f, dataDir)
			downloaded <- result{feed: f, dir: dir, err: err}
		}()
	}
	go func() {
		wg.Wait()
		close(downloaded)
	}()

	queue := make(chan model.RecordSet, cfg.QueueSize)
	group, gctx := errgroup.WithContext(ctx)
	pipeline := &Pipeline{
		ctx:       gctx,
		group:     group,
		queue:     queue,
		chunkSize: cfg.RecordChunkSize,
	}

	// All SQL stays on this goroutine: table wipes as downloads
	// land, then the batched inserts below.
	var failed []error
	clean := []Feed{}
	for res := range downloaded {
		if res.err != nil {
			logrus.WithField("feed", res.feed.APIURL()).WithError(res.err).
				Error("feed download failed")
			failed = append(failed, fmt.Errorf("downloading %s: %w", res.feed.APIURL(), res.err))
			continue
		}
		if err := store.Wipe(res.feed.OwnedTables()...); err != nil {
			return err
		}
		if err := res.feed.EmitRecords(pipeline, res.dir); err != nil {
			failed = append(failed, fmt.Errorf("scanning %s: %w", res.feed.APIURL(), err))
			continue
		}
		clean = append(clean, res.feed)
	}

	// The watcher closes the queue once every parse task is done, so
	// the drain below terminates on success and failure alike.
	parseErr := make(chan error, 1)
	go func() {
		parseErr <- group.Wait()
		close(queue)
	}()

	batch := model.RecordSet{}
	written := 0
	var sqlErr error
	for chunk := range queue {
		if sqlErr != nil {
			continue // keep draining so parsers don't block
		}
		batch.Merge(chunk)
		cfg.reportWriting(written, batch.Len(), len(queue)*cfg.RecordChunkSize)
		if batch.Len() < cfg.SQLBatchSize {
			continue
		}
		sqlErr = flushBatch(store, batch)
		written += batch.Len()
		batch = model.RecordSet{}
	}
	if sqlErr == nil && batch.Len() > 0 {
		sqlErr = flushBatch(store, batch)
	}
	cfg.reportWriting(0, 0, 0)

	if err := <-parseErr; err != nil {
		return err
	}
	if sqlErr != nil {
		return sqlErr
	}

	for _, f := range clean {
		if err := f.PostIngest(store); err != nil {
			return fmt.Errorf("post-ingest for %s: %w", f.APIURL(), err)
		}
	}

	// Expiry moves forward only for feeds that made it all the way
	// through, so a failed feed is retried on the next open.
	now := time.Now().Unix()
	for _, f := range clean {
		if err := store.SetExpiryTime(f.APIURL(), now+int64(f.ExpiryLength().Seconds())); err != nil {
			return err
		}
	}
	if err := store.Commit(); err != nil {
		return err
	}

	if len(failed) > 0 {
		return failed[0]
	}
	logrus.WithField("feeds", len(clean)).Info("feed refresh complete")
	return nil
}

func flushBatch(store *storage.Store, batch model.RecordSet) error {
	if err := store.BulkInsert(batch); err != nil {
		return err
	}
	return store.Commit()
}

func (c Config) reportWriting(written, pending, queued int) {
	if c.Progress != nil {
		c.Progress.Report("Writing to Disk", written, written+pending+queued)
	}
}

func outdatedFeeds(store *storage.Store) ([]Feed, error) {
	now := time.Now().Unix()
	outdated := []Feed{}
	for _, f := range All() {
		expiry, ok, err := store.ExpiryTime(f.APIURL())
		if err != nil {
			return nil, err
		}
		if !ok || now >= expiry {
			outdated = append(outdated, f)
		}
	}
	return outdated, nil
}
