// Package feed drives ingestion of the open rail data feeds: download,
// parse and bulk load into the store. Feeds register themselves at init
// time; Open refreshes whichever of them have expired.
package feed

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"railplan.dev/railplan/model"
	"railplan.dev/railplan/parse"
	"railplan.dev/railplan/progress"
	"railplan.dev/railplan/storage"
)

const defaultBaseURL = "https://opendata.nationalrail.co.uk"

// A Feed is one downloadable data product.
type Feed interface {
	// APIURL is the feed's path under /api/staticfeeds/, and also
	// its key in the expiry table.
	APIURL() string

	// FileName is the canonical name of the downloaded file.
	FileName() string

	// ExpiryLength is how long an ingest of this feed stays fresh.
	ExpiryLength() time.Duration

	// OwnedTables lists the tables wiped before this feed's parsers
	// run.
	OwnedTables() []string

	// EmitRecords submits parse tasks for the files in dir.
	EmitRecords(p *Pipeline, dir string) error

	// PostIngest runs on the SQL thread after all rows are written.
	PostIngest(store *storage.Store) error
}

var registered []Feed

// Register adds a feed to the process-global registry. Call from
// init.
func Register(f Feed) {
	registered = append(registered, f)
}

// All returns every registered feed.
func All() []Feed {
	return append([]Feed{}, registered...)
}

// Config carries ingestion settings. The zero value works for tests
// that disable downloading; live use needs credentials.
type Config struct {
	Username string
	Password string

	// BaseURL of the open data portal. Defaults to the national
	// feed host.
	BaseURL string

	// DisableDownload skips the network and copies feed files from
	// LocalStorageDir instead.
	DisableDownload bool

	// BackupToLocal copies each downloaded file into
	// LocalStorageDir after a successful fetch.
	BackupToLocal   bool
	LocalStorageDir string

	DownloadChunkSize int // bytes per download copy step
	RecordChunkSize   int // records per queued chunk
	SQLBatchSize      int // records per transaction commit
	QueueSize         int // chunks buffered between parsers and writer

	// Progress receives download and write progress. Nil disables
	// reporting.
	Progress *progress.Tracker
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.DownloadChunkSize == 0 {
		c.DownloadChunkSize = 1024 * 1024
	}
	if c.RecordChunkSize == 0 {
		c.RecordChunkSize = 100_000
	}
	if c.SQLBatchSize == 0 {
		c.SQLBatchSize = 1_000_000
	}
	if c.QueueSize == 0 {
		c.QueueSize = 50
	}
	return c
}

// A Pipeline hands parse tasks a place to run and a queue to write
// to. One Pipeline is shared by all feeds in a refresh.
type Pipeline struct {
	ctx       context.Context
	group     *errgroup.Group
	queue     chan<- model.RecordSet
	chunkSize int
}

// Go submits one parse task. The task receives a fresh chunk writer
// whose partial chunk is flushed when the task returns cleanly.
func (p *Pipeline) Go(task func(out parse.Writer) error) {
	p.group.Go(func() error {
		w := newChunkWriter(p.ctx, p.queue, p.chunkSize)
		if err := task(w); err != nil {
			return err
		}
		return w.Close()
	})
}

// Context returns the pipeline's cancellation context.
func (p *Pipeline) Context() context.Context {
	return p.ctx
}
