package feed

import (
	"os"
	"time"

	"github.com/pkg/errors"

	"railplan.dev/railplan/parse"
	"railplan.dev/railplan/storage"
)

func init() {
	Register(timetableFeed{})
}

// timetableFeed loads the timetable archive's schedule files. Each
// MCA file is parsed by a single task since schedules span lines.
type timetableFeed struct{}

func (timetableFeed) APIURL() string   { return "3.0/timetable" }
func (timetableFeed) FileName() string { return "TIMETABLE.ZIP" }

func (timetableFeed) ExpiryLength() time.Duration { return 365 * 24 * time.Hour }

func (timetableFeed) OwnedTables() []string {
	return []string{
		"train_timetable", "timetable_location",
		"tiploc", "timetable_link",
	}
}

func (timetableFeed) EmitRecords(p *Pipeline, dir string) error {
	files, err := dtdFiles(dir, []string{"MCA"})
	if err != nil {
		return err
	}

	for _, path := range files {
		path := path
		p.Go(func(out parse.Writer) error {
			f, err := os.Open(path)
			if err != nil {
				return errors.Wrapf(err, "opening %s", path)
			}
			defer f.Close()
			return parse.MCA(f, out)
		})
	}
	return nil
}

// The link graph used by path search is derived from the schedules
// just written.
func (timetableFeed) PostIngest(store *storage.Store) error {
	return store.PrecomputeLinks()
}
