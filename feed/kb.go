package feed

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"railplan.dev/railplan/parse"
	"railplan.dev/railplan/storage"
)

func init() {
	Register(incidentsFeed{})
	Register(stationsFeed{})
}

// The knowledge base feeds are single XML documents rather than
// archives, so each one is a single parse task.

type incidentsFeed struct{}

func (incidentsFeed) APIURL() string   { return "5.0/incidents" }
func (incidentsFeed) FileName() string { return "INCIDENTS.XML" }

// Incidents change frequently, so they expire fast.
func (incidentsFeed) ExpiryLength() time.Duration { return 5 * time.Minute }

func (incidentsFeed) OwnedTables() []string {
	return []string{"incident", "incident_operator"}
}

func (f incidentsFeed) EmitRecords(p *Pipeline, dir string) error {
	emitXML(p, filepath.Join(dir, f.FileName()), parse.Incidents)
	return nil
}

func (incidentsFeed) PostIngest(*storage.Store) error { return nil }

type stationsFeed struct{}

func (stationsFeed) APIURL() string   { return "4.0/stations" }
func (stationsFeed) FileName() string { return "STATIONS.XML" }

func (stationsFeed) ExpiryLength() time.Duration { return 24 * time.Hour }

func (stationsFeed) OwnedTables() []string {
	return []string{"station"}
}

func (f stationsFeed) EmitRecords(p *Pipeline, dir string) error {
	emitXML(p, filepath.Join(dir, f.FileName()), parse.Stations)
	return nil
}

func (stationsFeed) PostIngest(*storage.Store) error { return nil }

func emitXML(p *Pipeline, path string, parser func(io.Reader, parse.Writer) error) {
	p.Go(func(out parse.Writer) error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "opening %s", path)
		}
		defer f.Close()
		return parser(f, out)
	})
}
