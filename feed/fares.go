package feed

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"railplan.dev/railplan/parse"
	"railplan.dev/railplan/storage"
)

func init() {
	Register(faresFeed{})
}

// faresFeed loads the fares archive: locations, flows, fares, station
// clusters and ticket types.
type faresFeed struct{}

func (faresFeed) APIURL() string   { return "2.0/fares" }
func (faresFeed) FileName() string { return "FARES.ZIP" }

func (faresFeed) ExpiryLength() time.Duration { return 365 * 24 * time.Hour }

func (faresFeed) OwnedTables() []string {
	return []string{
		"location_record", "station_cluster",
		"flow_record", "fare_record", "ticket_type",
	}
}

var faresSuffixes = []string{"LOC", "FFL", "FSC", "TTY"}

func (faresFeed) EmitRecords(p *Pipeline, dir string) error {
	files, err := dtdFiles(dir, faresSuffixes)
	if err != nil {
		return err
	}

	asOf := time.Now()
	for _, path := range files {
		path := path
		p.Go(func(out parse.Writer) error {
			f, err := os.Open(path)
			if err != nil {
				return errors.Wrapf(err, "opening %s", path)
			}
			defer f.Close()
			_, err = parse.DTDFile(filepath.Base(path), f, asOf, out)
			return err
		})
	}
	return nil
}

func (faresFeed) PostIngest(*storage.Store) error { return nil }

// dtdFiles lists the files in dir whose 3-letter suffix is one of the
// wanted formats.
func dtdFiles(dir string, suffixes []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", dir)
	}

	files := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		for _, suffix := range suffixes {
			if strings.HasSuffix(entry.Name(), suffix) {
				files = append(files, filepath.Join(dir, entry.Name()))
				break
			}
		}
	}
	return files, nil
}
