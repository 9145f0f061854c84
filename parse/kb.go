package parse

import (
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/spkg/bom"

	"railplan.dev/railplan/model"
)

// Parsers for the knowledge base XML feeds. Both stream element by
// element so a large feed never has to be held in memory whole.

const (
	incidentNamespace = "http://nationalrail.co.uk/xml/incident"
	stationNamespace  = "http://nationalrail.co.uk/xml/station"
)

type xmlOperator struct {
	Ref  string `xml:"OperatorRef"`
	Name string `xml:"OperatorName"`
}

type xmlIncident struct {
	Number         string        `xml:"IncidentNumber"`
	CreationTime   string        `xml:"CreationTime"`
	Planned        bool          `xml:"Planned"`
	Summary        string        `xml:"Summary"`
	Description    string        `xml:"Description"`
	Cleared        bool          `xml:"ClearedIncident"`
	RoutesAffected string        `xml:"Affects>RoutesAffected"`
	Operators      []xmlOperator `xml:"Affects>Operators>AffectedOperator"`
}

// Incidents parses the incidents feed, emitting one Incident per
// PtIncident element plus an IncidentOperator per affected operator.
func Incidents(r io.Reader, out Writer) error {
	decoder := xml.NewDecoder(bom.NewReader(r))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "reading incidents feed")
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "PtIncident" {
			continue
		}
		if start.Name.Space != incidentNamespace && start.Name.Space != "" {
			continue
		}

		var incident xmlIncident
		if err := decoder.DecodeElement(&incident, &start); err != nil {
			return errors.Wrap(err, "decoding incident")
		}

		err = out.Put(model.Incident{
			Number:         incident.Number,
			CreationTime:   incident.CreationTime,
			Planned:        incident.Planned,
			Summary:        StripHTML(incident.Summary),
			Description:    StripHTML(incident.Description),
			Cleared:        incident.Cleared,
			RoutesAffected: StripHTML(incident.RoutesAffected),
		})
		if err != nil {
			return err
		}

		for _, op := range incident.Operators {
			err = out.Put(model.IncidentOperator{
				IncidentNumber: incident.Number,
				TOC:            op.Ref,
				OperatorName:   op.Name,
			})
			if err != nil {
				return err
			}
		}
	}
}

type xmlStation struct {
	CRS  string `xml:"CrsCode"`
	Name string `xml:"Name"`
}

// Stations parses the stations feed into Station rows. Entries
// without a CRS code are skipped.
func Stations(r io.Reader, out Writer) error {
	decoder := xml.NewDecoder(bom.NewReader(r))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "reading stations feed")
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "Station" {
			continue
		}
		if start.Name.Space != stationNamespace && start.Name.Space != "" {
			continue
		}

		var station xmlStation
		if err := decoder.DecodeElement(&station, &start); err != nil {
			return errors.Wrap(err, "decoding station")
		}
		if strings.TrimSpace(station.CRS) == "" {
			continue
		}

		err = out.Put(model.Station{
			CRS:  station.CRS,
			Name: strings.TrimSpace(station.Name),
		})
		if err != nil {
			return err
		}
	}
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes markup from incident text, which arrives as
// escaped XHTML fragments. Repeats until stable in case stripping
// exposes further tags.
func StripHTML(text string) string {
	stripped := text
	for {
		next := htmlTag.ReplaceAllString(stripped, "")
		if next == stripped {
			return strings.TrimSpace(stripped)
		}
		stripped = next
	}
}
