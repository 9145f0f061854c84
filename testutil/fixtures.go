package testutil

// A small but complete feed fixture: three stations on the Brighton
// main line, three services running on Tuesday 2022-01-04, fares in
// both direct and reversed-cluster form, and one incident.
//
// Stations: Brighton (BTN/BRGHTN/0443), Preston Park (PRP/PRSTPK/0446)
// and London Bridge (LBG/LNDNBDC/0458).

import (
	"fmt"
	"strings"
	"time"
)

// FixtureDate is a Tuesday inside every fixture service's validity
// window.
var FixtureDate = time.Date(2022, 1, 4, 0, 0, 0, 0, time.UTC)

func pad(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

func locationLine(uic, nlc, crs string) string {
	return "RL" + uic + "31122999" + "01012020" +
		strings.Repeat(" ", 11) + nlc + strings.Repeat(" ", 16) + crs
}

func flowLine(origin, dest, direction, toc, flowID string) string {
	return "RF" + origin + dest + "     " + "   " + " " + direction +
		"31122999" + "01012020" + pad(toc, 3) + "   " + flowID
}

func fareLine(flowID, ticket string, farePence int) string {
	return "RT" + flowID + ticket + fmt.Sprintf("%08d", farePence)
}

func clusterLine(clusterID, nlc string) string {
	return "R" + clusterID + nlc + "31122999" + "01012020"
}

func ticketLine(code, description, tktType, maxAdults, maxChildren string) string {
	return "R" + code + "31122999" + "01012020" + "01012020" +
		pad(description, 15) + "2" + tktType + "S" +
		strings.Repeat(" ", 8) +
		"001" + "001" + maxAdults + "000" + maxChildren + "000" +
		"N" + "N" + "N" + "1A" +
		strings.Repeat(" ", 21) +
		"N" + "   " + " " + "00" + "0" + "N" + "N" + "001" + "01"
}

// FixtureLOC covers the three fixture stations.
func FixtureLOC() string {
	return strings.Join([]string{
		locationLine("7054430", "0443", "BTN"),
		locationLine("7054460", "0446", "PRP"),
		locationLine("7054580", "0458", "LBG"),
	}, "\n")
}

// FixtureFFL has a direct Brighton to Preston Park flow, a Brighton
// to London Bridge flow, and a reversed flow from Brighton into
// cluster A777 (which contains Preston Park) for the fallback path.
func FixtureFFL() string {
	return strings.Join([]string{
		flowLine("0443", "0446", "S", "SN", "0012345"),
		flowLine("0443", "0458", "S", "SN", "0023456"),
		flowLine("0443", "A777", "R", "SN", "0034567"),
		fareLine("0012345", "SDS", 310),
		fareLine("0012345", "SDR", 620),
		fareLine("0012345", "CDS", 155),
		fareLine("0023456", "SDS", 540),
		fareLine("0023456", "SDR", 1080),
		fareLine("0034567", "SDS", 290),
	}, "\n")
}

func FixtureFSC() string {
	return clusterLine("A777", "0446")
}

// FixtureTTY defines an adult single, an adult return and a child
// single, all in the summary's selling group.
func FixtureTTY() string {
	return strings.Join([]string{
		ticketLine("SDS", "ANYTIME DAY S", "S", "001", "000"),
		ticketLine("SDR", "ANYTIME DAY R", "R", "001", "000"),
		ticketLine("CDS", "CHILD DAY S", "S", "000", "001"),
	}, "\n")
}

func bsLine(uid, from, to, days string) string {
	return "BS" + "N" + uid + from + to + days + "N"
}

func bxLine(toc, rsid string) string {
	return "BX" + "    " + "     " + toc + "Y" + rsid
}

func loLine(tiploc, departure string) string {
	return "LO" + pad(tiploc, 8) + departure + " " + departure +
		"1  " + "   " + "  " + "  " + strings.Repeat(" ", 10) + "TB" + "  "
}

func liLine(tiploc, arrival, departure string) string {
	return "LI" + pad(tiploc, 8) + arrival + " " + departure + " " +
		"     " + arrival + departure + "2  " + "   " + "   " +
		pad("T", 12) + "  " + "  " + "  "
}

func ltLine(tiploc, arrival string) string {
	return "LT" + pad(tiploc, 8) + arrival + " " + arrival +
		"1  " + "   " + pad("TF", 12)
}

func tiLine(tiploc, crs, description string) string {
	return "TI" + pad(tiploc, 7) + strings.Repeat(" ", 44) + crs + pad(description, 16)
}

// FixtureMCA holds three services valid from 2021-12-13 to
// 2022-12-11, Monday to Friday: two Southern trains calling at all
// three stations and a Thameslink train from Preston Park to London
// Bridge.
func FixtureMCA() string {
	return strings.Join([]string{
		tiLine("BRGHTN", "BTN", "BRIGHTON"),
		tiLine("PRSTPK", "PRP", "PRESTON PARK"),
		tiLine("LNDNBDC", "LBG", "LONDON BRIDGE"),
		bsLine("C10001", "211213", "221211", "1111100"),
		bxLine("SN", "SN100010"),
		loLine("BRGHTN", "1000"),
		liLine("PRSTPK", "1004", "1005"),
		ltLine("LNDNBDC", "1100"),
		bsLine("C10002", "211213", "221211", "1111100"),
		bxLine("SN", "SN100020"),
		loLine("BRGHTN", "1030"),
		liLine("PRSTPK", "1034", "1035"),
		ltLine("LNDNBDC", "1130"),
		bsLine("C10003", "211213", "221211", "1111100"),
		bxLine("TL", "TL100030"),
		loLine("PRSTPK", "1010"),
		ltLine("LNDNBDC", "1045"),
	}, "\n")
}

func FixtureIncidentsXML() string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<Incidents xmlns="http://nationalrail.co.uk/xml/incident">
  <PtIncident>
    <IncidentNumber>INC001</IncidentNumber>
    <CreationTime>2022-01-03T09:00:00Z</CreationTime>
    <Planned>false</Planned>
    <Summary>Disruption between Brighton and Preston Park</Summary>
    <Description>&lt;p&gt;Trains delayed by up to 30 minutes.&lt;/p&gt;</Description>
    <Affects>
      <Operators>
        <AffectedOperator>
          <OperatorRef>SN</OperatorRef>
          <OperatorName>Southern</OperatorName>
        </AffectedOperator>
      </Operators>
      <RoutesAffected>Brighton and Preston Park also London Bridge</RoutesAffected>
    </Affects>
  </PtIncident>
</Incidents>`
}

func FixtureStationsXML() string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<StationList xmlns="http://nationalrail.co.uk/xml/station">
  <Station><Name>Brighton</Name><CrsCode>BTN</CrsCode></Station>
  <Station><Name>Preston Park</Name><CrsCode>PRP</CrsCode></Station>
  <Station><Name>London Bridge</Name><CrsCode>LBG</CrsCode></Station>
</StationList>`
}
