// Package normalize turns parsed snapshot records into the canonical table.
package normalize

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/02loveslollipop/citybike-availability-viewer/internal/snapshot"
	"github.com/02loveslollipop/citybike-availability-viewer/internal/table"
)

// GhostLatitude is the bound at or below which a location is a placeholder.
const GhostLatitude = 60.0

// coordScale rounds coordinates to 4 decimal places.
const coordScale = 1e4

// ErrBadCoordinates is returned for coordinate strings that are not "lat,lon".
var ErrBadCoordinates = errors.New("coordinates are not lat,lon")

// Report counts what each step removed or changed.
type Report struct {
	Input              int
	MissingNames       int
	MissingCoordinates int
	BadCoordinates     int
	Ghosts             int
	Clamped            int
	Output             int
}

// Normalize applies the cleaning steps to every record in order: drop
// unnamed stations and missing coordinates, split and round them, map raw fields onto the
// canonical row, stamp date and time, drop ghost locations, then clamp
// negative bike counts.
func Normalize(records []snapshot.Record) (*table.Table, Report) {
	rows, report := Rows(records)
	log.Printf("normalized %d records into %d rows (missing names=%d, missing coords=%d, bad coords=%d, ghosts=%d, clamped=%d)",
		report.Input, report.Output, report.MissingNames, report.MissingCoordinates, report.BadCoordinates, report.Ghosts, report.Clamped)
	return table.New(rows), report
}

// Rows is Normalize without logging, for callers that normalize one file
// at a time.
func Rows(records []snapshot.Record) ([]table.Row, Report) {
	report := Report{Input: len(records)}
	rows := make([]table.Row, 0, len(records))

	for _, rec := range records {
		// Rows are keyed by name downstream.
		if strings.TrimSpace(rec.Name) == "" {
			report.MissingNames++
			continue
		}
		if strings.TrimSpace(rec.Coordinates) == "" {
			report.MissingCoordinates++
			continue
		}
		lat, lon, err := SplitCoordinates(rec.Coordinates)
		if err != nil {
			report.BadCoordinates++
			continue
		}
		rows = append(rows, toRow(rec, lat, lon))
	}

	rows, ghosts, clamped := clean(rows)
	report.Ghosts = ghosts
	report.Clamped = clamped
	report.Output = len(rows)
	return rows, report
}

func toRow(rec snapshot.Record, lat, lon float64) table.Row {
	row := table.Row{
		Name:            rec.Name,
		Lat:             lat,
		Lon:             lon,
		Status:          rec.Style,
		BikesAvailable:  int(rec.AvlBikes),
		SpacesAvailable: int(rec.FreeSlots),
		AllowDropoff:    bool(rec.Operative),
		TotalSpaces:     int(rec.TotalSlots),
	}
	return row.WithTimestamp(rec.Timestamp)
}

// SplitCoordinates parses a "lat,lon" string and rounds both parts.
func SplitCoordinates(s string) (lat, lon float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%q: %w", s, ErrBadCoordinates)
	}
	lat, err = parseCoord(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%q: %w", s, ErrBadCoordinates)
	}
	lon, err = parseCoord(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%q: %w", s, ErrBadCoordinates)
	}
	return RoundCoord(lat), RoundCoord(lon), nil
}

func parseCoord(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrBadCoordinates
	}
	return v, nil
}

// RoundCoord rounds a coordinate to 4 decimal places to collapse GPS jitter.
func RoundCoord(v float64) float64 {
	return math.Round(v*coordScale) / coordScale
}

// FormatCoordinates renders lat and lon back into the raw "lat,lon" form.
func FormatCoordinates(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
}

// Clean drops ghost locations and clamps negative bike counts. Applying it
// to an already clean slice changes nothing.
func Clean(rows []table.Row) []table.Row {
	out, _, _ := clean(rows)
	return out
}

func clean(rows []table.Row) (out []table.Row, ghosts, clamped int) {
	out = make([]table.Row, 0, len(rows))
	for _, r := range rows {
		if r.Lat <= GhostLatitude {
			ghosts++
			continue
		}
		out = append(out, r)
	}
	for i := range out {
		if out[i].BikesAvailable < 0 {
			out[i].BikesAvailable = 0
			clamped++
		}
	}
	return out, ghosts, clamped
}

// Duplicates counts rows that repeat an earlier (name, Timestamp) pair.
// They are reported, not removed.
func Duplicates(t *table.Table) int {
	type key struct {
		name string
		ts   int64
	}
	seen := make(map[key]struct{}, t.Len())
	dups := 0
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		k := key{r.Name, r.Timestamp.Unix()}
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}
