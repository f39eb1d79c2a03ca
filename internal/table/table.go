// Package table holds the normalized station time series and the per-station
// aggregates derived from it.
package table

import (
	"time"
)

const (
	// DateLayout renders the calendar date column.
	DateLayout = "2006-01-02"
	// TimeLayout renders the time-of-day column.
	TimeLayout = "15:04"
	// TimestampLayout renders the Timestamp column.
	TimestampLayout = "2006-01-02 15:04"
)

// Row is one station's reported state at one snapshot.
type Row struct {
	Name            string
	Lat             float64
	Lon             float64
	BikesAvailable  int
	SpacesAvailable int
	TotalSpaces     int
	AllowDropoff    bool
	Status          string
	Timestamp       time.Time
	Date            string
	Time            string
}

// Stamp truncates ts to the minute in UTC and derives the date and
// time-of-day columns from that single instant.
func Stamp(ts time.Time) (time.Time, string, string) {
	t := ts.UTC().Truncate(time.Minute)
	return t, t.Format(DateLayout), t.Format(TimeLayout)
}

// WithTimestamp returns r with Timestamp, Date and Time set from ts.
func (r Row) WithTimestamp(ts time.Time) Row {
	r.Timestamp, r.Date, r.Time = Stamp(ts)
	return r
}

// TimestampText is the Timestamp column as written to disk.
func (r Row) TimestampText() string {
	return r.Timestamp.Format(TimestampLayout)
}

// Datetime is the RFC 3339 rendering of the snapshot time.
func (r Row) Datetime() string {
	return r.Timestamp.Format(time.RFC3339)
}

// Table is an ordered, read-only collection of rows. It is safe for
// concurrent readers because nothing mutates it after New.
type Table struct {
	rows []Row
}

// New builds a table from a copy of rows.
func New(rows []Row) *Table {
	cp := make([]Row, len(rows))
	copy(cp, rows)
	return &Table{rows: cp}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the i-th row.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Rows returns a copy of all rows.
func (t *Table) Rows() []Row {
	cp := make([]Row, len(t.rows))
	copy(cp, t.rows)
	return cp
}

// Filter returns the rows for which keep reports true, in table order.
func (t *Table) Filter(keep func(Row) bool) []Row {
	out := make([]Row, 0)
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// StationAggregate summarises one station across every snapshot.
type StationAggregate struct {
	Key                string
	Name               string
	Lat                float64
	Lon                float64
	AllowDropoff       bool
	BikesAvailableMean float64
	// BikesAvailableStd is the sample standard deviation; NaN for a
	// station seen in a single snapshot.
	BikesAvailableStd float64
	Snapshots         int
}
