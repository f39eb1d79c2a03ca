// Package pipeline builds the normalized table once from a Source and answers
// the dashboard's read-only queries against it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/02loveslollipop/citybike-availability-viewer/internal/aggregate"
	"github.com/02loveslollipop/citybike-availability-viewer/internal/normalize"
	"github.com/02loveslollipop/citybike-availability-viewer/internal/table"
)

var (
	// ErrUnknownDate is returned for a date with no snapshots.
	ErrUnknownDate = errors.New("unknown date")
	// ErrUnknownStation is returned for a station name not in the table.
	ErrUnknownStation = errors.New("unknown station")
	// ErrBadTime is returned for a time of day that is not HH:MM.
	ErrBadTime = errors.New("time must be HH:MM")
)

// SlotInterval is the spacing of the time-of-day selector.
const SlotInterval = 10 * time.Minute

// Options tune how a Pipeline answers queries.
type Options struct {
	// DefaultStation is used by StationDay when no station is given.
	DefaultStation string
	// GroupBy overrides the aggregate grouping key. Defaults to station name.
	GroupBy aggregate.KeyFunc
}

// Pipeline is immutable after New and safe for concurrent use.
type Pipeline struct {
	table      *table.Table
	aggs       []table.StationAggregate
	aggIndex   map[string]int
	capacity   map[string]int
	dates      []string
	slots      []string
	centerLat  float64
	centerLon  float64
	duplicates int
	opts       Options
}

// New loads rows from src, cleans them and precomputes aggregates.
func New(ctx context.Context, src Source, opts Options) (*Pipeline, error) {
	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	t := table.New(normalize.Clean(rows))

	p := &Pipeline{
		table:    t,
		aggs:     aggregate.Stations(t, opts.GroupBy),
		capacity: aggregate.Capacity(t),
		slots:    timeSlots(),
		opts:     opts,
	}
	p.aggIndex = make(map[string]int, len(p.aggs))
	for i, a := range p.aggs {
		p.aggIndex[a.Key] = i
	}
	p.dates = distinctDates(t)
	p.centerLat, p.centerLon = median(t)
	p.duplicates = normalize.Duplicates(t)

	if p.duplicates > 0 {
		log.Printf("warning: %d duplicate (station, timestamp) rows kept in table", p.duplicates)
	}
	log.Printf("pipeline ready: %d rows, %d stations, %d dates", t.Len(), len(p.aggs), len(p.dates))
	return p, nil
}

// Table returns the underlying read-only table.
func (p *Pipeline) Table() *table.Table {
	return p.table
}

// Duplicates returns how many rows repeat a (station, timestamp) pair.
func (p *Pipeline) Duplicates() int {
	return p.duplicates
}

// Aggregates returns a copy of the per-station aggregates.
func (p *Pipeline) Aggregates() []table.StationAggregate {
	out := make([]table.StationAggregate, len(p.aggs))
	copy(out, p.aggs)
	return out
}

// Aggregate returns the aggregate for one grouping key.
func (p *Pipeline) Aggregate(key string) (table.StationAggregate, error) {
	i, ok := p.aggIndex[key]
	if !ok {
		return table.StationAggregate{}, fmt.Errorf("%q: %w", key, ErrUnknownStation)
	}
	return p.aggs[i], nil
}

// Capacity returns a station's capacity and whether the station is known.
func (p *Pipeline) Capacity(name string) (int, bool) {
	c, ok := p.capacity[name]
	return c, ok
}

// Center returns the median latitude and longitude of the whole table.
func (p *Pipeline) Center() (lat, lon float64) {
	return p.centerLat, p.centerLon
}

// Dates returns the distinct snapshot dates in ascending order.
func (p *Pipeline) Dates() []string {
	out := make([]string, len(p.dates))
	copy(out, p.dates)
	return out
}

// TimeSlots returns the fixed 10-minute grid 00:00 ... 23:50.
func (p *Pipeline) TimeSlots() []string {
	out := make([]string, len(p.slots))
	copy(out, p.slots)
	return out
}

// ResolveDate maps "" to the first date and rejects dates without data.
func (p *Pipeline) ResolveDate(date string) (string, error) {
	if date == "" {
		if len(p.dates) == 0 {
			return "", ErrUnknownDate
		}
		return p.dates[0], nil
	}
	i := sort.SearchStrings(p.dates, date)
	if i == len(p.dates) || p.dates[i] != date {
		return "", fmt.Errorf("%q: %w", date, ErrUnknownDate)
	}
	return date, nil
}

func timeSlots() []string {
	n := int(24 * time.Hour / SlotInterval)
	out := make([]string, 0, n)
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		out = append(out, base.Add(time.Duration(i)*SlotInterval).Format(table.TimeLayout))
	}
	return out
}

func distinctDates(t *table.Table) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := 0; i < t.Len(); i++ {
		d := t.Row(i).Date
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func median(t *table.Table) (lat, lon float64) {
	if t.Len() == 0 {
		return 0, 0
	}
	lats := make([]float64, t.Len())
	lons := make([]float64, t.Len())
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		lats[i], lons[i] = r.Lat, r.Lon
	}
	return medianOf(lats), medianOf(lons)
}

func medianOf(v []float64) float64 {
	sort.Float64s(v)
	n := len(v)
	if n%2 == 1 {
		return v[n/2]
	}
	return (v[n/2-1] + v[n/2]) / 2
}
