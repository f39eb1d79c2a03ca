package pipeline

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/02loveslollipop/citybike-availability-viewer/internal/aggregate"
	"github.com/02loveslollipop/citybike-availability-viewer/internal/table"
)

// Slot is one time-of-day selector entry.
type Slot struct {
	Time      string
	Available bool
}

// AvailableTimes marks which 10-minute slots have data on date.
func (p *Pipeline) AvailableTimes(date string) (string, []Slot, error) {
	date, err := p.ResolveDate(date)
	if err != nil {
		return "", nil, err
	}
	present := make(map[string]struct{})
	for _, r := range p.table.Filter(func(r table.Row) bool { return r.Date == date }) {
		present[r.Time] = struct{}{}
	}
	out := make([]Slot, 0, len(p.slots))
	for _, s := range p.slots {
		_, ok := present[s]
		out = append(out, Slot{Time: s, Available: ok})
	}
	return date, out, nil
}

// MapPoint is one station marker.
type MapPoint struct {
	Name           string
	Lat            float64
	Lon            float64
	BikesAvailable int
	Label          string
}

// MapView is every station at one date and time of day.
type MapView struct {
	Date      string
	Times     []string
	Points    []MapPoint
	CenterLat float64
	CenterLon float64
}

// MapView returns station markers for date at clock. An empty date picks
// the first date; an empty clock selects every 10-minute slot.
func (p *Pipeline) MapView(date, clock string) (MapView, error) {
	date, err := p.ResolveDate(date)
	if err != nil {
		return MapView{}, err
	}

	times := p.slots
	if clock != "" {
		c, err := time.Parse(table.TimeLayout, clock)
		if err != nil {
			return MapView{}, fmt.Errorf("%q: %w", clock, ErrBadTime)
		}
		times = []string{c.Format(table.TimeLayout)}
	}
	want := make(map[string]struct{}, len(times))
	for _, t := range times {
		want[t] = struct{}{}
	}

	rows := p.table.Filter(func(r table.Row) bool {
		if r.Date != date {
			return false
		}
		_, ok := want[r.Time]
		return ok
	})

	view := MapView{
		Date:      date,
		Times:     append([]string(nil), times...),
		Points:    make([]MapPoint, 0, len(rows)),
		CenterLat: p.centerLat,
		CenterLon: p.centerLon,
	}
	for _, r := range rows {
		view.Points = append(view.Points, MapPoint{
			Name:           r.Name,
			Lat:            r.Lat,
			Lon:            r.Lon,
			BikesAvailable: r.BikesAvailable,
			Label:          HoverLabel(r),
		})
	}
	return view, nil
}

// HoverLabel renders "name: bikes" for a marker.
func HoverLabel(r table.Row) string {
	return r.Name + ": " + strconv.Itoa(r.BikesAvailable)
}

// SeriesPoint is one snapshot in a station's day.
type SeriesPoint struct {
	Timestamp      time.Time
	BikesAvailable int
	// Percent of capacity; NaN when the station has no capacity.
	Percent float64
}

// StationDay is a station's availability over one date.
type StationDay struct {
	Station  string
	Date     string
	Capacity int
	Points   []SeriesPoint
}

// StationDay returns the chronological bike count and percent of capacity
// for station on date. Empty arguments fall back to the default station and
// the first date.
func (p *Pipeline) StationDay(station, date string) (StationDay, error) {
	if station == "" {
		station = p.opts.DefaultStation
	}
	capacity, ok := p.capacity[station]
	if !ok {
		return StationDay{}, fmt.Errorf("%q: %w", station, ErrUnknownStation)
	}
	date, err := p.ResolveDate(date)
	if err != nil {
		return StationDay{}, err
	}

	rows := p.table.Filter(func(r table.Row) bool {
		return r.Date == date && r.Name == station
	})
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})

	day := StationDay{
		Station:  station,
		Date:     date,
		Capacity: capacity,
		Points:   make([]SeriesPoint, 0, len(rows)),
	}
	for _, r := range rows {
		day.Points = append(day.Points, SeriesPoint{
			Timestamp:      r.Timestamp,
			BikesAvailable: r.BikesAvailable,
			Percent:        aggregate.PercentOfCapacity(r.BikesAvailable, capacity),
		})
	}
	return day, nil
}
