// Package aggregate computes per-station summaries over the normalized table.
package aggregate

import (
	"math"
	"sort"

	"github.com/02loveslollipop/citybike-availability-viewer/internal/stats"
	"github.com/02loveslollipop/citybike-availability-viewer/internal/table"
)

// KeyFunc picks the grouping key of a row.
type KeyFunc func(table.Row) string

// ByName groups rows by station name.
func ByName(r table.Row) string { return r.Name }

type group struct {
	names []string
	lats  []float64
	lons  []float64
	flags []bool
	bikes []float64
}

// Stations returns one aggregate per distinct key, sorted by key. Location
// and the dropoff flag are the mode over all snapshots (ties to the smallest
// value); bikes available get mean and sample standard deviation. A nil key
// groups by station name.
func Stations(t *table.Table, key KeyFunc) []table.StationAggregate {
	if key == nil {
		key = ByName
	}

	groups := make(map[string]*group)
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		k := key(r)
		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
		}
		g.names = append(g.names, r.Name)
		g.lats = append(g.lats, r.Lat)
		g.lons = append(g.lons, r.Lon)
		g.flags = append(g.flags, r.AllowDropoff)
		g.bikes = append(g.bikes, float64(r.BikesAvailable))
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]table.StationAggregate, 0, len(keys))
	for _, k := range keys {
		out = append(out, reduce(k, groups[k]))
	}
	return out
}

func reduce(key string, g *group) table.StationAggregate {
	name, _ := stats.Mode(g.names)
	lat, _ := stats.Mode(g.lats)
	lon, _ := stats.Mode(g.lons)
	flag, _ := stats.ModeBool(g.flags)

	// Sorted input keeps the floating point result independent of row order.
	sort.Float64s(g.bikes)
	mean, std := stats.MeanStd(g.bikes)

	return table.StationAggregate{
		Key:                key,
		Name:               name,
		Lat:                lat,
		Lon:                lon,
		AllowDropoff:       flag,
		BikesAvailableMean: mean,
		BikesAvailableStd:  std,
		Snapshots:          len(g.bikes),
	}
}

// Capacity returns each station's usable capacity: the smallest observed
// bikes + spaces sum across its snapshots.
func Capacity(t *table.Table) map[string]int {
	out := make(map[string]int)
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		space := r.BikesAvailable + r.SpacesAvailable
		if cur, ok := out[r.Name]; !ok || space < cur {
			out[r.Name] = space
		}
	}
	return out
}

// PercentOfCapacity returns bikes as a percentage of capacity, or NaN when
// the station has no capacity.
func PercentOfCapacity(bikes, capacity int) float64 {
	if capacity <= 0 {
		return math.NaN()
	}
	return float64(bikes) / float64(capacity) * 100
}
