package aggregate

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/02loveslollipop/citybike-availability-viewer/internal/table"
)

func row(name string, lat, lon float64, bikes int, dropoff bool, minute int) table.Row {
	r := table.Row{
		Name:            name,
		Lat:             lat,
		Lon:             lon,
		BikesAvailable:  bikes,
		SpacesAvailable: 10 - bikes,
		AllowDropoff:    dropoff,
	}
	return r.WithTimestamp(time.Date(2019, 6, 1, 8, minute, 0, 0, time.UTC))
}

func TestStationsExample(t *testing.T) {
	tbl := table.New([]table.Row{
		row("A", 60.17, 24.94, 5, true, 0),
		row("A", 60.17, 24.94, 7, true, 1),
		row("A", 60.18, 24.95, 9, false, 2),
		row("B", 60.20, 24.90, 4, true, 0),
	})

	aggs := Stations(tbl, nil)
	if len(aggs) != 2 {
		t.Fatalf("expected 2 aggregates, got %d", len(aggs))
	}

	a := aggs[0]
	if a.Key != "A" || a.Name != "A" {
		t.Fatalf("first aggregate = %+v, want station A", a)
	}
	if a.BikesAvailableMean != 7 {
		t.Errorf("mean = %v, want 7", a.BikesAvailableMean)
	}
	if math.Abs(a.BikesAvailableStd-2) > 1e-12 {
		t.Errorf("std = %v, want 2", a.BikesAvailableStd)
	}
	if a.Lat != 60.17 || a.Lon != 24.94 || !a.AllowDropoff {
		t.Errorf("modal fields = %v,%v,%v", a.Lat, a.Lon, a.AllowDropoff)
	}
	if a.Snapshots != 3 {
		t.Errorf("snapshots = %d, want 3", a.Snapshots)
	}

	b := aggs[1]
	if b.BikesAvailableMean != 4 {
		t.Errorf("single snapshot mean = %v, want 4", b.BikesAvailableMean)
	}
	if !math.IsNaN(b.BikesAvailableStd) {
		t.Errorf("single snapshot std = %v, want NaN", b.BikesAvailableStd)
	}
}

func TestStationsModeTieBreak(t *testing.T) {
	tbl := table.New([]table.Row{
		row("A", 60.19, 24.99, 1, true, 0),
		row("A", 60.17, 24.97, 1, false, 1),
	})
	a := Stations(tbl, nil)[0]
	if a.Lat != 60.17 || a.Lon != 24.97 {
		t.Errorf("tie should pick the smallest coordinate, got %v,%v", a.Lat, a.Lon)
	}
	if a.AllowDropoff {
		t.Error("tie on the dropoff flag should pick false")
	}
}

func TestStationsOrderIndependent(t *testing.T) {
	var rows []table.Row
	for i := 0; i < 60; i++ {
		name := []string{"A", "B", "C"}[i%3]
		lat := 60.17 + float64(i%4)*0.0001
		rows = append(rows, row(name, lat, 24.94, (i*7)%13, i%5 != 0, i%60))
	}
	want := Stations(table.New(rows), nil)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 5; trial++ {
		shuffled := append([]table.Row(nil), rows...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := Stations(table.New(shuffled), nil)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("trial %d: permuted input changed aggregates\n got  %+v\n want %+v", trial, got, want)
		}
	}
}

func TestStationsCustomKey(t *testing.T) {
	tbl := table.New([]table.Row{
		row("A", 60.17, 24.94, 2, true, 0),
		row("A", 60.17, 24.94, 4, true, 1),
		row("Old A", 60.17, 24.94, 6, true, 2),
	})
	byLocation := func(r table.Row) string { return "60.17,24.94" }
	aggs := Stations(tbl, byLocation)
	if len(aggs) != 1 {
		t.Fatalf("expected 1 group, got %d", len(aggs))
	}
	if aggs[0].Name != "A" {
		t.Errorf("name should be the modal name, got %q", aggs[0].Name)
	}
	if aggs[0].BikesAvailableMean != 4 {
		t.Errorf("mean = %v, want 4", aggs[0].BikesAvailableMean)
	}
}

func TestCapacity(t *testing.T) {
	tbl := table.New([]table.Row{
		{Name: "A", BikesAvailable: 3, SpacesAvailable: 13},
		{Name: "A", BikesAvailable: 2, SpacesAvailable: 12},
		{Name: "B", BikesAvailable: 0, SpacesAvailable: 0},
	})
	capacity := Capacity(tbl)
	if capacity["A"] != 14 {
		t.Errorf("capacity A = %d, want 14", capacity["A"])
	}
	if c, ok := capacity["B"]; !ok || c != 0 {
		t.Errorf("capacity B = %d (ok=%v), want 0", c, ok)
	}
}

func TestPercentOfCapacity(t *testing.T) {
	if got := PercentOfCapacity(5, 20); got != 25 {
		t.Errorf("PercentOfCapacity(5, 20) = %v, want 25", got)
	}
	if got := PercentOfCapacity(5, 0); !math.IsNaN(got) {
		t.Errorf("PercentOfCapacity(5, 0) = %v, want NaN", got)
	}
}
