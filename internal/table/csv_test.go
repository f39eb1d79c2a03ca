package table

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleRows() []Row {
	ts := time.Date(2019, 6, 1, 8, 30, 1, 0, time.UTC)
	return []Row{
		Row{Name: "Porthania", Lat: 60.1699, Lon: 24.9384, BikesAvailable: 5, SpacesAvailable: 11, TotalSpaces: 16, AllowDropoff: true, Status: "CB"}.WithTimestamp(ts),
		Row{Name: "Kaivopuisto", Lat: 60.1554, Lon: 24.9504, BikesAvailable: 0, SpacesAvailable: 30, TotalSpaces: 30, AllowDropoff: false, Status: ""}.WithTimestamp(ts.Add(time.Minute)),
	}
}

func TestWriteCSVColumns(t *testing.T) {
	var buf bytes.Buffer
	if err := New(sampleRows()).WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 lines, got %d", len(lines))
	}
	if lines[0] != strings.Join(Columns, ",") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "2019-06-01 08:30") || !strings.Contains(lines[1], "2019-06-01T08:30:00Z") {
		t.Errorf("first line missing timestamp columns: %q", lines[1])
	}
}

func TestReadCSVRestoresRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "table.csv")
	rows := sampleRows()
	if err := New(rows).WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("read %d rows, want %d", len(got), len(rows))
	}
	for i := range rows {
		if !got[i].Timestamp.Equal(rows[i].Timestamp) {
			t.Errorf("row %d timestamp = %v, want %v", i, got[i].Timestamp, rows[i].Timestamp)
		}
		g, w := got[i], rows[i]
		g.Timestamp, w.Timestamp = time.Time{}, time.Time{}
		if g != w {
			t.Errorf("row %d = %+v, want %+v", i, g, w)
		}
	}
}

func TestReadCSVMissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("name,lat\nA,60.2\n"))
	if err == nil {
		t.Fatal("expected error for missing columns")
	}
}

func TestEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	if err := New(nil).WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV on empty table failed: %v", err)
	}
	rows, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV of header-only file failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestWriteAggregatesCSVKeepsNaN(t *testing.T) {
	var buf bytes.Buffer
	aggs := []StationAggregate{
		{Key: "A", Name: "A", Lat: 60.17, Lon: 24.94, AllowDropoff: true, BikesAvailableMean: 7, BikesAvailableStd: 2, Snapshots: 3},
		{Key: "B", Name: "B", Lat: 60.2, Lon: 24.9, BikesAvailableMean: 4, BikesAvailableStd: math.NaN(), Snapshots: 1},
	}
	if err := WriteAggregatesCSV(&buf, aggs); err != nil {
		t.Fatalf("WriteAggregatesCSV failed: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, strings.Join(AggregateColumns, ",")) {
		t.Errorf("unexpected header in %q", out)
	}
	if !strings.Contains(out, "NaN") {
		t.Errorf("undefined std should be written as NaN: %q", out)
	}
}

func TestStampAgrees(t *testing.T) {
	ts, date, clock := Stamp(time.Date(2019, 6, 1, 23, 59, 59, 999, time.FixedZone("EEST", 3*3600)))
	if date != "2019-06-01" || clock != "20:59" {
		t.Errorf("Stamp gave %s %s", date, clock)
	}
	if ts.Format(TimestampLayout) != date+" "+clock {
		t.Errorf("timestamp %v disagrees with %s %s", ts, date, clock)
	}
}

func TestNAStationNameSurvives(t *testing.T) {
	ts := time.Date(2019, 6, 1, 8, 30, 1, 0, time.UTC)
	rows := []Row{
		Row{Name: "NA", Lat: 60.17, Lon: 24.94, BikesAvailable: 2, SpacesAvailable: 8, TotalSpaces: 10, AllowDropoff: true, Status: "NA"}.WithTimestamp(ts),
	}
	var buf bytes.Buffer
	if err := New(rows).WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if strings.Contains(buf.String(), "NaN") {
		t.Errorf("text column rewritten as NaN: %q", buf.String())
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "NA" || got[0].Status != "NA" {
		t.Errorf("rows = %+v", got)
	}

	buf.Reset()
	aggs := []StationAggregate{{Key: "NA", Name: "NA", Lat: 60.17, Lon: 24.94, BikesAvailableMean: 2, BikesAvailableStd: math.NaN(), Snapshots: 1}}
	if err := WriteAggregatesCSV(&buf, aggs); err != nil {
		t.Fatalf("WriteAggregatesCSV failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "NA,NA,") || !strings.Contains(lines[1], "NaN") {
		t.Errorf("aggregate line = %q", lines[len(lines)-1])
	}
}
