package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
)

// Columns lists the canonical on-disk columns in order.
var Columns = []string{
	"name", "lat", "lon", "bikesAvailable", "spacesAvailable", "totalSpaces",
	"allowDropoff", "status", "Timestamp", "date", "time", "datetime",
}

// AggregateColumns lists the aggregate export columns in order.
var AggregateColumns = []string{
	"key", "name", "lat", "lon", "allowDropoff",
	"bikesAvailable_mean", "bikesAvailable_std", "snapshots",
}

type csvRow struct {
	Name            string  `dataframe:"name"`
	Lat             float64 `dataframe:"lat"`
	Lon             float64 `dataframe:"lon"`
	BikesAvailable  int     `dataframe:"bikesAvailable"`
	SpacesAvailable int     `dataframe:"spacesAvailable"`
	TotalSpaces     int     `dataframe:"totalSpaces"`
	AllowDropoff    bool    `dataframe:"allowDropoff"`
	Status          string  `dataframe:"status"`
	Timestamp       string  `dataframe:"Timestamp"`
	Date            string  `dataframe:"date"`
	Time            string  `dataframe:"time"`
	Datetime        string  `dataframe:"datetime"`
}

type csvAggregate struct {
	Key          string  `dataframe:"key"`
	Name         string  `dataframe:"name"`
	Lat          float64 `dataframe:"lat"`
	Lon          float64 `dataframe:"lon"`
	AllowDropoff bool    `dataframe:"allowDropoff"`
	Mean         float64 `dataframe:"bikesAvailable_mean"`
	Std          float64 `dataframe:"bikesAvailable_std"`
	Snapshots    int     `dataframe:"snapshots"`
}

// WriteCSV writes the table in the canonical column layout.
func (t *Table) WriteCSV(w io.Writer) error {
	if t.Len() == 0 {
		return writeHeader(w, Columns)
	}
	records := make([]csvRow, 0, t.Len())
	for _, r := range t.rows {
		records = append(records, csvRow{
			Name:            r.Name,
			Lat:             r.Lat,
			Lon:             r.Lon,
			BikesAvailable:  r.BikesAvailable,
			SpacesAvailable: r.SpacesAvailable,
			TotalSpaces:     r.TotalSpaces,
			AllowDropoff:    r.AllowDropoff,
			Status:          r.Status,
			Timestamp:       r.TimestampText(),
			Date:            r.Date,
			Time:            r.Time,
			Datetime:        r.Datetime(),
		})
	}
	// A station may literally be called "NA"; keep text values verbatim.
	df := dataframe.LoadStructs(records, dataframe.NaNValues(nil))
	if df.Err != nil {
		return fmt.Errorf("build table frame: %w", df.Err)
	}
	return df.WriteCSV(w)
}

// WriteAggregatesCSV writes per-station aggregates. A NaN standard deviation
// is written as NaN.
func WriteAggregatesCSV(w io.Writer, aggs []StationAggregate) error {
	if len(aggs) == 0 {
		return writeHeader(w, AggregateColumns)
	}
	records := make([]csvAggregate, 0, len(aggs))
	for _, a := range aggs {
		records = append(records, csvAggregate{
			Key:          a.Key,
			Name:         a.Name,
			Lat:          a.Lat,
			Lon:          a.Lon,
			AllowDropoff: a.AllowDropoff,
			Mean:         a.BikesAvailableMean,
			Std:          a.BikesAvailableStd,
			Snapshots:    a.Snapshots,
		})
	}
	df := dataframe.LoadStructs(records, dataframe.NaNValues(nil))
	if df.Err != nil {
		return fmt.Errorf("build aggregate frame: %w", df.Err)
	}
	return df.WriteCSV(w)
}

func writeHeader(w io.Writer, cols []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV loads rows written by WriteCSV. Date and time are re-derived from
// Timestamp rather than trusted from disk.
func ReadCSV(r io.Reader) ([]Row, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read table csv: %w", err)
	}
	if len(records) <= 1 {
		return []Row{}, nil
	}

	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.HasHeader(true),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read table csv: %w", df.Err)
	}

	cols := make(map[string][]string, len(Columns))
	for _, name := range []string{
		"name", "lat", "lon", "bikesAvailable", "spacesAvailable",
		"totalSpaces", "allowDropoff", "status", "Timestamp",
	} {
		s := df.Col(name)
		if s.Err != nil {
			return nil, fmt.Errorf("read table csv: missing column %q", name)
		}
		cols[name] = s.Records()
	}

	rows := make([]Row, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		row, err := parseRecord(cols, i)
		if err != nil {
			return nil, fmt.Errorf("read table csv: line %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(cols map[string][]string, i int) (Row, error) {
	var (
		row Row
		err error
	)
	row.Name = cols["name"][i]
	row.Status = cols["status"][i]
	if row.Lat, err = strconv.ParseFloat(cols["lat"][i], 64); err != nil {
		return row, fmt.Errorf("lat: %w", err)
	}
	if row.Lon, err = strconv.ParseFloat(cols["lon"][i], 64); err != nil {
		return row, fmt.Errorf("lon: %w", err)
	}
	if row.BikesAvailable, err = atoi(cols["bikesAvailable"][i]); err != nil {
		return row, fmt.Errorf("bikesAvailable: %w", err)
	}
	if row.SpacesAvailable, err = atoi(cols["spacesAvailable"][i]); err != nil {
		return row, fmt.Errorf("spacesAvailable: %w", err)
	}
	if row.TotalSpaces, err = atoi(cols["totalSpaces"][i]); err != nil {
		return row, fmt.Errorf("totalSpaces: %w", err)
	}
	if row.AllowDropoff, err = strconv.ParseBool(cols["allowDropoff"][i]); err != nil {
		return row, fmt.Errorf("allowDropoff: %w", err)
	}
	ts, err := ParseTimestamp(cols["Timestamp"][i])
	if err != nil {
		return row, err
	}
	return row.WithTimestamp(ts), nil
}

func atoi(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// ParseTimestamp accepts the on-disk Timestamp format and RFC 3339.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(TimestampLayout, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid Timestamp %q", s)
	}
	return t, nil
}

// WriteFile writes the table to path, creating parent directories.
func (t *Table) WriteFile(path string) error {
	return writeFile(path, t.WriteCSV)
}

// WriteAggregatesFile writes aggregates to path, creating parent directories.
func WriteAggregatesFile(path string, aggs []StationAggregate) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteAggregatesCSV(w, aggs)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads a table CSV from path.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}
