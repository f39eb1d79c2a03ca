// Package snapshot reads stored station-state snapshot files and turns each
// one into records tagged with the snapshot time encoded in its filename.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrNoTimestamp is returned when a filename carries no snapshot time.
	ErrNoTimestamp = errors.New("filename has no snapshot timestamp")
	// ErrNotText is returned for files that are not valid UTF-8.
	ErrNotText = errors.New("file is not valid text")
	// ErrNoResult is returned when the payload lacks the station list.
	ErrNoResult = errors.New(`key "result" not in file`)
)

// Filenames look like stations_20190601T000101Z.json.
var stampPattern = regexp.MustCompile(`(\d{8}T\d{4}(?:\d{2})?)Z?`)

// TimestampFromName extracts the UTC snapshot time from a snapshot filename.
func TimestampFromName(name string) (time.Time, error) {
	m := stampPattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return time.Time{}, fmt.Errorf("%s: %w", name, ErrNoTimestamp)
	}
	layout := "20060102T150405"
	if len(m[1]) == len("20060102T1504") {
		layout = "20060102T1504"
	}
	ts, err := time.ParseInLocation(layout, m[1], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", name, ErrNoTimestamp)
	}
	return ts, nil
}

// ParseBytes decodes one snapshot file. Nothing is returned unless the whole
// file decodes, so a bad file never contributes partial rows.
func ParseBytes(name string, data []byte) ([]Record, error) {
	ts, err := TimestampFromName(name)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, ErrNotText
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if payload.Result == nil {
		return nil, ErrNoResult
	}

	records := make([]Record, 0, len(*payload.Result))
	for _, st := range *payload.Result {
		records = append(records, Record{
			RawStation: st,
			Timestamp:  ts,
			Source:     filepath.Base(name),
		})
	}
	return records, nil
}

// ParseFile reads and decodes the snapshot stored at path.
func ParseFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(filepath.Base(path), data)
}

// Report summarises one batch parse.
type Report struct {
	Files   int
	Parsed  int
	Skipped int
	Rows    int
}

// ParseFiles decodes every path in order. Files that fail are logged and
// skipped; the batch always runs to completion.
func ParseFiles(paths []string) ([]Record, Report) {
	var (
		out    []Record
		report Report
	)
	for _, path := range paths {
		report.Files++
		recs, err := ParseFile(path)
		if err != nil {
			report.Skipped++
			log.Printf("skipping %s: %v", filepath.Base(path), err)
			continue
		}
		report.Parsed++
		report.Rows += len(recs)
		out = append(out, recs...)
	}
	return out, report
}

// ListDir returns the snapshot files in dir sorted by name, which for the
// stations_<timestamp> convention is chronological order.
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// ParseDir parses every snapshot file in dir. Only an unreadable directory
// is an error.
func ParseDir(dir string) ([]Record, Report, error) {
	paths, err := ListDir(dir)
	if err != nil {
		return nil, Report{}, err
	}
	recs, report := ParseFiles(paths)
	log.Printf("parsed %d/%d snapshot files from %s (%d skipped, %d rows)",
		report.Parsed, report.Files, dir, report.Skipped, report.Rows)
	return recs, report, nil
}
