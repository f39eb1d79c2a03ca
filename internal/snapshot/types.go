package snapshot

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Payload models one stored snapshot file. Result is a pointer so a file
// without the key can be told apart from an empty station list.
type Payload struct {
	Result *[]RawStation `json:"result"`
}

// RawStation is a single station entry as the feed reports it.
type RawStation struct {
	Name        string   `json:"name"`
	Coordinates string   `json:"coordinates"`
	AvlBikes    FlexInt  `json:"avl_bikes"`
	FreeSlots   FlexInt  `json:"free_slots"`
	TotalSlots  FlexInt  `json:"total_slots"`
	Operative   FlexBool `json:"operative"`
	Style       string   `json:"style"`
}

// Record is one station entry tagged with the snapshot it came from.
type Record struct {
	RawStation
	Timestamp time.Time
	Source    string
}

// FlexInt decodes integers the feed sometimes sends as floats or quoted
// strings. null decodes to zero; fractional values truncate toward zero.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (v *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*v = FlexInt(n)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid integer value %s", data)
	}
	*v = FlexInt(int(f))
	return nil
}

// FlexBool decodes the operative flag, which has been seen as a JSON bool,
// a 0/1 number and a quoted string.
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (v *FlexBool) UnmarshalJSON(data []byte) error {
	s := strings.ToLower(strings.Trim(strings.TrimSpace(string(data)), `"`))
	switch s {
	case "", "null", "false", "0", "no", "f", "n":
		*v = false
	case "true", "1", "yes", "t", "y":
		*v = true
	default:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid boolean value %s", data)
		}
		*v = f != 0
	}
	return nil
}
