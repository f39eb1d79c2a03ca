package http

import (
	"math"
	"time"

	"github.com/02loveslollipop/citybike-availability-viewer/internal/pipeline"
	"github.com/02loveslollipop/citybike-availability-viewer/internal/table"
)

// JSON cannot carry NaN, so undefined statistics are sent as null.
func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

type stationDTO struct {
	Key                string   `json:"key"`
	Name               string   `json:"name"`
	Lat                float64  `json:"lat"`
	Lon                float64  `json:"lon"`
	AllowDropoff       bool     `json:"allowDropoff"`
	BikesAvailableMean *float64 `json:"bikesAvailable_mean"`
	BikesAvailableStd  *float64 `json:"bikesAvailable_std"`
	Snapshots          int      `json:"snapshots"`
	Capacity           *int     `json:"capacity,omitempty"`
}

func newStationDTO(a table.StationAggregate, capacity int, ok bool) stationDTO {
	dto := stationDTO{
		Key:                a.Key,
		Name:               a.Name,
		Lat:                a.Lat,
		Lon:                a.Lon,
		AllowDropoff:       a.AllowDropoff,
		BikesAvailableMean: nullable(a.BikesAvailableMean),
		BikesAvailableStd:  nullable(a.BikesAvailableStd),
		Snapshots:          a.Snapshots,
	}
	if ok {
		dto.Capacity = &capacity
	}
	return dto
}

type slotDTO struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Color     string `json:"color"`
}

// Slider mark colours.
const (
	slotAvailableColor   = "red"
	slotUnavailableColor = "lightgrey"
)

func newSlotDTOs(slots []pipeline.Slot) []slotDTO {
	out := make([]slotDTO, 0, len(slots))
	for _, s := range slots {
		color := slotUnavailableColor
		if s.Available {
			color = slotAvailableColor
		}
		out = append(out, slotDTO{Time: s.Time, Available: s.Available, Color: color})
	}
	return out
}

type pointDTO struct {
	Name           string  `json:"name"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	BikesAvailable int     `json:"bikesAvailable"`
	Label          string  `json:"label"`
}

type centerDTO struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type mapDTO struct {
	Date        string     `json:"date"`
	Times       []string   `json:"times"`
	Points      []pointDTO `json:"points"`
	Center      centerDTO  `json:"center"`
	Zoom        int        `json:"zoom"`
	ColorScale  [][2]any   `json:"colorscale"`
	AccessToken string     `json:"mapboxAccessToken"`
}

// Marker colour is driven by bikesAvailable: empty stations red, blue from
// a quarter of the way up.
var markerColorScale = [][2]any{
	{0, "rgba(178, 24, 43, 0.7)"},
	{0.25, "rgba(33, 102, 172, 0.7)"},
	{1, "rgba(33, 102, 172, 0.7)"},
}

const mapZoom = 11

func newMapDTO(v pipeline.MapView, token string) mapDTO {
	points := make([]pointDTO, 0, len(v.Points))
	for _, p := range v.Points {
		points = append(points, pointDTO{
			Name:           p.Name,
			Lat:            p.Lat,
			Lon:            p.Lon,
			BikesAvailable: p.BikesAvailable,
			Label:          p.Label,
		})
	}
	return mapDTO{
		Date:        v.Date,
		Times:       v.Times,
		Points:      points,
		Center:      centerDTO{Lat: v.CenterLat, Lon: v.CenterLon},
		Zoom:        mapZoom,
		ColorScale:  markerColorScale,
		AccessToken: token,
	}
}

type seriesPointDTO struct {
	Timestamp      time.Time `json:"timestamp"`
	Time           string    `json:"time"`
	BikesAvailable int       `json:"bikesAvailable"`
	Percent        *float64  `json:"percent"`
}

type stationDayDTO struct {
	Station  string           `json:"station"`
	Date     string           `json:"date"`
	Capacity int              `json:"capacity"`
	Points   []seriesPointDTO `json:"points"`
}

func newStationDayDTO(d pipeline.StationDay) stationDayDTO {
	points := make([]seriesPointDTO, 0, len(d.Points))
	for _, p := range d.Points {
		points = append(points, seriesPointDTO{
			Timestamp:      p.Timestamp,
			Time:           p.Timestamp.Format(table.TimeLayout),
			BikesAvailable: p.BikesAvailable,
			Percent:        nullable(p.Percent),
		})
	}
	return stationDayDTO{
		Station:  d.Station,
		Date:     d.Date,
		Capacity: d.Capacity,
		Points:   points,
	}
}
