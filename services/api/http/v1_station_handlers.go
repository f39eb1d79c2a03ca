package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleV1StationDay returns one station's availability over a date.
// The name "default" selects the configured default station.
// GET /api/v1/stations/:name/day?date=YYYY-MM-DD
func (s *Server) handleV1StationDay(c *gin.Context) {
	name := c.Param("name")
	if name == "default" {
		name = ""
	}
	date := c.Query("date")
	p, gen := s.current()

	v, err := s.cached(gen, "day|"+name+"|"+date, func() (any, error) {
		day, err := p.StationDay(name, date)
		if err != nil {
			return nil, err
		}
		return newStationDayDTO(day), nil
	})
	if err != nil {
		writeQueryError(c, err)
		return
	}

	day := v.(stationDayDTO)
	c.JSON(http.StatusOK, gin.H{
		"data": day,
		"meta": gin.H{
			"count": len(day.Points),
		},
	})
}
