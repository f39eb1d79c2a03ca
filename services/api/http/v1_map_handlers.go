package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// handleV1MapDates returns the dates available in the date picker
// GET /api/v1/map/dates
func (s *Server) handleV1MapDates(c *gin.Context) {
	dates := s.pipeline().Dates()
	c.JSON(http.StatusOK, gin.H{
		"data": dates,
		"meta": gin.H{
			"count": len(dates),
		},
	})
}

// handleV1MapTimes returns the slider marks for a date
// GET /api/v1/map/times?date=YYYY-MM-DD
func (s *Server) handleV1MapTimes(c *gin.Context) {
	p := s.pipeline()
	date, slots, err := p.AvailableTimes(c.Query("date"))
	if err != nil {
		writeQueryError(c, err)
		return
	}

	available := 0
	for _, slot := range slots {
		if slot.Available {
			available++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": newSlotDTOs(slots),
		"meta": gin.H{
			"date":      date,
			"count":     len(slots),
			"available": available,
		},
	})
}

// handleV1Map returns station markers for a date and time of day
// GET /api/v1/map?date=YYYY-MM-DD&time=HH:MM
func (s *Server) handleV1Map(c *gin.Context) {
	date, clock := c.Query("date"), c.Query("time")
	p, gen := s.current()

	v, err := s.cached(gen, "map|"+date+"|"+clock, func() (any, error) {
		view, err := p.MapView(date, clock)
		if err != nil {
			return nil, err
		}
		return newMapDTO(view, s.cfg.MapboxAccessToken), nil
	})
	if err != nil {
		writeQueryError(c, err)
		return
	}

	view := v.(mapDTO)
	c.JSON(http.StatusOK, gin.H{
		"data": view,
		"meta": gin.H{
			"count": len(view.Points),
		},
	})
}

// handleV1Reload rebuilds the table from its source
// POST /api/v1/admin/reload
func (s *Server) handleV1Reload(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Minute)
	defer cancel()

	if err := s.Reload(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	p := s.pipeline()
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"rows":     p.Table().Len(),
			"stations": len(p.Aggregates()),
			"dates":    len(p.Dates()),
		},
	})
}
