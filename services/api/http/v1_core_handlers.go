package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/citybike-availability-viewer/internal/pipeline"
)

// handleV1ListStations returns per-station aggregates
// GET /api/v1/core/stations
func (s *Server) handleV1ListStations(c *gin.Context) {
	p := s.pipeline()
	aggs := p.Aggregates()

	data := make([]stationDTO, 0, len(aggs))
	for _, a := range aggs {
		capacity, ok := p.Capacity(a.Name)
		data = append(data, newStationDTO(a, capacity, ok))
	}

	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"meta": gin.H{
			"count":      len(data),
			"rows":       p.Table().Len(),
			"duplicates": p.Duplicates(),
		},
	})
}

// handleV1GetStation returns the aggregate for one station
// GET /api/v1/core/stations/:name
func (s *Server) handleV1GetStation(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "station name is required"})
		return
	}

	p := s.pipeline()
	agg, err := p.Aggregate(name)
	if errors.Is(err, pipeline.ErrUnknownStation) {
		c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	capacity, ok := p.Capacity(agg.Name)
	c.JSON(http.StatusOK, gin.H{
		"data": newStationDTO(agg, capacity, ok),
	})
}

// writeQueryError maps pipeline lookup errors onto HTTP statuses.
func writeQueryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pipeline.ErrUnknownDate), errors.Is(err, pipeline.ErrUnknownStation):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrBadTime):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
