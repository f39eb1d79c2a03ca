package http

// registerV1Routes sets up the v1 API structure
// Groups: /api/v1/core, /api/v1/map, /api/v1/stations, /api/v1/admin
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware()) // Add X-API-Version: v1 header

	// Core endpoints - per-station aggregates
	core := v1.Group("/core")
	{
		core.GET("/stations", s.handleV1ListStations)
		core.GET("/stations/:name", s.handleV1GetStation)
	}

	// Map endpoints - date picker, time slider and markers
	mapGroup := v1.Group("/map")
	{
		mapGroup.GET("", s.handleV1Map)
		mapGroup.GET("/dates", s.handleV1MapDates)
		mapGroup.GET("/times", s.handleV1MapTimes)
	}

	// Station endpoints - one station's day
	stations := v1.Group("/stations")
	{
		stations.GET("/:name/day", s.handleV1StationDay)
	}

	admin := v1.Group("/admin")
	{
		admin.POST("/reload", s.handleV1Reload)
	}
}
