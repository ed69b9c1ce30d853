package api

import (
	"github.com/labstack/echo/v4"
	"github.com/nrtkbb/desparse/metrics"
)

// RegisterRoutes mounts the journal API and the metrics endpoint on e.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/api/runs", h.ListRuns)
	e.GET("/api/runs/:id", h.GetRun)
	e.GET("/api/runs/:id/results", h.ListResults)
	e.GET("/api/search", h.SearchResults)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}
