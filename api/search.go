package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// SearchResults finds results whose path contains the given substring,
// across all runs, newest first
func (h *Handler) SearchResults(c echo.Context) error {
	ctx := c.Request().Context()
	tracer := otel.Tracer("api/handlers")
	ctx, span := tracer.Start(ctx, "SearchResults")
	defer span.End()

	path := c.QueryParam("path")
	if path == "" {
		err := echo.NewHTTPError(http.StatusBadRequest, "Path parameter is required")
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.String("path", path))

	rows, err := h.db.QueryContext(ctx, `
		SELECT `+resultColumns+`
		FROM results
		WHERE instr(path, ?) > 0
		ORDER BY recorded_at DESC, result_id DESC
		LIMIT ?
	`, path, perPage)
	if err != nil {
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to search results")
	}
	defer rows.Close()

	results := []Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			span.RecordError(err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to scan row")
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to search results")
	}
	span.SetAttributes(attribute.Int("response_items", len(results)))

	return c.JSON(http.StatusOK, results)
}
