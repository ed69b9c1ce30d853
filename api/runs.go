package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nrtkbb/desparse/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ListRuns returns journal runs, newest first
func (h *Handler) ListRuns(c echo.Context) error {
	ctx := c.Request().Context()
	tracer := otel.Tracer("api/handlers")
	ctx, span := tracer.Start(ctx, "ListRuns")
	defer span.End()

	c.SetRequest(c.Request().WithContext(ctx))

	var total int
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&total); err != nil {
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get total count")
	}

	page, err := h.getPageFromQuery(c, total)
	if err != nil {
		span.RecordError(err)
		return err
	}
	offset := (page - 1) * perPage

	rows, err := h.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, run_id
		LIMIT ? OFFSET ?
	`, perPage, offset)
	if err != nil {
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list runs")
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			span.RecordError(err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to scan row")
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list runs")
	}

	return c.JSON(http.StatusOK, NewPaginatedResponse(c, runs, page, perPage, total))
}

// GetRun returns a single run with its totals
func (h *Handler) GetRun(c echo.Context) error {
	ctx := c.Request().Context()
	tracer := otel.Tracer("api/handlers")
	ctx, span := tracer.Start(ctx, "GetRun")
	defer span.End()

	runID := c.Param("id")
	span.SetAttributes(attribute.String("run_id", runID))

	row := h.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return echo.NewHTTPError(http.StatusNotFound, "Run not found")
	}
	if err != nil {
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get run")
	}

	return c.JSON(http.StatusOK, r)
}

// ListResults returns the results of a run, optionally filtered by outcome
func (h *Handler) ListResults(c echo.Context) error {
	ctx := c.Request().Context()
	tracer := otel.Tracer("api/handlers")
	ctx, span := tracer.Start(ctx, "ListResults")
	defer span.End()

	c.SetRequest(c.Request().WithContext(ctx))

	runID := c.Param("id")
	span.SetAttributes(attribute.String("run_id", runID))

	var exists int
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE run_id = ?", runID).Scan(&exists); err != nil {
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get run")
	}
	if exists == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "Run not found")
	}

	where := " WHERE run_id = ?"
	params := []interface{}{runID}
	if outcome := c.QueryParam("outcome"); outcome != "" {
		kind, ok := models.ParseOutcomeKind(outcome)
		if !ok {
			err := echo.NewHTTPError(http.StatusBadRequest, "Unknown outcome: "+outcome)
			span.RecordError(err)
			return err
		}
		span.SetAttributes(attribute.String("outcome", kind.String()))
		where += " AND outcome = ?"
		params = append(params, kind.String())
	}

	var total int
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM results"+where, params...).Scan(&total); err != nil {
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get total count")
	}

	page, err := h.getPageFromQuery(c, total)
	if err != nil {
		span.RecordError(err)
		return err
	}
	offset := (page - 1) * perPage

	rows, err := h.db.QueryContext(ctx, `
		SELECT `+resultColumns+`
		FROM results`+where+`
		ORDER BY result_id
		LIMIT ? OFFSET ?
	`, append(params, perPage, offset)...)
	if err != nil {
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list results")
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
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list results")
	}

	return c.JSON(http.StatusOK, NewPaginatedResponse(c, results, page, perPage, total))
}
