package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const perPage = 100

type Handler struct {
	db *sql.DB
}

func NewHandler(db *sql.DB) *Handler {
	return &Handler{db: db}
}

// NewPaginatedResponse creates a new paginated response and adds telemetry
func NewPaginatedResponse(c echo.Context, data interface{}, page int, perPage int, total int) *PaginatedResponse {
	totalPages := (total + perPage - 1) / perPage
	hasNext := page < totalPages

	if span := trace.SpanFromContext(c.Request().Context()); span != nil {
		span.SetAttributes(
			attribute.Bool("has_next_page", hasNext),
			attribute.Int("response_items", reflect.ValueOf(data).Len()),
		)
	}

	return &PaginatedResponse{
		Data:       data,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    hasNext,
	}
}

// getPageFromQuery gets and validates page number from query parameters
func (h *Handler) getPageFromQuery(c echo.Context, total int) (int, error) {
	pageStr := c.QueryParam("page")
	if pageStr == "" {
		return 1, nil
	}

	page, err := strconv.Atoi(pageStr)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid page number")
	}

	if page < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Page number must be greater than 0")
	}

	totalPages := (total + perPage - 1) / perPage
	if page > totalPages {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Page number exceeds total pages. Total pages: "+strconv.Itoa(totalPages))
	}

	span := trace.SpanFromContext(c.Request().Context())
	span.SetAttributes(
		attribute.Int("page", page),
		attribute.Int("per_page", perPage),
		attribute.Int("total", total),
		attribute.Int("total_pages", totalPages),
	)

	return page, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s rowScanner) (Run, error) {
	var (
		r          Run
		finishedAt sql.NullInt64
		args       string
	)
	err := s.Scan(
		&r.RunID,
		&r.StartedAt,
		&finishedAt,
		&args,
		&r.Recursive,
		&r.Streams,
		&r.Converted,
		&r.NotSparse,
		&r.NotFullyAllocated,
		&r.Failed,
	)
	if err != nil {
		return r, err
	}
	if finishedAt.Valid {
		r.FinishedAt = &finishedAt.Int64
	}
	if err := json.Unmarshal([]byte(args), &r.Arguments); err != nil {
		return r, err
	}
	return r, nil
}

func scanResult(s rowScanner) (Result, error) {
	var (
		r                  Result
		errText            sql.NullString
		logical, allocated sql.NullInt64
	)
	err := s.Scan(
		&r.ResultID,
		&r.RunID,
		&r.Path,
		&r.Outcome,
		&errText,
		&logical,
		&allocated,
		&r.RecordedAt,
	)
	if err != nil {
		return r, err
	}
	if errText.Valid {
		r.Error = &errText.String
	}
	if logical.Valid {
		r.LogicalSize = &logical.Int64
	}
	if allocated.Valid {
		r.AllocatedSize = &allocated.Int64
	}
	return r, nil
}

const runColumns = `run_id, started_at, finished_at, arguments, recursive, streams,
	converted, not_sparse, not_fully_allocated, failed`

const resultColumns = `result_id, run_id, path, outcome, error,
	logical_size, allocated_size, recorded_at`
