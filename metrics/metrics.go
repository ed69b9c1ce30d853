package metrics

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Conversion metrics
var (
	OutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desparse_outcomes_total",
			Help: "Conversion attempts by outcome",
		},
		[]string{"outcome"},
	)

	ConvertedBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "desparse_converted_bytes_total",
			Help: "Logical bytes of files whose sparse flag was removed",
		},
	)

	WalkFaultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desparse_walk_faults_total",
			Help: "Directory listing and stream enumeration failures",
		},
		[]string{"kind"},
	)
)

// Journal API metrics
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desparse_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		OutcomesTotal,
		ConvertedBytesTotal,
		WalkFaultsTotal,
		HTTPRequestsTotal,
	)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// WriteTextfile dumps the default registry in the text exposition format,
// suitable for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

// EchoMiddleware counts HTTP requests by route and status.
func EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			HTTPRequestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(status),
			).Inc()
			return err
		}
	}
}
