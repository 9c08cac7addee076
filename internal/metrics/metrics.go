package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patients",
		Subsystem: "http",
		Name:      "requests_total",
	}, []string{"method", "route", "status"})
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "patients",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	StoreErrCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patients",
		Subsystem: "store",
		Name:      "err_count",
	}, []string{"method"})
	StoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "patients",
		Subsystem: "store",
		Name:      "duration_seconds",
	}, []string{"method"})
	CacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patients",
		Subsystem: "cache",
		Name:      "lookups_total",
	}, []string{"result"})
)

// ObserveStore records the duration of a store call and counts it as failed when *err is set.
// Use it deferred: defer metrics.ObserveStore("patient.create", time.Now(), &err).
func ObserveStore(method string, start time.Time, err *error) {
	StoreDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil && *err != nil {
		StoreErrCount.WithLabelValues(method).Inc()
	}
}

// Middleware counts requests per route template and status.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler write the final status before it is read
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)
			HTTPRequests.WithLabelValues(c.Request().Method, route, status).Inc()
			HTTPDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
