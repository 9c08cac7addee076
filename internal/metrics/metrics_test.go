package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveStore(t *testing.T) {
	before := testutil.ToFloat64(StoreErrCount.WithLabelValues("test.observe"))

	var ok error
	ObserveStore("test.observe", time.Now(), &ok)
	assert.Equal(t, before, testutil.ToFloat64(StoreErrCount.WithLabelValues("test.observe")))

	failed := errors.New("boom")
	ObserveStore("test.observe", time.Now(), &failed)
	assert.Equal(t, before+1, testutil.ToFloat64(StoreErrCount.WithLabelValues("test.observe")))
}

func TestMiddleware_CountsFinalStatus(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/boom/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "nope")
	})

	counter := HTTPRequests.WithLabelValues(http.MethodGet, "/boom/:id", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom/7", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
