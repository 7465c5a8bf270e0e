package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLabelsRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Middleware)
	r.HandleFunc("/post/{id:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/post/{id:[0-9]+}", "418"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/post/12", nil))
	require.Equal(t, http.StatusTeapot, w.Code)

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/post/{id:[0-9]+}", "418"))
	assert.Equal(t, before+1, after)
}

func TestRecordDispatch(t *testing.T) {
	before := testutil.ToFloat64(newsletterDispatch.WithLabelValues(DispatchMailFailed))
	recipients := testutil.ToFloat64(newsletterRecipients)

	RecordDispatch(DispatchMailFailed, 0)
	RecordDispatch(DispatchSent, 4)

	assert.Equal(t, before+1, testutil.ToFloat64(newsletterDispatch.WithLabelValues(DispatchMailFailed)))
	assert.Equal(t, recipients+4, testutil.ToFloat64(newsletterRecipients))
}

func TestHandlerExposesRegistry(t *testing.T) {
	RecordJobRun("counter-sync", true)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "moonjin_jobs_runs_total")
}
