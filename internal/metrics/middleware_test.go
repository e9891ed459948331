package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_RecordsRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	handler := Middleware(mux)

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "GET /api/v1/posts/{id}", "404"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/posts/abc", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "GET /api/v1/posts/{id}", "404"))
	assert.Equal(t, before+1, after)
	assert.Equal(t, float64(0), testutil.ToFloat64(HTTPRequestsInFlight))
}
