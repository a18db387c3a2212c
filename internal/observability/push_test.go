package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushMetrics(t *testing.T) {
	var method, path string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	OptimisticOperations.WithLabelValues("push_test", OutcomeConfirmed).Inc()
	TrackRequest("GET", "/posts")(200)

	require.NoError(t, PushMetrics(context.Background(), srv.URL, "snmvm-test"))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/snmvm-test", path)
	assert.Contains(t, string(body), "snmvm_optimistic_operations_total")
	assert.Contains(t, string(body), "snmvm_api_request_duration_seconds")
}

func TestPushMetrics_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := PushMetrics(context.Background(), srv.URL, "snmvm-test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), srv.URL)
}
