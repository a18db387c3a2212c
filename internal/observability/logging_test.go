package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestEnsureCorrelationID(t *testing.T) {
	ctx := EnsureCorrelationID(context.Background())
	id := ExtractCorrelationID(ctx)
	assert.NotEmpty(t, id)

	assert.Equal(t, id, ExtractCorrelationID(EnsureCorrelationID(ctx)))
	assert.Equal(t, "", ExtractCorrelationID(context.Background()))
}

func TestEngineLogger_CountsOutcomes(t *testing.T) {
	l := NewEngineLogger("test")
	ctx := context.Background()

	before := testutil.ToFloat64(OptimisticOperations.WithLabelValues("test_op", OutcomeRolledBack))
	l.LogApplied(ctx, "test_op", "post:1", nil)
	l.LogRolledBack(ctx, "test_op", "post:1", errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(OptimisticOperations.WithLabelValues("test_op", OutcomeRolledBack)))
	assert.Equal(t, float64(1), testutil.ToFloat64(OptimisticOperations.WithLabelValues("test_op", OutcomeApplied)))
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "snmvm-test"})
	assert.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	span, ctx := NewClientSpan(context.Background(), "GET", "/comments/:postId")
	assert.NotNil(t, ctx)
	span.SetError(errors.New("ignored"))
	span.End()
}

func TestInitTracing_StdoutExporter(t *testing.T) {
	defer func() { Tracer = otel.Tracer("snmvm-client") }()

	var buf bytes.Buffer
	shutdown, err := InitTracing(TracingConfig{
		ServiceName: "snmvm-test",
		BackendURL:  "http://api.test",
		Enabled:     true,
		Writer:      &buf,
	})
	require.NoError(t, err)

	span, _ := NewClientSpan(context.Background(), "GET", "/comments/{postId}")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "api GET /comments/{postId}")
	assert.Contains(t, out, "snmvm.client.kind")
	assert.Contains(t, out, "http://api.test")
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	_, err := InitTracing(TracingConfig{ServiceName: "snmvm-test", Enabled: true, Exporter: "jaeger"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jaeger")
}
