package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// PushMetrics sends the client's collectors to a Prometheus Pushgateway,
// replacing what the previous invocation pushed under job.
func PushMetrics(ctx context.Context, gatewayURL, job string) error {
	err := push.New(gatewayURL, job).
		Collector(OptimisticOperations).
		Collector(APIRequestDuration).
		Collector(CacheErrors).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
