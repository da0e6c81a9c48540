package testsCommon

import (
	"context"

	"github.com/gsnchez/btc-analytics/services/dashboard/metrics"
)

// FetcherStub -
type FetcherStub struct {
	FetchMetricHandler           func(ctx context.Context, metricID string, params map[string]string) *metrics.Table
	FetchPoolDistributionHandler func(ctx context.Context, params map[string]string) *metrics.PoolDistribution
}

// FetchMetric -
func (stub *FetcherStub) FetchMetric(ctx context.Context, metricID string, params map[string]string) *metrics.Table {
	if stub.FetchMetricHandler != nil {
		return stub.FetchMetricHandler(ctx, metricID, params)
	}

	return metrics.NewEmptyTable()
}

// FetchPoolDistribution -
func (stub *FetcherStub) FetchPoolDistribution(ctx context.Context, params map[string]string) *metrics.PoolDistribution {
	if stub.FetchPoolDistributionHandler != nil {
		return stub.FetchPoolDistributionHandler(ctx, params)
	}

	return metrics.NewEmptyPoolDistribution()
}

// IsInterfaceNil -
func (stub *FetcherStub) IsInterfaceNil() bool {
	return stub == nil
}
