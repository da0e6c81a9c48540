package api

import (
	"context"

	"github.com/gsnchez/btc-analytics/services/dashboard/metrics"
)

// Fetcher defines the component able to produce normalized tables for metric requests
type Fetcher interface {
	// FetchMetric returns a normalized time-indexed table, empty-but-typed on any failure
	FetchMetric(ctx context.Context, metricID string, params map[string]string) *metrics.Table

	// FetchPoolDistribution returns the mining pool shares sorted descending, empty-but-typed
	// on any failure
	FetchPoolDistribution(ctx context.Context, params map[string]string) *metrics.PoolDistribution

	IsInterfaceNil() bool
}

// Catalog defines the static registry of known metrics
type Catalog interface {
	Categories() map[string][]string
	CategoryNames() []string
	DisplayName(metricID string) string
	Descriptor(metricID string) (metrics.MetricDescriptor, bool)

	IsInterfaceNil() bool
}
