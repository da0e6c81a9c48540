package warmup

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gsnchez/btc-analytics/services/dashboard/blockchain"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("warmup")

const processTimeout = 30 * time.Second

// warmupEngine keeps the response cache fresh for a fixed set of key metrics so the first
// dashboard load after startup does not pay the upstream round-trips
type warmupEngine struct {
	requester Requester
	metricIDs []string
	timespan  string
}

// ArgsEngine defines the arguments needed to create a warmup engine
type ArgsEngine struct {
	Requester Requester
	MetricIDs []string
	Timespan  string
}

// NewEngine creates a new warmup engine instance
func NewEngine(args ArgsEngine) (*warmupEngine, error) {
	if check.IfNil(args.Requester) {
		return nil, errors.New("nil requester")
	}
	if len(args.MetricIDs) == 0 {
		return nil, errors.New("empty metric ids list")
	}

	return &warmupEngine{
		requester: args.Requester,
		metricIDs: args.MetricIDs,
		timespan:  args.Timespan,
	}, nil
}

// Process fetches all configured metrics concurrently through the caching client. It talks to
// the requester directly so transport failures, malformed bodies and ordinary no-data answers
// stay distinguishable in the logs
func (we *warmupEngine) Process(ctx context.Context) {
	log.Debug("waking up to warm the cache", "count", len(we.metricIDs))

	warmCtx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(len(we.metricIDs))
	for _, id := range we.metricIDs {
		go func(metricID string) {
			defer wg.Done()
			we.warmMetric(warmCtx, metricID)
		}(id)
	}

	wg.Wait()
}

func (we *warmupEngine) warmMetric(ctx context.Context, metricID string) {
	endpoint := blockchain.ChartsNamespace + metricID
	params := map[string]string{}
	if len(we.timespan) > 0 {
		params["timespan"] = we.timespan
	}

	_, err := we.requester.Request(ctx, endpoint, params, true)
	if err == nil {
		log.Trace("metric warmed", "metric", metricID)
		return
	}

	var malformed *blockchain.MalformedResponseError
	if errors.As(err, &malformed) {
		log.Warn("warmup got an unparseable body", "metric", metricID, "error", err)
		return
	}

	log.Warn("warmup fetch failed", "metric", metricID, "error", err)
}

// IsInterfaceNil returns true if the value under the interface is nil
func (we *warmupEngine) IsInterfaceNil() bool {
	return we == nil
}
