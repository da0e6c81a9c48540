package factory

import (
	"context"
	"sync"
	"time"

	"github.com/gsnchez/btc-analytics/common"
	"github.com/gsnchez/btc-analytics/services/dashboard/api"
	"github.com/gsnchez/btc-analytics/services/dashboard/blockchain"
	"github.com/gsnchez/btc-analytics/services/dashboard/config"
	"github.com/gsnchez/btc-analytics/services/dashboard/metrics"
	"github.com/gsnchez/btc-analytics/services/dashboard/warmup"
)

type componentsHandler struct {
	requester      metrics.Requester
	fetcher        api.Fetcher
	catalog        *metrics.Catalog
	warmer         Warmer
	server         Server
	warmupInterval time.Duration
	mutCancel      sync.Mutex
	cancel         func()
}

// NewComponentsHandler creates a new components handler
func NewComponentsHandler(cfg config.Config) (*componentsHandler, error) {
	respCache := blockchain.NewTTLCache(time.Duration(cfg.Upstream.CacheDurationInSeconds) * time.Second)

	client, err := blockchain.NewClient(blockchain.ArgsClient{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: time.Duration(cfg.Upstream.RequestTimeoutInSeconds) * time.Second,
		Cache:   respCache,
	})
	if err != nil {
		return nil, err
	}

	catalog, err := metrics.NewCatalog()
	if err != nil {
		return nil, err
	}

	fetcher, err := metrics.NewFetcher(client, catalog)
	if err != nil {
		return nil, err
	}

	ch := &componentsHandler{
		requester: client,
		fetcher:   fetcher,
		catalog:   catalog,
	}

	if cfg.Warmup.IntervalInSeconds > 0 && len(cfg.Warmup.MetricIDs) > 0 {
		warmer, errWarmer := warmup.NewEngine(warmup.ArgsEngine{
			Requester: client,
			MetricIDs: cfg.Warmup.MetricIDs,
			Timespan:  cfg.Warmup.Timespan,
		})
		if errWarmer != nil {
			return nil, errWarmer
		}

		ch.warmer = warmer
		ch.warmupInterval = time.Duration(cfg.Warmup.IntervalInSeconds) * time.Second
	}

	server, err := api.NewServer(api.ArgsWebServer{
		ListenAddress:  cfg.ListenAddress,
		StaticDir:      cfg.StaticDir,
		Fetcher:        fetcher,
		Catalog:        catalog,
		GeneralHandler: api.CORSMiddleware,
	})
	if err != nil {
		return nil, err
	}
	ch.server = server

	return ch, nil
}

// GetRequester returns the caching upstream client
func (ch *componentsHandler) GetRequester() metrics.Requester {
	return ch.requester
}

// GetFetcher returns the fetcher component
func (ch *componentsHandler) GetFetcher() api.Fetcher {
	return ch.fetcher
}

// GetCatalog returns the catalog component
func (ch *componentsHandler) GetCatalog() *metrics.Catalog {
	return ch.catalog
}

// GetServer returns the server component
func (ch *componentsHandler) GetServer() Server {
	return ch.server
}

// Start starts the inner components
func (ch *componentsHandler) Start() {
	ch.server.Start()

	if ch.warmer == nil {
		return
	}

	ch.mutCancel.Lock()
	defer ch.mutCancel.Unlock()

	if ch.cancel != nil {
		return
	}

	var ctx context.Context
	ctx, ch.cancel = context.WithCancel(context.Background())

	common.CronJobStarter(ctx, ch.warmer.Process, ch.warmupInterval)
}

// Close closes the inner components
func (ch *componentsHandler) Close() {
	ch.mutCancel.Lock()
	if ch.cancel != nil {
		ch.cancel()
		ch.cancel = nil
	}
	ch.mutCancel.Unlock()

	_ = ch.server.Close()
}
