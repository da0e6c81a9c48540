package blockchain

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/tidwall/gjson"
)

var log = logger.GetOrCreate("blockchain")

// ChartsNamespace is the endpoint family following the charts/{metric} convention
const ChartsNamespace = "charts/"

// defaultChartParams are filled in, never overwritten, on charts-namespace requests
var defaultChartParams = map[string]string{
	"timespan":          "1year",
	"sampled":           "true",
	"metadata":          "false",
	"daysAverageString": "1d",
	"cors":              "true",
	"format":            "json",
}

// requestHeaders identify the client as a regular browser. The upstream service rejects
// calls lacking a user-agent and a matching origin/referer pair
var requestHeaders = map[string]string{
	"Accept":          "*/*",
	"Accept-Language": "en-US,en;q=0.9",
	"Origin":          "https://www.blockchain.com",
	"Referer":         "https://www.blockchain.com/",
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
}

type client struct {
	baseURL    string
	httpClient *http.Client
	cache      ResponseCache

	mutInFlight sync.Mutex
	inFlight    map[string]*sync.Mutex
}

// ArgsClient defines the arguments needed to create a client
type ArgsClient struct {
	BaseURL string
	Timeout time.Duration
	Cache   ResponseCache
}

// NewClient creates a new cached HTTP client for the charts & statistics API
func NewClient(args ArgsClient) (*client, error) {
	if len(args.BaseURL) == 0 {
		return nil, errEmptyBaseURL
	}
	if check.IfNil(args.Cache) {
		return nil, errNilResponseCache
	}

	return &client{
		baseURL: strings.TrimRight(args.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: args.Timeout,
		},
		cache:    args.Cache,
		inFlight: make(map[string]*sync.Mutex),
	}, nil
}

// Request performs one logical fetch against the upstream endpoint. Charts-namespace endpoints
// get the default parameters filled in for missing keys, other endpoints receive params as-is.
// When useCache is true and a fresh entry exists for the resolved (endpoint, params) pair, the
// stored payload is returned without any network I/O. At most one fetch per cache key is in
// flight at any moment
func (c *client) Request(ctx context.Context, endpoint string, params map[string]string, useCache bool) ([]byte, error) {
	if len(endpoint) == 0 {
		return nil, errEmptyEndpoint
	}

	resolved := resolveParams(endpoint, params)
	key := cacheKey(endpoint, resolved)

	keyLock := c.lockForKey(key)
	keyLock.Lock()
	defer keyLock.Unlock()

	if useCache {
		payload, found := c.cache.Get(key)
		if found {
			log.Trace("cache hit", "endpoint", endpoint)
			return payload, nil
		}
	}

	payload, err := c.fetch(ctx, endpoint, resolved)
	if err != nil {
		log.Warn("upstream fetch failed", "endpoint", endpoint, "error", err)
		return nil, err
	}

	if useCache {
		c.cache.Set(key, payload)
	}

	return payload, nil
}

func (c *client) fetch(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}

	fullURL := c.baseURL + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	req.URL.RawQuery = query.Encode()
	for k, v := range requestHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Endpoint: endpoint, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}

	if !gjson.ValidBytes(body) {
		return nil, &MalformedResponseError{Endpoint: endpoint}
	}

	return body, nil
}

func (c *client) lockForKey(key string) *sync.Mutex {
	c.mutInFlight.Lock()
	defer c.mutInFlight.Unlock()

	keyLock, exists := c.inFlight[key]
	if !exists {
		keyLock = &sync.Mutex{}
		c.inFlight[key] = keyLock
	}

	return keyLock
}

func resolveParams(endpoint string, params map[string]string) map[string]string {
	resolved := make(map[string]string, len(params))
	for k, v := range params {
		resolved[k] = v
	}

	if !strings.HasPrefix(endpoint, ChartsNamespace) {
		return resolved
	}

	for k, v := range defaultChartParams {
		_, exists := resolved[k]
		if !exists {
			resolved[k] = v
		}
	}

	return resolved
}

// cacheKey serializes the pair in sorted key order so equal parameter sets hash identically
// regardless of insertion order
func cacheKey(endpoint string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb := strings.Builder{}
	sb.WriteString(endpoint)
	sb.WriteString("?")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString("&")
		}
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(params[k])
	}

	return sb.String()
}

// IsInterfaceNil returns true if the value under the interface is nil
func (c *client) IsInterfaceNil() bool {
	return c == nil
}
