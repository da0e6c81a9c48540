package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gsnchez/btc-analytics/services/dashboard/metrics"
	"github.com/gsnchez/btc-analytics/services/dashboard/testsCommon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMockArgsWebServer() ArgsWebServer {
	catalog, _ := metrics.NewCatalog()

	return ArgsWebServer{
		ListenAddress: "127.0.0.1:0",
		StaticDir:     "",
		Fetcher:       &testsCommon.FetcherStub{},
		Catalog:       catalog,
		GeneralHandler: func(next http.Handler) http.Handler {
			return next
		},
	}
}

func createTestTable() *metrics.Table {
	table := metrics.NewEmptyTable()
	table.Index = []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	table.Columns = []string{metrics.ValueColumn}
	table.Values = map[string][]float64{metrics.ValueColumn: {50, 75}}

	return table
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	t.Run("nil fetcher should error", func(t *testing.T) {
		t.Parallel()

		args := createMockArgsWebServer()
		args.Fetcher = nil

		serv, err := NewServer(args)
		require.Nil(t, serv)
		require.ErrorContains(t, err, "fetcher is required")
	})
	t.Run("nil catalog should error", func(t *testing.T) {
		t.Parallel()

		args := createMockArgsWebServer()
		args.Catalog = nil

		serv, err := NewServer(args)
		require.Nil(t, serv)
		require.ErrorContains(t, err, "catalog is required")
	})
	t.Run("nil general handler should error", func(t *testing.T) {
		t.Parallel()

		args := createMockArgsWebServer()
		args.GeneralHandler = nil

		serv, err := NewServer(args)
		require.Nil(t, serv)
		require.ErrorContains(t, err, "nil http handler")
	})
	t.Run("should work", func(t *testing.T) {
		t.Parallel()

		serv, err := NewServer(createMockArgsWebServer())
		require.NoError(t, err)
		require.NotNil(t, serv)
	})
}

func TestServer_handleCategories(t *testing.T) {
	t.Parallel()

	serv, err := NewServer(createMockArgsWebServer())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	recorder := httptest.NewRecorder()
	serv.router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Categories []struct {
			Name    string `json:"name"`
			Metrics []struct {
				ID          string `json:"id"`
				DisplayName string `json:"displayName"`
			} `json:"metrics"`
		} `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	require.Len(t, response.Categories, 6)
	assert.Equal(t, "Market", response.Categories[0].Name)

	totalMetrics := 0
	for _, category := range response.Categories {
		totalMetrics += len(category.Metrics)
	}
	assert.Equal(t, 34, totalMetrics)
	assert.Equal(t, "market-price", response.Categories[0].Metrics[0].ID)
	assert.Equal(t, "Market Price (USD)", response.Categories[0].Metrics[0].DisplayName)
}

func TestServer_handleGetMetric(t *testing.T) {
	t.Parallel()

	t.Run("unknown metric should return 404", func(t *testing.T) {
		t.Parallel()

		serv, err := NewServer(createMockArgsWebServer())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/metrics/made-up-metric", nil)
		recorder := httptest.NewRecorder()
		serv.router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
	t.Run("should return the table, row count and stats", func(t *testing.T) {
		t.Parallel()

		args := createMockArgsWebServer()
		var capturedParams map[string]string
		args.Fetcher = &testsCommon.FetcherStub{
			FetchMetricHandler: func(_ context.Context, metricID string, params map[string]string) *metrics.Table {
				assert.Equal(t, "market-price", metricID)
				capturedParams = params
				return createTestTable()
			},
		}

		serv, err := NewServer(args)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/metrics/market-price?timespan=7days", nil)
		recorder := httptest.NewRecorder()
		serv.router.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, map[string]string{"timespan": "7days"}, capturedParams)

		var response struct {
			ID          string               `json:"id"`
			DisplayName string               `json:"displayName"`
			Rows        int                  `json:"rows"`
			Table       metrics.Table        `json:"table"`
			Stats       *metrics.ColumnStats `json:"stats"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Equal(t, "market-price", response.ID)
		assert.Equal(t, "Market Price (USD)", response.DisplayName)
		assert.Equal(t, 2, response.Rows)
		assert.Equal(t, []float64{50, 75}, response.Table.Values[metrics.ValueColumn])
		require.NotNil(t, response.Stats)
		assert.Equal(t, 50.0, response.Stats.Min)
		assert.Equal(t, 75.0, response.Stats.Last)
	})
	t.Run("empty table carries no stats", func(t *testing.T) {
		t.Parallel()

		serv, err := NewServer(createMockArgsWebServer())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/metrics/market-price", nil)
		recorder := httptest.NewRecorder()
		serv.router.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.NotContains(t, recorder.Body.String(), `"stats"`)
	})
}

func TestServer_handleExportMetric(t *testing.T) {
	t.Parallel()

	t.Run("unknown metric should return 404", func(t *testing.T) {
		t.Parallel()

		serv, err := NewServer(createMockArgsWebServer())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/metrics/made-up-metric/export", nil)
		recorder := httptest.NewRecorder()
		serv.router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
	t.Run("unsupported format should return 400", func(t *testing.T) {
		t.Parallel()

		serv, err := NewServer(createMockArgsWebServer())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/metrics/market-price/export?format=pdf", nil)
		recorder := httptest.NewRecorder()
		serv.router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
	t.Run("csv is the default and the format param is not forwarded upstream", func(t *testing.T) {
		t.Parallel()

		args := createMockArgsWebServer()
		var capturedParams map[string]string
		args.Fetcher = &testsCommon.FetcherStub{
			FetchMetricHandler: func(_ context.Context, _ string, params map[string]string) *metrics.Table {
				capturedParams = params
				return createTestTable()
			},
		}

		serv, err := NewServer(args)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/metrics/market-price/export?timespan=7days", nil)
		recorder := httptest.NewRecorder()
		serv.router.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, map[string]string{"timespan": "7days"}, capturedParams)
		assert.Equal(t, "text/csv", recorder.Header().Get("Content-Type"))
		assert.Contains(t, recorder.Header().Get("Content-Disposition"), `attachment; filename="market-price_`)
		assert.True(t, strings.HasPrefix(recorder.Body.String(), "time,y\n"))
	})
	t.Run("xlsx format should return a workbook", func(t *testing.T) {
		t.Parallel()

		args := createMockArgsWebServer()
		args.Fetcher = &testsCommon.FetcherStub{
			FetchMetricHandler: func(_ context.Context, _ string, _ map[string]string) *metrics.Table {
				return createTestTable()
			},
		}

		serv, err := NewServer(args)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/metrics/market-price/export?format=xlsx", nil)
		recorder := httptest.NewRecorder()
		serv.router.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", recorder.Header().Get("Content-Type"))
		assert.Contains(t, recorder.Header().Get("Content-Disposition"), ".xlsx")
		assert.NotEmpty(t, recorder.Body.Bytes())
	})
}

func TestServer_handleCompare(t *testing.T) {
	t.Parallel()

	t.Run("invalid payload should return 400", func(t *testing.T) {
		t.Parallel()

		serv, err := NewServer(createMockArgsWebServer())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/compare", strings.NewReader("not a json"))
		recorder := httptest.NewRecorder()
		serv.router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
	t.Run("no metrics selected should return 400", func(t *testing.T) {
		t.Parallel()

		serv, err := NewServer(createMockArgsWebServer())
		require.NoError(t, err)

		body, _ := json.Marshal(CompareRequestPayload{})
		req := httptest.NewRequest(http.MethodPost, "/api/compare", bytes.NewReader(body))
		recorder := httptest.NewRecorder()
		serv.router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
	t.Run("too many metrics should return 400", func(t *testing.T) {
		t.Parallel()

		serv, err := NewServer(createMockArgsWebServer())
		require.NoError(t, err)

		payload := CompareRequestPayload{MetricIDs: make([]string, maxCompareMetrics+1)}
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, "/api/compare", bytes.NewReader(body))
		recorder := httptest.NewRecorder()
		serv.router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
	t.Run("should keep the requested order and report empty metrics separately", func(t *testing.T) {
		t.Parallel()

		args := createMockArgsWebServer()
		args.Fetcher = &testsCommon.FetcherStub{
			FetchMetricHandler: func(_ context.Context, metricID string, params map[string]string) *metrics.Table {
				assert.Equal(t, map[string]string{"timespan": "1year"}, params)
				if metricID == "hash-rate" {
					return metrics.NewEmptyTable()
				}
				return createTestTable()
			},
		}

		serv, err := NewServer(args)
		require.NoError(t, err)

		payload := CompareRequestPayload{
			MetricIDs: []string{"market-price", "hash-rate", "n-transactions"},
			Timespan:  "1year",
		}
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, "/api/compare", bytes.NewReader(body))
		recorder := httptest.NewRecorder()
		serv.router.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)

		var response struct {
			Series []struct {
				ID    string        `json:"id"`
				Table metrics.Table `json:"table"`
			} `json:"series"`
			Empty []string `json:"empty"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

		require.Len(t, response.Series, 2)
		assert.Equal(t, "market-price", response.Series[0].ID)
		assert.Equal(t, "n-transactions", response.Series[1].ID)
		assert.Equal(t, []string{"hash-rate"}, response.Empty)
		assert.Equal(t, []float64{50, 75}, response.Series[0].Table.Values[metrics.ValueColumn])
	})
	t.Run("rebase scales every series to the common starting point", func(t *testing.T) {
		t.Parallel()

		args := createMockArgsWebServer()
		args.Fetcher = &testsCommon.FetcherStub{
			FetchMetricHandler: func(_ context.Context, _ string, _ map[string]string) *metrics.Table {
				return createTestTable()
			},
		}

		serv, err := NewServer(args)
		require.NoError(t, err)

		payload := CompareRequestPayload{
			MetricIDs: []string{"market-price"},
			Rebase:    true,
		}
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, "/api/compare", bytes.NewReader(body))
		recorder := httptest.NewRecorder()
		serv.router.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)

		var response struct {
			Series []struct {
				Table metrics.Table `json:"table"`
			} `json:"series"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		require.Len(t, response.Series, 1)
		assert.Equal(t, []float64{100, 150}, response.Series[0].Table.Values[metrics.ValueColumn])
	})
}

func TestServer_handleGetPools(t *testing.T) {
	t.Parallel()

	args := createMockArgsWebServer()
	args.Fetcher = &testsCommon.FetcherStub{
		FetchPoolDistributionHandler: func(_ context.Context, params map[string]string) *metrics.PoolDistribution {
			assert.Equal(t, map[string]string{"timespan": "1weeks"}, params)
			dist := metrics.NewEmptyPoolDistribution()
			dist.Pools = []metrics.PoolShare{
				{Name: "PoolA", RelativeSize: 12.5},
				{Name: "PoolB", RelativeSize: 7.5},
			}
			return dist
		},
	}

	serv, err := NewServer(args)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/pools?timespan=1weeks", nil)
	recorder := httptest.NewRecorder()
	serv.router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Pools []metrics.PoolShare `json:"pools"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Len(t, response.Pools, 2)
	assert.Equal(t, "PoolA", response.Pools[0].Name)
}

func TestServer_StartAndClose(t *testing.T) {
	t.Parallel()

	serv, err := NewServer(createMockArgsWebServer())
	require.NoError(t, err)

	serv.Start()
	time.Sleep(100 * time.Millisecond)

	address := serv.Address()
	require.NotEqual(t, "127.0.0.1:0", address)

	resp, err := http.Get("http://" + address + "/api/categories")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, serv.Close())
}

func TestCORSMiddleware(t *testing.T) {
	t.Parallel()

	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := CORSMiddleware(inner)

	t.Run("should set the headers and forward the request", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/api/pools", nil)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusTeapot, recorder.Code)
		assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
	})
	t.Run("preflight requests are answered directly", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodOptions, "/api/pools", nil)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
	})
}
