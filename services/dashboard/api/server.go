package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gsnchez/btc-analytics/services/dashboard/export"
	"github.com/gsnchez/btc-analytics/services/dashboard/metrics"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("api")

const maxCompareMetrics = 10
const rebaseValue = 100.0

type server struct {
	router         *gin.Engine
	httpServer     *http.Server
	fetcher        Fetcher
	catalog        Catalog
	listenAddr     string
	staticDir      string
	generalHandler func(http.Handler) http.Handler
	wg             sync.WaitGroup
}

// CompareRequestPayload represents the incoming JSON body on /api/compare
type CompareRequestPayload struct {
	MetricIDs []string `json:"metricIds"`
	Timespan  string   `json:"timespan"`
	Rebase    bool     `json:"rebase"`
}

// ArgsWebServer defines the web server arguments
type ArgsWebServer struct {
	ListenAddress  string
	StaticDir      string
	Fetcher        Fetcher
	Catalog        Catalog
	GeneralHandler func(http.Handler) http.Handler
}

// NewServer initializes the Gin engine and mounts all routes
func NewServer(args ArgsWebServer) (*server, error) {
	if check.IfNil(args.Fetcher) {
		return nil, errors.New("fetcher is required")
	}
	if check.IfNil(args.Catalog) {
		return nil, errors.New("catalog is required")
	}
	if args.GeneralHandler == nil {
		return nil, errors.New("nil http handler")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())

	s := &server{
		router:         router,
		fetcher:        args.Fetcher,
		catalog:        args.Catalog,
		listenAddr:     args.ListenAddress,
		staticDir:      args.StaticDir,
		generalHandler: args.GeneralHandler,
	}

	s.setupRoutes()
	return s, nil
}

func (s *server) setupRoutes() {
	api := s.router.Group("/api")

	api.GET("/categories", s.handleCategories)
	api.GET("/metrics/:id", s.handleGetMetric)
	api.GET("/metrics/:id/export", s.handleExportMetric)
	api.POST("/compare", s.handleCompare)
	api.GET("/pools", s.handleGetPools)

	// Serve static files from the frontend build if configured
	if s.staticDir != "" {
		log.Info("serving static files", "dir", s.staticDir)
		s.router.Static("/static", path.Join(s.staticDir, "static"))
		s.router.StaticFile("/favicon.ico", path.Join(s.staticDir, "favicon.ico"))

		// NoRoute for SPA fallback
		s.router.NoRoute(func(c *gin.Context) {
			// If request is for an /api route that doesn't exist, return 404
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "api route not found"})
				return
			}
			// Otherwise serve index.html for CSR
			c.File(path.Join(s.staticDir, "index.html"))
		})
	}
}

// Start listens and serves connections
func (s *server) Start() {
	handler := s.generalHandler(s.router)

	s.httpServer = &http.Server{
		Addr:    s.listenAddr,
		Handler: handler,
	}

	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		log.Error("failed to listen", "error", err)
		return
	}
	s.listenAddr = ln.Addr().String()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Info("starting HTTP server", "address", s.listenAddr)

		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
		}
	}()
}

// Address returns the actual listen address
func (s *server) Address() string {
	return s.listenAddr
}

// Close gracefully stops the server
func (s *server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.wg.Wait()
	return nil
}

// CORSMiddleware allows the dashboard frontend to be served from a different origin
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// --- Handlers ---

func (s *server) handleCategories(c *gin.Context) {
	type responseMetric struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	}
	type responseCategory struct {
		Name    string           `json:"name"`
		Metrics []responseMetric `json:"metrics"`
	}

	partition := s.catalog.Categories()
	out := make([]responseCategory, 0, len(partition))
	for _, name := range s.catalog.CategoryNames() {
		ids := partition[name]
		entries := make([]responseMetric, 0, len(ids))
		for _, id := range ids {
			entries = append(entries, responseMetric{
				ID:          id,
				DisplayName: s.catalog.DisplayName(id),
			})
		}
		out = append(out, responseCategory{Name: name, Metrics: entries})
	}

	c.JSON(http.StatusOK, gin.H{"categories": out})
}

func (s *server) handleGetMetric(c *gin.Context) {
	metricID := c.Param("id")
	_, known := s.catalog.Descriptor(metricID)
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown metric"})
		return
	}

	table := s.fetcher.FetchMetric(c.Request.Context(), metricID, queryParams(c))

	response := gin.H{
		"id":          metricID,
		"displayName": s.catalog.DisplayName(metricID),
		"rows":        table.Rows(),
		"table":       table,
	}
	stats, ok := table.Stats(metrics.ValueColumn)
	if ok {
		response["stats"] = stats
	}

	c.JSON(http.StatusOK, response)
}

func (s *server) handleExportMetric(c *gin.Context) {
	metricID := c.Param("id")
	_, known := s.catalog.Descriptor(metricID)
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown metric"})
		return
	}

	format := c.DefaultQuery("format", "csv")
	params := queryParams(c)
	delete(params, "format")

	table := s.fetcher.FetchMetric(c.Request.Context(), metricID, params)
	filename := fmt.Sprintf("%s_%s", metricID, time.Now().UTC().Format("20060102"))

	buf := &bytes.Buffer{}
	switch format {
	case "csv":
		err := export.WriteCSV(buf, table)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, filename))
		c.Data(http.StatusOK, "text/csv", buf.Bytes())
	case "xlsx":
		err := export.WriteXLSX(buf, s.catalog.DisplayName(metricID), table)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, filename))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format"})
	}
}

func (s *server) handleCompare(c *gin.Context) {
	var payload CompareRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if len(payload.MetricIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no metrics selected"})
		return
	}
	if len(payload.MetricIDs) > maxCompareMetrics {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many metrics selected"})
		return
	}

	params := map[string]string{}
	if len(payload.Timespan) > 0 {
		params["timespan"] = payload.Timespan
	}

	type comparedSeries struct {
		ID          string         `json:"id"`
		DisplayName string         `json:"displayName"`
		Table       *metrics.Table `json:"table"`
	}

	tables := make([]*metrics.Table, len(payload.MetricIDs))
	var wg sync.WaitGroup

	wg.Add(len(payload.MetricIDs))
	for i, id := range payload.MetricIDs {
		go func(idx int, metricID string) {
			defer wg.Done()
			tables[idx] = s.fetcher.FetchMetric(c.Request.Context(), metricID, params)
		}(i, id)
	}
	wg.Wait()

	series := make([]comparedSeries, 0, len(payload.MetricIDs))
	empty := make([]string, 0)
	for i, table := range tables {
		metricID := payload.MetricIDs[i]
		if table.Empty() {
			empty = append(empty, metricID)
			continue
		}
		if payload.Rebase {
			table = table.Rebase(rebaseValue)
		}
		series = append(series, comparedSeries{
			ID:          metricID,
			DisplayName: s.catalog.DisplayName(metricID),
			Table:       table,
		})
	}

	c.JSON(http.StatusOK, gin.H{"series": series, "empty": empty})
}

func (s *server) handleGetPools(c *gin.Context) {
	dist := s.fetcher.FetchPoolDistribution(c.Request.Context(), queryParams(c))
	c.JSON(http.StatusOK, gin.H{"pools": dist.Pools})
}

func queryParams(c *gin.Context) map[string]string {
	params := map[string]string{}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	return params
}
