package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"oi-signal-engine/src/interfaces"
	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/metrics"
	"oi-signal-engine/src/models"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine

	signals interfaces.ISignalEngine
	store   interfaces.ISignalStore

	// baseCtx is handed to the engine when it is started over HTTP.
	baseCtx context.Context

	// WebSocket clients, owned by the hub loop
	clients     map[*Client]struct{}
	connections atomic.Int64
	broadcast   chan models.MSignalSnapshot
	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	hubDone     chan struct{}

	// Local cache
	latest     *models.MSignalSnapshot
	stateMutex sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

// NewAPIServer wires the REST routes. store may be nil, in which case the
// history endpoints answer 503.
func NewAPIServer(cfg *models.MConfig, signals interfaces.ISignalEngine, store interfaces.ISignalStore, log *logger.Logger) *APIServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:     cfg,
		Logger:     log,
		engine:     gin.New(),
		signals:    signals,
		store:      store,
		baseCtx:    context.Background(),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan models.MSignalSnapshot, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		hubDone:    make(chan struct{}),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, Cache-Control")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)

	api.GET("/engine/status", s.getEngineStatus)
	api.POST("/engine/start", s.startEngine)
	api.POST("/engine/stop", s.stopEngine)

	api.GET("/signals/current", s.getCurrentSignals)
	api.GET("/signals", s.getSignals)
	api.GET("/analytics", s.getAnalytics)

	api.GET("/market/status", s.getMarketStatus)

	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for httptest.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves HTTP and runs the websocket hub until ctx is cancelled.
func (s *APIServer) Start(ctx context.Context) error {
	s.baseCtx = ctx
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	go s.RunHub(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.Logger.Warning("HTTP shutdown: %v", err)
		}
	}()

	s.Logger.Info("Starting server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	var latest int64
	s.stateMutex.RLock()
	if s.latest != nil {
		latest = s.latest.Timestamp
	}
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"connections":    s.connections.Load(),
		"latest_update":  latest,
		"engine_running": s.signals.IsRunning(),
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getEngineStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.signals.Status())
}

func (s *APIServer) startEngine(c *gin.Context) {
	if s.signals.IsRunning() {
		c.JSON(http.StatusConflict, engineResponse(false, "OI signal engine is already running", nil))
		return
	}
	s.signals.Start(s.baseCtx)
	st := s.signals.Status()
	c.JSON(http.StatusOK, engineResponse(true, "OI signal engine started successfully", &st))
}

func (s *APIServer) stopEngine(c *gin.Context) {
	if !s.signals.IsRunning() {
		c.JSON(http.StatusConflict, engineResponse(false, "OI signal engine is not running", nil))
		return
	}
	s.signals.Stop()
	st := s.signals.Status()
	c.JSON(http.StatusOK, engineResponse(true, "OI signal engine stopped successfully", &st))
}

// -----------------------------------------------------------------------------

func (s *APIServer) getCurrentSignals(c *gin.Context) {
	limit, ok := queryLimit(c, defaultCurrentLimit)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.signals.CurrentSignals(limit))
}

func (s *APIServer) getSignals(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	limit, ok := queryLimit(c, defaultSignalsLimit)
	if !ok {
		return
	}

	filter := models.MSignalFilter{
		Strength:   strings.ToUpper(c.Query("strength")),
		Underlying: strings.ToUpper(c.Query("underlying")),
		Exchange:   strings.ToUpper(c.Query("exchange")),
		Limit:      limit,
	}
	signals, err := s.store.QuerySignals(c.Request.Context(), filter)
	if err != nil {
		s.Logger.Error("QuerySignals failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query signals"})
		return
	}
	if signals == nil {
		signals = []models.MOISignal{}
	}
	c.JSON(http.StatusOK, signals)
}

func (s *APIServer) getAnalytics(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	limit, ok := queryLimit(c, defaultAnalyticsLimit)
	if !ok {
		return
	}

	rows, err := s.store.QueryAnalytics(c.Request.Context(), strings.ToUpper(c.Query("underlying")), limit)
	if err != nil {
		s.Logger.Error("QueryAnalytics failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query analytics"})
		return
	}
	if rows == nil {
		rows = []models.MOIAnalytics{}
	}
	c.JSON(http.StatusOK, rows)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getMarketStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.signals.MarketStatus())
}

func (s *APIServer) requireStore(c *gin.Context) bool {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal store not configured"})
		return false
	}
	return true
}
