// Package api provides the operations HTTP and WebSocket server.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/shareseek/signal-engine/internal/allocation"
	"github.com/shareseek/signal-engine/internal/events"
	"github.com/shareseek/signal-engine/internal/health"
	"github.com/shareseek/signal-engine/internal/metrics"
	"github.com/shareseek/signal-engine/internal/promotion"
	"github.com/shareseek/signal-engine/internal/regime"
	"github.com/shareseek/signal-engine/internal/signallog"
	"github.com/shareseek/signal-engine/pkg/types"
)

// Server is the operations HTTP/WebSocket server.
type Server struct {
	logger     *zap.Logger
	config     *types.ServerConfig
	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader

	signalLog  *signallog.CSVLog
	promotions *promotion.Store
	alloc      *allocation.Store
	strategies *health.StrategyHealthStore
	monitor    *health.Monitor
	regimes    *regime.Tracker
	bus        *events.EventBus
	metrics    *metrics.Metrics

	mu      sync.RWMutex
	clients map[string]*client
}

// client is one connected WebSocket decision-feed consumer.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewServer creates the operations server.
func NewServer(
	logger *zap.Logger,
	config *types.ServerConfig,
	signalLog *signallog.CSVLog,
	promotions *promotion.Store,
	alloc *allocation.Store,
	strategies *health.StrategyHealthStore,
	monitor *health.Monitor,
	regimes *regime.Tracker,
	bus *events.EventBus,
	m *metrics.Metrics,
) *Server {
	s := &Server{
		logger:     logger.Named("api"),
		config:     config,
		router:     mux.NewRouter(),
		signalLog:  signalLog,
		promotions: promotions,
		alloc:      alloc,
		strategies: strategies,
		monitor:    monitor,
		regimes:    regimes,
		bus:        bus,
		metrics:    m,
		clients:    make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.setupRoutes()
	s.subscribeFeed()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/api/v1/signals", s.handleSignalsTail).Methods("GET")
	s.router.HandleFunc("/api/v1/signals/rejections", s.handleRejections).Methods("GET")
	s.router.HandleFunc("/api/v1/regimes", s.handleRegimes).Methods("GET")

	s.router.HandleFunc("/api/v1/promotion", s.handlePromotionList).Methods("GET")
	s.router.HandleFunc("/api/v1/promotion/{symbol}/promote", s.handlePromote).Methods("POST")
	s.router.HandleFunc("/api/v1/promotion/{symbol}/block", s.handleBlock).Methods("POST")

	s.router.HandleFunc("/api/v1/allocation", s.handleAllocationList).Methods("GET")
	s.router.HandleFunc("/api/v1/allocation/{strategy}", s.handleAllocationUpdate).Methods("PUT")

	s.router.HandleFunc("/api/v1/strategies/health", s.handleStrategyHealth).Methods("GET")
	s.router.HandleFunc("/api/v1/strategies/{name}/pause", s.handlePause).Methods("POST")
	s.router.HandleFunc("/api/v1/strategies/{name}/resume", s.handleResume).Methods("POST")

	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	s.router.HandleFunc(s.config.WebSocketPath, s.handleWebSocket)
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("starting API server", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	for _, c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report, err := s.monitor.Check()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSignalsTail(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}
	s.writeJSON(w, http.StatusOK, s.signalLog.Tail(limit))
}

func (s *Server) handleRejections(w http.ResponseWriter, r *http.Request) {
	summary, accepted := s.signalLog.RejectionSummary()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"rejections": summary,
		"accepted":   accepted,
	})
}

func (s *Server) handleRegimes(w http.ResponseWriter, r *http.Request) {
	current, history := s.regimes.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"current":     current,
		"transitions": history,
	})
}

func (s *Server) handlePromotionList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.promotions.Snapshot())
}

func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if err := s.promotions.SetMode(symbol, promotion.ModeLive); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info("symbol manually promoted", zap.String("symbol", symbol))
	s.writeJSON(w, http.StatusOK, map[string]string{"symbol": symbol, "mode": string(promotion.ModeLive)})
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if err := s.promotions.SetMode(symbol, promotion.ModeBlocked); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info("symbol blocked", zap.String("symbol", symbol))
	s.writeJSON(w, http.StatusOK, map[string]string{"symbol": symbol, "mode": string(promotion.ModeBlocked)})
}

func (s *Server) handleAllocationList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"records":       s.alloc.Snapshot(),
		"overAllocated": s.alloc.OverAllocated(),
	})
}

func (s *Server) handleAllocationUpdate(w http.ResponseWriter, r *http.Request) {
	strategy := mux.Vars(r)["strategy"]

	var body struct {
		CapitalPct *float64 `json:"capitalPct"`
		RiskPct    *float64 `json:"riskPct"`
		Enabled    *bool    `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	rec, err := s.alloc.Apply(strategy, allocation.Update{
		CapitalPct: body.CapitalPct,
		RiskPct:    body.RiskPct,
		Enabled:    body.Enabled,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStrategyHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.strategies.Snapshot())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	s.strategies.Pause(name)
	s.writeJSON(w, http.StatusOK, map[string]string{"strategy": name, "state": "paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	s.strategies.Resume(name)
	s.writeJSON(w, http.StatusOK, map[string]string{"strategy": name, "state": "active"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{
		"error":     err.Error(),
		"requestId": uuid.New().String(),
	})
}
