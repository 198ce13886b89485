// Package httpapi exposes the synchronization core over HTTP: batch
// push/pull for terminals, the websocket event stream, the cached
// metrics endpoints and the administrative purge.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	gorilla "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/balcaopos/balcao/internal/codec"
	"github.com/balcaopos/balcao/pkg/metrics"
	"github.com/balcaopos/balcao/pkg/realtime"
	"github.com/balcaopos/balcao/pkg/syncer"
)

// DefaultTenant scopes requests that carry no tenant header, which is
// the common single-shop installation.
const DefaultTenant = "default"

// Aggregates is the slice of the storage port the metrics endpoints use.
type Aggregates interface {
	SalesTotalBetween(ctx context.Context, tenant string, from, to time.Time) (float64, error)
	InventoryValuation(ctx context.Context, tenant string) (cost, potential float64, err error)
}

// Purger removes whole entity kinds. Administrative surface only; the
// sync path cannot reach it.
type Purger interface {
	Purge(ctx context.Context, tenant string, kinds []string) (int64, error)
}

type valuation struct {
	Cost      float64
	Potential float64
}

// Server wires the core components behind the HTTP routes. Construct it
// at startup and shut the hub down when the process stops; nothing here
// lives at import time.
type Server struct {
	gateway    *syncer.Gateway
	hub        *realtime.Hub
	aggregates Aggregates
	purger     Purger

	totals     *metrics.Cache[float64]
	valuations *metrics.Cache[valuation]
	metricsTTL time.Duration

	adminToken  string
	sendTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger
	upgrader    gorilla.Upgrader
}

// Params collects the dependencies for NewServer.
type Params struct {
	Gateway    *syncer.Gateway
	Hub        *realtime.Hub
	Aggregates Aggregates
	Purger     Purger

	// AdminToken guards the purge endpoint; empty disables it outright.
	AdminToken string

	// MetricsTTL defaults to metrics.DefaultTTL when zero.
	MetricsTTL time.Duration

	// SendTimeout bounds one websocket write during fan-out.
	SendTimeout time.Duration

	// Now is replaced in tests. Defaults to time.Now.
	Now func() time.Time

	Logger zerolog.Logger
}

func NewServer(p Params) *Server {
	if p.MetricsTTL <= 0 {
		p.MetricsTTL = metrics.DefaultTTL
	}
	if p.SendTimeout <= 0 {
		p.SendTimeout = realtime.DefaultSendTimeout
	}
	if p.Now == nil {
		p.Now = time.Now
	}

	return &Server{
		gateway:     p.Gateway,
		hub:         p.Hub,
		aggregates:  p.Aggregates,
		purger:      p.Purger,
		totals:      metrics.NewCache(metrics.WithCacheLogger[float64](p.Logger)),
		valuations:  metrics.NewCache(metrics.WithCacheLogger[valuation](p.Logger)),
		metricsTTL:  p.MetricsTTL,
		adminToken:  p.AdminToken,
		sendTimeout: p.SendTimeout,
		now:         p.Now,
		log:         p.Logger,
		upgrader: gorilla.Upgrader{
			// Terminals connect from file:// and LAN origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Routes returns the full route table.
func (s *Server) Routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/sync/push", s.handlePush).Methods("POST")
	router.HandleFunc("/sync/pull", s.handlePull).Methods("GET")
	router.HandleFunc("/ws", s.handleWS).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/metrics/sales-day", s.handleSalesDay).Methods("GET")
	api.HandleFunc("/metrics/sales-month", s.handleSalesMonth).Methods("GET")
	api.HandleFunc("/metrics/stock-value", s.handleStockValue).Methods("GET")
	api.HandleFunc("/admin/purge", s.handlePurge).Methods("POST")

	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	return router
}

// tenant returns the already-resolved tenant token the upstream proxy
// attached. The core never parses credentials itself.
func tenant(r *http.Request) string {
	if t := r.Header.Get("X-Tenant-ID"); t != "" {
		return t
	}
	return DefaultTenant
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeBody(w, codec.JSON{}, http.StatusOK, map[string]string{"status": "ok"})
}

func writeBody(w http.ResponseWriter, c codec.Codec, status int, v any) {
	data, err := c.Marshal(v)
	if err != nil {
		http.Error(w, `{"detail":"encoding response failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", c.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeDetail(w http.ResponseWriter, c codec.Codec, status int, detail string) {
	writeBody(w, c, status, map[string]string{"detail": detail})
}
