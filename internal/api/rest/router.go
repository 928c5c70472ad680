package rest

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig bundles the pieces the router needs.
type RouterConfig struct {
	Handler     *Handler
	Health      *HealthHandler
	Auth        Middleware
	RateLimit   Middleware
	Registry    *prometheus.Registry
	Middlewares []Middleware
}

// NewRouter wires all routes. Probes and metrics stay outside the auth
// and rate limit chain.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", cfg.Health.Liveness)
	mux.HandleFunc("GET /readyz", cfg.Health.Readiness)
	if cfg.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /api/v1/tenders", cfg.Handler.CreateTender)
	api.HandleFunc("GET /api/v1/tenders", cfg.Handler.ListTenders)
	api.HandleFunc("GET /api/v1/tenders/{tenderID}", cfg.Handler.GetTender)
	api.HandleFunc("POST /api/v1/tenders/{tenderID}/bids", cfg.Handler.CommitBid)
	api.HandleFunc("GET /api/v1/tenders/{tenderID}/bids/{bidder}", cfg.Handler.GetCommitment)
	api.HandleFunc("POST /api/v1/tenders/{tenderID}/reveals", cfg.Handler.RevealBid)
	api.HandleFunc("POST /api/v1/tenders/{tenderID}/close", cfg.Handler.CloseTender)
	api.HandleFunc("GET /api/v1/tenders/{tenderID}/bidders", cfg.Handler.GetBidders)
	api.HandleFunc("GET /api/v1/tenders/{tenderID}/winner", cfg.Handler.GetWinner)
	api.HandleFunc("POST /api/v1/seal", cfg.Handler.SealBid)
	api.HandleFunc("POST /api/v1/unseal", cfg.Handler.UnsealBid)

	var protected http.Handler = api
	if cfg.RateLimit != nil {
		protected = cfg.RateLimit(protected)
	}
	if cfg.Auth != nil {
		protected = cfg.Auth(protected)
	}
	mux.Handle("/api/", protected)

	return Chain(mux, cfg.Middlewares...)
}
