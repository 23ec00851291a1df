// Package api exposes the configuration and entitlement core over HTTP.
// The command dispatcher calls /api/check on every invocation; tenant
// dashboards read and write option records; billing and administration
// drive pledges, keys and redemptions.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cadencebot/cadence/internal/config"
	"github.com/cadencebot/cadence/internal/gatekeeper"
	"github.com/cadencebot/cadence/internal/redeem"
	"github.com/cadencebot/cadence/internal/registry"
	"github.com/cadencebot/cadence/internal/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Router handles HTTP routing.
type Router struct {
	mux        *http.ServeMux
	cfg        *config.Config
	registry   *registry.Registry
	gatekeeper *gatekeeper.Gatekeeper
	redeemer   *redeem.Service
	hub        *websocket.Hub
	version    string
	startTime  time.Time
}

// NewRouter creates the API router.
func NewRouter(cfg *config.Config, reg *registry.Registry, gk *gatekeeper.Gatekeeper, rd *redeem.Service, hub *websocket.Hub, version string) http.Handler {
	r := &Router{
		mux:        http.NewServeMux(),
		cfg:        cfg,
		registry:   reg,
		gatekeeper: gk,
		redeemer:   rd,
		hub:        hub,
		version:    version,
		startTime:  time.Now(),
	}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	r.mux.HandleFunc("GET /api/health", r.handleHealth)
	r.mux.HandleFunc("GET /api/version", r.handleVersion)
	r.mux.Handle("GET /metrics", promhttp.Handler())

	r.mux.HandleFunc("POST /api/check", r.handleCheck)

	r.mux.HandleFunc("GET /api/tenants/{tenant}/config", r.handleGetTenantConfig)
	r.mux.HandleFunc("PUT /api/tenants/{tenant}/config", r.handlePutTenantConfig)
	r.mux.HandleFunc("GET /api/tenants/{tenant}/commands/{command}/options", r.handleGetCommandOptions)
	r.mux.HandleFunc("PUT /api/tenants/{tenant}/commands/{command}/options", r.handlePutCommandOptions)
	r.mux.HandleFunc("DELETE /api/tenants/{tenant}/commands/{command}/options", r.handleDeleteCommandOptions)
	r.mux.HandleFunc("GET /api/tenants/{tenant}/categories/{category}/options", r.handleGetCategoryOptions)
	r.mux.HandleFunc("PUT /api/tenants/{tenant}/categories/{category}/options", r.handlePutCategoryOptions)
	r.mux.HandleFunc("DELETE /api/tenants/{tenant}/categories/{category}/options", r.handleDeleteCategoryOptions)
	r.mux.HandleFunc("GET /api/tenants/{tenant}/commands/{command}/effective", r.handleGetEffectiveOptions)

	r.mux.HandleFunc("GET /api/tenants/{tenant}/premium", r.handleGetTenantPremium)
	r.mux.HandleFunc("POST /api/premium/redeem", r.handleRedeem)
	r.mux.HandleFunc("GET /api/accounts/{account}/quota", r.handleGetAccountQuota)
	r.mux.HandleFunc("GET /api/accounts/{account}/pledge", r.handleGetPledge)
	r.mux.HandleFunc("PUT /api/accounts/{account}/pledge", r.requireAdmin(r.handlePutPledge))
	r.mux.HandleFunc("POST /api/admin/keys", r.requireAdmin(r.handleGenerateKeys))
	r.mux.HandleFunc("DELETE /api/admin/tenants/{tenant}/premium", r.requireAdmin(r.handleRevokeTenantPremium))

	r.mux.HandleFunc("GET /ws", r.hub.HandleWebSocket)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	r.mux.ServeHTTP(w, req)
	log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Dur("elapsed", time.Since(start)).
		Msg("Request handled")
}

// requireAdmin gates administrative endpoints behind the configured token.
// With no token configured the endpoints are disabled outright.
func (r *Router) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if r.cfg.AdminToken == "" {
			writeJSONError(w, http.StatusForbidden, "admin API disabled")
			return
		}
		if req.Header.Get("X-Admin-Token") != r.cfg.AdminToken {
			writeJSONError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next(w, req)
	}
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := r.registry.Store().Ping(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		log.Warn().Err(err).Msg("Health check store ping failed")
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"uptime":    time.Since(r.startTime).Seconds(),
		"clients":   r.hub.ClientCount(),
	})
}

func (r *Router) handleVersion(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": r.version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, req *http.Request, v any) bool {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
