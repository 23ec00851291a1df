package api

import (
	"net/http"

	"github.com/cadencebot/cadence/internal/gatekeeper"
	"github.com/cadencebot/cadence/internal/store"
	"github.com/cadencebot/cadence/pkg/perms"
)

func (r *Router) handleCheck(w http.ResponseWriter, req *http.Request) {
	var checkReq gatekeeper.CheckRequest
	if !decodeJSON(w, req, &checkReq) {
		return
	}
	if checkReq.TenantID == "" || checkReq.CommandID == "" {
		writeJSONError(w, http.StatusBadRequest, "tenantId and commandId are required")
		return
	}

	decision, err := r.gatekeeper.Check(req.Context(), checkReq)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "check failed")
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (r *Router) handleGetTenantConfig(w http.ResponseWriter, req *http.Request) {
	cfg, err := r.registry.Store().TenantConfig(req.Context(), req.PathValue("tenant"))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load tenant config")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (r *Router) handlePutTenantConfig(w http.ResponseWriter, req *http.Request) {
	tenantID := req.PathValue("tenant")

	var cfg store.TenantConfig
	if !decodeJSON(w, req, &cfg) {
		return
	}
	cfg.ID = tenantID

	if err := r.registry.Store().SaveTenantConfig(req.Context(), &cfg); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to save tenant config")
		return
	}
	r.hub.Broadcast("tenant_config_changed", map[string]string{"tenantId": tenantID})
	writeJSON(w, http.StatusOK, &cfg)
}

// handleGetCommandOptions returns the raw command-level record, 404 when
// the command was never configured. The effective endpoint still resolves
// through inheritance in that case.
func (r *Router) handleGetCommandOptions(w http.ResponseWriter, req *http.Request) {
	r.getOptions(w, req, req.PathValue("command"), (*store.TenantConfig).CommandOptionsFor)
}

func (r *Router) handleGetCategoryOptions(w http.ResponseWriter, req *http.Request) {
	r.getOptions(w, req, req.PathValue("category"), (*store.TenantConfig).CategoryOptionsFor)
}

func (r *Router) getOptions(w http.ResponseWriter, req *http.Request, id string, lookup func(*store.TenantConfig, string) *perms.Options) {
	cfg, err := r.registry.Store().TenantConfig(req.Context(), req.PathValue("tenant"))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load tenant config")
		return
	}
	opts := lookup(cfg, id)
	if opts == nil {
		writeJSONError(w, http.StatusNotFound, "not configured")
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (r *Router) handlePutCommandOptions(w http.ResponseWriter, req *http.Request) {
	r.putOptions(w, req, req.PathValue("command"), func(cfg *store.TenantConfig, id string, opts *perms.Options) {
		if cfg.CommandOptions == nil {
			cfg.CommandOptions = make(map[string]*perms.Options)
		}
		cfg.CommandOptions[id] = opts
	})
}

func (r *Router) handlePutCategoryOptions(w http.ResponseWriter, req *http.Request) {
	r.putOptions(w, req, req.PathValue("category"), func(cfg *store.TenantConfig, id string, opts *perms.Options) {
		if cfg.CategoryOptions == nil {
			cfg.CategoryOptions = make(map[string]*perms.Options)
		}
		cfg.CategoryOptions[id] = opts
	})
}

func (r *Router) putOptions(w http.ResponseWriter, req *http.Request, id string, assign func(*store.TenantConfig, string, *perms.Options)) {
	tenantID := req.PathValue("tenant")

	opts := perms.NewOptions()
	if !decodeJSON(w, req, opts) {
		return
	}

	cfg, err := r.registry.Store().TenantConfig(req.Context(), tenantID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load tenant config")
		return
	}
	assign(cfg, id, opts)
	if err := r.registry.Store().SaveTenantConfig(req.Context(), cfg); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to save tenant config")
		return
	}

	r.hub.Broadcast("tenant_config_changed", map[string]string{"tenantId": tenantID})
	writeJSON(w, http.StatusOK, opts)
}

func (r *Router) handleDeleteCommandOptions(w http.ResponseWriter, req *http.Request) {
	r.deleteOptions(w, req, req.PathValue("command"), func(cfg *store.TenantConfig, id string) {
		delete(cfg.CommandOptions, id)
	})
}

func (r *Router) handleDeleteCategoryOptions(w http.ResponseWriter, req *http.Request) {
	r.deleteOptions(w, req, req.PathValue("category"), func(cfg *store.TenantConfig, id string) {
		delete(cfg.CategoryOptions, id)
	})
}

func (r *Router) deleteOptions(w http.ResponseWriter, req *http.Request, id string, remove func(*store.TenantConfig, string)) {
	tenantID := req.PathValue("tenant")

	cfg, err := r.registry.Store().TenantConfig(req.Context(), tenantID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load tenant config")
		return
	}
	remove(cfg, id)
	if err := r.registry.Store().SaveTenantConfig(req.Context(), cfg); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to save tenant config")
		return
	}

	r.hub.Broadcast("tenant_config_changed", map[string]string{"tenantId": tenantID})
	w.WriteHeader(http.StatusNoContent)
}

// effectiveOptionsResponse is the resolved view plus per-field provenance.
type effectiveOptionsResponse struct {
	Enabled          bool      `json:"enabled"`
	DisabledChannels perms.Set `json:"disabledChannels"`
	DisabledUsers    perms.Set `json:"disabledUsers"`
	DisabledRoles    perms.Set `json:"disabledRoles"`
	InheritToggle    bool      `json:"inheritToggle"`
	InheritChannels  bool      `json:"inheritChannels"`
	InheritUsers     bool      `json:"inheritUsers"`
	InheritRoles     bool      `json:"inheritRoles"`
}

func (r *Router) handleGetEffectiveOptions(w http.ResponseWriter, req *http.Request) {
	cfg, err := r.registry.Store().TenantConfig(req.Context(), req.PathValue("tenant"))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load tenant config")
		return
	}

	eff := cfg.Resolve(req.PathValue("command"), req.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, effectiveOptionsResponse{
		Enabled:          eff.Enabled(),
		DisabledChannels: eff.Channels(),
		DisabledUsers:    eff.Users(),
		DisabledRoles:    eff.Roles(),
		InheritToggle:    eff.InheritToggle(),
		InheritChannels:  eff.InheritChannels(),
		InheritUsers:     eff.InheritUsers(),
		InheritRoles:     eff.InheritRoles(),
	})
}
