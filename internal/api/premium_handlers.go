package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/cadencebot/cadence/internal/redeem"
	"github.com/cadencebot/cadence/internal/store"
)

type tenantPremiumResponse struct {
	Premium         bool  `json:"premium"`
	RemainingMillis int64 `json:"remainingMillis"`
	QueueLimit      int   `json:"queueLimit"`
	TrackLengthSecs int64 `json:"trackLengthSecs"`
}

func (r *Router) handleGetTenantPremium(w http.ResponseWriter, req *http.Request) {
	tenantID := req.PathValue("tenant")

	premium, remaining, err := r.registry.TenantPremium(req.Context(), tenantID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load tenant entitlement")
		return
	}
	quotas, err := r.registry.QuotasForTenant(req.Context(), tenantID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to resolve tenant quotas")
		return
	}

	writeJSON(w, http.StatusOK, tenantPremiumResponse{
		Premium:         premium,
		RemainingMillis: remaining.Milliseconds(),
		QueueLimit:      quotas.QueueSizeLimit,
		TrackLengthSecs: int64(quotas.TrackLengthCap / time.Second),
	})
}

type redeemRequest struct {
	KeyID     string `json:"keyId"`
	AccountID string `json:"accountId"`
	TenantID  string `json:"tenantId"`
}

func (r *Router) handleRedeem(w http.ResponseWriter, req *http.Request) {
	var rr redeemRequest
	if !decodeJSON(w, req, &rr) {
		return
	}
	if rr.KeyID == "" || rr.AccountID == "" {
		writeJSONError(w, http.StatusBadRequest, "keyId and accountId are required")
		return
	}

	result, err := r.redeemer.Redeem(req.Context(), rr.KeyID, rr.AccountID, rr.TenantID)
	switch {
	case errors.Is(err, redeem.ErrUnknownKey):
		writeJSONError(w, http.StatusNotFound, "unknown key")
		return
	case errors.Is(err, redeem.ErrKeyRedeemed):
		writeJSONError(w, http.StatusConflict, "key already redeemed")
		return
	case errors.Is(err, redeem.ErrQuotaExhausted):
		writeJSONError(w, http.StatusForbidden, "tenant quota exhausted")
		return
	case err != nil:
		writeJSONError(w, http.StatusInternalServerError, "redemption failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type accountQuotaResponse struct {
	Premium            bool    `json:"premium"`
	PledgeAmount       float64 `json:"pledgeAmount"`
	RemainingMillis    int64   `json:"remainingMillis"`
	TotalTenants       int     `json:"totalTenants"`
	RemainingTenants   int     `json:"remainingTenants"`
	TotalPlaylists     int     `json:"totalPlaylists"`
	RemainingPlaylists int     `json:"remainingPlaylists"`
}

func (r *Router) handleGetAccountQuota(w http.ResponseWriter, req *http.Request) {
	accountID := req.PathValue("account")

	premium, remaining, err := r.registry.AccountPremium(req.Context(), accountID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load account entitlement")
		return
	}
	quotas, err := r.registry.QuotasForAccount(req.Context(), accountID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to resolve account quotas")
		return
	}

	writeJSON(w, http.StatusOK, accountQuotaResponse{
		Premium:            premium,
		PledgeAmount:       quotas.PledgeAmount,
		RemainingMillis:    remaining.Milliseconds(),
		TotalTenants:       quotas.TotalTenants,
		RemainingTenants:   quotas.RemainingTenants,
		TotalPlaylists:     quotas.TotalPlaylists,
		RemainingPlaylists: quotas.RemainingPlaylists,
	})
}

func (r *Router) handleGetPledge(w http.ResponseWriter, req *http.Request) {
	acc, err := r.registry.Store().PledgeAccount(req.Context(), req.PathValue("account"))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to load pledge")
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

type putPledgeRequest struct {
	PledgeAmount float64 `json:"pledgeAmount"`
}

func (r *Router) handlePutPledge(w http.ResponseWriter, req *http.Request) {
	accountID := req.PathValue("account")

	var pr putPledgeRequest
	if !decodeJSON(w, req, &pr) {
		return
	}
	if pr.PledgeAmount < 0 {
		writeJSONError(w, http.StatusBadRequest, "pledgeAmount must not be negative")
		return
	}

	pledge := &store.PledgeAccount{ID: accountID, PledgeAmount: pr.PledgeAmount}
	if err := r.registry.Store().SavePledgeAccount(req.Context(), pledge); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to save pledge")
		return
	}
	r.hub.Broadcast("entitlement_changed", map[string]string{"accountId": accountID})
	writeJSON(w, http.StatusOK, pledge)
}

type generateKeysRequest struct {
	Count          int    `json:"count"`
	Type           string `json:"type"`
	DurationMillis int64  `json:"durationMillis"`
}

func (r *Router) handleGenerateKeys(w http.ResponseWriter, req *http.Request) {
	var gr generateKeysRequest
	if !decodeJSON(w, req, &gr) {
		return
	}
	if gr.Count < 1 || gr.Count > 1000 {
		writeJSONError(w, http.StatusBadRequest, "count must be between 1 and 1000")
		return
	}
	if gr.DurationMillis <= 0 {
		writeJSONError(w, http.StatusBadRequest, "durationMillis must be positive")
		return
	}
	keyType := store.KeyType(gr.Type)
	if keyType != store.KeyTenant && keyType != store.KeyAccount {
		writeJSONError(w, http.StatusBadRequest, "unknown key type")
		return
	}

	keys, err := r.redeemer.GenerateKeys(req.Context(), gr.Count, keyType, time.Duration(gr.DurationMillis)*time.Millisecond)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "key generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

func (r *Router) handleRevokeTenantPremium(w http.ResponseWriter, req *http.Request) {
	tenantID := req.PathValue("tenant")
	grantID := req.URL.Query().Get("grant")

	if err := r.redeemer.RevokeTenant(req.Context(), tenantID, grantID); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "revocation failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
