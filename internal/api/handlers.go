/**
 * @description
 * This file contains the HTTP handlers for the distribution service: the
 * Account Activity webhook ingress (CRC challenge plus event delivery) and
 * the internal/admin endpoints.
 *
 * Key features:
 * - Security: validates the HMAC-SHA256 signature of incoming webhooks and
 *   answers Twitter's CRC challenge with the same secret.
 * - Error mapping: malformed payloads are 400s, unknown bot accounts 422s;
 *   per-pair pipeline failures never fail the webhook response.
 *
 * @dependencies
 * - crypto/hmac, crypto/sha256, encoding/base64: For signature validation.
 * - encoding/json, net/http: For request handling.
 * - The service's internal packages for domain models and business logic.
 */

package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/poapflow/distribution-service/internal/app"
	"github.com/poapflow/distribution-service/internal/domain"
	"github.com/poapflow/distribution-service/internal/store"
)

// DistributionHandlers holds the dependencies for the HTTP handlers.
type DistributionHandlers struct {
	service       *app.Service
	webhookSecret string
}

// NewDistributionHandlers creates a new handler set.
func NewDistributionHandlers(service *app.Service, webhookSecret string) *DistributionHandlers {
	return &DistributionHandlers{service: service, webhookSecret: webhookSecret}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// CRCHandler answers Twitter's challenge-response check: the response
// token is the HMAC-SHA256 of crc_token under the webhook secret.
func (h *DistributionHandlers) CRCHandler(w http.ResponseWriter, r *http.Request) {
	crcToken := r.URL.Query().Get("crc_token")
	if crcToken == "" {
		respondError(w, http.StatusBadRequest, "crc_token is required")
		return
	}

	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write([]byte(crcToken))
	responseToken := "sha256=" + base64.StdEncoding.EncodeToString(mac.Sum(nil))

	respondJSON(w, http.StatusOK, map[string]string{"response_token": responseToken})
}

// isValidSignature checks the x-twitter-webhooks-signature header against
// the HMAC-SHA256 of the raw body.
func (h *DistributionHandlers) isValidSignature(signature string, body []byte) bool {
	if h.webhookSecret == "" {
		// No secret configured: accept, but make noise about it.
		log.Println("level=warn component=webhook msg=\"webhook secret not configured; skipping signature validation\"")
		return true
	}
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := "sha256=" + base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// WebhookHandler ingests one Account Activity envelope and runs the
// distribution pipeline. The transport may redeliver the same envelope;
// idempotency is the pipeline's concern, so redeliveries still get a 200.
func (h *DistributionHandlers) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	if !h.isValidSignature(r.Header.Get("x-twitter-webhooks-signature"), body) {
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var envelope domain.ActivityEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if envelope.ForUserID == "" {
		respondError(w, http.StatusBadRequest, "for_user_id is required")
		return
	}
	if len(envelope.TweetCreateEvents) == 0 {
		// Account Activity sends follow/DM/etc. envelopes too; nothing to do.
		respondJSON(w, http.StatusOK, domain.BatchResult{})
		return
	}

	result, err := h.service.ProcessActivity(r.Context(), envelope)
	if err != nil {
		if errors.Is(err, app.ErrUnknownBotAccount) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		log.Printf("level=error component=webhook msg=\"pipeline run failed\" for_user_id=%s err=%v", envelope.ForUserID, err)
		respondError(w, http.StatusInternalServerError, "failed to process webhook event")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// assetImportRequest is the bulk import payload for one campaign.
type assetImportRequest struct {
	Assets []struct {
		Code     string `json:"code"`
		ClaimURL string `json:"claim_url"`
	} `json:"assets"`
}

// ImportAssetsHandler bulk-imports available assets for a campaign.
// Internal endpoint, shared-key protected.
func (h *DistributionHandlers) ImportAssetsHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	var req assetImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if len(req.Assets) == 0 {
		respondError(w, http.StatusBadRequest, "assets list is empty")
		return
	}

	assets := make([]domain.Asset, 0, len(req.Assets))
	for _, row := range req.Assets {
		asset := domain.Asset{ClaimURL: row.ClaimURL}
		if row.Code != "" {
			code := row.Code
			asset.Code = &code
		}
		assets = append(assets, asset)
	}

	imported, err := h.service.ImportAssets(r.Context(), campaignID, assets)
	if err != nil {
		if errors.Is(err, store.ErrCampaignNotFound) {
			respondError(w, http.StatusNotFound, "campaign not found")
			return
		}
		log.Printf("level=error component=api msg=\"asset import failed\" campaign_id=%s err=%v", campaignID, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]int{"imported": imported})
}

// ListCampaignsHandler returns the campaign directory for the dashboard.
func (h *DistributionHandlers) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.service.ListCampaigns(r.Context())
	if err != nil {
		log.Printf("level=error component=api msg=\"campaign list failed\" err=%v", err)
		respondError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"campaigns": campaigns})
}

// ListDeliveriesHandler returns one campaign's delivery ledger.
func (h *DistributionHandlers) ListDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if subject, ok := GetAdminSubject(r.Context()); ok {
		log.Printf("level=info component=api msg=\"delivery ledger read\" campaign_id=%s admin=%s", campaignID, subject)
	}

	deliveries, err := h.service.ListDeliveries(r.Context(), campaignID, limit, offset)
	if err != nil {
		if errors.Is(err, store.ErrCampaignNotFound) {
			respondError(w, http.StatusNotFound, "campaign not found")
			return
		}
		log.Printf("level=error component=api msg=\"delivery list failed\" campaign_id=%s err=%v", campaignID, err)
		respondError(w, http.StatusInternalServerError, "failed to list deliveries")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deliveries": deliveries})
}
