package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wonny/altsignals/internal/contracts"
	"github.com/wonny/altsignals/internal/data/repos"
	"github.com/wonny/altsignals/pkg/logger"
)

// SignalsHandler serves persisted signals and the coverage universe.
type SignalsHandler struct {
	signals   *repos.SignalRepository
	companies *contracts.CompanyRegistry
	logger    *logger.Logger
}

// NewSignalsHandler creates a new signals handler
func NewSignalsHandler(signals *repos.SignalRepository, companies *contracts.CompanyRegistry, log *logger.Logger) *SignalsHandler {
	return &SignalsHandler{
		signals:   signals,
		companies: companies,
		logger:    log,
	}
}

// ListCompanies returns the coverage universe
// GET /api/companies
func (h *SignalsHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.companies.ListAll())
}

// GetSignals returns signals for one company
// GET /api/signals?company=UBER&type=sec_form_4&from=2026-01-01&to=2026-03-01
func (h *SignalsHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	companyID := r.URL.Query().Get("company")
	if companyID == "" {
		respondError(w, http.StatusBadRequest, "company parameter is required")
		return
	}
	if _, ok := h.companies.Get(companyID); !ok {
		respondError(w, http.StatusNotFound, "unknown company: "+companyID)
		return
	}

	signalType := r.URL.Query().Get("type")

	start, err := parseDateParam(r, "from")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid from date (expected YYYY-MM-DD)")
		return
	}
	end, err := parseDateParam(r, "to")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid to date (expected YYYY-MM-DD)")
		return
	}

	signals, err := h.signals.QuerySignals(ctx, companyID, signalType, start, end)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query signals")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve signals")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"company": companyID,
		"count":   len(signals),
		"signals": signals,
	})
}

// GetSummary returns per-type signal counts for one company
// GET /api/signals/summary?company=UBER
func (h *SignalsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	companyID := r.URL.Query().Get("company")
	if companyID == "" {
		respondError(w, http.StatusBadRequest, "company parameter is required")
		return
	}

	counts, err := h.signals.CountByType(ctx, companyID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to count signals")
		respondError(w, http.StatusInternalServerError, "Failed to summarize signals")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"company": companyID,
		"counts":  counts,
	})
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", raw)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
