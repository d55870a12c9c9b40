package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/wonny/altsignals/internal/backtest"
	"github.com/wonny/altsignals/internal/contracts"
	"github.com/wonny/altsignals/pkg/logger"
)

// ValidationHandler runs the validation engine on demand.
type ValidationHandler struct {
	engine    *backtest.Engine
	companies *contracts.CompanyRegistry
	logger    *logger.Logger
}

// NewValidationHandler creates a new validation handler
func NewValidationHandler(engine *backtest.Engine, companies *contracts.CompanyRegistry, log *logger.Logger) *ValidationHandler {
	return &ValidationHandler{
		engine:    engine,
		companies: companies,
		logger:    log,
	}
}

// GetValidation computes the validation report for one company
// GET /api/validation?company=UBER&horizons=5,20,60&alpha=0.05
func (h *ValidationHandler) GetValidation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	companyID := r.URL.Query().Get("company")
	if companyID == "" {
		respondError(w, http.StatusBadRequest, "company parameter is required")
		return
	}
	company, ok := h.companies.Get(companyID)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown company: "+companyID)
		return
	}

	runCfg := backtest.RunConfig{
		CompanyID: company.ID,
		Ticker:    company.Ticker,
	}

	if raw := r.URL.Query().Get("horizons"); raw != "" {
		horizons, err := parseIntList(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid horizons (expected e.g. 5,20,60)")
			return
		}
		runCfg.Horizons = horizons
	}
	if raw := r.URL.Query().Get("alpha"); raw != "" {
		alpha, err := strconv.ParseFloat(raw, 64)
		if err != nil || alpha <= 0 || alpha >= 1 {
			respondError(w, http.StatusBadRequest, "invalid alpha (expected a value in (0, 1))")
			return
		}
		runCfg.Alpha = alpha
	}
	if raw := r.URL.Query().Get("min_samples"); raw != "" {
		minSamples, err := strconv.Atoi(raw)
		if err != nil || minSamples < 2 {
			respondError(w, http.StatusBadRequest, "invalid min_samples")
			return
		}
		runCfg.MinSamples = minSamples
	}

	report, err := h.engine.Run(ctx, runCfg)
	if err != nil {
		h.logger.WithError(err).Error("Validation run failed")
		respondError(w, http.StatusInternalServerError, "Validation failed: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, report)
}

func parseIntList(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
