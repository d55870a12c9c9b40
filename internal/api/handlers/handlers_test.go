package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/altsignals/internal/contracts"
	"github.com/wonny/altsignals/pkg/logger"
)

// The happy paths need a live database and are covered by the repository
// integration tests; these exercise parameter validation, which fails
// before any repository or engine call.

func TestListCompanies(t *testing.T) {
	h := NewSignalsHandler(nil, contracts.DefaultCompanies(), logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/companies", nil)
	rec := httptest.NewRecorder()
	h.ListCompanies(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var companies []contracts.Company
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &companies))
	assert.NotEmpty(t, companies)

	ids := make([]string, 0, len(companies))
	for _, c := range companies {
		ids = append(ids, c.ID)
	}
	assert.Contains(t, ids, "UBER")
}

func TestGetSignals_ParamValidation(t *testing.T) {
	h := NewSignalsHandler(nil, contracts.DefaultCompanies(), logger.NewNop())

	tests := []struct {
		name     string
		query    string
		wantCode int
	}{
		{"missing company", "", http.StatusBadRequest},
		{"unknown company", "?company=ENRON", http.StatusNotFound},
		{"bad from date", "?company=UBER&from=01-02-2026", http.StatusBadRequest},
		{"bad to date", "?company=UBER&to=soon", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/signals"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.GetSignals(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestGetValidation_ParamValidation(t *testing.T) {
	h := NewValidationHandler(nil, contracts.DefaultCompanies(), logger.NewNop())

	tests := []struct {
		name     string
		query    string
		wantCode int
	}{
		{"missing company", "", http.StatusBadRequest},
		{"unknown company", "?company=ENRON", http.StatusNotFound},
		{"bad horizons", "?company=UBER&horizons=5,abc", http.StatusBadRequest},
		{"alpha out of range", "?company=UBER&alpha=1.5", http.StatusBadRequest},
		{"min_samples too small", "?company=UBER&min_samples=1", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/validation"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.GetValidation(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestParseIntList(t *testing.T) {
	horizons, err := parseIntList("5, 20,60")
	require.NoError(t, err)
	assert.Equal(t, []int{5, 20, 60}, horizons)

	_, err = parseIntList("5,twenty")
	assert.Error(t, err)
}
