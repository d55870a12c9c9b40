package contracts

import (
	"sort"
	"sync"
)

// Company represents a public company that can be analyzed.
// Capability flags decide which collectors apply to it.
type Company struct {
	ID     string `json:"id"`
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	CIK    string `json:"cik,omitempty"` // SEC CIK number, zero-padded to 10 digits

	// Capabilities
	HasSECFilings        bool `json:"has_sec_filings"`
	HasApp               bool `json:"has_app"`
	HasPhysicalLocations bool `json:"has_physical_locations"`
	IsTechCompany        bool `json:"is_tech_company"`

	// Company-specific metadata (app store IDs, careers URL, wiki
	// article, competitors).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CompanyRegistry is an in-memory registry of companies available for
// analysis.
type CompanyRegistry struct {
	mu        sync.RWMutex
	companies map[string]*Company
}

// NewCompanyRegistry creates an empty registry.
func NewCompanyRegistry() *CompanyRegistry {
	return &CompanyRegistry{
		companies: make(map[string]*Company),
	}
}

// Register adds a company to the registry.
func (r *CompanyRegistry) Register(c *Company) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.companies[c.ID] = c
}

// Get returns a company by ID.
func (r *CompanyRegistry) Get(id string) (*Company, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.companies[id]
	return c, ok
}

// ListAll returns all registered companies, sorted by ID for
// deterministic iteration.
func (r *CompanyRegistry) ListAll() []*Company {
	r.mu.RLock()
	defer r.mu.RUnlock()

	companies := make([]*Company, 0, len(r.companies))
	for _, c := range r.companies {
		companies = append(companies, c)
	}
	sort.Slice(companies, func(i, j int) bool {
		return companies[i].ID < companies[j].ID
	})
	return companies
}

// DefaultCompanies returns a registry seeded with the initial coverage
// universe.
func DefaultCompanies() *CompanyRegistry {
	registry := NewCompanyRegistry()

	registry.Register(&Company{
		ID:            "UBER",
		Ticker:        "UBER",
		Name:          "Uber Technologies Inc",
		CIK:           "0001543151",
		HasSECFilings: true,
		HasApp:        true,
		IsTechCompany: true,
		Metadata: map[string]string{
			"wiki_article": "Uber",
			"appstore_id":  "368677368",
			"careers_url":  "https://www.uber.com/us/en/careers/list/",
			"competitors":  "LYFT,DASH",
		},
	})

	registry.Register(&Company{
		ID:            "LYFT",
		Ticker:        "LYFT",
		Name:          "Lyft Inc",
		CIK:           "0001759509",
		HasSECFilings: true,
		HasApp:        true,
		IsTechCompany: true,
		Metadata: map[string]string{
			"wiki_article": "Lyft",
			"appstore_id":  "529379082",
			"careers_url":  "https://www.lyft.com/careers",
			"competitors":  "UBER",
		},
	})

	return registry
}
