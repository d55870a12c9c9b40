package contracts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/altsignals/internal/frequency"
)

// CollectorMeta describes a collector: what signal type it produces,
// where the data comes from, and how often it should update.
type CollectorMeta struct {
	SignalType string
	Category   Category
	Source     string
	Tier       frequency.Tier
}

// Collector is the capability contract every data source adapter
// implements. The orchestrator treats collectors as opaque, unreliable,
// independently-failing units: it only calls these operations in sequence
// and catches any failure at the task boundary.
type Collector interface {
	// Meta returns static metadata about this collector.
	Meta() CollectorMeta

	// IsApplicable reports whether this signal type can be collected
	// for the given company.
	IsApplicable(company *Company) bool

	// Fetch retrieves raw data from the source for the time range.
	Fetch(ctx context.Context, company *Company, start, end time.Time) (interface{}, error)

	// Process converts raw data from Fetch into normalized signals.
	Process(company *Company, raw interface{}) ([]Signal, error)
}

// CollectorRegistry holds all registered collectors keyed by signal type.
type CollectorRegistry struct {
	mu         sync.RWMutex
	collectors map[string]Collector
}

// NewCollectorRegistry creates an empty registry.
func NewCollectorRegistry() *CollectorRegistry {
	return &CollectorRegistry{
		collectors: make(map[string]Collector),
	}
}

// Register adds a collector. The last registration for a signal type wins.
func (r *CollectorRegistry) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors[c.Meta().SignalType] = c
}

// Get returns the collector for a signal type.
func (r *CollectorRegistry) Get(signalType string) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collectors[signalType]
	return c, ok
}

// ListAll returns all collectors sorted by signal type for deterministic
// iteration.
func (r *CollectorRegistry) ListAll() []Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	collectors := make([]Collector, 0, len(r.collectors))
	for _, c := range r.collectors {
		collectors = append(collectors, c)
	}
	sort.Slice(collectors, func(i, j int) bool {
		return collectors[i].Meta().SignalType < collectors[j].Meta().SignalType
	})
	return collectors
}

// ListApplicable returns collectors applicable to a company.
func (r *CollectorRegistry) ListApplicable(company *Company) []Collector {
	all := r.ListAll()
	applicable := make([]Collector, 0, len(all))
	for _, c := range all {
		if c.IsApplicable(company) {
			applicable = append(applicable, c)
		}
	}
	return applicable
}
