package contracts

import (
	"fmt"
	"time"
)

// Category groups signal types by the nature of their source.
type Category string

const (
	CategoryRegulatory  Category = "regulatory"
	CategoryWorkforce   Category = "workforce"
	CategoryWebDigital  Category = "web_digital"
	CategoryProduct     Category = "product"
	CategoryFinancial   Category = "financial"
	CategoryAlternative Category = "alternative"
)

// Signal is one normalized, timestamped, scored observation about a
// company from one data source. All collectors output this format.
// Uniqueness key: (company_id, signal_type, timestamp). A signal is
// immutable once persisted except for metadata enrichment.
type Signal struct {
	CompanyID  string   `json:"company_id"`
	SignalType string   `json:"signal_type"`
	Category   Category `json:"category"`

	// Timestamp is event time (when the observation occurred), not
	// ingestion time.
	Timestamp  time.Time `json:"timestamp"`
	IngestedAt time.Time `json:"ingested_at,omitempty"`

	// Score is signal strength from -100 (strong bearish) to +100
	// (strong bullish). Sign is polarity, magnitude is conviction.
	Score float64 `json:"score"`

	// Confidence is the collector's self-reported reliability in [0, 1].
	Confidence float64 `json:"confidence"`

	// RawValue preserves the original source payload for audit and
	// re-scoring.
	RawValue map[string]interface{} `json:"raw_value,omitempty"`

	SourceName  string            `json:"source_name"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Validate checks signal invariants.
func (s *Signal) Validate() error {
	if s.CompanyID == "" {
		return fmt.Errorf("signal is missing company_id")
	}
	if s.SignalType == "" {
		return fmt.Errorf("signal is missing signal_type")
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("signal %s/%s is missing timestamp", s.CompanyID, s.SignalType)
	}
	if s.Score < -100 || s.Score > 100 {
		return fmt.Errorf("signal %s/%s score %.2f outside [-100, 100]", s.CompanyID, s.SignalType, s.Score)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("signal %s/%s confidence %.2f outside [0, 1]", s.CompanyID, s.SignalType, s.Confidence)
	}
	return nil
}

// Bullish reports whether the signal leans positive.
func (s *Signal) Bullish() bool {
	return s.Score > 0
}

// Bearish reports whether the signal leans negative.
func (s *Signal) Bearish() bool {
	return s.Score < 0
}
