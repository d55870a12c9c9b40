package contracts

import "time"

// Direction is the empirical verdict for a signal type: which way prices
// actually moved after it fired, independent of the signal's own polarity.
type Direction string

const (
	DirectionBullish    Direction = "bullish"
	DirectionContrarian Direction = "contrarian"
	DirectionNone       Direction = "none"
)

// BacktestRecord is one (signal event, horizon) observation: the forward
// return realized after the signal fired. Derived and ephemeral.
type BacktestRecord struct {
	SignalType    string    `json:"signal_type"`
	CompanyID     string    `json:"company_id"`
	SignalTime    time.Time `json:"signal_time"`
	Score         float64   `json:"score"`
	EntryDate     time.Time `json:"entry_date"`
	EntryPrice    float64   `json:"entry_price"`
	ExitDate      time.Time `json:"exit_date"`
	ExitPrice     float64   `json:"exit_price"`
	ForwardReturn float64   `json:"forward_return"`
}

// ValidationResult holds the statistics for one signal type at one
// horizon. When InsufficientData is set, the statistical fields are
// reported as computed but must not be trusted; Significant is always
// false in that case.
type ValidationResult struct {
	CompanyID  string `json:"company_id"`
	SignalType string `json:"signal_type"`
	Horizon    int    `json:"horizon"`

	N          int     `json:"n"`
	MeanReturn float64 `json:"mean_return"`
	StdReturn  float64 `json:"std_return"`
	TStat      float64 `json:"t_stat"`
	PValue     float64 `json:"p_value"`

	// InformationCoefficient is the Spearman rank correlation between
	// signal score and forward return.
	InformationCoefficient float64 `json:"information_coefficient"`

	// HitRate is the fraction of non-neutral events whose forward
	// return agreed with the signal's own polarity.
	HitRate float64 `json:"hit_rate"`

	// Sharpe is mean/std of the per-event return series, unannualized.
	Sharpe float64 `json:"sharpe"`

	Significant      bool      `json:"significant"`
	InsufficientData bool      `json:"insufficient_data"`
	Direction        Direction `json:"direction"`
}
