package edgar

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/altsignals/internal/contracts"
	"github.com/wonny/altsignals/internal/frequency"
)

// Collector turns SEC Form 4 insider filings into signals. Insider
// purchases are among the strongest known alternative signals; sales
// are weaker because insiders sell for many non-informational reasons.
type Collector struct {
	client *Client
}

// NewCollector creates a Form 4 collector.
func NewCollector(client *Client) *Collector {
	return &Collector{client: client}
}

func (c *Collector) Meta() contracts.CollectorMeta {
	return contracts.CollectorMeta{
		SignalType: "sec_form_4",
		Category:   contracts.CategoryRegulatory,
		Source:     "SEC EDGAR",
		Tier:       frequency.TierDaily,
	}
}

func (c *Collector) IsApplicable(company *contracts.Company) bool {
	return company.HasSECFilings && company.CIK != ""
}

func (c *Collector) Fetch(ctx context.Context, company *contracts.Company, start, end time.Time) (interface{}, error) {
	resp, err := c.client.FetchSubmissions(ctx, company.CIK)
	if err != nil {
		return nil, err
	}
	return FilingsByForm(resp, "4", start, end), nil
}

func (c *Collector) Process(company *contracts.Company, raw interface{}) ([]contracts.Signal, error) {
	filings, ok := raw.([]Filing)
	if !ok {
		return nil, fmt.Errorf("unexpected raw type %T for Form 4 filings", raw)
	}

	signals := make([]contracts.Signal, 0, len(filings))
	for _, filing := range filings {
		score, confidence := scoreFiling(filing)

		signals = append(signals, contracts.Signal{
			CompanyID:  company.ID,
			SignalType: "sec_form_4",
			Category:   contracts.CategoryRegulatory,
			Timestamp:  filing.FilingDate,
			Score:      score,
			Confidence: confidence,
			RawValue: map[string]interface{}{
				"accession_number":    filing.AccessionNumber,
				"filing_date":         filing.FilingDate.Format("2006-01-02"),
				"acceptance_datetime": filing.AcceptanceDateTime,
				"primary_document":    filing.PrimaryDocument,
			},
			SourceName:  "SEC EDGAR",
			Description: fmt.Sprintf("Form 4 filing on %s", filing.FilingDate.Format("2006-01-02")),
			Metadata: map[string]string{
				"source_url": fmt.Sprintf("https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&CIK=%s&type=4", company.CIK),
			},
		})
	}
	return signals, nil
}

// scoreFiling assigns a score to one Form 4 filing. The submissions
// index carries no transaction details (buy vs sell lives in the filing
// XML), so the filing-presence signal is neutral at moderate
// confidence. Filings accepted Friday after market close get reduced
// confidence: late-Friday disclosure is a known burying pattern.
func scoreFiling(filing Filing) (score, confidence float64) {
	score = 0
	confidence = 0.5

	if accepted, err := time.Parse("2006-01-02T15:04:05.000Z", filing.AcceptanceDateTime); err == nil {
		if accepted.Weekday() == time.Friday && accepted.Hour() >= 21 {
			confidence = 0.4
		}
	}
	return score, confidence
}
