package charts

import (
	"fmt"

	"github.com/aristath/roi-tracker/internal/domain"
)

// Metric is one labelled amount in the detail panel
type Metric struct {
	Label     string  `json:"label"`
	Amount    float64 `json:"amount"`
	Formatted string  `json:"formatted"`
	// Positive is set only on metrics rendered with a gain/loss colour
	Positive *bool `json:"positive,omitempty"`
}

// Section groups related metrics under a heading
type Section struct {
	Title   string   `json:"title"`
	Metrics []Metric `json:"metrics"`
}

// Detail is the panel shown for the inspected record
type Detail struct {
	Title    string    `json:"title"`
	Period   string    `json:"period"`
	Index    int       `json:"index"`
	Sections []Section `json:"sections"`
	Hint     string    `json:"hint"`
}

// DetailHint tells users how to change the inspected record
const DetailHint = "Click on any point in the chart to view its detailed metrics"

// BuildDetail renders the detail panel for records[index]
func BuildDetail(record domain.ROIRecord, index int) Detail {
	raw := record.RawNumbers
	positive := record.ROI >= 0

	return Detail{
		Title:  fmt.Sprintf("Detailed Metrics for %s", record.Period),
		Period: record.Period,
		Index:  index,
		Sections: []Section{
			{
				Title:   "Investment",
				Metrics: []Metric{metric("Subscription Cost", raw.SubscriptionCost)},
			},
			{
				Title: "Savings",
				Metrics: []Metric{
					metric("Period Savings", raw.PeriodSavings),
					metric("Cumulative Savings", raw.CumulativeSavings),
					{Label: "Net ROI", Amount: record.ROI, Formatted: FormatCurrency(record.ROI), Positive: &positive},
				},
			},
			{
				Title: "Fee Analysis",
				Metrics: []Metric{
					metric("CC Fee Savings", raw.CCFeeSavings),
					metric("ACH Costs", raw.ACHCosts),
					metric("ACH Savings", raw.ACHSavings),
					metric("Actual CC Cost", raw.ActualCCCost),
				},
			},
		},
		Hint: DetailHint,
	}
}

// Metric looks up a metric by label across all sections
func (d Detail) Metric(label string) (Metric, bool) {
	for _, s := range d.Sections {
		for _, m := range s.Metrics {
			if m.Label == label {
				return m, true
			}
		}
	}
	return Metric{}, false
}

func metric(label string, amount float64) Metric {
	return Metric{Label: label, Amount: amount, Formatted: FormatCurrency(amount)}
}
