package domain

import (
	"strings"
	"time"
)

// RawNumbers is the monetary breakdown behind one period's ROI figure
type RawNumbers struct {
	SubscriptionCost  float64 `json:"subscription_cost" msgpack:"subscription_cost"`
	CumulativeSavings float64 `json:"cumulative_savings" msgpack:"cumulative_savings"`
	PeriodSavings     float64 `json:"period_savings" msgpack:"period_savings"`
	CCFeeSavings      float64 `json:"cc_fee_savings" msgpack:"cc_fee_savings"`
	ACHCosts          float64 `json:"ach_costs" msgpack:"ach_costs"`
	ACHSavings        float64 `json:"ach_savings" msgpack:"ach_savings"`
	PotentialCCCost   float64 `json:"potential_cc_cost" msgpack:"potential_cc_cost"`
	ActualCCCost      float64 `json:"actual_cc_cost" msgpack:"actual_cc_cost"`
}

// ROIRecord is one data point per simulated period
type ROIRecord struct {
	Period     string     `json:"period" msgpack:"period"`
	ROI        float64    `json:"roi" msgpack:"roi"`
	Forecast   float64    `json:"forecast" msgpack:"forecast"`
	RawNumbers RawNumbers `json:"raw_numbers" msgpack:"raw_numbers"`
}

// Severity is the alert tag assigned by the backend
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Valid reports whether the severity is one of the known tags
func (s Severity) Valid() bool {
	switch s {
	case SeveritySuccess, SeverityInfo, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// Display returns the severity used for presentation. Unknown tags render as info.
func (s Severity) Display() Severity {
	if s.Valid() {
		return s
	}
	return SeverityInfo
}

// Title is the capitalised label shown in front of an alert message
func (s Severity) Title() string {
	d := string(s.Display())
	return strings.ToUpper(d[:1]) + d[1:]
}

// Alert is a backend-produced notice, displayed as received
type Alert struct {
	Type      Severity `json:"type" msgpack:"type"`
	Message   string   `json:"message" msgpack:"message"`
	Timestamp string   `json:"timestamp" msgpack:"timestamp"`
}

// timestampLayouts covers RFC3339 and the naive ISO form the backend emits (no zone)
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Time parses the alert timestamp. Naive timestamps are read as UTC.
func (a Alert) Time() (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, a.Timestamp); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ROIResponse is the body of GET /roi
type ROIResponse struct {
	Results       []ROIRecord `json:"results"`
	Alerts        []Alert     `json:"alerts"`
	CurrentPeriod int         `json:"current_period"`
}

// PeriodResponse is the body of POST /next-period
type PeriodResponse struct {
	Message       string `json:"message,omitempty"`
	CurrentPeriod int    `json:"current_period"`
}

// PeriodInput is one period of raw transaction data accepted by POST /period
type PeriodInput struct {
	Period    string  `json:"period"`
	CCVolume  float64 `json:"cc_volume"`
	CCCount   int     `json:"cc_count"`
	ACHVolume float64 `json:"ach_volume"`
	ACHCount  int     `json:"ach_count"`
	CCRate    float64 `json:"cc_rate"`
	ConvFee   float64 `json:"conv_fee"`
}
