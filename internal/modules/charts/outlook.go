package charts

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/roi-tracker/internal/domain"
)

// MaxOutlookPeriods bounds the break-even estimate; slower trends have no outlook
const MaxOutlookPeriods = 1000

// Outlook is the break-even estimate derived from the ROI trend
type Outlook struct {
	CurrentROI          float64 `json:"current_roi"`
	CurrentROIFormatted string  `json:"current_roi_formatted"`
	SlopePerPeriod      float64 `json:"slope_per_period"`
	// PeriodsToPositive is 0 when ROI is already non-negative
	PeriodsToPositive int  `json:"periods_to_positive"`
	Positive          bool `json:"positive"`
}

// BuildOutlook fits a least-squares line through the ROI values by record
// index. It returns nil with fewer than two records, when ROI is negative
// and not improving, or when break-even is more than MaxOutlookPeriods away.
func BuildOutlook(records []domain.ROIRecord) *Outlook {
	if len(records) < 2 {
		return nil
	}

	xs := make([]float64, len(records))
	ys := make([]float64, len(records))
	for i, r := range records {
		xs[i] = float64(i)
		ys[i] = r.ROI
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)
	current := records[len(records)-1].ROI

	out := &Outlook{
		CurrentROI:          current,
		CurrentROIFormatted: FormatCurrency(current),
		SlopePerPeriod:      slope,
		Positive:            current >= 0,
	}
	if out.Positive {
		return out
	}
	if slope <= 0 || math.IsNaN(slope) {
		return nil
	}

	periods := math.Ceil(-current / slope)
	if periods > MaxOutlookPeriods || math.IsInf(periods, 0) {
		return nil
	}
	out.PeriodsToPositive = int(periods)
	return out
}
